// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/passgate/internal/platform/apperr"
)

/*
TestAppError_IsMatchesByCode verifies that sentinels survive cause attachment and wrapping.
*/
func TestAppError_IsMatchesByCode(t *testing.T) {
	sentinel := apperr.New("USER_EXISTS", http.StatusConflict, "User already exists")

	withCause := sentinel.WithCause(errors.New("duplicate key"))
	wrapped := fmt.Errorf("register: %w", withCause)

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.False(t, errors.Is(wrapped, apperr.Conflict("other")))

	// The sentinel itself must not be mutated by WithCause.
	assert.Nil(t, sentinel.Cause)
	assert.EqualError(t, errors.Unwrap(withCause), "duplicate key")
}

/*
TestAppError_Constructors checks the status mapping of the taxonomy.
*/
func TestAppError_Constructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *apperr.AppError
		status int
		code   string
	}{
		{"validation", apperr.ValidationError("bad"), http.StatusBadRequest, apperr.CodeValidation},
		{"not_found", apperr.NotFound("User"), http.StatusNotFound, apperr.CodeNotFound},
		{"conflict", apperr.Conflict("dup"), http.StatusConflict, apperr.CodeConflict},
		{"rate_limited", apperr.RateLimited("slow down", 60), http.StatusTooManyRequests, apperr.CodeRateLimited},
		{"crypto", apperr.Crypto("HASHING_FAILED", errors.New("rng")), http.StatusInternalServerError, "HASHING_FAILED"},
		{"notification", apperr.Notification("mail down", nil), http.StatusBadGateway, apperr.CodeNotification},
		{"unavailable", apperr.ServiceUnavailable("db down", nil), http.StatusServiceUnavailable, apperr.CodeServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

/*
TestAppError_CryptoHidesCause ensures internals never reach the client message.
*/
func TestAppError_CryptoHidesCause(t *testing.T) {
	err := apperr.Crypto("HASHING_FAILED", errors.New("entropy source exhausted"))

	assert.NotContains(t, err.Error(), "entropy")
	require.True(t, apperr.HasCode(fmt.Errorf("wrapped: %w", err), "HASHING_FAILED"))
	assert.Equal(t, 60, apperr.RateLimited("x", 60).RetryAfterSeconds)
}
