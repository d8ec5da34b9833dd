// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/taibuivan/passgate/internal/platform/apperr"
)

// # Domain Errors
//
// Each sentinel has its own code, so callers test them with errors.Is even
// after a cause was attached through WithCause.

var (
	ErrInvalidEmail          = apperr.New("INVALID_EMAIL", http.StatusBadRequest, "Invalid email address")
	ErrUserNotFound          = apperr.New("USER_NOT_FOUND", http.StatusNotFound, "No user with this email")
	ErrWrongPassword         = apperr.New("WRONG_PASSWORD", http.StatusUnauthorized, "Wrong password")
	ErrUserExists            = apperr.New("USER_EXISTS", http.StatusConflict, "A user with this email already exists")
	ErrPasswordMismatch      = apperr.New("PASSWORD_MISMATCH", http.StatusConflict, "Passwords do not match")
	ErrInvalidOrExpiredToken = apperr.New("INVALID_OR_EXPIRED_TOKEN", http.StatusConflict, "Password reset token is invalid or has expired")
	ErrHashingFailed         = apperr.Crypto("HASHING_FAILED", nil)
	ErrNotificationFailed    = apperr.Notification("The reset email could not be sent, please try again later", nil)
)
