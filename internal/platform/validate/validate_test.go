// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/passgate/internal/platform/apperr"
	"github.com/taibuivan/passgate/internal/platform/validate"
)

/*
TestIsHandle covers every rejected character class and the length floor.
*/
func TestIsHandle(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"plain", "alice", true},
		{"exactly_three", "abc", true},
		{"unicode_three_runes", "éàü", true},
		{"too_short", "ab", false},
		{"empty", "", false},
		{"dot", "a.b.c", false},
		{"space", "al ice", false},
		{"tab", "al\tice", false},
		{"less_than", "<script", false},
		{"greater_than", "abc>", false},
		{"double_quote", `ab"c`, false},
		{"symbols_allowed", "p@ss-w0rd!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, validate.IsHandle(tt.value))
		})
	}
}

/*
TestIsEmail checks the email grammar, including bracketed IPv4 domains.
*/
func TestIsEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{"simple", "a@b.com", true},
		{"upper_case", "Alice@Example.COM", true},
		{"dotted_local", "first.last@example.co.uk", true},
		{"ip_literal", "a@[192.168.1.1]", true},
		{"quoted_local", `"odd local"@example.com`, true},
		{"no_at", "not-an-email", false},
		{"missing_domain", "test@", false},
		{"short_tld", "a@b.c", false},
		{"leading_dot", ".a@b.com", false},
		{"double_dot", "a..b@b.com", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, validate.IsEmail(tt.email))
		})
	}
}

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "name", "passgate", false},
		{"empty_string", "name", "", true},
		{"whitespace_only", "name", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, "VALIDATION_ERROR", ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_Chain tests the fluent API (chaining multiple rules).
*/
func TestValidator_Chain(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Handle("name", "tai").
		MaxLen("name", "tai", 10).
		EmailAddress("email", "tai@passgate.dev").
		Handle("password", "s3cret!").
		Equal("password2", "s3cret!", "s3cret!").
		Err()

	assert.NoError(t, err)
	assert.False(t, v.HasErrors())
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Handle("name", "a.").                  // Fails
		EmailAddress("email", "not-an-email"). // Fails
		Equal("password2", "abc", "abd").      // Fails
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)

	assert.Len(t, ae.Details, 3)
	assert.Equal(t, "name", ae.Details[0].Field)
	assert.Equal(t, "password2", ae.Details[2].Field)
}

/*
TestValidator_MaxLen counts runes, not bytes.
*/
func TestValidator_MaxLen(t *testing.T) {
	assert.NoError(t, (&validate.Validator{}).MaxLen("name", "ñññ", 3).Err())

	err := (&validate.Validator{}).MaxLen("name", "ññññ", 3).Err()
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "name", ae.Details[0].Field)
	assert.Equal(t, "Maximum 3 characters", ae.Details[0].Message)
}

/*
TestFieldError builds a single-field validation error.
*/
func TestFieldError(t *testing.T) {
	ae := validate.FieldError("page", "Must be an integer")
	assert.Equal(t, apperr.CodeValidation, ae.Code)
	require.Len(t, ae.Details, 1)
	assert.Equal(t, "page", ae.Details[0].Field)
}
