// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError].
//
// # Architecture
//
// This package is used by the service layer, never by handlers or storage.
// Business logic only operates on data that already passed these rules.
//
// # Handles
//
// A handle is any short user-chosen string (display names, and passwords on
// registration and reset). See [IsHandle] for the exact rule.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/taibuivan/passgate/internal/platform/apperr"
)

const (
	// MinHandleLength is the shortest accepted handle, in runes.
	MinHandleLength = 3

	// MaxNameLength caps display names, in runes.
	MaxNameLength = 64

	// MaxPasswordLength caps passwords, in runes, so key derivation input stays bounded.
	MaxPasswordLength = 256
)

var (
	// emailRegex accepts local@domain where domain is a bracketed dotted quad
	// or a DNS name with a TLD of at least two letters.
	emailRegex = regexp.MustCompile(`^(([^<>()\[\]\\.,;:\s@"]+(\.[^<>()\[\]\\.,;:\s@"]+)*)|(".+"))@((\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\])|(([a-zA-Z\-0-9]+\.)+[a-zA-Z]{2,}))$`)

	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")
)

// # Predicates

// IsHandle reports whether s is an acceptable handle: at least three runes,
// and none of `<`, `>`, `"`, `.` or whitespace.
func IsHandle(s string) bool {
	if utf8.RuneCountInString(s) < MinHandleLength {
		return false
	}
	return !strings.ContainsFunc(s, func(r rune) bool {
		switch r {
		case '<', '>', '"', '.':
			return true
		}
		return unicode.IsSpace(r)
	})
}

// IsEmail reports whether s looks like an email address. Matching is case-insensitive.
func IsEmail(s string) bool {
	return emailRegex.MatchString(strings.ToLower(s))
}

// # Validator

// Validator collects field-level validation errors via a fluent, chainable API.
//
// # Concurrency
//
// Validator is not safe for concurrent use. A new instance must be created
// for every request/operation.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "This field is required")
	}
	return v
}

// MaxLen fails if the Unicode character count exceeds max.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d characters", max))
	}
	return v
}

// EmailAddress fails if the value does not satisfy [IsEmail].
func (v *Validator) EmailAddress(field, value string) *Validator {
	if !IsEmail(value) {
		v.add(field, "Must be a valid email address")
	}
	return v
}

// Handle fails if the value does not satisfy [IsHandle].
func (v *Validator) Handle(field, value string) *Validator {
	if !IsHandle(value) {
		v.add(field, fmt.Sprintf(`Minimum %d characters, without spaces, dots, quotes or angle brackets`, MinHandleLength))
	}
	return v
}

// Equal fails if the two values differ.
func (v *Validator) Equal(field, value, other string) *Validator {
	if value != other {
		v.add(field, "Values do not match")
	}
	return v
}

// Err returns a [apperr.AppError] (VALIDATION_ERROR) if any rules failed,
// or nil if all rules passed.
//
// This is the only output method. Call it at the end of the chain.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.errs...)
}

// HasErrors reports whether any validation rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// add appends a [apperr.FieldError] to the internal slice.
func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}

// FieldError is a shortcut to create a single-field validation error.
func FieldError(field, message string) *apperr.AppError {
	return apperr.ValidationError("Validation failed", apperr.FieldError{
		Field:   field,
		Message: message,
	})
}
