// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"net/http"
	"time"

	"github.com/taibuivan/passgate/internal/platform/apperr"
	"github.com/taibuivan/passgate/internal/platform/sec"
)

// # Storage Errors

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = apperr.NotFound("User")

	// ErrDuplicateEmail is returned when the folded email is already registered.
	ErrDuplicateEmail = apperr.Conflict("Email already registered")

	// ErrStaleWrite is returned when the row changed since it was read.
	ErrStaleWrite = apperr.New("STALE_WRITE", http.StatusConflict, "The account was modified concurrently, please retry")

	// ErrTokenNotFound is returned when no user holds a live reset token with that hash.
	ErrTokenNotFound = apperr.NotFound("Reset token")
)

// # User Data Access

// Store defines the data access contract for user accounts.
type Store interface {

	/*
		Create persists a brand-new user.

		Parameters:
		  - ctx: context.Context
		  - user: *User (ID, EmailFolded and Version must be set)

		Returns:
		  - error: ErrDuplicateEmail when the folded email is taken
	*/
	Create(ctx context.Context, user *User) error

	/*
		FindByEmail returns the user with the given folded email.

		Returns:
		  - *User: Hydrated entity
		  - error: ErrNotFound or storage failures
	*/
	FindByEmail(ctx context.Context, emailFolded string) (*User, error)

	// FindByID returns the user with the given ID, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*User, error)

	/*
		List returns one page of users, oldest first.

		Returns:
		  - []User: At most limit users after skipping offset
		  - int: Total number of users
		  - error: Storage failures
	*/
	List(ctx context.Context, limit, offset int) ([]User, int, error)

	// SetRole changes the role of a user.
	SetRole(ctx context.Context, id string, role sec.Role) error

	/*
		SetResetToken stores a reset token hash and its expiry, if the row is
		still at expectedVersion. The version is incremented on success.

		Returns:
		  - error: ErrStaleWrite on a version mismatch
	*/
	SetResetToken(ctx context.Context, id string, expectedVersion int64, tokenHash string, expiry time.Time) error

	/*
		ConsumeResetToken atomically replaces the credentials of the user holding
		tokenHash, provided now is strictly before the token expiry. Both token
		fields are cleared and the version is incremented. A token can therefore
		be consumed at most once.

		Returns:
		  - string: ID of the updated user
		  - error: ErrTokenNotFound when no live token matches
	*/
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash, salt string) (string, error)

	// UpdateCredentials replaces the hash and salt if the row is still at expectedVersion.
	UpdateCredentials(ctx context.Context, id string, expectedVersion int64, passwordHash, salt string) error
}
