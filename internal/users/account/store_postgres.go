// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/passgate/internal/platform/dberr"
	"github.com/taibuivan/passgate/internal/platform/sec"
)

// DB is the subset of [*pgxpool.Pool] the store needs. pgxmock pools satisfy it too.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// userColumns is the column list shared by every SELECT and RETURNING clause.
const userColumns = `id, email, email_folded, name, password_hash, salt, role,
	reset_token, reset_token_expiry, version, created_at, updated_at`

// # User Repository

// PostgresStore implements [Store] on the users table.
type PostgresStore struct {
	db  DB
	now func() time.Time
}

// NewPostgresStore creates a PostgreSQL implementation of [Store].
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

/*
Create persists a new user record into the users table.

Description: Initializes timestamps when absent. A concurrent registration of
the same folded email loses on the unique index and gets ErrDuplicateEmail.

Parameters:
  - ctx: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: ErrDuplicateEmail or wrapped storage errors
*/
func (repository *PostgresStore) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO users (
			id, email, email_folded, name, password_hash, salt, role, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	now := repository.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Version == 0 {
		user.Version = 1
	}

	_, err := repository.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.EmailFolded,
		user.Name,
		user.PasswordHash,
		user.Salt,
		string(user.Role),
		user.Version,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return ErrDuplicateEmail.WithCause(err)
		}
		return dberr.Wrap(err, "postgres_user_store_create")
	}

	return nil
}

/*
FindByEmail retrieves a user by folded email.

Parameters:
  - ctx: context.Context
  - emailFolded: string (see [FoldEmail])

Returns:
  - *User: Hydrated account entity
  - error: ErrNotFound or database errors
*/
func (repository *PostgresStore) FindByEmail(ctx context.Context, emailFolded string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email_folded = $1`
	return repository.findOne(ctx, "postgres_user_store_find_by_email", query, emailFolded)
}

// FindByID retrieves a user by primary key.
func (repository *PostgresStore) FindByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return repository.findOne(ctx, "postgres_user_store_find_by_id", query, id)
}

// List returns one page of users ordered by creation time, plus the total count.
func (repository *PostgresStore) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	var total int
	if err := repository.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "postgres_user_store_count")
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`

	rows, err := repository.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "postgres_user_store_list")
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "postgres_user_store_list_scan")
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "postgres_user_store_list_rows")
	}

	return users, total, nil
}

// SetRole updates the role column. Sessions already issued keep their old snapshot.
func (repository *PostgresStore) SetRole(ctx context.Context, id string, role sec.Role) error {
	const query = `
		UPDATE users
		SET role = $2, version = version + 1, updated_at = $3
		WHERE id = $1`

	tag, err := repository.db.Exec(ctx, query, id, string(role), repository.now().UTC())
	if err != nil {
		return dberr.Wrap(err, "postgres_user_store_set_role")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

/*
SetResetToken stores the hashed reset token under optimistic concurrency.

Parameters:
  - ctx: context.Context
  - id: string
  - expectedVersion: int64 (version read alongside the user)
  - tokenHash: string (sha256 hex of the raw token)
  - expiry: time.Time

Returns:
  - error: ErrStaleWrite when another writer got there first
*/
func (repository *PostgresStore) SetResetToken(ctx context.Context, id string, expectedVersion int64, tokenHash string, expiry time.Time) error {
	const query = `
		UPDATE users
		SET reset_token = $3, reset_token_expiry = $4, version = version + 1, updated_at = $5
		WHERE id = $1 AND version = $2`

	tag, err := repository.db.Exec(ctx, query, id, expectedVersion, tokenHash, expiry.UTC(), repository.now().UTC())
	if err != nil {
		return dberr.Wrap(err, "postgres_user_store_set_reset_token")
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleWrite
	}
	return nil
}

/*
ConsumeResetToken swaps in new credentials for the holder of a live token.

Description: A single UPDATE guarded by the token hash and `expiry > now`.
Two concurrent submissions of the same token cannot both match, because the
first one clears the token inside the same statement.

Returns:
  - string: ID of the updated user
  - error: ErrTokenNotFound for unknown, expired or already used tokens
*/
func (repository *PostgresStore) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash, salt string) (string, error) {
	const query = `
		UPDATE users
		SET password_hash = $3,
		    salt = $4,
		    reset_token = NULL,
		    reset_token_expiry = NULL,
		    version = version + 1,
		    updated_at = $2
		WHERE reset_token = $1 AND reset_token_expiry > $2
		RETURNING id`

	var userID string
	err := repository.db.QueryRow(ctx, query, tokenHash, now.UTC(), passwordHash, salt).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrTokenNotFound
		}
		return "", dberr.Wrap(err, "postgres_user_store_consume_reset_token")
	}
	return userID, nil
}

// UpdateCredentials replaces hash and salt under optimistic concurrency and clears any pending reset token.
func (repository *PostgresStore) UpdateCredentials(ctx context.Context, id string, expectedVersion int64, passwordHash, salt string) error {
	const query = `
		UPDATE users
		SET password_hash = $3, salt = $4, reset_token = NULL, reset_token_expiry = NULL,
		    version = version + 1, updated_at = $5
		WHERE id = $1 AND version = $2`

	tag, err := repository.db.Exec(ctx, query, id, expectedVersion, passwordHash, salt, repository.now().UTC())
	if err != nil {
		return dberr.Wrap(err, "postgres_user_store_update_credentials")
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleWrite
	}
	return nil
}

// # Helpers

func (repository *PostgresStore) findOne(ctx context.Context, action, query string, arg any) (*User, error) {
	user, err := scanUser(repository.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, dberr.Wrap(err, action)
	}
	return user, nil
}

// scanUser hydrates a [User] from a row shaped like userColumns.
func scanUser(row pgx.Row) (*User, error) {
	var (
		user User
		role string
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.EmailFolded,
		&user.Name,
		&user.PasswordHash,
		&user.Salt,
		&role,
		&user.ResetToken,
		&user.ResetTokenExpiry,
		&user.Version,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := sec.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("account: user %s: %w", user.ID, err)
	}
	user.Role = parsed
	return &user, nil
}
