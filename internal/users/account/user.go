// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account owns the user record: its entity, its persistence, and the
read-only profile endpoints.

# Architecture

  - Entities: User (the stored record) and Profile (the client-safe view).
  - Storage: Store, implemented by PostgresStore and MemoryStore.
  - Concurrency: Every credential or token mutation is a compare-and-swap on
    User.Version. A lost race surfaces as [ErrStaleWrite].
*/
package account

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/passgate/internal/platform/sec"
)

// # Domain Entities

// User is a registered account.
//
// PasswordHash and Salt never leave the process: they are tagged out of JSON
// and are not copied into sessions or profiles.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailFolded      string     `json:"-"`
	Name             string     `json:"name"`
	PasswordHash     string     `json:"-"`
	Salt             string     `json:"-"`
	Role             sec.Role   `json:"role"`
	ResetToken       *string    `json:"-"` // sha256 of the raw token
	ResetTokenExpiry *time.Time `json:"-"`
	Version          int64      `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role.AtLeast(sec.RoleAdmin) }

// Profile is the client-facing view of a [User].
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      sec.Role  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile returns the client-safe projection of u.
func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// FoldEmail returns the lookup key of an email address: trimmed, NFC
// normalized and Unicode case folded. Two addresses that differ only by case
// map to the same account.
func FoldEmail(email string) string {
	folded := cases.Fold().String(strings.TrimSpace(email))
	return norm.NFC.String(folded)
}

// # Field Identifiers

const (
	FieldName      = "name"
	FieldEmail     = "email"
	FieldPassword  = "password"
	FieldPassword2 = "password2"
	FieldToken     = "token"
)
