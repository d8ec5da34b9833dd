// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the credential lifecycle of passgate: registration,
login, logout and password reset.

Architecture:

  - Service: Orchestrates the use cases on top of account.Store (users),
    session.Manager (logins), sec.Hasher (PBKDF2) and mail.Sender (reset links).
  - Handler: JSON endpoints under /api/v1/auth, with the session cookie.

Passwords are never stored. Each user has a random salt, and the stored hash is
PBKDF2-HMAC-SHA512 over the password with salt+pepper.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/passgate/internal/platform/ctxutil"
	"github.com/taibuivan/passgate/internal/platform/mail"
	"github.com/taibuivan/passgate/internal/platform/metrics"
	"github.com/taibuivan/passgate/internal/platform/sec"
	"github.com/taibuivan/passgate/internal/platform/validate"
	"github.com/taibuivan/passgate/internal/users/account"
	"github.com/taibuivan/passgate/internal/users/session"
	"github.com/taibuivan/passgate/pkg/uuid"
)

// Operation labels for metrics.
const (
	OpRegister     = "register"
	OpLogin        = "login"
	OpRequestReset = "request_reset"
	OpSubmitReset  = "submit_reset"
)

// dummySalt feeds the key derivation run for unknown emails, so a login
// costs the same whether or not the account exists.
const dummySalt = "00000000000000000000000000000000"

// # Contracts & Types

// Dependencies are the collaborators of a [Service].
type Dependencies struct {
	Users    account.Store
	Sessions *session.Manager
	Hasher   *sec.Hasher
	Mailer   mail.Sender
	Metrics  *metrics.Metrics // optional

	// Now defaults to time.Now.
	Now func() time.Time
}

// Options tune the password reset flow.
type Options struct {
	ResetTokenTTL time.Duration
	PublicBaseURL string
	MailTimeout   time.Duration

	// RevokeSessionsOnReset logs the user out everywhere after a reset.
	RevokeSessionsOnReset bool

	// HideUnknownEmail makes a reset request for an unknown email succeed silently.
	HideUnknownEmail bool
}

// Service implements the authentication use cases.
type Service struct {
	users    account.Store
	sessions *session.Manager
	hasher   *sec.Hasher
	mailer   mail.Sender
	metrics  *metrics.Metrics
	now      func() time.Time
	options  Options
}

// NewService constructs a new [Service].
func NewService(deps Dependencies, options Options) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		users:    deps.Users,
		sessions: deps.Sessions,
		hasher:   deps.Hasher,
		mailer:   deps.Mailer,
		metrics:  deps.Metrics,
		now:      deps.Now,
		options:  options,
	}
}

// Result is a freshly opened session.
type Result struct {
	Token    string // raw session token, for the cookie only
	Snapshot session.Snapshot
}

// # Registration Flow

// RegisterInput holds the registration form.
type RegisterInput struct {
	Name      string
	Email     string
	Password  string
	Password2 string
}

// NewUser is the data needed to create an account directly.
type NewUser struct {
	Name     string
	Email    string
	Password string
}

/*
Register creates an account and logs it in.

Checks run in this order: handle rules on name and both passwords, email format,
password equality, then email uniqueness.

Returns:
  - Result: The opened session
  - error: VALIDATION_ERROR, PASSWORD_MISMATCH, USER_EXISTS or HASHING_FAILED
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (result Result, err error) {
	defer func() { service.metrics.Attempt(OpRegister, err) }()

	validator := &validate.Validator{}
	validator.Handle(account.FieldName, input.Name).
		MaxLen(account.FieldName, input.Name, validate.MaxNameLength).
		Handle(account.FieldPassword, input.Password).
		MaxLen(account.FieldPassword, input.Password, validate.MaxPasswordLength).
		Handle(account.FieldPassword2, input.Password2).
		EmailAddress(account.FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		return Result{}, err
	}

	if input.Password != input.Password2 {
		return Result{}, ErrPasswordMismatch
	}

	user, err := service.CreateUser(ctx, NewUser{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
	}, sec.RoleUser)
	if err != nil {
		return Result{}, err
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "auth_register_succeeded", slog.String("user_id", user.ID))
	return service.openSession(ctx, user)
}

/*
CreateUser stores a new account with the given role. It does not open a session.

It is shared by registration and the administrative CLI. Input is expected to
be validated already.

Returns:
  - *account.User: The stored user
  - error: USER_EXISTS or HASHING_FAILED
*/
func (service *Service) CreateUser(ctx context.Context, input NewUser, role sec.Role) (*account.User, error) {
	folded := account.FoldEmail(input.Email)

	_, err := service.users.FindByEmail(ctx, folded)
	switch {
	case err == nil:
		return nil, ErrUserExists
	case !errors.Is(err, account.ErrNotFound):
		return nil, fmt.Errorf("auth_service_lookup_failed: %w", err)
	}

	salt, passwordHash, err := service.derive(ctx, input.Password)
	if err != nil {
		return nil, err
	}

	user := &account.User{
		ID:           uuid.New(),
		Email:        input.Email,
		EmailFolded:  folded,
		Name:         input.Name,
		PasswordHash: passwordHash,
		Salt:         salt,
		Role:         role,
	}

	// A concurrent registration of the same email loses on the unique index.
	if err := service.users.Create(ctx, user); err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("auth_service_create_failed: %w", err)
	}

	return user, nil
}

// # Login Flow

// LoginInput holds the login form.
type LoginInput struct {
	Email    string
	Password string
}

/*
Login verifies the credentials and opens a session.

Returns:
  - Result: The opened session
  - error: INVALID_EMAIL, USER_NOT_FOUND, WRONG_PASSWORD or HASHING_FAILED
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (result Result, err error) {
	defer func() { service.metrics.Attempt(OpLogin, err) }()

	if !validate.IsEmail(input.Email) {
		return Result{}, ErrInvalidEmail
	}

	user, err := service.users.FindByEmail(ctx, account.FoldEmail(input.Email))
	if errors.Is(err, account.ErrNotFound) {
		service.burnDerivation(ctx, input.Password)
		return Result{}, ErrUserNotFound
	}
	if err != nil {
		return Result{}, fmt.Errorf("auth_service_lookup_failed: %w", err)
	}

	start := time.Now()
	matches, err := service.hasher.Verify(ctx, input.Password, user.Salt, user.PasswordHash)
	service.metrics.ObserveHash(start)
	if err != nil {
		return Result{}, service.hashingFailed(ctx, err)
	}
	if !matches {
		return Result{}, ErrWrongPassword
	}

	return service.openSession(ctx, user)
}

// Logout destroys the session behind token. It never fails.
func (service *Service) Logout(ctx context.Context, token string) {
	service.sessions.Destroy(ctx, token)
}

// # Administration

// PromoteUser grants the admin role to the user with the given email.
// Sessions opened before the promotion keep the old role.
func (service *Service) PromoteUser(ctx context.Context, email string) error {
	user, err := service.users.FindByEmail(ctx, account.FoldEmail(email))
	if errors.Is(err, account.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("auth_service_lookup_failed: %w", err)
	}

	if user.IsAdmin() {
		return nil
	}
	return service.users.SetRole(ctx, user.ID, sec.RoleAdmin)
}

// SetPassword replaces the password of the user with the given email, outside
// the reset flow. A pending reset token is discarded.
func (service *Service) SetPassword(ctx context.Context, email, password string) error {
	validator := &validate.Validator{}
	validator.Handle(account.FieldPassword, password).
		MaxLen(account.FieldPassword, password, validate.MaxPasswordLength)
	if err := validator.Err(); err != nil {
		return err
	}

	user, err := service.users.FindByEmail(ctx, account.FoldEmail(email))
	if errors.Is(err, account.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("auth_service_lookup_failed: %w", err)
	}

	salt, passwordHash, err := service.derive(ctx, password)
	if err != nil {
		return err
	}

	return service.users.UpdateCredentials(ctx, user.ID, user.Version, passwordHash, salt)
}

// # Helpers

func (service *Service) openSession(ctx context.Context, user *account.User) (Result, error) {
	token, snapshot, err := service.sessions.Create(ctx, session.Principal{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	})
	if err != nil {
		return Result{}, fmt.Errorf("auth_service_session_failed: %w", err)
	}
	return Result{Token: token, Snapshot: snapshot}, nil
}

// derive generates a fresh salt and the matching hash of password.
func (service *Service) derive(ctx context.Context, password string) (salt, passwordHash string, err error) {
	salt, err = sec.NewSalt()
	if err != nil {
		return "", "", service.hashingFailed(ctx, err)
	}

	start := time.Now()
	passwordHash, err = service.hasher.DeriveKey(ctx, password, salt)
	service.metrics.ObserveHash(start)
	if err != nil {
		return "", "", service.hashingFailed(ctx, err)
	}
	return salt, passwordHash, nil
}

func (service *Service) burnDerivation(ctx context.Context, password string) {
	_, _ = service.hasher.DeriveKey(ctx, password, dummySalt)
}

func (service *Service) hashingFailed(ctx context.Context, err error) error {
	ctxutil.GetLogger(ctx).ErrorContext(ctx, "auth_hashing_failed", slog.String("error", err.Error()))
	return ErrHashingFailed.WithCause(err)
}
