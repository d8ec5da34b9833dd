// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/taibuivan/passgate/internal/platform/constants"
	"github.com/taibuivan/passgate/internal/platform/ctxutil"
	"github.com/taibuivan/passgate/internal/platform/mail"
	"github.com/taibuivan/passgate/internal/platform/sec"
	"github.com/taibuivan/passgate/internal/platform/validate"
	"github.com/taibuivan/passgate/internal/users/account"
)

// # Password Reset Flow

/*
RequestReset issues a single-use reset token for the account behind email and
mails the reset link.

The raw token only exists in the email; the store keeps its SHA-256. A newer
request replaces any pending token. When the mail cannot be sent the token
stays in place and the caller may simply ask again.

Returns:
  - error: INVALID_EMAIL, USER_NOT_FOUND, HASHING_FAILED or NOTIFICATION_FAILED
*/
func (service *Service) RequestReset(ctx context.Context, email string) (err error) {
	defer func() { service.metrics.Attempt(OpRequestReset, err) }()
	logger := ctxutil.GetLogger(ctx)

	if !validate.IsEmail(email) {
		return ErrInvalidEmail
	}

	user, err := service.users.FindByEmail(ctx, account.FoldEmail(email))
	if errors.Is(err, account.ErrNotFound) {
		if service.options.HideUnknownEmail {
			logger.InfoContext(ctx, "auth_reset_unknown_email")
			return nil
		}
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("auth_service_lookup_failed: %w", err)
	}

	token, err := sec.GenerateSecureToken(constants.ResetTokenBytes)
	if err != nil {
		return service.hashingFailed(ctx, err)
	}

	expiry := service.now().Add(service.options.ResetTokenTTL)
	if err := service.users.SetResetToken(ctx, user.ID, user.Version, sec.HashToken(token), expiry); err != nil {
		return fmt.Errorf("auth_service_store_reset_token_failed: %w", err)
	}

	mailCtx, cancel := context.WithTimeout(ctx, service.options.MailTimeout)
	defer cancel()

	message := mail.ResetMessage(user.Email, service.resetLink(token), service.options.ResetTokenTTL)
	if err := service.mailer.Send(mailCtx, message); err != nil {
		service.metrics.MailFailure()
		logger.ErrorContext(ctx, "auth_reset_mail_failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return ErrNotificationFailed.WithCause(err)
	}

	logger.InfoContext(ctx, "auth_reset_requested", slog.String("user_id", user.ID))
	return nil
}

// SubmitResetInput holds the reset form.
type SubmitResetInput struct {
	Token     string
	Password  string
	Password2 string
}

/*
SubmitReset replaces the password of the account holding a live reset token.

The token is accepted only while now is strictly before its expiry, and only
once: the credential swap and the token removal are a single store operation.

Returns:
  - error: PASSWORD_MISMATCH, VALIDATION_ERROR, INVALID_OR_EXPIRED_TOKEN or HASHING_FAILED
*/
func (service *Service) SubmitReset(ctx context.Context, input SubmitResetInput) (err error) {
	defer func() { service.metrics.Attempt(OpSubmitReset, err) }()

	if input.Password != input.Password2 {
		return ErrPasswordMismatch
	}

	validator := &validate.Validator{}
	validator.Handle(account.FieldPassword, input.Password).
		MaxLen(account.FieldPassword, input.Password, validate.MaxPasswordLength).
		Handle(account.FieldPassword2, input.Password2)
	if err := validator.Err(); err != nil {
		return err
	}

	if input.Token == "" {
		return ErrInvalidOrExpiredToken
	}

	salt, passwordHash, err := service.derive(ctx, input.Password)
	if err != nil {
		return err
	}

	userID, err := service.users.ConsumeResetToken(ctx, sec.HashToken(input.Token), service.now(), passwordHash, salt)
	if errors.Is(err, account.ErrTokenNotFound) {
		return ErrInvalidOrExpiredToken
	}
	if err != nil {
		return fmt.Errorf("auth_service_consume_reset_token_failed: %w", err)
	}

	logger := ctxutil.GetLogger(ctx)
	logger.InfoContext(ctx, "auth_reset_completed", slog.String("user_id", userID))

	if service.options.RevokeSessionsOnReset {
		revoked, err := service.sessions.DestroyAllForUser(ctx, userID)
		if err != nil {
			// The password is already changed; a failed revocation must not undo that.
			logger.WarnContext(ctx, "auth_reset_revoke_failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		logger.InfoContext(ctx, "auth_reset_sessions_revoked",
			slog.String("user_id", userID),
			slog.Int("count", revoked),
		)
	}

	return nil
}

// resetLink builds PUBLIC_BASE_URL/reset-password?token=<token>.
func (service *Service) resetLink(token string) string {
	base := strings.TrimRight(service.options.PublicBaseURL, "/")
	query := url.Values{account.FieldToken: {token}}
	return base + constants.ResetPasswordPath + "?" + query.Encode()
}
