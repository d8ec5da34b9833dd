// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/passgate/internal/platform/apperr"
	"github.com/taibuivan/passgate/internal/platform/sec"
	"github.com/taibuivan/passgate/internal/users/auth"
)

func resetWith(token, password string) auth.SubmitResetInput {
	return auth.SubmitResetInput{Token: token, Password: password, Password2: password}
}

/*
TestReset_EndToEnd walks register, forgot, reset and login with the new password.
*/
func TestReset_EndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "frank@example.com", "old-pass")
	ctx := context.Background()

	require.NoError(t, f.service.RequestReset(ctx, "Frank@Example.com"))
	require.Len(t, f.mailer.messages, 1)
	assert.Equal(t, "frank@example.com", f.mailer.messages[0].To)
	assert.Contains(t, f.mailer.messages[0].Body, "https://auth.example.com/reset-password?token=")

	token := f.mailer.lastToken(t)
	assert.Len(t, token, 32)

	// Only the hash is stored.
	user, err := f.users.FindByEmail(ctx, "frank@example.com")
	require.NoError(t, err)
	require.NotNil(t, user.ResetToken)
	assert.Equal(t, sec.HashToken(token), *user.ResetToken)

	require.NoError(t, f.service.SubmitReset(ctx, resetWith(token, "new-pass")))

	_, err = f.service.Login(ctx, auth.LoginInput{Email: "frank@example.com", Password: "old-pass"})
	assert.ErrorIs(t, err, auth.ErrWrongPassword)
	_, err = f.service.Login(ctx, auth.LoginInput{Email: "frank@example.com", Password: "new-pass"})
	require.NoError(t, err)

	// Single use.
	err = f.service.SubmitReset(ctx, resetWith(token, "third-pass"))
	assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)
}

/*
TestReset_ExpiryBoundary accepts a token one second before expiry and rejects
it one second after.
*/
func TestReset_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr bool
	}{
		{"before_expiry", 3599 * time.Second, false},
		{"at_expiry", 3600 * time.Second, true},
		{"after_expiry", 3601 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.register(t, "gina@example.com", "old-pass")
			ctx := context.Background()

			require.NoError(t, f.service.RequestReset(ctx, "gina@example.com"))
			token := f.mailer.lastToken(t)

			f.clock.Advance(tt.elapsed)
			err := f.service.SubmitReset(ctx, resetWith(token, "new-pass"))

			if tt.wantErr {
				assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)
				return
			}
			assert.NoError(t, err)
		})
	}
}

/*
TestReset_NewerRequestReplacesToken invalidates the first link.
*/
func TestReset_NewerRequestReplacesToken(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "hank@example.com", "old-pass")
	ctx := context.Background()

	require.NoError(t, f.service.RequestReset(ctx, "hank@example.com"))
	first := f.mailer.lastToken(t)
	require.NoError(t, f.service.RequestReset(ctx, "hank@example.com"))
	second := f.mailer.lastToken(t)

	assert.ErrorIs(t, f.service.SubmitReset(ctx, resetWith(first, "new-pass")), auth.ErrInvalidOrExpiredToken)
	assert.NoError(t, f.service.SubmitReset(ctx, resetWith(second, "new-pass")))
}

/*
TestRequestReset_Rejections covers bad input and unknown accounts.
*/
func TestRequestReset_Rejections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, f.service.RequestReset(ctx, "nope"), auth.ErrInvalidEmail)
	assert.ErrorIs(t, f.service.RequestReset(ctx, "ghost@example.com"), auth.ErrUserNotFound)
	assert.Empty(t, f.mailer.messages)

	hidden := newFixture(t, func(o *auth.Options) { o.HideUnknownEmail = true })
	assert.NoError(t, hidden.service.RequestReset(ctx, "ghost@example.com"))
	assert.Empty(t, hidden.mailer.messages)
}

/*
TestRequestReset_MailFailure reports NOTIFICATION_FAILED and keeps the token usable.
*/
func TestRequestReset_MailFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "ivan@example.com", "old-pass")
	f.mailer.failWith = errSMTPDown
	ctx := context.Background()

	err := f.service.RequestReset(ctx, "ivan@example.com")
	assert.ErrorIs(t, err, auth.ErrNotificationFailed)
	assert.ErrorIs(t, err, errSMTPDown)
	assert.Equal(t, 502, apperr.As(err).HTTPStatus)

	token := f.mailer.lastToken(t)
	assert.NoError(t, f.service.SubmitReset(ctx, resetWith(token, "new-pass")))
}

/*
TestSubmitReset_Rejections covers validation ahead of any token lookup.
*/
func TestSubmitReset_Rejections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	err := f.service.SubmitReset(ctx, auth.SubmitResetInput{Token: "t", Password: "abcdef", Password2: "abcdeg"})
	assert.ErrorIs(t, err, auth.ErrPasswordMismatch)

	err = f.service.SubmitReset(ctx, resetWith("t", "a b c"))
	assertCode(t, err, apperr.CodeValidation)

	err = f.service.SubmitReset(ctx, resetWith("t", strings.Repeat("p", 257)))
	assertCode(t, err, apperr.CodeValidation)

	err = f.service.SubmitReset(ctx, resetWith("", "abcdef"))
	assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)

	err = f.service.SubmitReset(ctx, resetWith(strings.Repeat("0", 32), "abcdef"))
	assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)
}

/*
TestSubmitReset_RevokesSessions logs the user out everywhere when enabled.
*/
func TestSubmitReset_RevokesSessions(t *testing.T) {
	for _, revoke := range []bool{false, true} {
		f := newFixture(t, func(o *auth.Options) { o.RevokeSessionsOnReset = revoke })
		session := f.register(t, "judy@example.com", "old-pass")
		ctx := context.Background()

		require.NoError(t, f.service.RequestReset(ctx, "judy@example.com"))
		require.NoError(t, f.service.SubmitReset(ctx, resetWith(f.mailer.lastToken(t), "new-pass")))

		_, alive := f.sessions.Read(ctx, session.Token)
		assert.Equal(t, !revoke, alive, "revoke=%v", revoke)
	}
}
