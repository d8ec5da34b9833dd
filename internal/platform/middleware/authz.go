// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"

	"github.com/taibuivan/passgate/internal/platform/ctxutil"
	"github.com/taibuivan/passgate/internal/users/session"
)

// SessionReader resolves raw session tokens.
type SessionReader interface {
	Read(ctx context.Context, token string) (session.Snapshot, bool)
}

// CookieVerifier extracts the session token from a signed cookie value.
type CookieVerifier interface {
	Verify(value string) (string, error)
}

/*
Authenticate resolves the session cookie and attaches the caller's snapshot to
the request context.

# Flow
 1. No cookie: the request proceeds as anonymous.
 2. Bad signature or unknown session: the request proceeds as anonymous.
 3. Otherwise the [*session.Snapshot] is stored through ctxutil.WithSession.

It never rejects a request; the guards below decide what anonymous callers may do.
*/
func Authenticate(sessions SessionReader, cookies CookieVerifier, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			cookie, err := request.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(writer, request)
				return
			}

			token, err := cookies.Verify(cookie.Value)
			if err != nil {
				next.ServeHTTP(writer, request)
				return
			}

			snapshot, ok := sessions.Read(request.Context(), token)
			if !ok {
				next.ServeHTTP(writer, request)
				return
			}

			recordUser(writer, snapshot.UserID)
			ctx := ctxutil.WithSession(request.Context(), &snapshot)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// # Caller Classification

// Caller is the access class of a request.
type Caller int

const (
	CallerAnonymous Caller = iota
	CallerAuthenticated
	CallerAdmin
)

func (c Caller) String() string {
	switch c {
	case CallerAuthenticated:
		return "authenticated"
	case CallerAdmin:
		return "admin"
	default:
		return "anonymous"
	}
}

// Classify maps a session snapshot to its [Caller] class. Roles other than
// admin grant plain authenticated access.
func Classify(snapshot *session.Snapshot) Caller {
	if snapshot == nil {
		return CallerAnonymous
	}
	if snapshot.IsAdmin() {
		return CallerAdmin
	}
	return CallerAuthenticated
}

// # Guards

// RequireAuthenticated redirects anonymous callers to loginPath with 303 See Other.
//
// Must be registered AFTER [Authenticate].
func RequireAuthenticated(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if Classify(ctxutil.GetSession(request.Context())) == CallerAnonymous {
				http.Redirect(writer, request, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// RequireAdmin redirects anonymous callers to loginPath and authenticated
// non-admins to homePath, both with 303 See Other. It implies
// [RequireAuthenticated].
func RequireAdmin(loginPath, homePath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			switch Classify(ctxutil.GetSession(request.Context())) {
			case CallerAnonymous:
				http.Redirect(writer, request, loginPath, http.StatusSeeOther)
			case CallerAuthenticated:
				http.Redirect(writer, request, homePath, http.StatusSeeOther)
			case CallerAdmin:
				next.ServeHTTP(writer, request)
			}
		})
	}
}
