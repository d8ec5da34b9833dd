// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieIssuer is the `iss` claim of every session cookie.
const CookieIssuer = "passgate"

// ErrInvalidCookie is returned for cookies that fail signature or claim checks.
var ErrInvalidCookie = errors.New("sec: invalid session cookie")

// CookieSigner wraps opaque session tokens in HS256-signed JWTs.
//
// The session token travels as the `jti` claim. The signature only proves the
// cookie was minted by this server; the session store remains the source of
// truth for whether the session is still alive.
type CookieSigner struct {
	secret []byte
	now    func() time.Time
}

// NewCookieSigner creates a [CookieSigner] keyed with the session secret.
func NewCookieSigner(secret string) *CookieSigner {
	return &CookieSigner{secret: []byte(secret), now: time.Now}
}

/*
Sign produces the cookie value for a session token.

Parameters:
  - token: string (opaque session token)
  - expiresAt: time.Time (zero for browser-session cookies)

Returns:
  - string: Compact JWT
  - error: Signing failures
*/
func (signer *CookieSigner) Sign(token string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:       token,
		Issuer:   CookieIssuer,
		IssuedAt: jwt.NewNumericDate(signer.now()),
	}
	if !expiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signer.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign cookie: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and claims of value and returns the session token.
func (signer *CookieSigner) Verify(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (any, error) {
		return signer.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(CookieIssuer),
		jwt.WithTimeFunc(signer.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCookie, err)
	}
	if !token.Valid {
		return "", ErrInvalidCookie
	}
	if claims.ID == "" {
		return "", fmt.Errorf("%w: missing session id", ErrInvalidCookie)
	}
	return claims.ID, nil
}
