// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides the cryptographic primitives of passgate.
//
// # Architecture
//
// This package isolates security-sensitive code (key derivation, random tokens,
// cookie signing) from the domain logic. The auth service receives a [*Hasher]
// and a [*CookieSigner] through its constructor and never touches crypto directly.
package sec

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/sync/semaphore"
)

// # Key Derivation Parameters

const (
	// KDFIterations is the PBKDF2 work factor.
	KDFIterations = 100_000

	// KDFKeyLength is the derived key size in bytes (128 hex characters).
	KDFKeyLength = 64

	// SaltLength is the number of random bytes in a fresh salt.
	SaltLength = 16
)

// ErrHashingFailed is returned when a key cannot be derived or a salt cannot be generated.
var ErrHashingFailed = errors.New("sec: hashing failed")

// Hasher derives password keys with PBKDF2-HMAC-SHA512.
//
// Derivation is CPU-heavy, so at most `workers` derivations run at once.
// Callers beyond that block on the semaphore until a slot frees or their
// context ends.
type Hasher struct {
	pepper string
	slots  *semaphore.Weighted
}

/*
NewHasher creates a [Hasher] bound to the process-wide pepper.

Parameters:
  - pepper: string (server secret appended to every salt)
  - workers: int (max concurrent derivations; NumCPU when <= 0)

Returns:
  - *Hasher: The ready hasher
*/
func NewHasher(pepper string, workers int) *Hasher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Hasher{
		pepper: pepper,
		slots:  semaphore.NewWeighted(int64(workers)),
	}
}

/*
DeriveKey computes hex(PBKDF2-HMAC-SHA512(secret, salt+pepper, 100000, 64)).

The same (secret, salt, pepper) triple always yields the same key.

Returns:
  - string: 128 lowercase hex characters
  - error: [ErrHashingFailed] on an empty salt or a cancelled context
*/
func (hasher *Hasher) DeriveKey(ctx context.Context, secret, salt string) (string, error) {
	if salt == "" {
		return "", fmt.Errorf("%w: empty salt", ErrHashingFailed)
	}

	if err := hasher.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashingFailed, err)
	}
	defer hasher.slots.Release(1)

	key := pbkdf2.Key([]byte(secret), []byte(salt+hasher.pepper), KDFIterations, KDFKeyLength, sha512.New)
	return hex.EncodeToString(key), nil
}

// Verify recomputes the key for secret and compares it to expectedHash in constant time.
func (hasher *Hasher) Verify(ctx context.Context, secret, salt, expectedHash string) (bool, error) {
	derived, err := hasher.DeriveKey(ctx, secret, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(derived), []byte(expectedHash)) == 1, nil
}

// NewSalt returns [SaltLength] random bytes, hex encoded.
func NewSalt() (string, error) {
	buf := make([]byte, SaltLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashingFailed, err)
	}
	return hex.EncodeToString(buf), nil
}
