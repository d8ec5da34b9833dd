// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package requestutil provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/passgate/internal/platform/apperr"
	"github.com/taibuivan/passgate/internal/platform/ctxutil"
	"github.com/taibuivan/passgate/internal/platform/validate"
	"github.com/taibuivan/passgate/internal/users/session"
)

// MaxBodyBytes caps the size of decoded JSON bodies.
const MaxBodyBytes = 64 << 10

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - writer: http.ResponseWriter (used to cap the body size)
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	request.Body = http.MaxBytesReader(writer, request.Body, MaxBodyBytes)
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Session extracts the caller's session snapshot from the request context.

Returns nil if the request is not authenticated.
*/
func Session(request *http.Request) *session.Snapshot {
	return ctxutil.GetSession(request.Context())
}

/*
RequiredSession ensures the request is authenticated and returns the snapshot.

Returns:
  - *session.Snapshot: The authenticated caller
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredSession(request *http.Request) (*session.Snapshot, error) {
	snapshot := ctxutil.GetSession(request.Context())

	// If the user is not authenticated, return an error
	if snapshot == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	return snapshot, nil
}
