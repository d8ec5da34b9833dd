// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination parses page/limit query parameters and builds the
// metadata block returned with list responses.
package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

const (
	// DefaultLimit is used when the request names no limit.
	DefaultLimit = 50
	// MaxLimit caps a requested limit.
	MaxLimit = 200
	// FirstPage is the 1-indexed starting page.
	FirstPage = 1
)

// ErrInvalidParam is returned when page or limit is not an integer.
var ErrInvalidParam = errors.New("pagination: page and limit must be integers")

// ParamError names the query parameter that failed to parse. It matches
// [ErrInvalidParam] under [errors.Is].
type ParamError struct {
	Key   string
	Value string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%v: %s=%q", ErrInvalidParam, e.Key, e.Value)
}

// Is implements the [errors.Is] hook.
func (e *ParamError) Is(target error) bool { return target == ErrInvalidParam }

// Params is a clamped page request.
type Params struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip.
func (p Params) Offset() int {
	if p.Page <= FirstPage {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Meta accompanies every list response.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewMeta derives TotalPages from total and the page size.
func NewMeta(params Params, total int) Meta {
	pages := 0
	if params.Limit > 0 {
		pages = (total + params.Limit - 1) / params.Limit
	}
	return Meta{Page: params.Page, Limit: params.Limit, Total: total, TotalPages: pages}
}

// Clamp normalises page and limit. A page below one becomes [FirstPage], a
// limit of zero or less becomes [DefaultLimit] and anything above [MaxLimit]
// is cut down to it.
func Clamp(page, limit int) Params {
	if page < FirstPage {
		page = FirstPage
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

// FromRequest reads "page" and "limit" from the query string. Absent values
// take their defaults; values that are not integers are rejected.
func FromRequest(r *http.Request) (Params, error) {
	page, err := intParam(r, "page", FirstPage)
	if err != nil {
		return Params{}, err
	}
	limit, err := intParam(r, "limit", DefaultLimit)
	if err != nil {
		return Params{}, err
	}
	return Clamp(page, limit), nil
}

func intParam(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ParamError{Key: key, Value: raw}
	}
	return n, nil
}
