// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/passgate/internal/platform/constants"
	"github.com/taibuivan/passgate/internal/platform/metrics"
	"github.com/taibuivan/passgate/internal/platform/middleware"
	"github.com/taibuivan/passgate/internal/platform/ratelimit"
)

func ok() http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
}

func postFrom(ip string) *http.Request {
	request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	request.RemoteAddr = ip + ":51234"
	return request
}

/*
TestAuthRateLimit_SeventhAttempt verifies the limiter rejects the seventh
attempt inside the window with 429 and Retry-After.
*/
func TestAuthRateLimit_SeventhAttempt(t *testing.T) {
	policy := ratelimit.Policy{Window: 10 * time.Minute, Max: 6}
	limiter := ratelimit.NewMemoryLimiter(policy)
	recorder := metrics.New(prometheus.NewRegistry())

	calls := 0
	handler := middleware.AuthRateLimit(limiter, policy.Message(), recorder)(
		http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			calls++
			writer.WriteHeader(http.StatusOK)
		}),
	)

	for i := range 6 {
		response := httptest.NewRecorder()
		handler.ServeHTTP(response, postFrom("203.0.113.7"))
		require.Equal(t, http.StatusOK, response.Code, "attempt %d", i+1)
	}

	response := httptest.NewRecorder()
	handler.ServeHTTP(response, postFrom("203.0.113.7"))

	assert.Equal(t, 6, calls)
	assert.Equal(t, http.StatusTooManyRequests, response.Code)
	assert.NotEmpty(t, response.Header().Get(constants.HeaderRetryAfter))

	var body map[string]any
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMITED", body["code"])
	assert.Equal(t, "Too many auth requests, try again in 10 minutes", body["error"])
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.RateLimited.WithLabelValues("/api/v1/auth/login")))

	// Other clients are unaffected.
	response = httptest.NewRecorder()
	handler.ServeHTTP(response, postFrom("198.51.100.1"))
	assert.Equal(t, http.StatusOK, response.Code)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("redis: connection refused")
}

/*
TestAuthRateLimit_FailsOpen lets requests through when the backend is down.
*/
func TestAuthRateLimit_FailsOpen(t *testing.T) {
	handler := middleware.AuthRateLimit(brokenLimiter{}, "limited", nil)(ok())

	response := httptest.NewRecorder()
	handler.ServeHTTP(response, postFrom("203.0.113.7"))
	assert.Equal(t, http.StatusOK, response.Code)
}

// resolve runs ClientIP with trusted and returns the address RealIP sees.
func resolve(t *testing.T, request *http.Request, trusted ...string) string {
	t.Helper()

	prefixes := make([]netip.Prefix, 0, len(trusted))
	for _, cidr := range trusted {
		prefixes = append(prefixes, netip.MustParsePrefix(cidr))
	}

	var seen string
	middleware.ClientIP(prefixes)(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		seen = middleware.RealIP(request)
	})).ServeHTTP(httptest.NewRecorder(), request)
	return seen
}

/*
TestRealIP_IgnoresHeadersFromUntrustedPeer keys on the socket peer when the
caller is not a configured proxy, whatever headers it sends.
*/
func TestRealIP_IgnoresHeadersFromUntrustedPeer(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", middleware.RealIP(request))

	request.Header.Set(constants.HeaderXForwardedFor, "198.51.100.2, 10.0.0.1")
	request.Header.Set(constants.HeaderXRealIP, "203.0.113.9")
	assert.Equal(t, "192.0.2.1", resolve(t, request))
	assert.Equal(t, "192.0.2.1", resolve(t, request, "10.0.0.0/8"))
}

/*
TestRealIP_TrustedProxy honours forwarding headers from a configured proxy and
stops at the first hop it does not trust.
*/
func TestRealIP_TrustedProxy(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		realIP    string
		want      string
	}{
		{"no headers", "", "", "10.0.0.5"},
		{"single hop", "198.51.100.2", "", "198.51.100.2"},
		{"rightmost untrusted hop wins", "6.6.6.6, 198.51.100.2, 10.0.0.9", "", "198.51.100.2"},
		{"malformed hop stops the walk", "198.51.100.2, garbage", "", "10.0.0.5"},
		{"x-real-ip without x-forwarded-for", "", "203.0.113.9", "203.0.113.9"},
		{"invalid x-real-ip", "", "not-an-ip", "10.0.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.RemoteAddr = "10.0.0.5:443"
			if tt.forwarded != "" {
				request.Header.Set(constants.HeaderXForwardedFor, tt.forwarded)
			}
			if tt.realIP != "" {
				request.Header.Set(constants.HeaderXRealIP, tt.realIP)
			}
			assert.Equal(t, tt.want, resolve(t, request, "10.0.0.0/8"))
		})
	}
}

/*
TestAuthRateLimit_RotatingForwardedFor keeps counting against the socket peer
when an untrusted client rotates X-Forwarded-For on every attempt.
*/
func TestAuthRateLimit_RotatingForwardedFor(t *testing.T) {
	policy := ratelimit.Policy{Window: 10 * time.Minute, Max: 6}
	handler := middleware.ClientIP(nil)(
		middleware.AuthRateLimit(ratelimit.NewMemoryLimiter(policy), policy.Message(), nil)(ok()),
	)

	limited := 0
	for i := range 20 {
		request := postFrom("203.0.113.7")
		request.Header.Set(constants.HeaderXForwardedFor, fmt.Sprintf("10.9.9.%d", i))
		request.Header.Set(constants.HeaderXRealIP, fmt.Sprintf("10.8.8.%d", i))

		response := httptest.NewRecorder()
		handler.ServeHTTP(response, request)
		if response.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	assert.Equal(t, 14, limited)
}

type corsConfig struct {
	origins []string
}

func (c corsConfig) AllowedOrigins() []string { return c.origins }

/*
TestCORS checks exact origin matching.
*/
func TestCORS(t *testing.T) {
	handler := middleware.CORS(corsConfig{origins: []string{"https://app.example.com"}})(ok())

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set(constants.HeaderOrigin, "https://app.example.com")
	response := httptest.NewRecorder()
	handler.ServeHTTP(response, request)
	assert.Equal(t, "https://app.example.com", response.Header().Get("Access-Control-Allow-Origin"))

	request.Header.Set(constants.HeaderOrigin, "https://evil.example.com")
	response = httptest.NewRecorder()
	handler.ServeHTTP(response, request)
	assert.Empty(t, response.Header().Get("Access-Control-Allow-Origin"))

	preflight := httptest.NewRequest(http.MethodOptions, "/", nil)
	preflight.Header.Set(constants.HeaderOrigin, "https://app.example.com")
	response = httptest.NewRecorder()
	handler.ServeHTTP(response, preflight)
	assert.Equal(t, http.StatusNoContent, response.Code)
}

/*
TestCORS_EmptyAllowList never reflects an origin or allows credentials.
*/
func TestCORS_EmptyAllowList(t *testing.T) {
	handler := middleware.CORS(corsConfig{})(ok())

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set(constants.HeaderOrigin, "https://evil.example.com")
	response := httptest.NewRecorder()
	handler.ServeHTTP(response, request)

	assert.Equal(t, http.StatusOK, response.Code)
	assert.Empty(t, response.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, response.Header().Get("Access-Control-Allow-Credentials"))
}

/*
TestPanicRecovery converts panics into a 500 JSON response.
*/
func TestPanicRecovery(t *testing.T) {
	handler := middleware.PanicRecovery(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	response := httptest.NewRecorder()
	handler.ServeHTTP(response, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, response.Code)
}

/*
TestRequestID echoes or generates the correlation header.
*/
func TestRequestID(t *testing.T) {
	handler := middleware.RequestID()(ok())

	response := httptest.NewRecorder()
	handler.ServeHTTP(response, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, response.Header().Get(constants.HeaderXRequestID))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set(constants.HeaderXRequestID, "abc")
	response = httptest.NewRecorder()
	handler.ServeHTTP(response, request)
	assert.Equal(t, "abc", response.Header().Get(constants.HeaderXRequestID))
}
