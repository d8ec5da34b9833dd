// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"log/slog"
	"math"
	"net/http"

	"github.com/taibuivan/passgate/internal/platform/apperr"
	"github.com/taibuivan/passgate/internal/platform/ctxutil"
	"github.com/taibuivan/passgate/internal/platform/metrics"
	"github.com/taibuivan/passgate/internal/platform/ratelimit"
	"github.com/taibuivan/passgate/internal/platform/respond"
)

/*
AuthRateLimit applies the credential-endpoint limiter, keyed by client IP.

Rejected requests get 429 RATE_LIMITED with the fixed message and a
Retry-After header. The handler is not invoked. A failing limiter backend
lets the request through and logs the failure.

Parameters:
  - limiter: ratelimit.Limiter
  - message: string (shown to rejected clients)
  - recorder: *metrics.Metrics (may be nil)
*/
func AuthRateLimit(limiter ratelimit.Limiter, message string, recorder *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()

			decision, err := limiter.Allow(ctx, RealIP(request))
			if err != nil {
				ctxutil.GetLogger(ctx).WarnContext(ctx, "auth_rate_limit_unavailable",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(writer, request)
				return
			}

			if !decision.Allowed {
				recorder.RateLimitHit(request.URL.Path)
				seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
				respond.Error(writer, request, apperr.RateLimited(message, max(seconds, 1)))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
