// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/teamskills/teamskills/internal/observability/logger"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, info := withRequestInfo(r.Context())
			r = r.WithContext(ctx)

			slog.DebugContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				attrs := []any{
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				}
				if info.actorID != 0 {
					attrs = append(attrs, logger.ActorID(info.actorID))
				}
				slog.InfoContext(r.Context(), "http_request_end", attrs...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// MetricsMiddleware records request latency in milliseconds, labelled by
// method and status code.
func MetricsMiddleware(duration metric.Float64Histogram) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration.Record(r.Context(), float64(time.Since(start).Microseconds())/1000,
				metric.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.Int("http.status_code", ww.Status()),
				),
			)
		})
	}
}

// RequireActor resolves the acting user from the X-User-ID header and
// rejects the request when it is missing or malformed.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(ActorHeader)
		if raw == "" {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		actor, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || actor <= 0 {
			slog.WarnContext(r.Context(), "malformed actor header",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.RemoteAddr(r.RemoteAddr),
			)
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		recordActor(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(WithActorID(r.Context(), actor)))
	})
}
