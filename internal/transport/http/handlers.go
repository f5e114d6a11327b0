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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teamskills/teamskills/internal/identity"
	"github.com/teamskills/teamskills/internal/observability/logger"
	"github.com/teamskills/teamskills/internal/operation"
	"github.com/teamskills/teamskills/internal/permission"
	"github.com/teamskills/teamskills/internal/team"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService   *identity.Service
	permissionService *permission.Service
	teamService       *team.Service
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	permissionService *permission.Service,
	teamService *team.Service,
) *Handler {
	return &Handler{
		identityService:   identityService,
		permissionService: permissionService,
		teamService:       teamService,
	}
}

// NewRouter creates a new HTTP router. A zero requestTimeout falls back to
// 60 seconds.
func NewRouter(h *Handler, rateLimiter *RateLimiter, requestTimeout time.Duration) *chi.Mux {
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Post("/users", h.CreateUser)
		r.Post("/auth/login", h.Login)

		// Acting user required
		r.Group(func(r chi.Router) {
			r.Use(RequireActor)

			r.Route("/users/{userID}", func(r chi.Router) {
				r.Get("/", h.GetUser)
				r.Patch("/", h.UpdateUser)

				r.Route("/permissions", func(r chi.Router) {
					r.Get("/", h.ListPermissions)
					r.Post("/", h.UpdatePermissions)
					r.Get("/modifiable", h.ModifiablePermissions)
					r.Put("/{permission}", h.GrantPermission)
					r.Delete("/{permission}", h.RevokePermission)
				})
			})

			r.Route("/teams", func(r chi.Router) {
				r.Post("/", h.CreateTeam)
				r.Route("/{teamID}/members", func(r chi.Router) {
					r.Get("/", h.ListMembers)
					r.Post("/", h.AddMember)
					r.Delete("/{userID}", h.RemoveMember)
					r.Put("/{userID}/admin", h.SetTeamAdmin)
				})
			})
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "teamskills",
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeError maps a classified operation error onto a status code. Errors
// that carry no classification are logged and hidden from the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := operation.KindOf(err)

	var status int
	switch kind {
	case "unauthorized":
		status = http.StatusForbidden
	case "not_found":
		status = http.StatusNotFound
	case "invalid":
		status = http.StatusBadRequest
	case "conflict":
		status = http.StatusConflict
	default:
		slog.ErrorContext(r.Context(), "request failed",
			logger.RequestID(middleware.GetReqID(r.Context())),
			logger.Path(r.URL.Path),
			logger.Error(err),
		)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
			"kind":  kind,
		})
		return
	}

	respondJSON(w, status, map[string]string{
		"error": operation.Reason(err),
		"kind":  kind,
	})
}

var errBadID = errors.New("invalid id")

// idParam reads a positive integer path parameter.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
