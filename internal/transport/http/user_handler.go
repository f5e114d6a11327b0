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
	"errors"
	"net/http"

	"github.com/teamskills/teamskills/internal/identity"
	"github.com/teamskills/teamskills/internal/operation"
)

// CreateUser registers a new user
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req identity.CreateUserInput
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks credentials and returns the matching user. Session issuance
// belongs to the gateway.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, operation.ErrUnauthorized) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// GetUser returns a user profile
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.identityService.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdateUser changes profile fields of a user
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req identity.UpdateUserInput
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor, _ := GetActorID(r.Context())
	user, err := h.identityService.UpdateUser(r.Context(), userID, req, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}
