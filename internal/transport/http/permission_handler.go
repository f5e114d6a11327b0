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
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/teamskills/teamskills/internal/permission"
)

// UpdatePermissionsRequest adds and removes global permissions in one change.
type UpdatePermissionsRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

// ModifiableResponse lists the permissions an actor may grant or revoke.
type ModifiableResponse struct {
	UserID      int64    `json:"userId"`
	Permissions []string `json:"permissions"`
}

// ListPermissions returns the global permissions held by a user
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	assignments, err := h.permissionService.UserPermissions(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, assignments)
}

// ModifiablePermissions returns the permissions the user may modify on others
func (h *Handler) ModifiablePermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	allowed, err := h.permissionService.AllowedToModify(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, ModifiableResponse{UserID: userID, Permissions: allowed.Strings()})
}

// UpdatePermissions applies a combined grant and revoke
func (h *Handler) UpdatePermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req UpdatePermissionsRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	toAdd, err := permission.ParseAll(req.Add)
	if err != nil {
		writeError(w, r, err)
		return
	}
	toRemove, err := permission.ParseAll(req.Remove)
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := GetActorID(r.Context())
	if err := h.permissionService.UpdatePermissions(r.Context(), userID, toAdd, toRemove, actor); err != nil {
		writeError(w, r, err)
		return
	}

	h.ListPermissions(w, r)
}

// GrantPermission adds a single global permission
func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	h.changeOne(w, r, h.permissionService.AddPermissions)
}

// RevokePermission removes a single global permission
func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	h.changeOne(w, r, h.permissionService.RemovePermissions)
}

type changeFunc func(ctx context.Context, target int64, perms permission.Set, actor int64) ([]permission.Assignment, error)

func (h *Handler) changeOne(w http.ResponseWriter, r *http.Request, apply changeFunc) {
	userID, err := idParam(r, "userID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	p, err := permission.Parse(chi.URLParam(r, "permission"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := GetActorID(r.Context())
	assignments, err := apply(r.Context(), userID, permission.NewSet(p), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, assignments)
}
