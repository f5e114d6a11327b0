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
	"net/http"
)

// CreateTeamRequest represents team creation data
type CreateTeamRequest struct {
	Name string `json:"name"`
}

// AddMemberRequest represents a new team membership
type AddMemberRequest struct {
	UserID  int64 `json:"userId"`
	IsAdmin bool  `json:"isAdmin"`
}

// SetTeamAdminRequest toggles the team admin flag of a member
type SetTeamAdminRequest struct {
	IsAdmin *bool `json:"isAdmin"`
}

// CreateTeam creates a team
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req CreateTeamRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor, _ := GetActorID(r.Context())
	t, err := h.teamService.CreateTeam(r.Context(), req.Name, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, t)
}

// ListMembers lists the members of a team
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	teamID, err := idParam(r, "teamID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid team id")
		return
	}

	members, err := h.teamService.Members(r.Context(), teamID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, members)
}

// AddMember adds a user to a team
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	teamID, err := idParam(r, "teamID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid team id")
		return
	}

	var req AddMemberRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor, _ := GetActorID(r.Context())
	m, err := h.teamService.AddMember(r.Context(), teamID, req.UserID, req.IsAdmin, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, m)
}

// RemoveMember removes a user from a team
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	teamID, userID, ok := teamMemberParams(w, r)
	if !ok {
		return
	}

	actor, _ := GetActorID(r.Context())
	if err := h.teamService.RemoveMember(r.Context(), teamID, userID, actor); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetTeamAdmin grants or revokes the team admin flag of a member
func (h *Handler) SetTeamAdmin(w http.ResponseWriter, r *http.Request) {
	teamID, userID, ok := teamMemberParams(w, r)
	if !ok {
		return
	}

	var req SetTeamAdminRequest
	if err := decode(r, &req); err != nil || req.IsAdmin == nil {
		respondError(w, http.StatusBadRequest, "isAdmin is required")
		return
	}

	actor, _ := GetActorID(r.Context())
	m, err := h.teamService.SetTeamAdminRights(r.Context(), userID, teamID, *req.IsAdmin, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, m)
}

func teamMemberParams(w http.ResponseWriter, r *http.Request) (teamID, userID int64, ok bool) {
	teamID, err := idParam(r, "teamID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid team id")
		return 0, 0, false
	}
	userID, err = idParam(r, "userID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return 0, 0, false
	}
	return teamID, userID, true
}
