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

package team

import (
	"context"
	"errors"
)

// Domain errors
var (
	ErrTeamNotFound       = errors.New("team not found")
	ErrMembershipNotFound = errors.New("membership not found")
)

// Team is a named group of users
type Team struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Membership links a user to a team. IsAdmin is the per-team admin right,
// independent of the user's global permissions.
type Membership struct {
	TeamID  int64 `json:"teamId"`
	UserID  int64 `json:"userId"`
	IsAdmin bool  `json:"isAdmin"`
}

// Repository defines the interface for team and membership storage.
// There is at most one membership per (team, user).
type Repository interface {
	CreateTeam(ctx context.Context, name string) (*Team, error)

	// GetTeam returns ErrTeamNotFound for unknown ids.
	GetTeam(ctx context.Context, teamID int64) (*Team, error)

	// GetTeamMembers lists the memberships of a team ordered by user id.
	GetTeamMembers(ctx context.Context, teamID int64) ([]Membership, error)

	// AddMember inserts m. An existing row for the pair is left untouched.
	AddMember(ctx context.Context, m Membership) error

	// RemoveMember returns ErrMembershipNotFound when there is no row.
	RemoveMember(ctx context.Context, teamID, userID int64) error

	// SetTeamAdminRights returns ErrMembershipNotFound when there is no row.
	SetTeamAdminRights(ctx context.Context, teamID, userID int64, isAdmin bool) error
}

// findMember returns the membership of userID in members.
func findMember(members []Membership, userID int64) (Membership, bool) {
	for _, m := range members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Membership{}, false
}
