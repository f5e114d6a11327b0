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
	"fmt"

	"github.com/teamskills/teamskills/internal/operation"
	"github.com/teamskills/teamskills/internal/permission"
)

// Authorizer decides whether a user may manage a specific team.
type Authorizer struct {
	repo     Repository
	resolver *permission.Resolver

	// required is the global permission that grants rights on every team.
	required permission.Global
}

// NewAuthorizer creates an authorizer. Holders of TEAMS_LIST_ADMIN, or of any
// permission whose rules include it, may act on every team.
func NewAuthorizer(repo Repository, resolver *permission.Resolver) *Authorizer {
	return &Authorizer{
		repo:     repo,
		resolver: resolver,
		required: permission.TeamsListAdmin,
	}
}

// CanActOnTeam returns nil when actor may manage teamID, either through the
// global permission or as an admin of that team. Admin rights on another team
// do not count.
func (a *Authorizer) CanActOnTeam(ctx context.Context, teamID, actor int64) error {
	ok, err := a.hasGlobalRight(ctx, actor)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	members, err := a.repo.GetTeamMembers(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to get members of team %d: %w", teamID, err)
	}
	if m, found := findMember(members, actor); found && m.IsAdmin {
		return nil
	}
	return operation.Unauthorized("user %d is not allowed to manage team %d", actor, teamID)
}

// CanManageAllTeams returns nil when actor holds the global team right.
func (a *Authorizer) CanManageAllTeams(ctx context.Context, actor int64) error {
	ok, err := a.hasGlobalRight(ctx, actor)
	if err != nil {
		return err
	}
	if !ok {
		return operation.Unauthorized("user %d is not allowed to manage teams", actor)
	}
	return nil
}

func (a *Authorizer) hasGlobalRight(ctx context.Context, actor int64) (bool, error) {
	allowed, err := a.resolver.AllowedToModify(ctx, actor)
	if err != nil {
		return false, err
	}
	return allowed.Contains(a.required), nil
}
