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
	"fmt"
	"strings"

	"github.com/teamskills/teamskills/internal/audit"
	"github.com/teamskills/teamskills/internal/operation"
)

// Operation names
const (
	OpCreateTeam         = "create_team"
	OpAddMember          = "add_team_member"
	OpRemoveMember       = "remove_team_member"
	OpSetTeamAdminRights = "set_team_admin_rights"
)

// Service provides team membership management
type Service struct {
	repo        Repository
	authorizer  *Authorizer
	runner      *operation.Runner
	auditLogger audit.Logger
}

// NewService creates a new team service
func NewService(repo Repository, authorizer *Authorizer, runner *operation.Runner, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		authorizer:  authorizer,
		runner:      runner,
		auditLogger: auditLogger,
	}
}

func validIDs(ids ...int64) error {
	for _, id := range ids {
		if id <= 0 {
			return operation.Invalid("ids must be positive")
		}
	}
	return nil
}

// teamGate authorizes actions scoped to a single team.
func (s *Service) teamGate(teamID, actor int64) func(context.Context) error {
	return func(ctx context.Context) error {
		return s.authorizer.CanActOnTeam(ctx, teamID, actor)
	}
}

// NewSetTeamAdminRights builds the operation setting the admin flag of target on teamID.
func (s *Service) NewSetTeamAdminRights(target, teamID int64, shouldBeAdmin bool, actor int64) operation.Func[Membership] {
	return operation.Func[Membership]{
		OpName:      OpSetTeamAdminRights,
		ValidateFn:  func(context.Context) error { return validIDs(target, teamID) },
		AuthorizeFn: s.teamGate(teamID, actor),
		RunFn: func(ctx context.Context) (Membership, error) {
			members, err := s.repo.GetTeamMembers(ctx, teamID)
			if err != nil {
				return Membership{}, fmt.Errorf("failed to get team members: %w", err)
			}
			m, found := findMember(members, target)
			if !found {
				return Membership{}, operation.NotFound("user %d is not a member of team %d", target, teamID)
			}
			if m.IsAdmin == shouldBeAdmin {
				return m, nil
			}

			if err := s.repo.SetTeamAdminRights(ctx, teamID, target, shouldBeAdmin); err != nil {
				if errors.Is(err, ErrMembershipNotFound) {
					return Membership{}, operation.NotFound("user %d is not a member of team %d", target, teamID)
				}
				return Membership{}, fmt.Errorf("failed to set team admin rights: %w", err)
			}
			m.IsAdmin = shouldBeAdmin

			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeTeamAdminRightsChange,
				ActorID:  actor,
				TargetID: target,
				TeamID:   teamID,
				Metadata: map[string]any{audit.AttrIsAdmin: shouldBeAdmin},
			})
			return m, nil
		},
	}
}

// SetTeamAdminRights grants or revokes the team admin flag of target.
// Authorization is checked before the target's membership.
func (s *Service) SetTeamAdminRights(ctx context.Context, target, teamID int64, shouldBeAdmin bool, actor int64) (Membership, error) {
	return operation.Execute[Membership](ctx, s.runner, s.NewSetTeamAdminRights(target, teamID, shouldBeAdmin, actor))
}

// CanActOnTeam runs only the authorization gate shared by team operations.
func (s *Service) CanActOnTeam(ctx context.Context, teamID, actor int64) error {
	return operation.CanExecute(ctx, s.runner, operation.Func[struct{}]{
		OpName:      "act_on_team",
		ValidateFn:  func(context.Context) error { return validIDs(teamID) },
		AuthorizeFn: s.teamGate(teamID, actor),
	})
}

// AddMember adds userID to teamID. Adding an existing member returns the
// current row unchanged.
func (s *Service) AddMember(ctx context.Context, teamID, userID int64, isAdmin bool, actor int64) (Membership, error) {
	return operation.Execute[Membership](ctx, s.runner, operation.Func[Membership]{
		OpName:      OpAddMember,
		ValidateFn:  func(context.Context) error { return validIDs(teamID, userID) },
		AuthorizeFn: s.teamGate(teamID, actor),
		RunFn: func(ctx context.Context) (Membership, error) {
			if err := s.requireTeam(ctx, teamID); err != nil {
				return Membership{}, err
			}
			members, err := s.repo.GetTeamMembers(ctx, teamID)
			if err != nil {
				return Membership{}, fmt.Errorf("failed to get team members: %w", err)
			}
			if m, found := findMember(members, userID); found {
				return m, nil
			}

			m := Membership{TeamID: teamID, UserID: userID, IsAdmin: isAdmin}
			if err := s.repo.AddMember(ctx, m); err != nil {
				return Membership{}, fmt.Errorf("failed to add team member: %w", err)
			}

			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeTeamMemberAdded,
				ActorID:  actor,
				TargetID: userID,
				TeamID:   teamID,
				Metadata: map[string]any{audit.AttrIsAdmin: isAdmin},
			})
			return m, nil
		},
	})
}

// RemoveMember removes userID from teamID.
func (s *Service) RemoveMember(ctx context.Context, teamID, userID, actor int64) error {
	_, err := operation.Execute[struct{}](ctx, s.runner, operation.Func[struct{}]{
		OpName:      OpRemoveMember,
		ValidateFn:  func(context.Context) error { return validIDs(teamID, userID) },
		AuthorizeFn: s.teamGate(teamID, actor),
		RunFn: func(ctx context.Context) (struct{}, error) {
			if err := s.repo.RemoveMember(ctx, teamID, userID); err != nil {
				if errors.Is(err, ErrMembershipNotFound) {
					return struct{}{}, operation.NotFound("user %d is not a member of team %d", userID, teamID)
				}
				return struct{}{}, fmt.Errorf("failed to remove team member: %w", err)
			}

			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeTeamMemberRemoved,
				ActorID:  actor,
				TargetID: userID,
				TeamID:   teamID,
			})
			return struct{}{}, nil
		},
	})
	return err
}

// CreateTeam creates a team. Only holders of the global team right may do so.
func (s *Service) CreateTeam(ctx context.Context, name string, actor int64) (*Team, error) {
	name = strings.TrimSpace(name)
	return operation.Execute[*Team](ctx, s.runner, operation.Func[*Team]{
		OpName: OpCreateTeam,
		ValidateFn: func(context.Context) error {
			if name == "" {
				return operation.Invalid("team name is required")
			}
			return nil
		},
		AuthorizeFn: func(ctx context.Context) error {
			return s.authorizer.CanManageAllTeams(ctx, actor)
		},
		RunFn: func(ctx context.Context) (*Team, error) {
			t, err := s.repo.CreateTeam(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("failed to create team: %w", err)
			}
			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeTeamCreated,
				ActorID:  actor,
				TeamID:   t.ID,
				Metadata: map[string]any{"name": t.Name},
			})
			return t, nil
		},
	})
}

// Members lists the memberships of teamID.
func (s *Service) Members(ctx context.Context, teamID int64) ([]Membership, error) {
	if err := s.requireTeam(ctx, teamID); err != nil {
		return nil, err
	}
	members, err := s.repo.GetTeamMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team members: %w", err)
	}
	return members, nil
}

func (s *Service) requireTeam(ctx context.Context, teamID int64) error {
	if _, err := s.repo.GetTeam(ctx, teamID); err != nil {
		if errors.Is(err, ErrTeamNotFound) {
			return operation.NotFound("team %d not found", teamID)
		}
		return fmt.Errorf("failed to get team: %w", err)
	}
	return nil
}
