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

package permission

import (
	"context"
	"fmt"

	"github.com/teamskills/teamskills/internal/audit"
	"github.com/teamskills/teamskills/internal/operation"
)

// Service provides global permission management
type Service struct {
	repo        Repository
	resolver    *Resolver
	runner      *operation.Runner
	auditLogger audit.Logger
}

// NewService creates a new permission service
func NewService(repo Repository, runner *operation.Runner, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		resolver:    NewResolver(repo),
		runner:      runner,
		auditLogger: auditLogger,
	}
}

// Resolver exposes the allowed-permissions resolver backed by this service's store.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// AllowedToModify returns the permissions userID may grant or revoke on others.
func (s *Service) AllowedToModify(ctx context.Context, userID int64) (Set, error) {
	return s.resolver.AllowedToModify(ctx, userID)
}

// UserPermissions lists the permission rows of userID.
func (s *Service) UserPermissions(ctx context.Context, userID int64) ([]Assignment, error) {
	held, err := s.repo.GetUserGlobalPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user permissions: %w", err)
	}
	return Assignments(userID, held), nil
}

func (s *Service) newChange(name string, target, actor int64, toAdd, toRemove Set) change {
	return change{
		name:     name,
		resolver: s.resolver,
		repo:     s.repo,
		audit:    s.auditLogger,
		target:   target,
		actor:    actor,
		toAdd:    toAdd.Clone(),
		toRemove: toRemove.Clone(),
	}
}

// NewAddPermissions builds the operation granting toAdd to target on behalf of actor.
func (s *Service) NewAddPermissions(target int64, toAdd Set, actor int64) *AddPermissions {
	return &AddPermissions{s.newChange(OpAddPermissions, target, actor, toAdd, nil)}
}

// NewRemovePermissions builds the operation revoking toRemove from target on behalf of actor.
func (s *Service) NewRemovePermissions(target int64, toRemove Set, actor int64) *RemovePermissions {
	return &RemovePermissions{s.newChange(OpRemovePermissions, target, actor, nil, toRemove)}
}

// NewUpdatePermissions builds the combined grant and revoke operation.
func (s *Service) NewUpdatePermissions(target int64, toAdd, toRemove Set, actor int64) *UpdatePermissions {
	return &UpdatePermissions{s.newChange(OpUpdatePermissions, target, actor, toAdd, toRemove)}
}

// AddPermissions grants toAdd to target and returns the target's resulting rows.
func (s *Service) AddPermissions(ctx context.Context, target int64, toAdd Set, actor int64) ([]Assignment, error) {
	return operation.Execute[[]Assignment](ctx, s.runner, s.NewAddPermissions(target, toAdd, actor))
}

// RemovePermissions revokes toRemove from target and returns the target's resulting rows.
func (s *Service) RemovePermissions(ctx context.Context, target int64, toRemove Set, actor int64) ([]Assignment, error) {
	return operation.Execute[[]Assignment](ctx, s.runner, s.NewRemovePermissions(target, toRemove, actor))
}

// UpdatePermissions grants toAdd and revokes toRemove. Nothing changes when
// any requested permission is outside the actor's allowed set.
func (s *Service) UpdatePermissions(ctx context.Context, target int64, toAdd, toRemove Set, actor int64) error {
	_, err := operation.Execute[struct{}](ctx, s.runner, s.NewUpdatePermissions(target, toAdd, toRemove, actor))
	return err
}

// CanUpdatePermissions runs the checks of UpdatePermissions without applying anything.
func (s *Service) CanUpdatePermissions(ctx context.Context, target int64, toAdd, toRemove Set, actor int64) error {
	return operation.CanExecute(ctx, s.runner, s.NewUpdatePermissions(target, toAdd, toRemove, actor))
}
