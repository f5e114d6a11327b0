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

// Operation names
const (
	OpAddPermissions    = "add_user_permissions"
	OpRemovePermissions = "remove_user_permissions"
	OpUpdatePermissions = "update_user_permissions"
)

// change holds the inputs shared by every permission mutation and implements
// their validate and authorize stages.
type change struct {
	name     string
	resolver *Resolver
	repo     Repository
	audit    audit.Logger
	target   int64
	actor    int64
	toAdd    Set
	toRemove Set
}

func (c *change) Name() string { return c.name }

// requested is every permission the change touches.
func (c *change) requested() Set {
	return c.toAdd.Union(c.toRemove)
}

func (c *change) Validate(_ context.Context) error {
	requested := c.requested()
	if requested.Len() == 0 {
		return operation.Invalid("no permissions requested")
	}
	for p := range requested {
		if !p.Valid() {
			return operation.Invalid("unknown permission %q", string(p))
		}
	}
	if both := c.toAdd.Intersect(c.toRemove); both.Len() > 0 {
		return operation.Invalid("permissions cannot be added and removed at once: %s", both)
	}
	return nil
}

// Authorize rejects the whole change when any requested permission is
// outside the actor's allowed set.
func (c *change) Authorize(ctx context.Context) error {
	allowed, err := c.resolver.AllowedToModify(ctx, c.actor)
	if err != nil {
		return err
	}
	if denied := c.requested().Difference(allowed); denied.Len() > 0 {
		return operation.Unauthorized("not allowed to modify permissions: %s", denied)
	}
	return nil
}

// held reads the target's permissions before any write, so a failed read
// leaves nothing persisted.
func (c *change) held(ctx context.Context) (Set, error) {
	held, err := c.repo.GetUserGlobalPermissions(ctx, c.target)
	if err != nil {
		return nil, fmt.Errorf("failed to get permissions of user %d: %w", c.target, err)
	}
	return held, nil
}

func (c *change) logChange(ctx context.Context, eventType string, perms Set) {
	if perms.Len() == 0 {
		return
	}
	c.audit.Log(ctx, audit.Event{
		Type:     eventType,
		ActorID:  c.actor,
		TargetID: c.target,
		Metadata: map[string]any{audit.AttrPermissions: perms.Strings()},
	})
}

// AddPermissions grants permissions to a target user.
type AddPermissions struct {
	change
}

// Run returns the target's rows after the grant.
func (op *AddPermissions) Run(ctx context.Context) ([]Assignment, error) {
	held, err := op.held(ctx)
	if err != nil {
		return nil, err
	}
	if err := op.repo.AddGlobalPermissions(ctx, op.target, op.toAdd); err != nil {
		return nil, fmt.Errorf("failed to add permissions: %w", err)
	}
	op.logChange(ctx, audit.TypePermissionsGranted, op.toAdd)
	return Assignments(op.target, held.Union(op.toAdd)), nil
}

// RemovePermissions revokes permissions from a target user.
type RemovePermissions struct {
	change
}

// Run returns the target's rows after the revoke.
func (op *RemovePermissions) Run(ctx context.Context) ([]Assignment, error) {
	held, err := op.held(ctx)
	if err != nil {
		return nil, err
	}
	if err := op.repo.RemoveGlobalPermissions(ctx, op.target, op.toRemove); err != nil {
		return nil, fmt.Errorf("failed to remove permissions: %w", err)
	}
	op.logChange(ctx, audit.TypePermissionsRevoked, op.toRemove)
	return Assignments(op.target, held.Difference(op.toRemove)), nil
}

// UpdatePermissions grants and revokes in one atomic store call.
type UpdatePermissions struct {
	change
}

func (op *UpdatePermissions) Run(ctx context.Context) (struct{}, error) {
	if err := op.repo.UpdateGlobalPermissions(ctx, op.target, op.toAdd, op.toRemove); err != nil {
		return struct{}{}, fmt.Errorf("failed to update permissions: %w", err)
	}
	op.logChange(ctx, audit.TypePermissionsGranted, op.toAdd)
	op.logChange(ctx, audit.TypePermissionsRevoked, op.toRemove)
	return struct{}{}, nil
}
