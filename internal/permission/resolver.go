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
)

// Resolver computes which permissions a user may grant or revoke.
// Nothing is cached: every call reads the current assignments.
type Resolver struct {
	repo Repository
}

// NewResolver creates a new resolver
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// AllowedToModify returns the union of the modification rules of every
// permission userID holds. A user without permissions gets an empty set.
func (r *Resolver) AllowedToModify(ctx context.Context, userID int64) (Set, error) {
	held, err := r.repo.GetUserGlobalPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get permissions of user %d: %w", userID, err)
	}

	allowed := make(Set)
	for p := range held {
		for target := range modificationRules[p] {
			allowed.Add(target)
		}
	}
	return allowed, nil
}

// Holds reports whether userID currently holds p.
func (r *Resolver) Holds(ctx context.Context, userID int64, p Global) (bool, error) {
	held, err := r.repo.GetUserGlobalPermissions(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get permissions of user %d: %w", userID, err)
	}
	return held.Contains(p), nil
}
