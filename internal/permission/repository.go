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

import "context"

// Assignment is a single (user, permission) row.
type Assignment struct {
	UserID     int64  `json:"userId"`
	Permission Global `json:"permission"`
}

// Assignments expands a user's permission set into rows in catalog order.
func Assignments(userID int64, perms Set) []Assignment {
	sorted := perms.Sorted()
	out := make([]Assignment, len(sorted))
	for i, p := range sorted {
		out[i] = Assignment{UserID: userID, Permission: p}
	}
	return out
}

// Repository defines the interface for global permission storage.
// A user holds each permission at most once.
type Repository interface {
	// GetUserGlobalPermissions returns the user's permissions. Unknown users
	// have none.
	GetUserGlobalPermissions(ctx context.Context, userID int64) (Set, error)

	// AddGlobalPermissions grants perms. Already held permissions are skipped.
	AddGlobalPermissions(ctx context.Context, userID int64, perms Set) error

	// RemoveGlobalPermissions revokes perms. Permissions not held are skipped.
	RemoveGlobalPermissions(ctx context.Context, userID int64, perms Set) error

	// UpdateGlobalPermissions applies both changes or neither.
	UpdateGlobalPermissions(ctx context.Context, userID int64, toAdd, toRemove Set) error
}
