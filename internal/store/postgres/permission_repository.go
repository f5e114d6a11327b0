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

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/teamskills/teamskills/internal/permission"
)

// PermissionRepository implements permission.Repository
type PermissionRepository struct {
	db *DB
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(db *DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PermissionRepository) GetUserGlobalPermissions(ctx context.Context, userID int64) (permission.Set, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT permission FROM user_global_permissions WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan permissions: %w", err)
	}

	set := make(permission.Set, len(names))
	for _, name := range names {
		set.Add(permission.Global(name))
	}
	return set, nil
}

func (r *PermissionRepository) AddGlobalPermissions(ctx context.Context, userID int64, perms permission.Set) error {
	return add(ctx, r.db.pool, userID, perms)
}

func (r *PermissionRepository) RemoveGlobalPermissions(ctx context.Context, userID int64, perms permission.Set) error {
	return remove(ctx, r.db.pool, userID, perms)
}

// UpdateGlobalPermissions applies both changes in one transaction.
func (r *PermissionRepository) UpdateGlobalPermissions(ctx context.Context, userID int64, toAdd, toRemove permission.Set) error {
	return pgx.BeginFunc(ctx, r.db.pool, func(tx pgx.Tx) error {
		if err := add(ctx, tx, userID, toAdd); err != nil {
			return err
		}
		return remove(ctx, tx, userID, toRemove)
	})
}

func add(ctx context.Context, q querier, userID int64, perms permission.Set) error {
	if perms.Len() == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `
		INSERT INTO user_global_permissions (user_id, permission)
		SELECT $1, unnest($2::text[])
		ON CONFLICT (user_id, permission) DO NOTHING
	`, userID, perms.Strings())
	if err != nil {
		return fmt.Errorf("failed to insert permissions: %w", err)
	}
	return nil
}

func remove(ctx context.Context, q querier, userID int64, perms permission.Set) error {
	if perms.Len() == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `
		DELETE FROM user_global_permissions
		WHERE user_id = $1 AND permission = ANY($2::text[])
	`, userID, perms.Strings())
	if err != nil {
		return fmt.Errorf("failed to delete permissions: %w", err)
	}
	return nil
}
