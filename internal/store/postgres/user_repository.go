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
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/teamskills/teamskills/internal/identity"
)

const userColumns = `id, username, email, display_name, password_hash, created_at, updated_at`

// UserRepository implements identity.UserRepository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// uniqueError maps the unique indexes on users to identity errors.
func uniqueError(err error) error {
	constraint, ok := constraintViolation(err, codeUniqueViolation)
	if !ok {
		return err
	}
	switch constraint {
	case "users_username_key":
		return identity.ErrUsernameTaken
	case "users_email_key":
		return identity.ErrEmailTaken
	default:
		return err
	}
}

// Create inserts user and sets its ID
func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, display_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		user.Username, user.Email, user.DisplayName, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		if mapped := uniqueError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) getBy(ctx context.Context, where string, arg any) (*identity.User, error) {
	var u identity.User
	err := r.db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, identity.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByUsername retrieves a user by username, ignoring case
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*identity.User, error) {
	return r.getBy(ctx, "lower(username) = lower($1)", username)
}

// GetByEmail retrieves a user by email, ignoring case
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	return r.getBy(ctx, "lower(email) = lower($1)", email)
}

// Update stores the mutable fields of user
func (r *UserRepository) Update(ctx context.Context, user *identity.User) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE users
		SET username = $2, email = $3, display_name = $4, password_hash = $5, updated_at = $6
		WHERE id = $1
	`, user.ID, user.Username, user.Email, user.DisplayName, user.PasswordHash, user.UpdatedAt)
	if err != nil {
		if mapped := uniqueError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}
