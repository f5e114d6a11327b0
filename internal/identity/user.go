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

package identity

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")
)

// Conflict reasons shown to callers
const (
	ReasonUsernameTaken = "The username is taken"
	ReasonEmailTaken    = "The email is taken"
)

// User represents a registered user
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create stores user and assigns its ID. A unique violation is reported
	// as ErrUsernameTaken or ErrEmailTaken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update stores the mutable fields of user
	Update(ctx context.Context, user *User) error
}

// CreateUserInput is the payload of a registration.
type CreateUserInput struct {
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Email       string `json:"email" validate:"required,email,max=255"`
	DisplayName string `json:"displayName" validate:"max=128"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
}

// UpdateUserInput holds the fields to change. Nil fields are left as they are.
type UpdateUserInput struct {
	Username    *string `json:"username" validate:"omitempty,min=3,max=64"`
	Email       *string `json:"email" validate:"omitempty,email,max=255"`
	DisplayName *string `json:"displayName" validate:"omitempty,max=128"`
	Password    *string `json:"password" validate:"omitempty,min=8,max=128"`
}
