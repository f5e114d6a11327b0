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
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/teamskills/teamskills/internal/audit"
	"github.com/teamskills/teamskills/internal/operation"
	"github.com/teamskills/teamskills/internal/permission"
)

// Operation names
const (
	OpCreateUser = "create_user"
	OpUpdateUser = "update_user"
)

// Service provides user registration and profile updates
type Service struct {
	repo        UserRepository
	hasher      *PasswordHasher
	resolver    *permission.Resolver
	runner      *operation.Runner
	auditLogger audit.Logger
	validate    *validator.Validate
}

// NewService creates a new identity service
func NewService(
	repo UserRepository,
	hasher *PasswordHasher,
	resolver *permission.Resolver,
	runner *operation.Runner,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		repo:        repo,
		hasher:      hasher,
		resolver:    resolver,
		runner:      runner,
		auditLogger: auditLogger,
		validate:    newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report JSON field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) validateStruct(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return operation.Invalid("%s is invalid: failed %q rule", fe.Field(), fe.Tag())
	}
	return operation.Invalid("invalid input")
}

// checkUsername rejects when username belongs to a user other than self.
func (s *Service) checkUsername(ctx context.Context, username string, self int64) error {
	existing, err := s.repo.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check username: %w", err)
	case existing.ID != self:
		return operation.Conflict(ReasonUsernameTaken)
	}
	return nil
}

// checkEmail rejects when email belongs to a user other than self.
func (s *Service) checkEmail(ctx context.Context, email string, self int64) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check email: %w", err)
	case existing.ID != self:
		return operation.Conflict(ReasonEmailTaken)
	}
	return nil
}

// storeError classifies unique violations raised by the store after the
// pre-checks passed.
func storeError(action string, err error) error {
	switch {
	case errors.Is(err, ErrUsernameTaken):
		return operation.Conflict(ReasonUsernameTaken)
	case errors.Is(err, ErrEmailTaken):
		return operation.Conflict(ReasonEmailTaken)
	case errors.Is(err, ErrUserNotFound):
		return operation.NotFound("user not found")
	default:
		return fmt.Errorf("failed to %s: %w", action, err)
	}
}

// CreateUser registers a new user. The username and the email are checked
// for uniqueness before anything is written.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	return operation.Execute[*User](ctx, s.runner, operation.Func[*User]{
		OpName: OpCreateUser,
		ValidateFn: func(ctx context.Context) error {
			if err := s.validateStruct(in); err != nil {
				return err
			}
			if err := s.checkUsername(ctx, in.Username, 0); err != nil {
				return err
			}
			return s.checkEmail(ctx, in.Email, 0)
		},
		RunFn: func(ctx context.Context) (*User, error) {
			hash, err := s.hasher.Hash(in.Password)
			if err != nil {
				return nil, fmt.Errorf("failed to hash password: %w", err)
			}

			now := time.Now()
			user := &User{
				Username:     in.Username,
				Email:        in.Email,
				DisplayName:  in.DisplayName,
				PasswordHash: hash,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := s.repo.Create(ctx, user); err != nil {
				return nil, storeError("create user", err)
			}

			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeUserCreated,
				ActorID:  user.ID,
				TargetID: user.ID,
				Metadata: map[string]any{"username": user.Username},
			})
			return user, nil
		},
	})
}

// UpdateUser changes the profile of userID. The actor must be the user or
// hold ADMIN.
func (s *Service) UpdateUser(ctx context.Context, userID int64, in UpdateUserInput, actor int64) (*User, error) {
	if in.Username != nil {
		v := strings.TrimSpace(*in.Username)
		in.Username = &v
	}
	if in.Email != nil {
		v := strings.ToLower(strings.TrimSpace(*in.Email))
		in.Email = &v
	}

	return operation.Execute[*User](ctx, s.runner, operation.Func[*User]{
		OpName: OpUpdateUser,
		ValidateFn: func(context.Context) error {
			return s.validateStruct(in)
		},
		AuthorizeFn: func(ctx context.Context) error {
			if actor == userID {
				return nil
			}
			isAdmin, err := s.resolver.Holds(ctx, actor, permission.Admin)
			if err != nil {
				return err
			}
			if !isAdmin {
				return operation.Unauthorized("user %d may not update user %d", actor, userID)
			}
			return nil
		},
		RunFn: func(ctx context.Context) (*User, error) {
			user, err := s.repo.GetByID(ctx, userID)
			if err != nil {
				return nil, storeError("get user", err)
			}

			var changed []string
			if in.Username != nil && *in.Username != user.Username {
				if err := s.checkUsername(ctx, *in.Username, userID); err != nil {
					return nil, err
				}
				user.Username = *in.Username
				changed = append(changed, "username")
			}
			if in.Email != nil && *in.Email != user.Email {
				if err := s.checkEmail(ctx, *in.Email, userID); err != nil {
					return nil, err
				}
				user.Email = *in.Email
				changed = append(changed, "email")
			}
			if in.DisplayName != nil && *in.DisplayName != user.DisplayName {
				user.DisplayName = *in.DisplayName
				changed = append(changed, "displayName")
			}
			if in.Password != nil {
				hash, err := s.hasher.Hash(*in.Password)
				if err != nil {
					return nil, fmt.Errorf("failed to hash password: %w", err)
				}
				user.PasswordHash = hash
				changed = append(changed, "password")
			}
			if len(changed) == 0 {
				return user, nil
			}

			user.UpdatedAt = time.Now()
			if err := s.repo.Update(ctx, user); err != nil {
				return nil, storeError("update user", err)
			}

			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeUserUpdated,
				ActorID:  actor,
				TargetID: userID,
				Metadata: map[string]any{audit.AttrFields: changed},
			})
			return user, nil
		},
	})
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError("get user", err)
	}
	return user, nil
}

// Authenticate checks a username and password pair. Every outcome is
// audited except store failures.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.auditLogger.Log(ctx, audit.Event{
				Type: audit.TypeLoginFailed,
				Metadata: map[string]any{
					audit.AttrUsername: username,
					audit.AttrReason:   "user_not_found",
				},
			})
			return nil, operation.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  user.ID,
			TargetID: user.ID,
			Metadata: map[string]any{audit.AttrReason: "invalid_password"},
		})
		return nil, operation.Unauthorized("invalid credentials")
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSucceeded,
		ActorID:  user.ID,
		TargetID: user.ID,
	})
	return user, nil
}
