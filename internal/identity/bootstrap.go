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
	"log/slog"

	"github.com/teamskills/teamskills/internal/audit"
	"github.com/teamskills/teamskills/internal/observability/logger"
	"github.com/teamskills/teamskills/internal/permission"
)

// BootstrapConfig names the user that receives ADMIN on an empty system.
type BootstrapConfig struct {
	Username string
	Email    string
	Password string
}

// BootstrapService grants the first ADMIN, which no operation can do since
// granting requires an existing ADMIN.
type BootstrapService struct {
	identityService *Service
	permRepo        permission.Repository
	auditLogger     audit.Logger
}

// NewBootstrapService creates a new bootstrap service
func NewBootstrapService(identityService *Service, permRepo permission.Repository, auditLogger audit.Logger) *BootstrapService {
	return &BootstrapService{
		identityService: identityService,
		permRepo:        permRepo,
		auditLogger:     auditLogger,
	}
}

// Bootstrap creates the configured user when missing and grants it ADMIN.
// It does nothing when cfg.Username is empty or the user already holds ADMIN.
func (s *BootstrapService) Bootstrap(ctx context.Context, cfg BootstrapConfig) (*User, error) {
	if cfg.Username == "" {
		return nil, nil
	}

	user, err := s.identityService.repo.GetByUsername(ctx, cfg.Username)
	if errors.Is(err, ErrUserNotFound) {
		user, err = s.identityService.CreateUser(ctx, CreateUserInput{
			Username: cfg.Username,
			Email:    cfg.Email,
			Password: cfg.Password,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bootstrap user %q: %w", cfg.Username, err)
	}

	held, err := s.permRepo.GetUserGlobalPermissions(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read bootstrap user permissions: %w", err)
	}
	if held.Contains(permission.Admin) {
		return user, nil
	}

	if err := s.permRepo.AddGlobalPermissions(ctx, user.ID, permission.NewSet(permission.Admin)); err != nil {
		return nil, fmt.Errorf("failed to grant ADMIN during bootstrap: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionsGranted,
		TargetID: user.ID,
		Metadata: map[string]any{
			audit.AttrPermissions: []string{string(permission.Admin)},
			"bootstrap":           true,
		},
	})
	slog.InfoContext(ctx, "bootstrapped initial admin", logger.UserID(user.ID))
	return user, nil
}
