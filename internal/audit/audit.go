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

package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	TypePermissionsGranted    = "permissions_granted"
	TypePermissionsRevoked    = "permissions_revoked"
	TypeTeamCreated           = "team_created"
	TypeTeamAdminRightsChange = "team_admin_rights_changed"
	TypeTeamMemberAdded       = "team_member_added"
	TypeTeamMemberRemoved     = "team_member_removed"
	TypeUserCreated           = "user_created"
	TypeUserUpdated           = "user_updated"
	TypeLoginSucceeded        = "login_succeeded"
	TypeLoginFailed           = "login_failed"
)

// Metadata keys
const (
	AttrPermissions = "permissions"
	AttrIsAdmin     = "is_admin"
	AttrFields      = "fields"
	AttrReason      = "reason"
	AttrUsername    = "username"
)

// Event represents an auditable change
type Event struct {
	ID        string
	Type      string
	ActorID   int64
	TargetID  int64
	TeamID    int64
	Metadata  map[string]any
	Timestamp time.Time
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event)
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates an audit logger writing through l, or through the
// slog default when l is nil.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{logger: l}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	if event.ID == "" {
		if id, err := uuid.NewV7(); err == nil {
			event.ID = id.String()
		}
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	attrs := []slog.Attr{
		slog.String("component", "audit"),
		slog.String("audit_id", event.ID),
		slog.String("audit_type", event.Type),
		slog.Int64("actor_id", event.ActorID),
		slog.Time("timestamp", event.Timestamp),
	}
	if event.TargetID != 0 {
		attrs = append(attrs, slog.Int64("target_id", event.TargetID))
	}
	if event.TeamID != 0 {
		attrs = append(attrs, slog.Int64("team_id", event.TeamID))
	}

	if len(event.Metadata) > 0 {
		group := make([]any, 0, len(event.Metadata))
		for k, v := range event.Metadata {
			if isSecret(k) {
				v = "[REDACTED]"
			}
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", group...))
	}

	target := l.logger
	if target == nil {
		target = slog.Default()
	}
	target.LogAttrs(ctx, slog.LevelInfo, "AUDIT_EVENT", attrs...)
}

var secretMarkers = []string{"password", "secret", "token", "key", "hash", "credential", "authorization"}

// isSecret checks if a key likely contains a secret
func isSecret(key string) bool {
	k := strings.ToLower(key)
	for _, s := range secretMarkers {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
