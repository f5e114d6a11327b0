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

//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/teamskills/teamskills/internal/audit"
	"github.com/teamskills/teamskills/internal/identity"
	"github.com/teamskills/teamskills/internal/operation"
	"github.com/teamskills/teamskills/internal/permission"
	"github.com/teamskills/teamskills/internal/team"
)

// setupTestDB starts a PostgreSQL container and applies the schema.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("teamskills_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.EnsureSchema(ctx))
	// applying twice must be harmless
	require.NoError(t, db.EnsureSchema(ctx))
	return db
}

type nopAudit struct{}

func (nopAudit) Log(context.Context, audit.Event) {}

// TestPurpose: Validates that the combined permission update is atomic in PostgreSQL and follows the documented TEAMS_LIST_ADMIN example.
// Scope: Database Integration Test
// Security: Privilege Escalation Prevention, all-or-nothing mutation
// Expected: A partially allowed request leaves user 7 without permissions; the allowed request grants exactly TEAMS_LIST_ADMIN.
// Test Case ID: PG-01
func TestPermissionRepository_Integration(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewPermissionRepository(db)

	require.NoError(t, repo.AddGlobalPermissions(ctx, 1, permission.NewSet(permission.TeamsListAdmin)))
	// idempotent
	require.NoError(t, repo.AddGlobalPermissions(ctx, 1, permission.NewSet(permission.TeamsListAdmin)))

	svc := permission.NewService(repo, operation.NewRunner(nil, nil), nopAudit{})

	err := svc.UpdatePermissions(ctx, 7, permission.NewSet(permission.TeamsListAdmin, permission.SkillsListAdmin), nil, 1)
	assert.ErrorIs(t, err, operation.ErrUnauthorized)
	held, err := repo.GetUserGlobalPermissions(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, held.Len())

	require.NoError(t, svc.UpdatePermissions(ctx, 7, permission.NewSet(permission.TeamsListAdmin), nil, 1))
	held, err = repo.GetUserGlobalPermissions(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []permission.Global{permission.TeamsListAdmin}, held.Sorted())

	require.NoError(t, repo.UpdateGlobalPermissions(ctx, 7,
		permission.NewSet(permission.Reader),
		permission.NewSet(permission.TeamsListAdmin, permission.Guest)))
	held, err = repo.GetUserGlobalPermissions(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []permission.Global{permission.Reader}, held.Sorted())

	// the CHECK constraint rolls back the whole transaction
	err = repo.UpdateGlobalPermissions(ctx, 7,
		permission.NewSet(permission.Global("OWNER")),
		permission.NewSet(permission.Reader))
	assert.Error(t, err)
	held, err = repo.GetUserGlobalPermissions(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []permission.Global{permission.Reader}, held.Sorted())
}

func TestTeamRepository_Integration(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewTeamRepository(db)

	created, err := repo.CreateTeam(ctx, "Platform")
	require.NoError(t, err)

	_, err = repo.GetTeam(ctx, created.ID+100)
	assert.ErrorIs(t, err, team.ErrTeamNotFound)

	require.NoError(t, repo.AddMember(ctx, team.Membership{TeamID: created.ID, UserID: 3, IsAdmin: true}))
	require.NoError(t, repo.AddMember(ctx, team.Membership{TeamID: created.ID, UserID: 2}))
	require.NoError(t, repo.AddMember(ctx, team.Membership{TeamID: created.ID, UserID: 2, IsAdmin: true}))

	err = repo.AddMember(ctx, team.Membership{TeamID: created.ID + 100, UserID: 2})
	assert.ErrorIs(t, err, team.ErrTeamNotFound)

	members, err := repo.GetTeamMembers(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []team.Membership{
		{TeamID: created.ID, UserID: 2, IsAdmin: false},
		{TeamID: created.ID, UserID: 3, IsAdmin: true},
	}, members)

	require.NoError(t, repo.SetTeamAdminRights(ctx, created.ID, 2, true))
	assert.ErrorIs(t, repo.SetTeamAdminRights(ctx, created.ID, 9, true), team.ErrMembershipNotFound)

	require.NoError(t, repo.RemoveMember(ctx, created.ID, 3))
	assert.ErrorIs(t, repo.RemoveMember(ctx, created.ID, 3), team.ErrMembershipNotFound)
}

func TestUserRepository_Integration(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	now := time.Now().UTC().Truncate(time.Microsecond)
	alice := &identity.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, alice))
	assert.NotZero(t, alice.ID)

	err := repo.Create(ctx, &identity.User{Username: "ALICE", Email: "other@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, identity.ErrUsernameTaken)

	err = repo.Create(ctx, &identity.User{Username: "bob", Email: "Alice@Example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, identity.ErrEmailTaken)

	got, err := repo.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	got.DisplayName = "Alice"
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.DisplayName)

	_, err = repo.GetByID(ctx, alice.ID+100)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}
