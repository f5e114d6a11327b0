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

	"github.com/teamskills/teamskills/internal/team"
)

// TeamRepository implements team.Repository
type TeamRepository struct {
	db *DB
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) CreateTeam(ctx context.Context, name string) (*team.Team, error) {
	t := &team.Team{Name: name}
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO teams (name) VALUES ($1) RETURNING id
	`, name).Scan(&t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert team: %w", err)
	}
	return t, nil
}

func (r *TeamRepository) GetTeam(ctx context.Context, teamID int64) (*team.Team, error) {
	var t team.Team
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name FROM teams WHERE id = $1
	`, teamID).Scan(&t.ID, &t.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, team.ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return &t, nil
}

func (r *TeamRepository) GetTeamMembers(ctx context.Context, teamID int64) ([]team.Membership, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT team_id, user_id, is_admin
		FROM team_members
		WHERE team_id = $1
		ORDER BY user_id
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to query team members: %w", err)
	}

	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (team.Membership, error) {
		var m team.Membership
		err := row.Scan(&m.TeamID, &m.UserID, &m.IsAdmin)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan team members: %w", err)
	}
	return members, nil
}

func (r *TeamRepository) AddMember(ctx context.Context, m team.Membership) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, is_admin)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id, user_id) DO NOTHING
	`, m.TeamID, m.UserID, m.IsAdmin)
	if _, ok := constraintViolation(err, codeForeignKeyViolation); ok {
		return team.ErrTeamNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to insert team member: %w", err)
	}
	return nil
}

func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID int64) error {
	tag, err := r.db.pool.Exec(ctx, `
		DELETE FROM team_members WHERE team_id = $1 AND user_id = $2
	`, teamID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete team member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return team.ErrMembershipNotFound
	}
	return nil
}

func (r *TeamRepository) SetTeamAdminRights(ctx context.Context, teamID, userID int64, isAdmin bool) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE team_members SET is_admin = $3 WHERE team_id = $1 AND user_id = $2
	`, teamID, userID, isAdmin)
	if err != nil {
		return fmt.Errorf("failed to update team admin rights: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return team.ErrMembershipNotFound
	}
	return nil
}
