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

// Package memory keeps users, permissions and team memberships in process
// memory. It backs local runs and tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/teamskills/teamskills/internal/identity"
	"github.com/teamskills/teamskills/internal/permission"
	"github.com/teamskills/teamskills/internal/team"
)

type memberKey struct {
	teamID int64
	userID int64
}

// Store holds every table behind one mutex.
type Store struct {
	mu sync.RWMutex

	nextUserID  int64
	users       map[int64]identity.User
	permissions map[int64]permission.Set

	nextTeamID int64
	teams      map[int64]team.Team
	members    map[memberKey]bool
}

// New creates an empty store
func New() *Store {
	return &Store{
		users:       make(map[int64]identity.User),
		permissions: make(map[int64]permission.Set),
		teams:       make(map[int64]team.Team),
		members:     make(map[memberKey]bool),
	}
}

// PermissionRepository implements permission.Repository
type PermissionRepository struct {
	s *Store
}

// NewPermissionRepository creates a permission repository over s
func NewPermissionRepository(s *Store) *PermissionRepository {
	return &PermissionRepository{s: s}
}

func (r *PermissionRepository) GetUserGlobalPermissions(ctx context.Context, userID int64) (permission.Set, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.permissions[userID].Clone(), nil
}

func (r *PermissionRepository) AddGlobalPermissions(ctx context.Context, userID int64, perms permission.Set) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.apply(userID, perms, nil)
	return nil
}

func (r *PermissionRepository) RemoveGlobalPermissions(ctx context.Context, userID int64, perms permission.Set) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.apply(userID, nil, perms)
	return nil
}

func (r *PermissionRepository) UpdateGlobalPermissions(ctx context.Context, userID int64, toAdd, toRemove permission.Set) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.apply(userID, toAdd, toRemove)
	return nil
}

// apply must be called with mu held.
func (s *Store) apply(userID int64, toAdd, toRemove permission.Set) {
	held := s.permissions[userID].Union(toAdd).Difference(toRemove)
	if held.Len() == 0 {
		delete(s.permissions, userID)
		return
	}
	s.permissions[userID] = held
}

// TeamRepository implements team.Repository
type TeamRepository struct {
	s *Store
}

// NewTeamRepository creates a team repository over s
func NewTeamRepository(s *Store) *TeamRepository {
	return &TeamRepository{s: s}
}

func (r *TeamRepository) CreateTeam(ctx context.Context, name string) (*team.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextTeamID++
	t := team.Team{ID: r.s.nextTeamID, Name: name}
	r.s.teams[t.ID] = t
	return &t, nil
}

func (r *TeamRepository) GetTeam(ctx context.Context, teamID int64) (*team.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.teams[teamID]
	if !ok {
		return nil, team.ErrTeamNotFound
	}
	return &t, nil
}

func (r *TeamRepository) GetTeamMembers(ctx context.Context, teamID int64) ([]team.Membership, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []team.Membership
	for k, isAdmin := range r.s.members {
		if k.teamID == teamID {
			out = append(out, team.Membership{TeamID: k.teamID, UserID: k.userID, IsAdmin: isAdmin})
		}
	}
	slices.SortFunc(out, func(a, b team.Membership) int {
		return cmp.Compare(a.UserID, b.UserID)
	})
	return out, nil
}

func (r *TeamRepository) AddMember(ctx context.Context, m team.Membership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.teams[m.TeamID]; !ok {
		return team.ErrTeamNotFound
	}
	key := memberKey{m.TeamID, m.UserID}
	if _, exists := r.s.members[key]; !exists {
		r.s.members[key] = m.IsAdmin
	}
	return nil
}

func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := memberKey{teamID, userID}
	if _, ok := r.s.members[key]; !ok {
		return team.ErrMembershipNotFound
	}
	delete(r.s.members, key)
	return nil
}

func (r *TeamRepository) SetTeamAdminRights(ctx context.Context, teamID, userID int64, isAdmin bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := memberKey{teamID, userID}
	if _, ok := r.s.members[key]; !ok {
		return team.ErrMembershipNotFound
	}
	r.s.members[key] = isAdmin
	return nil
}

// UserRepository implements identity.UserRepository. Usernames and emails
// are unique case-insensitively.
type UserRepository struct {
	s *Store
}

// NewUserRepository creates a user repository over s
func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{s: s}
}

// conflict must be called with mu held.
func (s *Store) conflict(u *identity.User) error {
	for id, other := range s.users {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(other.Username, u.Username) {
			return identity.ErrUsernameTaken
		}
		if strings.EqualFold(other.Email, u.Email) {
			return identity.ErrEmailTaken
		}
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user.ID = 0
	if err := r.s.conflict(user); err != nil {
		return err
	}
	r.s.nextUserID++
	user.ID = r.s.nextUserID
	r.s.users[user.ID] = *user
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*identity.User, error) {
	return r.find(func(u identity.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	return r.find(func(u identity.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepository) find(match func(identity.User) bool) (*identity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (r *UserRepository) Update(ctx context.Context, user *identity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return identity.ErrUserNotFound
	}
	if err := r.s.conflict(user); err != nil {
		return err
	}
	r.s.users[user.ID] = *user
	return nil
}
