package identity_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamskills/teamskills/internal/audit"
	"github.com/teamskills/teamskills/internal/identity"
	"github.com/teamskills/teamskills/internal/operation"
	"github.com/teamskills/teamskills/internal/permission"
	"github.com/teamskills/teamskills/internal/store/memory"
)

type nopAudit struct{}

func (nopAudit) Log(context.Context, audit.Event) {}

// cheap parameters keep the tests fast
func testHasher() *identity.PasswordHasher {
	return identity.NewPasswordHasher(1024, 1, 1, 16, 32)
}

type fixture struct {
	users *memory.UserRepository
	perms *memory.PermissionRepository
	svc   *identity.Service
}

func newFixture() *fixture {
	store := memory.New()
	f := &fixture{
		users: memory.NewUserRepository(store),
		perms: memory.NewPermissionRepository(store),
	}
	f.svc = identity.NewService(f.users, testHasher(), permission.NewResolver(f.perms), operation.NewRunner(nil, nil), nopAudit{})
	return f
}

func (f *fixture) create(t *testing.T, username, email string) *identity.User {
	t.Helper()
	u, err := f.svc.CreateUser(context.Background(), identity.CreateUserInput{
		Username: username,
		Email:    email,
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	return u
}

func TestCreateUser(t *testing.T) {
	f := newFixture()

	u := f.create(t, " alice ", "Alice@Example.com")
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.True(t, strings.HasPrefix(u.PasswordHash, "$argon2id$v=19$"))

	got, err := f.svc.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, got.Username)
}

// TestPurpose: Validates that duplicate usernames and emails are rejected with distinct reasons and nothing is written.
// Scope: Unit Test
// Security: Account takeover via duplicate identity
// Expected: "The username is taken" for a reused username, "The email is taken" for a reused email, both classified as conflicts.
// Test Case ID: IDN-01
func TestCreateUser_Uniqueness(t *testing.T) {
	f := newFixture()
	f.create(t, "alice", "alice@example.com")

	tests := []struct {
		name     string
		username string
		email    string
		reason   string
	}{
		{"username taken", "alice", "other@example.com", identity.ReasonUsernameTaken},
		{"username taken ignoring case", "ALICE", "other@example.com", identity.ReasonUsernameTaken},
		{"email taken", "bob", "alice@example.com", identity.ReasonEmailTaken},
		{"both taken reports username", "alice", "alice@example.com", identity.ReasonUsernameTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateUser(context.Background(), identity.CreateUserInput{
				Username: tt.username,
				Email:    tt.email,
				Password: "correct-horse-battery",
			})
			assert.ErrorIs(t, err, operation.ErrConflict)
			assert.Equal(t, tt.reason, operation.Reason(err))

			_, err = f.users.GetByUsername(context.Background(), "bob")
			assert.ErrorIs(t, err, identity.ErrUserNotFound)
		})
	}
}

func TestCreateUser_Validation(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name  string
		in    identity.CreateUserInput
		field string
	}{
		{"missing username", identity.CreateUserInput{Email: "a@example.com", Password: "long-enough"}, "username"},
		{"bad email", identity.CreateUserInput{Username: "alice", Email: "not-an-email", Password: "long-enough"}, "email"},
		{"short password", identity.CreateUserInput{Username: "alice", Email: "a@example.com", Password: "short"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateUser(context.Background(), tt.in)
			assert.ErrorIs(t, err, operation.ErrInvalid)
			assert.Contains(t, operation.Reason(err), tt.field)
		})
	}
}

// TestPurpose: Validates that only the user themself or an ADMIN may update a profile.
// Scope: Unit Test
// Security: Broken Object Level Authorization
// Expected: Other users are rejected as unauthorized; ADMIN and the owner succeed; missing users are not-found for an ADMIN.
// Test Case ID: IDN-02
func TestUpdateUser_Authorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := f.create(t, "alice", "alice@example.com")
	bob := f.create(t, "bob", "bob@example.com")
	admin := f.create(t, "root", "root@example.com")
	require.NoError(t, f.perms.AddGlobalPermissions(ctx, admin.ID, permission.NewSet(permission.Admin)))

	name := "Alice A."
	_, err := f.svc.UpdateUser(ctx, alice.ID, identity.UpdateUserInput{DisplayName: &name}, bob.ID)
	assert.ErrorIs(t, err, operation.ErrUnauthorized)

	updated, err := f.svc.UpdateUser(ctx, alice.ID, identity.UpdateUserInput{DisplayName: &name}, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, name, updated.DisplayName)

	_, err = f.svc.UpdateUser(ctx, alice.ID, identity.UpdateUserInput{DisplayName: &name}, admin.ID)
	assert.NoError(t, err)

	_, err = f.svc.UpdateUser(ctx, 404, identity.UpdateUserInput{DisplayName: &name}, admin.ID)
	assert.ErrorIs(t, err, operation.ErrNotFound)
}

func TestUpdateUser_Uniqueness(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := f.create(t, "alice", "alice@example.com")
	f.create(t, "bob", "bob@example.com")

	taken := "bob"
	_, err := f.svc.UpdateUser(ctx, alice.ID, identity.UpdateUserInput{Username: &taken}, alice.ID)
	assert.ErrorIs(t, err, operation.ErrConflict)
	assert.Equal(t, identity.ReasonUsernameTaken, operation.Reason(err))

	email := "BOB@example.com"
	_, err = f.svc.UpdateUser(ctx, alice.ID, identity.UpdateUserInput{Email: &email}, alice.ID)
	assert.Equal(t, identity.ReasonEmailTaken, operation.Reason(err))

	// keeping one's own username is fine
	same := "alice"
	_, err = f.svc.UpdateUser(ctx, alice.ID, identity.UpdateUserInput{Username: &same}, alice.ID)
	assert.NoError(t, err)

	got, err := f.svc.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture()
	f.create(t, "alice", "alice@example.com")

	u, err := f.svc.Authenticate(context.Background(), "alice", "correct-horse-battery")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = f.svc.Authenticate(context.Background(), "alice", "wrong-password")
	assert.ErrorIs(t, err, operation.ErrUnauthorized)

	_, err = f.svc.Authenticate(context.Background(), "mallory", "whatever")
	assert.ErrorIs(t, err, operation.ErrUnauthorized)
}

type recordingAudit struct {
	events []audit.Event
}

func (r *recordingAudit) Log(_ context.Context, e audit.Event) {
	r.events = append(r.events, e)
}

// TestPurpose: Validates that every login attempt leaves an audit trail.
// Scope: Unit Test
// Security: Audit Logging of authentication events (brute force detection)
// Expected: Unknown users and wrong passwords emit login_failed with a reason; valid credentials emit login_succeeded.
// Test Case ID: IDN-03
func TestAuthenticate_Audit(t *testing.T) {
	f := newFixture()
	u := f.create(t, "alice", "alice@example.com")
	rec := &recordingAudit{}
	svc := identity.NewService(f.users, testHasher(), permission.NewResolver(f.perms), operation.NewRunner(nil, nil), rec)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "mallory", "whatever")
	require.ErrorIs(t, err, operation.ErrUnauthorized)
	_, err = svc.Authenticate(ctx, "alice", "wrong-password")
	require.ErrorIs(t, err, operation.ErrUnauthorized)
	_, err = svc.Authenticate(ctx, "alice", "correct-horse-battery")
	require.NoError(t, err)

	require.Len(t, rec.events, 3)

	assert.Equal(t, audit.TypeLoginFailed, rec.events[0].Type)
	assert.Equal(t, "user_not_found", rec.events[0].Metadata[audit.AttrReason])
	assert.Equal(t, "mallory", rec.events[0].Metadata[audit.AttrUsername])

	assert.Equal(t, audit.TypeLoginFailed, rec.events[1].Type)
	assert.Equal(t, "invalid_password", rec.events[1].Metadata[audit.AttrReason])
	assert.Equal(t, u.ID, rec.events[1].TargetID)

	assert.Equal(t, audit.TypeLoginSucceeded, rec.events[2].Type)
	assert.Equal(t, u.ID, rec.events[2].ActorID)
}

func TestGetUser_NotFound(t *testing.T) {
	_, err := newFixture().svc.GetUser(context.Background(), 9)
	assert.ErrorIs(t, err, operation.ErrNotFound)
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	boot := identity.NewBootstrapService(f.svc, f.perms, nopAudit{})

	u, err := boot.Bootstrap(ctx, identity.BootstrapConfig{})
	require.NoError(t, err)
	assert.Nil(t, u)

	cfg := identity.BootstrapConfig{Username: "root", Email: "root@example.com", Password: "bootstrap-secret"}
	u, err = boot.Bootstrap(ctx, cfg)
	require.NoError(t, err)

	held, err := f.perms.GetUserGlobalPermissions(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []permission.Global{permission.Admin}, held.Sorted())

	again, err := boot.Bootstrap(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
}

func TestBootstrap_InvalidUser(t *testing.T) {
	f := newFixture()
	boot := identity.NewBootstrapService(f.svc, f.perms, nopAudit{})

	_, err := boot.Bootstrap(context.Background(), identity.BootstrapConfig{Username: "root", Email: "nope"})
	assert.True(t, errors.Is(err, operation.ErrInvalid))
}
