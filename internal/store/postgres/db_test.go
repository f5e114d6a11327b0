package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/teamskills/teamskills/internal/identity"
)

func TestConfig_ConnString(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "app", Password: "pw", Database: "teamskills", SSLMode: "require"}
	assert.Equal(t, "host=db port=5432 user=app password=pw dbname=teamskills sslmode=require", cfg.ConnString())
}

func TestUniqueError(t *testing.T) {
	wrap := func(constraint string) error {
		return fmt.Errorf("exec: %w", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: constraint})
	}

	assert.ErrorIs(t, uniqueError(wrap("users_username_key")), identity.ErrUsernameTaken)
	assert.ErrorIs(t, uniqueError(wrap("users_email_key")), identity.ErrEmailTaken)

	other := wrap("users_pkey")
	assert.Equal(t, other, uniqueError(other))

	plain := errors.New("conn closed")
	assert.Equal(t, plain, uniqueError(plain))

	fk := &pgconn.PgError{Code: codeForeignKeyViolation, ConstraintName: "team_members_team_id_fkey"}
	name, ok := constraintViolation(fk, codeForeignKeyViolation)
	assert.True(t, ok)
	assert.Equal(t, "team_members_team_id_fkey", name)
}

func TestSchema_Embedded(t *testing.T) {
	for _, table := range []string{"users", "user_global_permissions", "teams", "team_members"} {
		assert.True(t, strings.Contains(Schema, "CREATE TABLE IF NOT EXISTS "+table+" "), table)
	}
}
