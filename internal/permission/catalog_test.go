package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamskills/teamskills/internal/operation"
)

// TestPurpose: Validates the modification rule table returns exactly the documented target sets.
// Scope: Unit Test
// Security: Privilege Escalation Prevention
// Expected: ADMIN modifies {ADMIN, TEAMS_LIST_ADMIN, SKILLS_LIST_ADMIN}; list admins modify only their own permission; READER and GUEST modify nothing.
// Test Case ID: PRM-01
func TestModifiableBy_RuleTable(t *testing.T) {
	tests := []struct {
		held Global
		want Set
	}{
		{Admin, NewSet(Admin, TeamsListAdmin, SkillsListAdmin)},
		{TeamsListAdmin, NewSet(TeamsListAdmin)},
		{SkillsListAdmin, NewSet(SkillsListAdmin)},
		{Reader, NewSet()},
		{Guest, NewSet()},
		{Global("ROOT"), NewSet()},
	}

	for _, tt := range tests {
		t.Run(string(tt.held), func(t *testing.T) {
			got := ModifiableBy(tt.held)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestModificationRules_TargetsAreCatalogPermissions(t *testing.T) {
	for granting, targets := range modificationRules {
		assert.True(t, granting.Valid(), "granting permission %q", granting)
		for p := range targets {
			assert.True(t, p.Valid(), "%s grants unknown permission %q", granting, p)
		}
	}
}

func TestModifiableBy_ReturnsCopy(t *testing.T) {
	got := ModifiableBy(TeamsListAdmin)
	got.Add(Admin)

	assert.False(t, ModifiableBy(TeamsListAdmin).Contains(Admin))
}

func TestParseAll(t *testing.T) {
	set, err := ParseAll([]string{"READER", "ADMIN", "READER"})
	require.NoError(t, err)
	assert.Equal(t, []Global{Admin, Reader}, set.Sorted())

	_, err = ParseAll([]string{"READER", "admin"})
	assert.ErrorIs(t, err, operation.ErrInvalid)

	_, err = Parse("")
	assert.ErrorIs(t, err, operation.ErrInvalid)
}

func TestSet_Operations(t *testing.T) {
	a := NewSet(Admin, Reader)
	b := NewSet(Reader, Guest)

	assert.Equal(t, []string{"ADMIN", "READER", "GUEST"}, a.Union(b).Strings())
	assert.Equal(t, []Global{Admin}, a.Difference(b).Sorted())
	assert.Equal(t, []Global{Reader}, a.Intersect(b).Sorted())
	assert.True(t, NewSet(Reader).IsSubsetOf(a))
	assert.False(t, b.IsSubsetOf(a))
	assert.True(t, Set(nil).IsSubsetOf(a))
	assert.Equal(t, "ADMIN, READER", a.String())
}

func TestAll_CatalogOrder(t *testing.T) {
	all := All()
	assert.Equal(t, []Global{Admin, TeamsListAdmin, SkillsListAdmin, Reader, Guest}, all)

	all[0] = Guest
	assert.Equal(t, Admin, All()[0])
}
