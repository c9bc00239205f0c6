package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"viewer", "editor", "admin", "super_admin"} {
		r, err := ParseRole(s)
		require.NoError(t, err)
		assert.Equal(t, Role(s), r)
	}

	for _, s := range []string{"", "Admin", "owner", "SUPER_ADMIN"} {
		_, err := ParseRole(s)
		assert.ErrorIs(t, err, ErrInvalidRole, s)
	}
}

func TestRolePredicates(t *testing.T) {
	assert.True(t, RoleAdmin.IsAdmin())
	assert.True(t, RoleSuperAdmin.IsAdmin())
	assert.False(t, RoleEditor.IsAdmin())
	assert.False(t, RoleViewer.IsAdmin())

	assert.True(t, RoleSuperAdmin.IsSuperAdmin())
	assert.False(t, RoleAdmin.IsSuperAdmin())
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, NormalizeRole(" Admin "))
	assert.Equal(t, RoleSuperAdmin, NormalizeRole("SUPER_ADMIN"))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(PostPending, PostApproved))
	assert.True(t, CanTransition(PostPending, PostDeclined))
	assert.True(t, CanTransition(PostApproved, PostPublished))
	assert.False(t, CanTransition(PostPublished, PostApproved))
	assert.False(t, CanTransition(PostDeclined, PostPublished))
	assert.False(t, CanTransition(PostApproved, PostPending))
}

func TestOrganizationIDPrefersPopulated(t *testing.T) {
	raw := "o-raw"
	u := &User{OrgID: &raw}
	assert.Equal(t, "o-raw", u.OrganizationID())

	u.Organization = &OrganizationRef{ID: "o1", Name: "Acme"}
	assert.Equal(t, "o1", u.OrganizationID())

	assert.Equal(t, "", (&User{}).OrganizationID())
}
