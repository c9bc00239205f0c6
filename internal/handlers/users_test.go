package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialhub-backend/internal/models"
)

func TestUpdateUserRole(t *testing.T) {
	s := newServer(t)
	acme := s.org(t, "Acme")
	globex := s.org(t, "Globex")
	_, admin := s.user(t, acme, models.RoleAdmin, "admin@acme.test")
	member, _ := s.user(t, acme, models.RoleViewer, "v@acme.test")
	outsider, _ := s.user(t, globex, models.RoleViewer, "v@globex.test")
	boss, _ := s.user(t, acme, models.RoleSuperAdmin, "root@acme.test")
	_, editor := s.user(t, acme, models.RoleEditor, "ed@acme.test")

	rec := s.do(t, http.MethodPut, "/api/users/"+member.ID+"/role", admin, map[string]string{"role": "editor"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, err := s.store.GetUser(t.Context(), member.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, got.Role)

	tests := []struct {
		name   string
		path   string
		token  string
		role   string
		status int
	}{
		{"non canonical role", "/api/users/" + member.ID + "/role", admin, "Admin", http.StatusBadRequest},
		{"unknown role", "/api/users/" + member.ID + "/role", admin, "owner", http.StatusBadRequest},
		{"admin cannot grant super admin", "/api/users/" + member.ID + "/role", admin, "super_admin", http.StatusForbidden},
		{"admin cannot demote super admin", "/api/users/" + boss.ID + "/role", admin, "viewer", http.StatusForbidden},
		{"other organization", "/api/admin/users/" + outsider.ID + "/role", admin, "editor", http.StatusNotFound},
		{"unknown user", "/api/admin/users/missing/role", admin, "editor", http.StatusNotFound},
		{"editor is not admin", "/api/users/" + member.ID + "/role", editor, "viewer", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPut, tt.path, tt.token, map[string]string{"role": tt.role})
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	got, err = s.store.GetUser(t.Context(), outsider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, got.Role)
}

func TestUpdateUserRole_SuperAdminAcrossOrganizations(t *testing.T) {
	s := newServer(t)
	globex := s.org(t, "Globex")
	_, root := s.user(t, nil, models.RoleSuperAdmin, "root@test")
	outsider, _ := s.user(t, globex, models.RoleViewer, "v@globex.test")

	rec := s.do(t, http.MethodPut, "/api/admin/users/"+outsider.ID+"/role", root, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := s.store.GetUser(t.Context(), outsider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)
}

func TestAdminUsers(t *testing.T) {
	s := newServer(t)
	acme := s.org(t, "Acme")
	globex := s.org(t, "Globex")
	_, admin := s.user(t, acme, models.RoleAdmin, "admin@acme.test")
	s.user(t, globex, models.RoleViewer, "v@globex.test")
	_, root := s.user(t, nil, models.RoleSuperAdmin, "root@test")

	rec := s.do(t, http.MethodGet, "/api/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.User](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/admin/users", root, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.User](t, rec), 3)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestTeamUsers(t *testing.T) {
	s := newServer(t)
	acme := s.org(t, "Acme")
	globex := s.org(t, "Globex")
	_, token := s.user(t, acme, models.RoleViewer, "v@acme.test")
	s.user(t, acme, models.RoleEditor, "ed@acme.test")
	s.user(t, globex, models.RoleEditor, "ed@globex.test")

	rec := s.do(t, http.MethodGet, "/api/users/team-users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]models.User](t, rec)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Contains(t, u.Email, "@acme.test")
	}
}
