package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialhub-backend/internal/models"
	"socialhub-backend/internal/storage"
)

type fakeUsers struct {
	getUserFn func(ctx context.Context, id string) (*models.User, error)
}

func (f *fakeUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	return f.getUserFn(ctx, id)
}

func usersOf(users ...*models.User) *fakeUsers {
	return &fakeUsers{getUserFn: func(_ context.Context, id string) (*models.User, error) {
		for _, u := range users {
			if u.ID == id {
				clone := *u
				return &clone, nil
			}
		}
		return nil, storage.ErrUserNotFound
	}}
}

// signClaims mints a token with arbitrary claim values, bypassing Issue's normalization.
func signClaims(t *testing.T, issuer *TokenIssuer, id, role string, org *string) string {
	t.Helper()
	token, err := issuer.sign(Claims{
		ID:           id,
		Role:         role,
		Organization: org,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)
	return token
}

func TestAuthenticate_PopulatedOrganization(t *testing.T) {
	issuer := newTestIssuer(t)
	gate := NewGate(issuer, usersOf(&models.User{
		ID:           "u1",
		Role:         models.RoleAdmin,
		OrgID:        strPtr("o1"),
		Organization: &models.OrganizationRef{ID: "o1", Name: "Acme"},
	}))
	token := signClaims(t, issuer, "u1", "Admin", strPtr("o1"))

	id, err := gate.Authenticate(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{
		UserID:           "u1",
		Role:             models.RoleAdmin,
		OrganizationID:   strPtr("o1"),
		OrganizationName: strPtr("Acme"),
	}, id)
}

func TestAuthenticate_OrganizationPrecedence(t *testing.T) {
	issuer := newTestIssuer(t)

	tests := []struct {
		name     string
		user     *models.User
		claimOrg *string
		wantOrg  *string
		wantName *string
	}{
		{
			name: "populated beats raw and claim",
			user: &models.User{
				ID: "u1", Role: models.RoleEditor, OrgID: strPtr("raw"),
				Organization: &models.OrganizationRef{ID: "populated", Name: "Populated"},
			},
			claimOrg: strPtr("claim"),
			wantOrg:  strPtr("populated"),
			wantName: strPtr("Populated"),
		},
		{
			name:     "raw beats claim",
			user:     &models.User{ID: "u1", Role: models.RoleEditor, OrgID: strPtr("raw")},
			claimOrg: strPtr("claim"),
			wantOrg:  strPtr("raw"),
		},
		{
			name:     "claim as last resort",
			user:     &models.User{ID: "u1", Role: models.RoleEditor},
			claimOrg: strPtr("claim"),
			wantOrg:  strPtr("claim"),
		},
		{
			name: "no organization anywhere",
			user: &models.User{ID: "u1", Role: models.RoleEditor},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(issuer, usersOf(tt.user))
			token := signClaims(t, issuer, "u1", "editor", tt.claimOrg)

			id, err := gate.Authenticate(context.Background(), "Bearer "+token)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOrg, id.OrganizationID)
			assert.Equal(t, tt.wantName, id.OrganizationName)
		})
	}
}

func TestAuthenticate_RoleComesFromCurrentRecord(t *testing.T) {
	issuer := newTestIssuer(t)
	gate := NewGate(issuer, usersOf(&models.User{ID: "u1", Role: "Editor"}))
	token := signClaims(t, issuer, "u1", "admin", nil)

	id, err := gate.Authenticate(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, id.Role)
}

func TestAuthenticate_MissingCredential(t *testing.T) {
	called := false
	gate := NewGate(newTestIssuer(t), &fakeUsers{getUserFn: func(context.Context, string) (*models.User, error) {
		called = true
		return nil, nil
	}})

	for _, header := range []string{"", "Bearer", "Bearer   ", "Token abc", "bearer abc"} {
		_, err := gate.Authenticate(context.Background(), header)
		require.ErrorIs(t, err, ErrMissingCredential, "header %q", header)
	}
	assert.False(t, called)
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	issuer := newTestIssuer(t)
	gate := NewGate(issuer, usersOf())
	token := signClaims(t, issuer, "u1", "Admin", strPtr("o1"))

	_, err := gate.Authenticate(context.Background(), "Bearer "+token)
	require.ErrorIs(t, err, ErrUserNotFound)
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestAuthenticate_LookupFailureIsInvalidCredential(t *testing.T) {
	issuer := newTestIssuer(t)
	gate := NewGate(issuer, &fakeUsers{getUserFn: func(context.Context, string) (*models.User, error) {
		return nil, errors.New("connection refused")
	}})
	token := signClaims(t, issuer, "u1", "admin", nil)

	_, err := gate.Authenticate(context.Background(), "Bearer "+token)
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestAuthenticate_Idempotent(t *testing.T) {
	issuer := newTestIssuer(t)
	gate := NewGate(issuer, usersOf(&models.User{ID: "u1", Role: models.RoleViewer, OrgID: strPtr("o1")}))
	token := signClaims(t, issuer, "u1", "viewer", nil)

	first, err := gate.Authenticate(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	second, err := gate.Authenticate(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Message
}

func TestMiddleware_Rejections(t *testing.T) {
	issuer := newTestIssuer(t)
	gate := NewGate(issuer, usersOf(&models.User{ID: "u1", Role: models.RoleViewer}))

	expired := newTestIssuer(t)
	expired.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	expiredToken, err := expired.Issue(&models.User{ID: "u1", Role: models.RoleViewer})
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "No token provided"},
		{"no bearer prefix", "abc", "No token provided"},
		{"expired", "Bearer " + expiredToken, "Invalid or expired token"},
		{"bad signature", "Bearer abc.def.ghi", "Invalid or expired token"},
		{"unknown user", "Bearer " + signClaims(t, issuer, "ghost", "viewer", nil), "User not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			h := gate.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true }))

			req := httptest.NewRequest(http.MethodGet, "/api/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.False(t, reached)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.message, decodeMessage(t, rec))
		})
	}
}

func TestMiddleware_StoresIdentity(t *testing.T) {
	issuer := newTestIssuer(t)
	gate := NewGate(issuer, usersOf(&models.User{ID: "u1", Role: models.RoleEditor, OrgID: strPtr("o1")}))
	token, err := issuer.Issue(&models.User{ID: "u1", Role: models.RoleEditor, OrgID: strPtr("o1")})
	require.NoError(t, err)

	var got *Identity
	h := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "o1", got.OrgID())
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		role    models.Role
		allowed []models.Role
		want    bool
	}{
		{"editor", []models.Role{"admin", "super_admin"}, false},
		{"admin", []models.Role{"admin", "super_admin"}, true},
		{"Admin", []models.Role{"admin"}, true},
		{"admin", []models.Role{"ADMIN"}, true},
		{"super_admin", []models.Role{"admin"}, false},
		{"viewer", nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Allowed(tt.role, tt.allowed...), "%s in %v", tt.role, tt.allowed)
	}
}

func serveAs(t *testing.T, mw func(http.Handler) http.Handler, role models.Role) *httptest.ResponseRecorder {
	t.Helper()
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if role != "" {
		req = req.WithContext(WithIdentity(req.Context(), &Identity{UserID: "u1", Role: role}))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoleGates(t *testing.T) {
	adminsOnly := RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)

	rec := serveAs(t, adminsOnly, models.RoleEditor)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Insufficient role", decodeMessage(t, rec))

	assert.Equal(t, http.StatusNoContent, serveAs(t, adminsOnly, models.RoleAdmin).Code)
	assert.Equal(t, http.StatusNoContent, serveAs(t, RequireAdmin, models.RoleSuperAdmin).Code)
	assert.Equal(t, http.StatusNoContent, serveAs(t, RequireAdmin, "Admin").Code)

	rec = serveAs(t, RequireAdmin, models.RoleEditor)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin access required", decodeMessage(t, rec))

	rec = serveAs(t, RequireSuperAdmin, models.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Super admin access required", decodeMessage(t, rec))

	assert.Equal(t, http.StatusUnauthorized, serveAs(t, RequireAdmin, "").Code)
}
