package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"socialhub-backend/internal/models"
	"socialhub-backend/internal/respond"
	"socialhub-backend/internal/storage"
)

var (
	ErrUserNotFound      = fmt.Errorf("%w: user not found", ErrInvalidCredential)
	ErrInsufficientRole  = errors.New("insufficient role")
	errLookupUnavailable = errors.New("user lookup failed")
)

// UserLookup is the part of the user store the gate needs.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Identity is the caller resolved from a verified token and a fresh user lookup.
type Identity struct {
	UserID           string      `json:"id"`
	Role             models.Role `json:"role"`
	OrganizationID   *string     `json:"organization"`
	OrganizationName *string     `json:"organizationName"`
}

// OrgID returns the caller's organization id or "".
func (i *Identity) OrgID() string {
	if i.OrganizationID == nil {
		return ""
	}
	return *i.OrganizationID
}

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

type Gate struct {
	tokens *TokenIssuer
	users  UserLookup
}

func NewGate(tokens *TokenIssuer, users UserLookup) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// Authenticate verifies a raw Authorization header value and resolves the caller.
// Organization precedence: populated organization, stored id, then the id embedded in the token.
func (g *Gate) Authenticate(ctx context.Context, header string) (*Identity, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return nil, ErrMissingCredential
	}

	claims, err := g.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	user, err := g.users.GetUser(ctx, claims.ID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("user_id", claims.ID).Msg("auth: user lookup failed")
		return nil, errors.Join(ErrInvalidCredential, errLookupUnavailable)
	}

	role := models.NormalizeRole(string(user.Role))
	if role == "" {
		role = models.NormalizeRole(claims.Role)
	}
	id := &Identity{UserID: user.ID, Role: role}

	switch {
	case user.Organization != nil && user.Organization.ID != "":
		orgID, name := user.Organization.ID, user.Organization.Name
		id.OrganizationID = &orgID
		if name != "" {
			id.OrganizationName = &name
		}
	case user.OrgID != nil && *user.OrgID != "":
		orgID := *user.OrgID
		id.OrganizationID = &orgID
	case claims.Organization != nil && *claims.Organization != "":
		orgID := *claims.Organization
		id.OrganizationID = &orgID
	}
	return id, nil
}

// Middleware rejects unauthenticated requests with 401 and stores the Identity in the request context.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("auth: rejected")
			respond.Error(w, http.StatusUnauthorized, rejectionMessage(err))
			return
		}

		ctx := WithIdentity(r.Context(), id)
		zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("user_id", id.UserID)
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "No token provided"
	case errors.Is(err, ErrUserNotFound):
		return "User not found"
	default:
		return "Invalid or expired token"
	}
}

// Allowed reports whether role matches one of allowed, compared case-insensitively.
func Allowed(role models.Role, allowed ...models.Role) bool {
	for _, r := range allowed {
		if strings.EqualFold(string(role), string(r)) {
			return true
		}
	}
	return false
}

// RequireRoles admits callers whose role is in roles. It must run after Gate.Middleware.
func RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	return requireRole("Insufficient role", func(r models.Role) bool { return Allowed(r, roles...) })
}

func RequireAdmin(next http.Handler) http.Handler {
	return requireRole("Admin access required", models.Role.IsAdmin)(next)
}

func RequireSuperAdmin(next http.Handler) http.Handler {
	return requireRole("Super admin access required", models.Role.IsSuperAdmin)(next)
}

func requireRole(message string, allow func(models.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "No token provided")
				return
			}
			if !allow(models.NormalizeRole(string(id.Role))) {
				zerolog.Ctx(r.Context()).Warn().
					Str("role", string(id.Role)).
					Str("path", r.URL.Path).
					Msg("auth: insufficient role")
				respond.Error(w, http.StatusForbidden, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
