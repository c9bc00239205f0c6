package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"socialhub-backend/internal/models"
	"socialhub-backend/internal/respond"
	"socialhub-backend/internal/storage"
)

// Accounts is the storage the auth handlers read and write.
type Accounts interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
}

type Handler struct {
	accounts Accounts
	tokens   *TokenIssuer
	hasher   *Hasher
}

func NewHandler(accounts Accounts, tokens *TokenIssuer, hasher *Hasher) *Handler {
	return &Handler{accounts: accounts, tokens: tokens, hasher: hasher}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates an account, optionally redeeming an invitation
// @Summary Register a user
// @Description Creates a viewer account. With inviteToken the organization and role come from the invitation.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.RegisterInput true "Registration"
// @Success 201 {object} sessionResponse
// @Failure 400 {object} map[string]string "Validation error or user already exists"
// @Failure 429 {object} map[string]string "Too many requests"
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}

	if _, err := h.accounts.GetUserByEmail(ctx, req.Email); err == nil {
		respond.Error(w, http.StatusBadRequest, "User already exists")
		return
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		serverError(ctx, w, err, "register: lookup email")
		return
	}

	user := &models.User{
		Name:  req.Name,
		Email: req.Email,
		Role:  models.RoleViewer,
	}

	orgID := strings.TrimSpace(req.Organization)
	if req.InviteToken != "" {
		invite, err := h.tokens.ParseInvite(req.InviteToken)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "Invalid or expired invitation token")
			return
		}
		role, err := models.ParseRole(invite.Role)
		if err != nil || role.IsAdmin() {
			respond.Error(w, http.StatusBadRequest, "Invalid or expired invitation token")
			return
		}
		if invite.Email != "" && invite.Email != req.Email {
			respond.Error(w, http.StatusBadRequest, "Invitation was issued for a different email")
			return
		}
		orgID = invite.OrgID
		user.Role = role
		user.IsVerified = true
	}

	if orgID != "" {
		org, err := h.accounts.GetOrganization(ctx, orgID)
		if errors.Is(err, storage.ErrOrgNotFound) {
			respond.Error(w, http.StatusBadRequest, "Organization not found")
			return
		}
		if err != nil {
			serverError(ctx, w, err, "register: lookup organization")
			return
		}
		user.OrgID = &org.ID
		user.Organization = &models.OrganizationRef{ID: org.ID, Name: org.Name}
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		serverError(ctx, w, err, "register: hash password")
		return
	}
	user.PasswordHash = hash

	if err := h.accounts.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			respond.Error(w, http.StatusBadRequest, "User already exists")
			return
		}
		serverError(ctx, w, err, "register: create user")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		serverError(ctx, w, err, "register: issue token")
		return
	}

	zerolog.Ctx(ctx).Info().Str("user_id", user.ID).Str("org_id", user.OrganizationID()).Msg("user registered")
	respond.JSON(w, http.StatusCreated, sessionResponse{Token: token, User: user})
}

// Login authenticates a user and returns a JWT token
// @Summary User login
// @Description Authenticates user with email and password, returns JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body loginRequest true "Login credentials"
// @Success 200 {object} sessionResponse
// @Failure 400 {object} map[string]string "Invalid request body or missing credentials"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Failure 429 {object} map[string]string "Too many requests"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "Email and password required")
		return
	}

	user, err := h.accounts.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, storage.ErrUserNotFound) {
		respond.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		serverError(ctx, w, err, "login: lookup user")
		return
	}

	if err := h.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		respond.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		serverError(ctx, w, err, "login: issue token")
		return
	}

	respond.JSON(w, http.StatusOK, sessionResponse{Token: token, User: user})
}

// Me returns the current authenticated user
// @Summary Get current user
// @Description Returns the caller's user record and resolved identity
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{} "User data"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "No token provided")
		return
	}

	user, err := h.accounts.GetUser(r.Context(), id.UserID)
	if errors.Is(err, storage.ErrUserNotFound) {
		respond.Error(w, http.StatusUnauthorized, "User not found")
		return
	}
	if err != nil {
		serverError(r.Context(), w, err, "me: lookup user")
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"user":     user,
		"identity": id,
	})
}

// Private echoes the resolved identity
// @Summary Protected probe
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /private [get]
func Private(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	respond.JSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to the protected route!",
		"user":    id,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func serverError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	zerolog.Ctx(ctx).Error().Err(err).Msg(msg)
	respond.Error(w, http.StatusInternalServerError, "Server Error")
}
