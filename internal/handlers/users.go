package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"socialhub-backend/internal/models"
	"socialhub-backend/internal/respond"
	"socialhub-backend/internal/storage"
)

// TeamUsers lists the users of the caller's organization
// @Summary Organization users
// @Tags users
// @Produce json
// @Success 200 {array} models.User
// @Failure 400 {object} map[string]string "No organization for user"
// @Security BearerAuth
// @Router /users/team-users [get]
func (h *Handler) TeamUsers(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}
	users, err := h.store.ListMembers(r.Context(), orgID)
	if err != nil {
		serverError(w, r, err, "Failed to fetch users")
		return
	}
	respond.JSON(w, http.StatusOK, users)
}

// AdminUsers lists users visible to an administrator
// @Summary List users
// @Description Admins see their organization; super admins see every user.
// @Tags admin
// @Produce json
// @Success 200 {array} models.User
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /admin/users [get]
func (h *Handler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	if identity(r).Role.IsSuperAdmin() {
		users, err := h.store.ListAllUsers(r.Context())
		if err != nil {
			serverError(w, r, err, "Failed to fetch users")
			return
		}
		respond.JSON(w, http.StatusOK, users)
		return
	}
	h.TeamUsers(w, r)
}

// UpdateUserRole changes a user's role
// @Summary Update user role
// @Description Admins may change roles inside their own organization and cannot grant or revoke super_admin.
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param body body models.UpdateRoleInput true "Role"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid role"
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /users/{id}/role [put]
// @Router /admin/users/{id}/role [put]
func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var in models.UpdateRoleInput
	if !decodeJSON(w, r, &in) {
		return
	}
	role, err := models.ParseRole(in.Role)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Role must be one of viewer, editor, admin, super_admin")
		return
	}

	caller := identity(r)
	userID := chi.URLParam(r, "id")
	scope := ""

	if !caller.Role.IsSuperAdmin() {
		if role.IsSuperAdmin() {
			respond.Error(w, http.StatusForbidden, "Super admin access required")
			return
		}
		orgID, ok := callerOrg(w, r)
		if !ok {
			return
		}
		if _, ok := h.orgTarget(w, r, orgID, userID, "Failed to update role"); !ok {
			return
		}
		scope = orgID
	}

	user, err := h.store.UpdateUserRole(r.Context(), scope, userID, role)
	if err != nil {
		notFoundOr(w, r, err, storage.ErrUserNotFound, "User not found", "Failed to update role")
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("target_id", user.ID).
		Str("role", string(role)).
		Msg("user role updated")
	respond.JSON(w, http.StatusOK, map[string]any{
		"message": "Role updated successfully",
		"role":    user.Role,
		"user":    user,
	})
}

// orgTarget loads the user an admin acts on. Users outside orgID answer 404 and
// super admins answer 403 unless the caller is one.
func (h *Handler) orgTarget(w http.ResponseWriter, r *http.Request, orgID, userID, failMsg string) (*models.User, bool) {
	target, err := h.store.GetUser(r.Context(), userID)
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		serverError(w, r, err, failMsg)
		return nil, false
	}
	if err != nil || target.OrganizationID() != orgID {
		respond.Error(w, http.StatusNotFound, "User not found")
		return nil, false
	}
	if !identity(r).Role.IsSuperAdmin() && models.NormalizeRole(string(target.Role)).IsSuperAdmin() {
		respond.Error(w, http.StatusForbidden, "Super admin access required")
		return nil, false
	}
	return target, true
}
