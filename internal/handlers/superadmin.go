package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"socialhub-backend/internal/models"
	"socialhub-backend/internal/respond"
	"socialhub-backend/internal/storage"
)

// ProvisionOrganization creates an organization together with its first admin
// @Summary Provision organization
// @Description Creates the organization and its admin account in one transaction.
// @Tags superadmin
// @Accept json
// @Produce json
// @Param body body models.ProvisionOrganizationInput true "Organization and admin"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /superadmin/organizations [post]
func (h *Handler) ProvisionOrganization(w http.ResponseWriter, r *http.Request) {
	var in models.ProvisionOrganizationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Domain = strings.ToLower(strings.TrimSpace(in.Domain))
	in.AdminName = strings.TrimSpace(in.AdminName)
	in.AdminEmail = strings.ToLower(strings.TrimSpace(in.AdminEmail))

	if in.Name == "" || in.AdminName == "" || in.AdminEmail == "" || in.AdminPassword == "" {
		respond.Error(w, http.StatusBadRequest, "name, adminName, adminEmail and adminPassword are required")
		return
	}
	if _, err := mail.ParseAddress(in.AdminEmail); err != nil {
		respond.Error(w, http.StatusBadRequest, "adminEmail is not a valid email address")
		return
	}

	hash, err := h.hasher.Hash(in.AdminPassword)
	if err != nil {
		serverError(w, r, err, "Failed to create organization")
		return
	}

	creator := identity(r).UserID
	org := &models.Organization{Name: in.Name, CreatedBy: &creator}
	if in.Domain != "" {
		org.Domain = &in.Domain
	}
	admin := &models.User{
		Name:         in.AdminName,
		Email:        in.AdminEmail,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsVerified:   true,
	}

	err = h.store.CreateOrganizationWithAdmin(r.Context(), org, admin)
	switch {
	case errors.Is(err, storage.ErrDomainTaken):
		respond.Error(w, http.StatusBadRequest, "Organization with this domain already exists")
		return
	case errors.Is(err, storage.ErrEmailTaken):
		respond.Error(w, http.StatusBadRequest, "User already exists")
		return
	case err != nil:
		serverError(w, r, err, "Failed to create organization")
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("org_id", org.ID).
		Str("admin_id", admin.ID).
		Msg("organization provisioned")
	org.Members = []models.Member{admin.Member()}
	respond.JSON(w, http.StatusCreated, map[string]any{
		"message":      "Organization and admin created successfully",
		"organization": org,
		"adminUser":    admin,
	})
}

// AllOrganizations lists every organization with its members
// @Summary List all organizations
// @Tags superadmin
// @Produce json
// @Success 200 {array} models.Organization
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /superadmin/organizations [get]
func (h *Handler) AllOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.store.ListOrganizations(r.Context())
	if err != nil {
		serverError(w, r, err, "Failed to fetch organizations")
		return
	}
	for i := range orgs {
		users, err := h.store.ListMembers(r.Context(), orgs[i].ID)
		if err != nil {
			serverError(w, r, err, "Failed to fetch organizations")
			return
		}
		orgs[i].Members = make([]models.Member, 0, len(users))
		for j := range users {
			orgs[i].Members = append(orgs[i].Members, users[j].Member())
		}
	}
	respond.JSON(w, http.StatusOK, orgs)
}

// DeleteOrganization deletes an organization with its users, teams and posts
// @Summary Delete organization
// @Tags superadmin
// @Produce json
// @Param id path string true "Organization ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /superadmin/organizations/{id} [delete]
func (h *Handler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteOrganization(r.Context(), id); err != nil {
		notFoundOr(w, r, err, storage.ErrOrgNotFound, "Organization not found", "Failed to delete organization")
		return
	}
	zerolog.Ctx(r.Context()).Info().Str("org_id", id).Msg("organization deleted")
	respond.JSON(w, http.StatusOK, map[string]string{
		"message": "Organization and related users deleted successfully",
	})
}
