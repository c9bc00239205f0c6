package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"socialhub-backend/internal/models"
	"socialhub-backend/internal/respond"
	"socialhub-backend/internal/storage"
)

type organizationSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PublicOrganizations lists organization names for the registration form
// @Summary Public organization list
// @Tags organizations
// @Produce json
// @Success 200 {array} organizationSummary
// @Router /public/organizations [get]
func (h *Handler) PublicOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.store.ListOrganizations(r.Context())
	if err != nil {
		serverError(w, r, err, "Failed to fetch organizations")
		return
	}
	out := make([]organizationSummary, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, organizationSummary{ID: o.ID, Name: o.Name})
	}
	respond.JSON(w, http.StatusOK, out)
}

// CreateOrganization creates an organization owned by the caller
// @Summary Create organization
// @Tags organizations
// @Accept json
// @Produce json
// @Param body body models.CreateOrganizationInput true "Organization"
// @Success 201 {object} models.Organization
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /org [post]
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var in models.CreateOrganizationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		respond.Error(w, http.StatusBadRequest, "Name is required")
		return
	}

	creator := identity(r).UserID
	org := &models.Organization{Name: name, CreatedBy: &creator}
	if err := h.store.CreateOrganization(r.Context(), org); err != nil {
		serverError(w, r, err, "Server error creating organization")
		return
	}
	respond.JSON(w, http.StatusCreated, org)
}

// MyOrganizations lists organizations created by the caller with their teams
// @Summary My organizations
// @Tags organizations
// @Produce json
// @Success 200 {array} models.Organization
// @Security BearerAuth
// @Router /org [get]
func (h *Handler) MyOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.store.ListOrganizationsByCreator(r.Context(), identity(r).UserID)
	if err != nil {
		serverError(w, r, err, "Failed to fetch organizations")
		return
	}
	for i := range orgs {
		teams, err := h.store.ListTeams(r.Context(), orgs[i].ID)
		if err != nil {
			serverError(w, r, err, "Failed to fetch organizations")
			return
		}
		orgs[i].Teams = teams
	}
	respond.JSON(w, http.StatusOK, orgs)
}

// CreateOrgTeam creates a team under an organization
// @Summary Create team in organization
// @Description Admins may only target their own organization.
// @Tags organizations
// @Accept json
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param body body models.CreateTeamInput true "Team"
// @Success 201 {object} models.Team
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /org/{orgId}/team [post]
func (h *Handler) CreateOrgTeam(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgId")
	caller := identity(r)
	if !caller.Role.IsSuperAdmin() && caller.OrgID() != orgID {
		respond.Error(w, http.StatusNotFound, "Organization not found")
		return
	}

	var in models.CreateTeamInput
	if !decodeJSON(w, r, &in) {
		return
	}
	h.createTeam(w, r, orgID, in)
}

// CreateTeam creates a team in the caller's organization
// @Summary Create team
// @Tags teams
// @Accept json
// @Produce json
// @Param body body models.CreateTeamInput true "Team"
// @Success 201 {object} models.Team
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /teams [post]
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var in models.CreateTeamInput
	if !decodeJSON(w, r, &in) {
		return
	}

	orgID := identity(r).OrgID()
	if identity(r).Role.IsSuperAdmin() && strings.TrimSpace(in.Organization) != "" {
		orgID = strings.TrimSpace(in.Organization)
	}
	if orgID == "" {
		respond.Error(w, http.StatusBadRequest, "No organization for user")
		return
	}
	h.createTeam(w, r, orgID, in)
}

func (h *Handler) createTeam(w http.ResponseWriter, r *http.Request, orgID string, in models.CreateTeamInput) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		respond.Error(w, http.StatusBadRequest, "Name is required")
		return
	}

	team := &models.Team{OrgID: orgID, Name: name, Members: in.Members}
	err := h.store.CreateTeam(r.Context(), team)
	switch {
	case errors.Is(err, storage.ErrOrgNotFound):
		respond.Error(w, http.StatusNotFound, "Organization not found")
		return
	case errors.Is(err, storage.ErrUserNotFound):
		respond.Error(w, http.StatusBadRequest, "Members must belong to the organization")
		return
	case err != nil:
		serverError(w, r, err, "Failed to create team")
		return
	}
	respond.JSON(w, http.StatusCreated, team)
}

// ListTeams lists teams of the caller's organization
// @Summary List teams
// @Tags teams
// @Produce json
// @Success 200 {array} models.Team
// @Security BearerAuth
// @Router /teams [get]
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}
	teams, err := h.store.ListTeams(r.Context(), orgID)
	if err != nil {
		serverError(w, r, err, "Failed to fetch teams")
		return
	}
	respond.JSON(w, http.StatusOK, teams)
}

// AssignTeamMember adds an organization member to a team
// @Summary Assign team member
// @Description Idempotent; assigning an existing member returns the team unchanged.
// @Tags teams
// @Accept json
// @Produce json
// @Param body body models.AssignTeamInput true "Assignment"
// @Success 200 {object} models.Team
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /teams/assign [post]
func (h *Handler) AssignTeamMember(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}
	var in models.AssignTeamInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.TeamID == "" || in.UserID == "" {
		respond.Error(w, http.StatusBadRequest, "teamId and userId are required")
		return
	}

	team, err := h.store.AddTeamMember(r.Context(), orgID, in.TeamID, in.UserID)
	switch {
	case errors.Is(err, storage.ErrTeamNotFound):
		respond.Error(w, http.StatusNotFound, "Team not found")
		return
	case errors.Is(err, storage.ErrUserNotFound):
		respond.Error(w, http.StatusBadRequest, "User is not a member of the organization")
		return
	case err != nil:
		serverError(w, r, err, "Failed to add user to team")
		return
	}
	respond.JSON(w, http.StatusOK, team)
}
