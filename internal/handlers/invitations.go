package handlers

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"socialhub-backend/internal/models"
	"socialhub-backend/internal/respond"
	"socialhub-backend/internal/storage"
)

type createInviteRequest struct {
	Email string `json:"email"`
}

type inviteResponse struct {
	Token         string `json:"token"`
	InviteURL     string `json:"inviteUrl"`
	ExpiresInDays int    `json:"expiresInDays"`
}

// ListMembers lists the members of the caller's organization
// @Summary Organization members
// @Tags invitations
// @Produce json
// @Success 200 {array} models.Member
// @Failure 400 {object} map[string]string "No organization for user"
// @Security BearerAuth
// @Router /invitations/members [get]
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}
	users, err := h.store.ListMembers(r.Context(), orgID)
	if err != nil {
		serverError(w, r, err, "Failed to fetch members")
		return
	}
	members := make([]models.Member, 0, len(users))
	for i := range users {
		members = append(members, users[i].Member())
	}
	respond.JSON(w, http.StatusOK, members)
}

// CreateInvite issues a viewer invitation link for the caller's organization
// @Summary Create invitation
// @Tags invitations
// @Accept json
// @Produce json
// @Param body body createInviteRequest false "Optional invitee email"
// @Success 200 {object} inviteResponse
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /invitations/create [post]
func (h *Handler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	var in createInviteRequest
	if err := decodeBody(r.Body, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.tokens.IssueInvite(orgID, in.Email)
	if err != nil {
		serverError(w, r, err, "Failed to create invite link")
		return
	}

	base := strings.TrimRight(h.frontendURL, "/")
	zerolog.Ctx(r.Context()).Info().Str("org_id", orgID).Msg("invitation created")
	respond.JSON(w, http.StatusOK, inviteResponse{
		Token:         token,
		InviteURL:     base + "/register?invite=" + url.QueryEscape(token),
		ExpiresInDays: int(h.tokens.InviteTTL().Hours() / 24),
	})
}

// RemoveMember removes a user from the caller's organization
// @Summary Remove member
// @Tags invitations
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string "Cannot remove yourself"
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /invitations/members/{userId} [delete]
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}
	userID := chi.URLParam(r, "userId")
	if userID == identity(r).UserID {
		respond.Error(w, http.StatusBadRequest, "You cannot remove yourself")
		return
	}
	if _, ok := h.orgTarget(w, r, orgID, userID, "Failed to remove user"); !ok {
		return
	}

	if err := h.store.DeleteUser(r.Context(), orgID, userID); err != nil {
		notFoundOr(w, r, err, storage.ErrUserNotFound, "User not found", "Failed to remove user")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// decodeBody decodes JSON, treating an empty body as no input.
func decodeBody(body io.Reader, v any) error {
	err := jsonDecode(body, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
