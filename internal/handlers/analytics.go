package handlers

import (
	"net/http"

	"socialhub-backend/internal/models"
	"socialhub-backend/internal/respond"
)

// Analytics returns dashboard counters for the caller's organization
// @Summary Organization analytics
// @Description Counters derived from the number of approved and published posts.
// @Tags analytics
// @Produce json
// @Success 200 {object} models.Analytics
// @Failure 400 {object} map[string]string "No organization for user"
// @Security BearerAuth
// @Router /analytics [get]
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}
	n, err := h.store.CountPosts(r.Context(), orgID, models.PostApproved, models.PostPublished)
	if err != nil {
		serverError(w, r, err, "Failed to fetch analytics")
		return
	}
	respond.JSON(w, http.StatusOK, models.AnalyticsFor(n))
}
