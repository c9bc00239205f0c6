package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"socialhub-backend/internal/media"
	"socialhub-backend/internal/models"
	"socialhub-backend/internal/respond"
	"socialhub-backend/internal/storage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 50
	multipartMemory  = 8 << 20
)

// CreatePost creates a post in the caller's organization
// @Summary Create post
// @Description Accepts JSON or multipart/form-data with an optional "media" file (jpeg, png, mp4).
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Param body body models.CreatePostInput true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Insufficient role"
// @Failure 413 {object} map[string]string "Media too large"
// @Security BearerAuth
// @Router /posts [post]
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	var in models.CreatePostInput
	var mediaURL *string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		url, ok := h.readMultipartPost(w, r, &in)
		if !ok {
			return
		}
		mediaURL = url
	} else if !decodeJSON(w, r, &in) {
		return
	}

	post, msg := h.buildPost(r, orgID, in)
	if post == nil {
		h.discardMedia(r, mediaURL)
		respond.Error(w, http.StatusBadRequest, msg)
		return
	}
	post.MediaURL = mediaURL

	if err := h.store.CreatePost(r.Context(), post); err != nil {
		h.discardMedia(r, mediaURL)
		if errors.Is(err, storage.ErrOrgNotFound) {
			respond.Error(w, http.StatusBadRequest, "Organization not found")
			return
		}
		serverError(w, r, err, "Failed to create post")
		return
	}

	h.publish(r, models.EventPostCreated, post)
	respond.JSON(w, http.StatusCreated, post)
}

func (h *Handler) readMultipartPost(w http.ResponseWriter, r *http.Request, in *models.CreatePostInput) (*string, bool) {
	if h.media != nil && h.media.MaxBytes() > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.media.MaxBytes()+1<<20)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusRequestEntityTooLarge, "File too large")
			return nil, false
		}
		respond.Error(w, http.StatusBadRequest, "Invalid multipart body")
		return nil, false
	}

	in.Title = r.FormValue("title")
	in.Content = r.FormValue("content")
	in.Platform = r.FormValue("platform")
	in.Status = r.FormValue("status")
	in.ScheduledAt = r.FormValue("scheduledAt")
	in.Team = r.FormValue("team")

	file, _, err := r.FormFile("media")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid media upload")
		return nil, false
	}
	defer file.Close()

	if h.media == nil {
		respond.Error(w, http.StatusBadRequest, "Uploads are disabled")
		return nil, false
	}
	url, err := h.media.Save(file)
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		respond.Error(w, http.StatusBadRequest, "Invalid file type")
		return nil, false
	case errors.Is(err, media.ErrTooLarge):
		respond.Error(w, http.StatusRequestEntityTooLarge, "File too large")
		return nil, false
	case err != nil:
		serverError(w, r, err, "Failed to store media")
		return nil, false
	}
	return &url, true
}

// buildPost validates in and returns the post to insert, or nil and a client message.
func (h *Handler) buildPost(r *http.Request, orgID string, in models.CreatePostInput) (*models.Post, string) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return nil, "Title and content are required"
	}

	platform, err := models.ParsePlatform(in.Platform)
	if err != nil {
		return nil, "Platform must be facebook or instagram"
	}

	status := models.PostPending
	if in.Status != "" {
		status, err = models.ParsePostStatus(in.Status)
		if err != nil || (status != models.PostDraft && status != models.PostPending) {
			return nil, "Status must be draft or pending"
		}
	}

	scheduledAt, err := time.Parse(time.RFC3339, strings.TrimSpace(in.ScheduledAt))
	if err != nil {
		return nil, "scheduledAt must be an RFC3339 timestamp"
	}

	post := &models.Post{
		OrgID:       orgID,
		CreatedBy:   identity(r).UserID,
		Title:       title,
		Content:     content,
		Platform:    platform,
		Status:      status,
		ScheduledAt: scheduledAt.UTC(),
	}

	if teamID := strings.TrimSpace(in.Team); teamID != "" {
		if _, err := h.store.GetTeam(r.Context(), orgID, teamID); err != nil {
			if !errors.Is(err, storage.ErrTeamNotFound) {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("create post: lookup team")
			}
			return nil, "Team not found"
		}
		post.TeamID = &teamID
	}
	return post, ""
}

func (h *Handler) discardMedia(r *http.Request, url *string) {
	if url == nil || h.media == nil {
		return
	}
	if err := h.media.Remove(*url); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("media", *url).Msg("remove orphaned media")
	}
}

// ListPosts lists posts of the caller's organization
// @Summary List posts
// @Description Filters: status (comma separated), fromNow=true, limit (1..50, default 20), sort=field:asc|desc with field scheduledAt or createdAt.
// @Tags posts
// @Produce json
// @Param status query string false "Status filter"
// @Param fromNow query bool false "Only posts scheduled from now on"
// @Param limit query int false "Max items"
// @Param sort query string false "Sort, e.g. scheduledAt:asc"
// @Success 200 {array} models.Post
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /posts [get]
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	filter := models.PostFilter{OrgID: orgID, Sort: models.SortScheduledAt, Limit: parseLimit(q.Get("limit"))}

	statuses, err := parseStatuses(q.Get("status"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid status")
		return
	}
	filter.Statuses = statuses

	if q.Get("fromNow") == "true" {
		now := h.now().UTC()
		filter.From = &now
	}

	if sort := q.Get("sort"); sort != "" {
		field, dir, _ := strings.Cut(sort, ":")
		switch models.PostSort(field) {
		case models.SortScheduledAt, models.SortCreatedAt:
			filter.Sort = models.PostSort(field)
		default:
			respond.Error(w, http.StatusBadRequest, "Invalid sort field")
			return
		}
		filter.Desc = dir == "desc"
	}

	h.writePosts(w, r, filter)
}

// CalendarPosts lists posts scheduled inside a date range
// @Summary Calendar posts
// @Tags posts
// @Produce json
// @Param startDate query string true "Range start (RFC3339 or YYYY-MM-DD)"
// @Param endDate query string true "Range end (RFC3339 or YYYY-MM-DD, inclusive day)"
// @Param status query string false "Status filter"
// @Success 200 {array} models.Post
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /posts/calendar [get]
func (h *Handler) CalendarPosts(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	from, err := parseDate(q.Get("startDate"), false)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "startDate is required (RFC3339 or YYYY-MM-DD)")
		return
	}
	to, err := parseDate(q.Get("endDate"), true)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "endDate is required (RFC3339 or YYYY-MM-DD)")
		return
	}
	if to.Before(from) {
		respond.Error(w, http.StatusBadRequest, "endDate must not be before startDate")
		return
	}

	statuses, err := parseStatuses(q.Get("status"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid status")
		return
	}

	h.writePosts(w, r, models.PostFilter{
		OrgID:    orgID,
		Statuses: statuses,
		From:     &from,
		To:       &to,
		Sort:     models.SortScheduledAt,
	})
}

// PendingPosts lists posts awaiting approval
// @Summary Pending posts
// @Tags posts
// @Produce json
// @Success 200 {array} models.Post
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /posts/pending [get]
func (h *Handler) PendingPosts(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}
	h.writePosts(w, r, models.PostFilter{
		OrgID:    orgID,
		Statuses: []models.PostStatus{models.PostPending},
		Sort:     models.SortScheduledAt,
	})
}

// PostsByStatus lists posts with the given status
// @Summary Posts by status
// @Tags posts
// @Produce json
// @Param status path string true "draft, pending, approved, declined or published"
// @Success 200 {array} models.Post
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /posts/status/{status} [get]
func (h *Handler) PostsByStatus(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}
	status, err := models.ParsePostStatus(chi.URLParam(r, "status"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid status")
		return
	}
	h.writePosts(w, r, models.PostFilter{
		OrgID:    orgID,
		Statuses: []models.PostStatus{status},
		Sort:     models.SortScheduledAt,
	})
}

func (h *Handler) writePosts(w http.ResponseWriter, r *http.Request, filter models.PostFilter) {
	posts, err := h.store.ListPosts(r.Context(), filter)
	if err != nil {
		serverError(w, r, err, "Failed to fetch posts")
		return
	}
	respond.JSON(w, http.StatusOK, posts)
}

// ApprovePost approves a pending post
// @Summary Approve post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /posts/{id}/approve [post]
func (h *Handler) ApprovePost(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.PostApproved, models.EventPostApproved, "Post approved")
}

// DeclinePost declines a pending post
// @Summary Decline post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /posts/{id}/decline [post]
func (h *Handler) DeclinePost(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.PostDeclined, models.EventPostDeclined, "Post declined")
}

// PublishPost marks a post as published
// @Summary Publish post
// @Description Records the publication and emits post.published. Nothing is sent to the social network.
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /posts/{id}/publish [post]
func (h *Handler) PublishPost(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.PostPublished, models.EventPostPublished, "Post published")
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, to models.PostStatus, ev models.PostEventType, msg string) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	post, err := h.store.TransitionPost(r.Context(), orgID, chi.URLParam(r, "id"), to, h.now().UTC())
	switch {
	case errors.Is(err, models.ErrInvalidTransition):
		respond.Error(w, http.StatusConflict, "Post cannot be "+string(to)+" from its current status")
		return
	case err != nil:
		notFoundOr(w, r, err, storage.ErrPostNotFound, "Post not found", "Failed to update post")
		return
	}

	h.publish(r, ev, post)
	respond.JSON(w, http.StatusOK, map[string]any{"message": msg, "post": post})
}

func parseLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n == 0 {
		return defaultListLimit
	}
	return max(1, min(n, maxListLimit))
}

func parseStatuses(s string) ([]models.PostStatus, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []models.PostStatus
	for _, part := range strings.Split(s, ",") {
		st, err := models.ParsePostStatus(part)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// parseDate accepts RFC3339 or a bare date. A bare end date covers the whole day.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
