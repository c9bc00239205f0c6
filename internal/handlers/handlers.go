package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"socialhub-backend/docs"
	"socialhub-backend/internal/auth"
	"socialhub-backend/internal/cache"
	"socialhub-backend/internal/events"
	"socialhub-backend/internal/media"
	"socialhub-backend/internal/middleware"
	"socialhub-backend/internal/models"
	"socialhub-backend/internal/respond"
	"socialhub-backend/internal/storage"
)

type Deps struct {
	Store       storage.Store
	Tokens      *auth.TokenIssuer
	Hasher      *auth.Hasher
	Media       *media.Store
	Events      events.Publisher
	Limiter     cache.Client
	FrontendURL string
}

type Handler struct {
	store       storage.Store
	tokens      *auth.TokenIssuer
	hasher      *auth.Hasher
	media       *media.Store
	events      events.Publisher
	limiter     cache.Client
	frontendURL string
	now         func() time.Time

	auth *auth.Handler
	gate *auth.Gate
}

func New(d Deps) *Handler {
	pub := d.Events
	if pub == nil {
		pub = events.Noop{}
	}
	return &Handler{
		store:       d.Store,
		tokens:      d.Tokens,
		hasher:      d.Hasher,
		media:       d.Media,
		events:      pub,
		limiter:     d.Limiter,
		frontendURL: d.FrontendURL,
		now:         time.Now,
		auth:        auth.NewHandler(d.Store, d.Tokens, d.Hasher),
		gate:        auth.NewGate(d.Tokens, d.Store),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/public/organizations", h.PublicOrganizations)

		r.With(middleware.RateLimitRegister(h.limiter)).Post("/auth/register", h.auth.Register)
		r.With(middleware.RateLimitLogin(h.limiter)).Post("/auth/login", h.auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.gate.Middleware)

			r.Get("/auth/me", h.auth.Me)
			r.Get("/private", auth.Private)

			// Posts
			r.With(auth.RequireRoles(models.RoleEditor, models.RoleAdmin, models.RoleSuperAdmin)).Post("/posts", h.CreatePost)
			r.Get("/posts", h.ListPosts)
			r.Get("/posts/calendar", h.CalendarPosts)
			r.With(auth.RequireAdmin).Get("/posts/pending", h.PendingPosts)
			r.Get("/posts/status/{status}", h.PostsByStatus)
			r.With(auth.RequireAdmin).Post("/posts/{id}/approve", h.ApprovePost)
			r.With(auth.RequireAdmin).Post("/posts/{id}/decline", h.DeclinePost)
			r.With(auth.RequireAdmin).Post("/posts/{id}/publish", h.PublishPost)

			// Users
			r.Get("/users/team-users", h.TeamUsers)
			r.With(auth.RequireAdmin).Put("/users/{id}/role", h.UpdateUserRole)
			r.With(auth.RequireAdmin).Get("/admin/users", h.AdminUsers)
			r.With(auth.RequireAdmin).Put("/admin/users/{id}/role", h.UpdateUserRole)

			// Organizations and teams
			r.Post("/org", h.CreateOrganization)
			r.Get("/org", h.MyOrganizations)
			r.With(auth.RequireAdmin).Post("/org/{orgId}/team", h.CreateOrgTeam)
			r.With(auth.RequireAdmin).Post("/teams", h.CreateTeam)
			r.Get("/teams", h.ListTeams)
			r.With(auth.RequireAdmin).Post("/teams/assign", h.AssignTeamMember)

			// Invitations
			r.Get("/invitations/members", h.ListMembers)
			r.With(auth.RequireAdmin).Post("/invitations/create", h.CreateInvite)
			r.With(auth.RequireAdmin).Delete("/invitations/members/{userId}", h.RemoveMember)

			r.Get("/analytics", h.Analytics)

			// Super admin
			r.Route("/superadmin", func(r chi.Router) {
				r.Use(auth.RequireSuperAdmin)
				r.Post("/organizations", h.ProvisionOrganization)
				r.Get("/organizations", h.AllOrganizations)
				r.Delete("/organizations/{id}", h.DeleteOrganization)
			})
		})
	})

	if h.media != nil {
		r.Handle(media.URLPrefix+"*", http.StripPrefix(media.URLPrefix, http.FileServer(h.media.Files())))
	}

	r.Get("/swagger/doc.json", docs.Handler)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

// Health reports liveness and store reachability
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]bool
// @Failure 503 {object} map[string]bool
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("health: store ping")
		respond.JSON(w, http.StatusServiceUnavailable, map[string]bool{"ok": false})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := jsonDecode(r.Body, v); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func jsonDecode(body io.Reader, v any) error {
	return json.NewDecoder(body).Decode(v)
}

func identity(r *http.Request) *auth.Identity {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return &auth.Identity{}
	}
	return id
}

// callerOrg returns the caller's organization id, answering 400 when the caller has none.
func callerOrg(w http.ResponseWriter, r *http.Request) (string, bool) {
	orgID := identity(r).OrgID()
	if orgID == "" {
		respond.Error(w, http.StatusBadRequest, "No organization for user")
		return "", false
	}
	return orgID, true
}

// serverError logs err and answers 500 with msg.
func serverError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	respond.Error(w, http.StatusInternalServerError, msg)
}

// notFoundOr answers 404 with msg when err matches target and 500 otherwise.
func notFoundOr(w http.ResponseWriter, r *http.Request, err, target error, msg, failMsg string) {
	if errors.Is(err, target) {
		respond.Error(w, http.StatusNotFound, msg)
		return
	}
	serverError(w, r, err, failMsg)
}

func (h *Handler) publish(r *http.Request, t models.PostEventType, post *models.Post) {
	ev := events.NewPostEvent(t, post, identity(r).UserID)
	if err := h.events.Publish(r.Context(), ev); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("post_id", post.ID).Str("event", string(t)).Msg("publish post event")
	}
}
