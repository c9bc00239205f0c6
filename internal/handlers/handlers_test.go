package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"socialhub-backend/internal/auth"
	"socialhub-backend/internal/handlers"
	"socialhub-backend/internal/media"
	"socialhub-backend/internal/models"
	"socialhub-backend/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.PostEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev models.PostEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []models.PostEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.PostEventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (f *fakeLimiter) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeLimiter) Ping(context.Context) error { return nil }
func (f *fakeLimiter) Close() error               { return nil }

type testServer struct {
	router http.Handler
	store  *memory.Store
	tokens *auth.TokenIssuer
	hasher *auth.Hasher
	events *recordingPublisher
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	tokens, err := auth.NewTokenIssuer("test-secret", 7*24*time.Hour, 7*24*time.Hour)
	require.NoError(t, err)
	mediaStore, err := media.NewStore(t.TempDir(), 1<<20)
	require.NoError(t, err)

	s := &testServer{
		store:  memory.New(),
		tokens: tokens,
		hasher: auth.NewHasher(4),
		events: &recordingPublisher{},
	}
	h := handlers.New(handlers.Deps{
		Store:       s.store,
		Tokens:      tokens,
		Hasher:      s.hasher,
		Media:       mediaStore,
		Events:      s.events,
		Limiter:     &fakeLimiter{counts: map[string]int64{}},
		FrontendURL: "http://app.test",
	})
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	s.router = r
	return s
}

func (s *testServer) org(t *testing.T, name string) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: name}
	require.NoError(t, s.store.CreateOrganization(context.Background(), org))
	return org
}

// user creates a member of org (nil for none) and returns it with a session token.
func (s *testServer) user(t *testing.T, org *models.Organization, role models.Role, email string) (*models.User, string) {
	t.Helper()
	hash, err := s.hasher.Hash("password")
	require.NoError(t, err)
	u := &models.User{Name: email, Email: email, PasswordHash: hash, Role: role}
	if org != nil {
		u.OrgID = &org.ID
	}
	require.NoError(t, s.store.CreateUser(context.Background(), u))
	token, err := s.tokens.Issue(u)
	require.NoError(t, err)
	return u, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[struct {
		Message string `json:"message"`
	}](t, rec).Message
}

// createPost inserts a post directly with the given status.
func (s *testServer) createPost(t *testing.T, org *models.Organization, status models.PostStatus, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		OrgID:       org.ID,
		Title:       "title",
		Content:     "content",
		Platform:    models.PlatformInstagram,
		Status:      status,
		ScheduledAt: at.UTC(),
	}
	require.NoError(t, s.store.CreatePost(context.Background(), p))
	return p
}
