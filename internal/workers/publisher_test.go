package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialhub-backend/internal/models"
	"socialhub-backend/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.PostEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev models.PostEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func seedPost(t *testing.T, store *memory.Store, orgID string, status models.PostStatus, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		OrgID:       orgID,
		Title:       "t",
		Content:     "c",
		Platform:    models.PlatformFacebook,
		Status:      status,
		ScheduledAt: at,
	}
	require.NoError(t, store.CreatePost(context.Background(), p))
	return p
}

func TestPublishDue(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	org := &models.Organization{Name: "Acme"}
	require.NoError(t, store.CreateOrganization(ctx, org))

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	due := seedPost(t, store, org.ID, models.PostApproved, now.Add(-time.Minute))
	future := seedPost(t, store, org.ID, models.PostApproved, now.Add(time.Hour))
	pending := seedPost(t, store, org.ID, models.PostPending, now.Add(-time.Hour))

	pub := &recordingPublisher{}
	s := NewPublishScheduler(store, pub, time.Minute)
	s.now = func() time.Time { return now }

	assert.Equal(t, 1, s.PublishDue(ctx))

	got, err := store.GetPost(ctx, org.ID, due.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostPublished, got.Status)
	require.NotNil(t, got.PublishedAt)
	assert.True(t, got.PublishedAt.Equal(now))

	for _, id := range []string{future.ID, pending.ID} {
		p, err := store.GetPost(ctx, org.ID, id)
		require.NoError(t, err)
		assert.NotEqual(t, models.PostPublished, p.Status)
	}

	require.Len(t, pub.events, 1)
	assert.Equal(t, models.EventPostPublished, pub.events[0].Type)
	assert.Equal(t, due.ID, pub.events[0].PostID)
	assert.Equal(t, org.ID, pub.events[0].OrgID)

	assert.Equal(t, 0, s.PublishDue(ctx), "second pass finds nothing")
}

func TestPublishDue_EventFailureDoesNotStopPublishing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	org := &models.Organization{Name: "Acme"}
	require.NoError(t, store.CreateOrganization(ctx, org))

	now := time.Now()
	seedPost(t, store, org.ID, models.PostApproved, now.Add(-2*time.Minute))
	seedPost(t, store, org.ID, models.PostApproved, now.Add(-time.Minute))

	s := NewPublishScheduler(store, &recordingPublisher{err: errors.New("nats down")}, time.Minute)
	assert.Equal(t, 2, s.PublishDue(ctx))

	n, err := store.CountPosts(ctx, org.ID, models.PostPublished)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPublishScheduler_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := memory.New()
	org := &models.Organization{Name: "Acme"}
	require.NoError(t, store.CreateOrganization(ctx, org))
	p := seedPost(t, store, org.ID, models.PostApproved, time.Now().Add(-time.Minute))

	s := NewPublishScheduler(store, nil, 10*time.Millisecond)
	s.Start(ctx)

	require.Eventually(t, func() bool {
		got, err := store.GetPost(context.Background(), org.ID, p.ID)
		return err == nil && got.Status == models.PostPublished
	}, time.Second, 10*time.Millisecond)
	cancel()
}
