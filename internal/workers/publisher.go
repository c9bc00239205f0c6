package workers

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"socialhub-backend/internal/events"
	"socialhub-backend/internal/models"
)

const publishBatch = 100

// DuePosts is the storage surface the publish scheduler needs.
type DuePosts interface {
	ListDuePosts(ctx context.Context, now time.Time, limit int) ([]models.Post, error)
	TransitionPost(ctx context.Context, orgID, id string, to models.PostStatus, at time.Time) (*models.Post, error)
}

type PublishScheduler struct {
	store    DuePosts
	events   events.Publisher
	interval time.Duration
	now      func() time.Time
}

func NewPublishScheduler(store DuePosts, publisher events.Publisher, interval time.Duration) *PublishScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &PublishScheduler{store: store, events: publisher, interval: interval, now: time.Now}
}

// Start periodically publishes approved posts whose scheduled time has passed.
func (s *PublishScheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.PublishDue(ctx)
			}
		}
	}()
	log.Info().Dur("interval", s.interval).Msg("publish scheduler started")
}

// PublishDue runs one pass and returns how many posts were published.
func (s *PublishScheduler) PublishDue(ctx context.Context) int {
	now := s.now().UTC()
	published := 0

	for {
		due, err := s.store.ListDuePosts(ctx, now, publishBatch)
		if err != nil {
			log.Warn().Err(err).Msg("publish scheduler list due posts")
			return published
		}

		progressed := false
		for _, p := range due {
			post, err := s.store.TransitionPost(ctx, p.OrgID, p.ID, models.PostPublished, now)
			if errors.Is(err, models.ErrInvalidTransition) {
				// Changed by an admin between the list and the update.
				continue
			}
			if err != nil {
				log.Warn().Err(err).Str("post_id", p.ID).Msg("publish scheduler transition")
				continue
			}
			progressed = true
			published++

			if err := s.events.Publish(ctx, events.NewPostEvent(models.EventPostPublished, post, "")); err != nil {
				log.Warn().Err(err).Str("post_id", post.ID).Msg("publish scheduler event")
			}
		}

		if len(due) < publishBatch || !progressed || ctx.Err() != nil {
			break
		}
	}

	if published > 0 {
		log.Info().Int("count", published).Msg("published scheduled posts")
	}
	return published
}
