// Package events publishes post lifecycle events.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"socialhub-backend/internal/models"
)

const (
	eventVersion = 1

	StreamName    = "SOCIALHUB_POSTS"
	streamSubject = "socialhub.*.posts.>"
)

type Publisher interface {
	Publish(ctx context.Context, ev models.PostEvent) error
}

// NewPostEvent stamps an event for post as it is after the change.
func NewPostEvent(t models.PostEventType, post *models.Post, actorID string) models.PostEvent {
	return models.PostEvent{
		V:       eventVersion,
		TS:      time.Now().UnixMilli(),
		Type:    t,
		PostID:  post.ID,
		OrgID:   post.OrgID,
		ActorID: actorID,
		Status:  post.Status,
	}
}

// Subject returns socialhub.<org>.posts.<action>, e.g. socialhub.o1.posts.approved.
func Subject(orgID string, t models.PostEventType) string {
	return fmt.Sprintf("socialhub.%s.posts.%s", orgID, strings.TrimPrefix(string(t), "post."))
}

func Encode(ev models.PostEvent) ([]byte, error) {
	return msgpack.Marshal(&ev)
}

func Decode(data []byte) (models.PostEvent, error) {
	var ev models.PostEvent
	err := msgpack.Unmarshal(data, &ev)
	return ev, err
}

// Noop drops every event. Used when NATS is not configured.
type Noop struct{}

func (Noop) Publish(context.Context, models.PostEvent) error { return nil }

// Fanout delivers each event to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev models.PostEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
