package models

type PostEventType string

const (
	EventPostCreated   PostEventType = "post.created"
	EventPostApproved  PostEventType = "post.approved"
	EventPostDeclined  PostEventType = "post.declined"
	EventPostPublished PostEventType = "post.published"
)

// PostEvent is published on the bus whenever a post changes state.
type PostEvent struct {
	V       int           `msgpack:"v"`
	TS      int64         `msgpack:"ts"`
	Type    PostEventType `msgpack:"type"`
	PostID  string        `msgpack:"post_id"`
	OrgID   string        `msgpack:"org_id"`
	ActorID string        `msgpack:"actor_id"`
	Status  PostStatus    `msgpack:"status"`
}
