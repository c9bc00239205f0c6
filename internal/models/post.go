package models

import (
	"errors"
	"strings"
	"time"
)

type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPending   PostStatus = "pending"
	PostApproved  PostStatus = "approved"
	PostDeclined  PostStatus = "declined"
	PostPublished PostStatus = "published"
)

type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

var (
	ErrInvalidStatus     = errors.New("invalid post status")
	ErrInvalidPlatform   = errors.New("invalid platform")
	ErrInvalidTransition = errors.New("invalid status transition")
)

func ParsePostStatus(s string) (PostStatus, error) {
	switch st := PostStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case PostDraft, PostPending, PostApproved, PostDeclined, PostPublished:
		return st, nil
	}
	return "", ErrInvalidStatus
}

func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformFacebook, PlatformInstagram:
		return p, nil
	}
	return "", ErrInvalidPlatform
}

// CanTransition reports whether an admin action may move a post from one status to another.
func CanTransition(from, to PostStatus) bool {
	switch to {
	case PostApproved, PostDeclined:
		return from == PostPending || from == PostDraft
	case PostPublished:
		return from == PostApproved || from == PostPending
	}
	return false
}

type Post struct {
	ID          string     `db:"id" json:"id"`
	OrgID       string     `db:"org_id" json:"organization"`
	CreatedBy   string     `db:"created_by" json:"createdBy"`
	TeamID      *string    `db:"team_id" json:"team,omitempty"`
	Title       string     `db:"title" json:"title"`
	Content     string     `db:"content" json:"content"`
	MediaURL    *string    `db:"media_url" json:"media,omitempty"`
	Platform    Platform   `db:"platform" json:"platform"`
	Status      PostStatus `db:"status" json:"status"`
	ScheduledAt time.Time  `db:"scheduled_at" json:"scheduledAt"`
	PublishedAt *time.Time `db:"published_at" json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

type CreatePostInput struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Platform    string `json:"platform"`
	Status      string `json:"status"`
	ScheduledAt string `json:"scheduledAt"`
	Team        string `json:"team"`
}

// PostSort names the columns a listing may be ordered by.
type PostSort string

const (
	SortScheduledAt PostSort = "scheduledAt"
	SortCreatedAt   PostSort = "createdAt"
)

// PostFilter scopes a listing. OrgID is mandatory for org-scoped reads.
type PostFilter struct {
	OrgID    string
	Statuses []PostStatus
	From     *time.Time
	To       *time.Time
	Sort     PostSort
	Desc     bool
	Limit    int
}

type Analytics struct {
	Posts      int `json:"posts"`
	Reach      int `json:"reach"`
	Engagement int `json:"engagement"`
	Clicks     int `json:"clicks"`
}

// AnalyticsFor derives the dashboard counters from the number of approved and published posts.
func AnalyticsFor(posts int) Analytics {
	return Analytics{
		Posts:      posts,
		Reach:      posts * 100,
		Engagement: posts * 45,
		Clicks:     posts * 30,
	}
}
