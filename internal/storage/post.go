package storage

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"socialhub-backend/internal/models"
)

const postColumns = `id, org_id, COALESCE(created_by::text, '') AS created_by, team_id, title, content,
	media_url, platform, status, scheduled_at, published_at, created_at`

var postSortColumns = map[models.PostSort]string{
	models.SortScheduledAt: "scheduled_at",
	models.SortCreatedAt:   "created_at",
}

func (s *Storage) CreatePost(ctx context.Context, post *models.Post) error {
	if !validID(post.OrgID) {
		return ErrOrgNotFound
	}
	if post.ID == "" {
		post.ID = newID()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now()
	}

	query := `
		INSERT INTO posts (id, org_id, created_by, team_id, title, content, media_url,
			platform, status, scheduled_at, published_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		post.ID, post.OrgID, nullIfEmpty(post.CreatedBy), post.TeamID, post.Title, post.Content, post.MediaURL,
		string(post.Platform), string(post.Status), post.ScheduledAt, post.PublishedAt, post.CreatedAt)
	return err
}

func (s *Storage) GetPost(ctx context.Context, orgID, id string) (*models.Post, error) {
	if !validID(orgID) || !validID(id) {
		return nil, ErrPostNotFound
	}
	return getPost(ctx, s.db, orgID, id, false)
}

func getPost(ctx context.Context, q sqlx.QueryerContext, orgID, id string, forUpdate bool) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND org_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var post models.Post
	err := sqlx.GetContext(ctx, q, &post, query, id, orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Storage) ListPosts(ctx context.Context, filter models.PostFilter) ([]models.Post, error) {
	posts := []models.Post{}
	if !validID(filter.OrgID) {
		return posts, nil
	}

	var (
		where = []string{"org_id = $1"}
		args  = []any{filter.OrgID}
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if len(filter.Statuses) > 0 {
		where = append(where, "status = ANY("+arg(pq.Array(statusStrings(filter.Statuses)))+")")
	}
	if filter.From != nil {
		where = append(where, "scheduled_at >= "+arg(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "scheduled_at <= "+arg(*filter.To))
	}

	column, ok := postSortColumns[filter.Sort]
	if !ok {
		column = "scheduled_at"
	}
	direction := "ASC"
	if filter.Desc {
		direction = "DESC"
	}

	query := `SELECT ` + postColumns + ` FROM posts WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY ` + column + ` ` + direction + `, id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}

	if err := s.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Storage) TransitionPost(ctx context.Context, orgID, id string, to models.PostStatus, at time.Time) (*models.Post, error) {
	if !validID(orgID) || !validID(id) {
		return nil, ErrPostNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	post, err := getPost(ctx, tx, orgID, id, true)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(post.Status, to) {
		return nil, models.ErrInvalidTransition
	}

	post.Status = to
	if to == models.PostPublished {
		published := at.UTC()
		post.PublishedAt = &published
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE posts SET status = $1, published_at = $2 WHERE id = $3 AND org_id = $4`,
		string(post.Status), post.PublishedAt, post.ID, orgID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Storage) ListDuePosts(ctx context.Context, now time.Time, limit int) ([]models.Post, error) {
	posts := []models.Post{}
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at, id
		LIMIT $3`
	if err := s.db.SelectContext(ctx, &posts, query, string(models.PostApproved), now, limit); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Storage) CountPosts(ctx context.Context, orgID string, statuses ...models.PostStatus) (int, error) {
	if !validID(orgID) {
		return 0, nil
	}
	query := `SELECT COUNT(*) FROM posts WHERE org_id = $1`
	args := []any{orgID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(statusStrings(statuses)))
	}

	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}

func statusStrings(statuses []models.PostStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
