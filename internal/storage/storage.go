package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"socialhub-backend/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrOrgNotFound  = errors.New("organization not found")
	ErrDomainTaken  = errors.New("organization domain already taken")
	ErrTeamNotFound = errors.New("team not found")
	ErrPostNotFound = errors.New("post not found")
)

// UserStore persists user accounts. Methods taking an orgID only see users of that
// organization; an empty orgID is reserved for super-admin paths and matches any user.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	// GetUser returns the user with Organization populated when the referenced
	// organization exists. Returns ErrUserNotFound when there is no such user.
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListMembers(ctx context.Context, orgID string) ([]models.User, error)
	ListAllUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, orgID, userID string, role models.Role) (*models.User, error)
	DeleteUser(ctx context.Context, orgID, userID string) error
}

// OrganizationStore persists tenants.
type OrganizationStore interface {
	CreateOrganization(ctx context.Context, org *models.Organization) error
	// CreateOrganizationWithAdmin creates org and its first admin in one transaction.
	CreateOrganizationWithAdmin(ctx context.Context, org *models.Organization, admin *models.User) error
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	ListOrganizations(ctx context.Context) ([]models.Organization, error)
	ListOrganizationsByCreator(ctx context.Context, userID string) ([]models.Organization, error)
	// DeleteOrganization removes the organization with its users, teams and posts.
	DeleteOrganization(ctx context.Context, id string) error
}

// TeamStore persists teams. Members must belong to the team's organization.
type TeamStore interface {
	CreateTeam(ctx context.Context, team *models.Team) error
	GetTeam(ctx context.Context, orgID, teamID string) (*models.Team, error)
	ListTeams(ctx context.Context, orgID string) ([]models.Team, error)
	// AddTeamMember is idempotent.
	AddTeamMember(ctx context.Context, orgID, teamID, userID string) (*models.Team, error)
}

// PostStore persists scheduled posts.
type PostStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, orgID, id string) (*models.Post, error)
	ListPosts(ctx context.Context, filter models.PostFilter) ([]models.Post, error)
	// TransitionPost moves a post to status to, returning models.ErrInvalidTransition
	// when the current status does not allow it. Publishing records at as publishedAt.
	TransitionPost(ctx context.Context, orgID, id string, to models.PostStatus, at time.Time) (*models.Post, error)
	// ListDuePosts returns approved posts scheduled at or before now across all organizations.
	ListDuePosts(ctx context.Context, now time.Time, limit int) ([]models.Post, error)
	CountPosts(ctx context.Context, orgID string, statuses ...models.PostStatus) (int, error)
}

type Store interface {
	UserStore
	OrganizationStore
	TeamStore
	PostStore
	Ping(ctx context.Context) error
}

var _ Store = (*Storage)(nil)

// Storage is the Postgres implementation of Store.
type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Connect opens the database, retrying with exponential backoff while it comes up.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	attempt := 0
	return backoff.Retry(ctx, func() (*sqlx.DB, error) {
		attempt++
		db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("database connection attempt failed")
			return nil, err
		}
		return db, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(10),
	)
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func newID() string {
	return uuid.NewString()
}

// validID guards uuid columns; a malformed id can never match a row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func now() time.Time {
	return time.Now().UTC()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
