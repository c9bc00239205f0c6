//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"socialhub-backend/internal/models"
)

func setupPostgresContainer(t *testing.T, ctx context.Context) (*Storage, func()) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "socialhub",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/socialhub?sslmode=disable", host, port.Port())
	require.NoError(t, Migrate(dsn, "up"))

	db, err := Connect(ctx, dsn)
	require.NoError(t, err)

	return NewStorage(db), func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	}
}

func TestIntegration_Storage(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	domain := "acme.test"
	org := &models.Organization{Name: "Acme", Domain: &domain}
	admin := &models.User{Name: "Ada", Email: "ada@acme.test", PasswordHash: "x", Role: models.RoleAdmin, IsVerified: true}
	require.NoError(t, store.CreateOrganizationWithAdmin(ctx, org, admin))
	require.NotEmpty(t, org.ID)
	require.NotNil(t, admin.OrgID)

	t.Run("user lookup populates organization", func(t *testing.T) {
		got, err := store.GetUser(ctx, admin.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Organization)
		assert.Equal(t, org.ID, got.Organization.ID)
		assert.Equal(t, "Acme", got.Organization.Name)

		byEmail, err := store.GetUserByEmail(ctx, "ada@acme.test")
		require.NoError(t, err)
		assert.Equal(t, admin.ID, byEmail.ID)

		_, err = store.GetUser(ctx, "not-a-uuid")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("unique constraints map to sentinels", func(t *testing.T) {
		err := store.CreateUser(ctx, &models.User{Name: "Dup", Email: "ada@acme.test", PasswordHash: "x", Role: models.RoleViewer})
		require.ErrorIs(t, err, ErrEmailTaken)

		other := &models.Organization{Name: "Other", Domain: &domain}
		err = store.CreateOrganizationWithAdmin(ctx, other, &models.User{Name: "B", Email: "b@other.test", PasswordHash: "x", Role: models.RoleAdmin})
		require.ErrorIs(t, err, ErrDomainTaken)

		_, err = store.GetUserByEmail(ctx, "b@other.test")
		require.ErrorIs(t, err, ErrUserNotFound, "admin must roll back with the organization")
	})

	var editor *models.User
	t.Run("members and teams", func(t *testing.T) {
		editor = &models.User{Name: "Eve", Email: "eve@acme.test", PasswordHash: "x", Role: models.RoleEditor, OrgID: &org.ID}
		require.NoError(t, store.CreateUser(ctx, editor))

		members, err := store.ListMembers(ctx, org.ID)
		require.NoError(t, err)
		assert.Len(t, members, 2)

		updated, err := store.UpdateUserRole(ctx, org.ID, editor.ID, models.RoleViewer)
		require.NoError(t, err)
		assert.Equal(t, models.RoleViewer, updated.Role)

		team := &models.Team{OrgID: org.ID, Name: "Content", Members: []string{admin.ID}}
		require.NoError(t, store.CreateTeam(ctx, team))

		got, err := store.AddTeamMember(ctx, org.ID, team.ID, editor.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{admin.ID, editor.ID}, got.Members)

		got, err = store.AddTeamMember(ctx, org.ID, team.ID, editor.ID)
		require.NoError(t, err)
		assert.Len(t, got.Members, 2)
	})

	t.Run("post lifecycle", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)
		due := &models.Post{OrgID: org.ID, CreatedBy: admin.ID, Title: "Launch", Content: "Hello", Platform: models.PlatformFacebook, Status: models.PostPending, ScheduledAt: now.Add(-time.Hour)}
		later := &models.Post{OrgID: org.ID, CreatedBy: admin.ID, Title: "Later", Content: "Soon", Platform: models.PlatformInstagram, Status: models.PostPending, ScheduledAt: now.Add(24 * time.Hour)}
		require.NoError(t, store.CreatePost(ctx, due))
		require.NoError(t, store.CreatePost(ctx, later))

		pending, err := store.ListPosts(ctx, models.PostFilter{OrgID: org.ID, Statuses: []models.PostStatus{models.PostPending}, Sort: models.SortScheduledAt})
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, due.ID, pending[0].ID)

		_, err = store.TransitionPost(ctx, org.ID, due.ID, models.PostApproved, now)
		require.NoError(t, err)
		_, err = store.TransitionPost(ctx, org.ID, due.ID, models.PostDeclined, now)
		require.ErrorIs(t, err, models.ErrInvalidTransition)

		duePosts, err := store.ListDuePosts(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, duePosts, 1)
		assert.Equal(t, due.ID, duePosts[0].ID)

		published, err := store.TransitionPost(ctx, org.ID, due.ID, models.PostPublished, now)
		require.NoError(t, err)
		require.NotNil(t, published.PublishedAt)

		n, err := store.CountPosts(ctx, org.ID, models.PostApproved, models.PostPublished)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("delete organization cascades", func(t *testing.T) {
		require.NoError(t, store.DeleteOrganization(ctx, org.ID))

		_, err := store.GetOrganization(ctx, org.ID)
		require.ErrorIs(t, err, ErrOrgNotFound)
		_, err = store.GetUser(ctx, editor.ID)
		require.ErrorIs(t, err, ErrUserNotFound)
		n, err := store.CountPosts(ctx, org.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
