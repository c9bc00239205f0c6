// Package memory implements storage.Store in process memory.
// It backs tests and STORE_TYPE=memory; data is lost on restart.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"socialhub-backend/internal/models"
	"socialhub-backend/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	orgs  map[string]*models.Organization
	users map[string]*models.User
	teams map[string]*models.Team
	posts map[string]*models.Post
}

func New() *Store {
	return &Store{
		orgs:  make(map[string]*models.Organization),
		users: make(map[string]*models.User),
		teams: make(map[string]*models.Team),
		posts: make(map[string]*models.Post),
	}
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// Users

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createUserLocked(user)
}

func (s *Store) createUserLocked(user *models.User) error {
	for _, u := range s.users {
		if u.Email == user.Email {
			return storage.ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return s.populate(u), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return s.populate(u), nil
		}
	}
	return nil, storage.ErrUserNotFound
}

// populate resolves OrgID like the SQL join does: only an existing organization is attached.
func (s *Store) populate(u *models.User) *models.User {
	out := cloneUser(u)
	out.Organization = nil
	if u.OrgID != nil {
		if org, ok := s.orgs[*u.OrgID]; ok {
			out.Organization = &models.OrganizationRef{ID: org.ID, Name: org.Name}
		}
	}
	return out
}

func (s *Store) ListMembers(_ context.Context, orgID string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.usersWhere(func(u *models.User) bool {
		return u.OrgID != nil && *u.OrgID == orgID
	}), nil
}

func (s *Store) ListAllUsers(context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.usersWhere(func(*models.User) bool { return true }), nil
}

func (s *Store) usersWhere(match func(*models.User) bool) []models.User {
	out := []models.User{}
	for _, u := range s.users {
		if match(u) {
			out = append(out, *cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) UpdateUserRole(_ context.Context, orgID, userID string, role models.Role) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || (orgID != "" && !inOrg(u, orgID)) {
		return nil, storage.ErrUserNotFound
	}
	u.Role = role
	return s.populate(u), nil
}

func (s *Store) DeleteUser(_ context.Context, orgID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || !inOrg(u, orgID) {
		return storage.ErrUserNotFound
	}
	s.deleteUserLocked(userID)
	return nil
}

func (s *Store) deleteUserLocked(userID string) {
	delete(s.users, userID)
	for _, t := range s.teams {
		t.Members = slices.DeleteFunc(t.Members, func(id string) bool { return id == userID })
	}
	for _, p := range s.posts {
		if p.CreatedBy == userID {
			p.CreatedBy = ""
		}
	}
	for _, o := range s.orgs {
		if o.CreatedBy != nil && *o.CreatedBy == userID {
			o.CreatedBy = nil
		}
	}
}

func inOrg(u *models.User, orgID string) bool {
	return u.OrgID != nil && *u.OrgID == orgID
}

// Organizations

func (s *Store) CreateOrganization(_ context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createOrgLocked(org)
}

func (s *Store) createOrgLocked(org *models.Organization) error {
	if org.Domain != nil {
		for _, o := range s.orgs {
			if o.Domain != nil && *o.Domain == *org.Domain {
				return storage.ErrDomainTaken
			}
		}
	}
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
	clone := *org
	clone.Teams, clone.Members = nil, nil
	s.orgs[org.ID] = &clone
	return nil
}

func (s *Store) CreateOrganizationWithAdmin(_ context.Context, org *models.Organization, admin *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == admin.Email {
			return storage.ErrEmailTaken
		}
	}
	if err := s.createOrgLocked(org); err != nil {
		return err
	}
	admin.OrgID = &org.ID
	if err := s.createUserLocked(admin); err != nil {
		delete(s.orgs, org.ID)
		return err
	}
	admin.Organization = &models.OrganizationRef{ID: org.ID, Name: org.Name}
	return nil
}

func (s *Store) GetOrganization(_ context.Context, id string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, storage.ErrOrgNotFound
	}
	clone := *org
	return &clone, nil
}

func (s *Store) ListOrganizations(context.Context) ([]models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.orgsWhere(func(*models.Organization) bool { return true }), nil
}

func (s *Store) ListOrganizationsByCreator(_ context.Context, userID string) ([]models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.orgsWhere(func(o *models.Organization) bool {
		return o.CreatedBy != nil && *o.CreatedBy == userID
	}), nil
}

func (s *Store) orgsWhere(match func(*models.Organization) bool) []models.Organization {
	out := []models.Organization{}
	for _, o := range s.orgs {
		if match(o) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) DeleteOrganization(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[id]; !ok {
		return storage.ErrOrgNotFound
	}
	for pid, p := range s.posts {
		if p.OrgID == id {
			delete(s.posts, pid)
		}
	}
	for tid, t := range s.teams {
		if t.OrgID == id {
			delete(s.teams, tid)
		}
	}
	for uid, u := range s.users {
		if inOrg(u, id) {
			s.deleteUserLocked(uid)
		}
	}
	delete(s.orgs, id)
	return nil
}

// Teams

func (s *Store) CreateTeam(_ context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[team.OrgID]; !ok {
		return storage.ErrOrgNotFound
	}
	members := []string{}
	for _, id := range team.Members {
		if id == "" || slices.Contains(members, id) {
			continue
		}
		u, ok := s.users[id]
		if !ok || !inOrg(u, team.OrgID) {
			return storage.ErrUserNotFound
		}
		members = append(members, id)
	}

	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	if team.CreatedAt.IsZero() {
		team.CreatedAt = time.Now().UTC()
	}
	team.Members = members
	s.teams[team.ID] = cloneTeam(team)
	return nil
}

func (s *Store) GetTeam(_ context.Context, orgID, teamID string) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.teams[teamID]
	if !ok || t.OrgID != orgID {
		return nil, storage.ErrTeamNotFound
	}
	return cloneTeam(t), nil
}

func (s *Store) ListTeams(_ context.Context, orgID string) ([]models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Team{}
	for _, t := range s.teams {
		if t.OrgID == orgID {
			out = append(out, *cloneTeam(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) AddTeamMember(_ context.Context, orgID, teamID, userID string) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teams[teamID]
	if !ok || t.OrgID != orgID {
		return nil, storage.ErrTeamNotFound
	}
	u, ok := s.users[userID]
	if !ok || !inOrg(u, orgID) {
		return nil, storage.ErrUserNotFound
	}
	if !slices.Contains(t.Members, userID) {
		t.Members = append(t.Members, userID)
	}
	return cloneTeam(t), nil
}

// Posts

func (s *Store) CreatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[post.OrgID]; !ok {
		return storage.ErrOrgNotFound
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	clone := *post
	s.posts[post.ID] = &clone
	return nil
}

func (s *Store) GetPost(_ context.Context, orgID, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok || p.OrgID != orgID {
		return nil, storage.ErrPostNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *Store) ListPosts(_ context.Context, filter models.PostFilter) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Post{}
	for _, p := range s.posts {
		if p.OrgID != filter.OrgID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, p.Status) {
			continue
		}
		if filter.From != nil && p.ScheduledAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && p.ScheduledAt.After(*filter.To) {
			continue
		}
		out = append(out, *p)
	}

	key := func(p models.Post) time.Time {
		if filter.Sort == models.SortCreatedAt {
			return p.CreatedAt
		}
		return p.ScheduledAt
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := key(out[i]), key(out[j])
		if a.Equal(b) {
			return out[i].ID < out[j].ID
		}
		if filter.Desc {
			return a.After(b)
		}
		return a.Before(b)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) TransitionPost(_ context.Context, orgID, id string, to models.PostStatus, at time.Time) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok || p.OrgID != orgID {
		return nil, storage.ErrPostNotFound
	}
	if !models.CanTransition(p.Status, to) {
		return nil, models.ErrInvalidTransition
	}
	p.Status = to
	if to == models.PostPublished {
		published := at.UTC()
		p.PublishedAt = &published
	}
	clone := *p
	return &clone, nil
}

func (s *Store) ListDuePosts(_ context.Context, now time.Time, limit int) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Post{}
	for _, p := range s.posts {
		if p.Status == models.PostApproved && !p.ScheduledAt.After(now) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CountPosts(_ context.Context, orgID string, statuses ...models.PostStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.posts {
		if p.OrgID == orgID && (len(statuses) == 0 || slices.Contains(statuses, p.Status)) {
			n++
		}
	}
	return n, nil
}

func cloneUser(u *models.User) *models.User {
	clone := *u
	if u.OrgID != nil {
		id := *u.OrgID
		clone.OrgID = &id
	}
	if u.Organization != nil {
		ref := *u.Organization
		clone.Organization = &ref
	}
	return &clone
}

func cloneTeam(t *models.Team) *models.Team {
	clone := *t
	clone.Members = slices.Clone(t.Members)
	if clone.Members == nil {
		clone.Members = []string{}
	}
	return &clone
}
