package storage

import (
	"context"
	"database/sql"
	"errors"

	"socialhub-backend/internal/models"
)

const userColumns = `u.id, u.name, u.email, u.password_hash, u.role, u.org_id, u.is_verified, u.created_at`

type userRow struct {
	models.User
	OrgRefID sql.NullString `db:"org_ref_id"`
	OrgName  sql.NullString `db:"org_name"`
}

func (r userRow) toUser() *models.User {
	user := r.User
	user.Role = models.NormalizeRole(string(user.Role))
	if r.OrgRefID.Valid {
		user.Organization = &models.OrganizationRef{ID: r.OrgRefID.String, Name: r.OrgName.String}
	}
	return &user
}

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	return createUser(ctx, s.db, user)
}

func createUser(ctx context.Context, exec execer, user *models.User) error {
	if user.ID == "" {
		user.ID = newID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}

	query := `
		INSERT INTO users (id, name, email, password_hash, role, org_id, is_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := exec.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role),
		user.OrgID, user.IsVerified, user.CreatedAt)
	return mapWriteError(err)
}

func (s *Storage) GetUser(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, ErrUserNotFound
	}
	query := `
		SELECT ` + userColumns + `, o.id AS org_ref_id, o.name AS org_name
		FROM users u
		LEFT JOIN organizations o ON o.id = u.org_id
		WHERE u.id = $1
	`
	var row userRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return row.toUser(), nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `, o.id AS org_ref_id, o.name AS org_name
		FROM users u
		LEFT JOIN organizations o ON o.id = u.org_id
		WHERE u.email = $1
	`
	var row userRow
	if err := s.db.GetContext(ctx, &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return row.toUser(), nil
}

func (s *Storage) ListMembers(ctx context.Context, orgID string) ([]models.User, error) {
	if !validID(orgID) {
		return []models.User{}, nil
	}
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.org_id = $1 ORDER BY u.created_at`
	return s.selectUsers(ctx, query, orgID)
}

func (s *Storage) ListAllUsers(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u ORDER BY u.created_at`
	return s.selectUsers(ctx, query)
}

func (s *Storage) selectUsers(ctx context.Context, query string, args ...any) ([]models.User, error) {
	var users []models.User
	if err := s.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Role = models.NormalizeRole(string(users[i].Role))
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

func (s *Storage) UpdateUserRole(ctx context.Context, orgID, userID string, role models.Role) (*models.User, error) {
	if !validID(userID) || (orgID != "" && !validID(orgID)) {
		return nil, ErrUserNotFound
	}

	query := `UPDATE users SET role = $1 WHERE id = $2`
	args := []any{string(role), userID}
	if orgID != "" {
		query += ` AND org_id = $3`
		args = append(args, orgID)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrUserNotFound
	}
	return s.GetUser(ctx, userID)
}

func (s *Storage) DeleteUser(ctx context.Context, orgID, userID string) error {
	if !validID(userID) || !validID(orgID) {
		return ErrUserNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1 AND org_id = $2`, userID, orgID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}
