package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"socialhub-backend/internal/models"
)

const orgColumns = `id, name, domain, created_by, created_at`

func (s *Storage) CreateOrganization(ctx context.Context, org *models.Organization) error {
	return createOrganization(ctx, s.db, org)
}

func createOrganization(ctx context.Context, exec execer, org *models.Organization) error {
	if org.ID == "" {
		org.ID = newID()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now()
	}

	query := `
		INSERT INTO organizations (id, name, domain, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := exec.ExecContext(ctx, query, org.ID, org.Name, org.Domain, org.CreatedBy, org.CreatedAt)
	return mapWriteError(err)
}

func (s *Storage) CreateOrganizationWithAdmin(ctx context.Context, org *models.Organization, admin *models.User) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := createOrganization(ctx, tx, org); err != nil {
		return err
	}

	admin.OrgID = &org.ID
	if err := createUser(ctx, tx, admin); err != nil {
		return err
	}
	admin.Organization = &models.OrganizationRef{ID: org.ID, Name: org.Name}

	return tx.Commit()
}

func (s *Storage) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	if !validID(id) {
		return nil, ErrOrgNotFound
	}
	var org models.Organization
	err := s.db.GetContext(ctx, &org, `SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrgNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (s *Storage) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	return s.selectOrganizations(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY created_at`)
}

func (s *Storage) ListOrganizationsByCreator(ctx context.Context, userID string) ([]models.Organization, error) {
	if !validID(userID) {
		return []models.Organization{}, nil
	}
	return s.selectOrganizations(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE created_by = $1 ORDER BY created_at`, userID)
}

func (s *Storage) selectOrganizations(ctx context.Context, query string, args ...any) ([]models.Organization, error) {
	orgs := []models.Organization{}
	if err := s.db.SelectContext(ctx, &orgs, query, args...); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (s *Storage) DeleteOrganization(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrOrgNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteOrganizationContents(ctx, tx, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrgNotFound
	}

	return tx.Commit()
}

// deleteOrganizationContents removes rows that reference the organization.
// The foreign keys cascade as well; deleting explicitly keeps the order obvious.
func deleteOrganizationContents(ctx context.Context, tx *sqlx.Tx, orgID string) error {
	for _, query := range []string{
		`DELETE FROM posts WHERE org_id = $1`,
		`DELETE FROM teams WHERE org_id = $1`,
		`DELETE FROM users WHERE org_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, query, orgID); err != nil {
			return err
		}
	}
	return nil
}
