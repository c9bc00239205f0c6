package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"socialhub-backend/internal/models"
)

type teamMemberRow struct {
	TeamID string `db:"team_id"`
	UserID string `db:"user_id"`
}

func (s *Storage) CreateTeam(ctx context.Context, team *models.Team) error {
	if !validID(team.OrgID) {
		return ErrOrgNotFound
	}
	if team.ID == "" {
		team.ID = newID()
	}
	if team.CreatedAt.IsZero() {
		team.CreatedAt = now()
	}
	team.Members = dedupe(team.Members)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM organizations WHERE id = $1)`, team.OrgID); err != nil {
		return err
	}
	if !exists {
		return ErrOrgNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO teams (id, org_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		team.ID, team.OrgID, team.Name, team.CreatedAt); err != nil {
		return err
	}

	for _, userID := range team.Members {
		if err := addTeamMember(ctx, tx, team.OrgID, team.ID, userID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// addTeamMember inserts the membership if userID belongs to orgID.
func addTeamMember(ctx context.Context, tx *sqlx.Tx, orgID, teamID, userID string) error {
	if !validID(userID) {
		return ErrUserNotFound
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO team_members (team_id, user_id)
		SELECT $1, u.id FROM users u WHERE u.id = $2 AND u.org_id = $3
		ON CONFLICT (team_id, user_id) DO NOTHING
	`, teamID, userID, orgID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	// Zero rows: either already a member or not in the organization.
	var member bool
	if err := tx.GetContext(ctx, &member,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND org_id = $2)`, userID, orgID); err != nil {
		return err
	}
	if !member {
		return ErrUserNotFound
	}
	return nil
}

func (s *Storage) GetTeam(ctx context.Context, orgID, teamID string) (*models.Team, error) {
	if !validID(orgID) || !validID(teamID) {
		return nil, ErrTeamNotFound
	}
	var team models.Team
	err := s.db.GetContext(ctx, &team,
		`SELECT id, org_id, name, created_at FROM teams WHERE id = $1 AND org_id = $2`, teamID, orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}

	teams := []models.Team{team}
	if err := s.loadTeamMembers(ctx, teams); err != nil {
		return nil, err
	}
	return &teams[0], nil
}

func (s *Storage) ListTeams(ctx context.Context, orgID string) ([]models.Team, error) {
	teams := []models.Team{}
	if !validID(orgID) {
		return teams, nil
	}
	if err := s.db.SelectContext(ctx, &teams,
		`SELECT id, org_id, name, created_at FROM teams WHERE org_id = $1 ORDER BY created_at`, orgID); err != nil {
		return nil, err
	}
	if err := s.loadTeamMembers(ctx, teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func (s *Storage) loadTeamMembers(ctx context.Context, teams []models.Team) error {
	if len(teams) == 0 {
		return nil
	}
	ids := make([]string, len(teams))
	index := make(map[string]int, len(teams))
	for i := range teams {
		ids[i] = teams[i].ID
		index[teams[i].ID] = i
		teams[i].Members = []string{}
	}

	var rows []teamMemberRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT team_id, user_id FROM team_members WHERE team_id = ANY($1::uuid[]) ORDER BY user_id`, pq.Array(ids)); err != nil {
		return err
	}
	for _, row := range rows {
		i := index[row.TeamID]
		teams[i].Members = append(teams[i].Members, row.UserID)
	}
	return nil
}

func (s *Storage) AddTeamMember(ctx context.Context, orgID, teamID, userID string) (*models.Team, error) {
	if !validID(orgID) || !validID(teamID) {
		return nil, ErrTeamNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM teams WHERE id = $1 AND org_id = $2)`, teamID, orgID); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrTeamNotFound
	}

	if err := addTeamMember(ctx, tx, orgID, teamID, userID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetTeam(ctx, orgID, teamID)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
