package models

import "time"

type Organization struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Domain    *string   `db:"domain" json:"domain,omitempty"`
	CreatedBy *string   `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Teams   []Team   `db:"-" json:"teams,omitempty"`
	Members []Member `db:"-" json:"users,omitempty"`
}

type CreateOrganizationInput struct {
	Name string `json:"name"`
}

// ProvisionOrganizationInput creates an organization together with its first admin.
type ProvisionOrganizationInput struct {
	Name          string `json:"name"`
	Domain        string `json:"domain"`
	AdminName     string `json:"adminName"`
	AdminEmail    string `json:"adminEmail"`
	AdminPassword string `json:"adminPassword"`
}

type Team struct {
	ID        string    `db:"id" json:"id"`
	OrgID     string    `db:"org_id" json:"organization"`
	Name      string    `db:"name" json:"name"`
	Members   []string  `db:"-" json:"members"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateTeamInput struct {
	Name         string   `json:"name"`
	Organization string   `json:"organization"`
	Members      []string `json:"members"`
}

type AssignTeamInput struct {
	TeamID string `json:"teamId"`
	UserID string `json:"userId"`
}
