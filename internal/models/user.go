package models

import "time"

// OrganizationRef is the populated form of a user's organization.
type OrganizationRef struct {
	ID   string `json:"_id" db:"id"`
	Name string `json:"name" db:"name"`
}

type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	OrgID        *string   `json:"-" db:"org_id"`
	IsVerified   bool      `json:"isVerified" db:"is_verified"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`

	// Organization is set when the store resolved OrgID to an existing row.
	Organization *OrganizationRef `json:"organization" db:"-"`
}

// OrganizationID returns the user's organization id or "" when the user has none.
func (u *User) OrganizationID() string {
	if u.Organization != nil && u.Organization.ID != "" {
		return u.Organization.ID
	}
	if u.OrgID != nil {
		return *u.OrgID
	}
	return ""
}

// Member is the public projection of a user listed inside an organization.
type Member struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	Role  Role   `json:"role" db:"role"`
}

func (u *User) Member() Member {
	return Member{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type RegisterInput struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Organization string `json:"organization"`
	InviteToken  string `json:"inviteToken"`
}

type UpdateRoleInput struct {
	Role string `json:"role"`
}
