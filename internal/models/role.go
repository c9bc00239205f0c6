package models

import (
	"errors"
	"strings"
)

// Role is the caller's permission level inside an organization.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleEditor     Role = "editor"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

var ErrInvalidRole = errors.New("invalid role")

// ParseRole accepts only the canonical lower-case role names.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.TrimSpace(s)); r {
	case RoleViewer, RoleEditor, RoleAdmin, RoleSuperAdmin:
		return r, nil
	}
	return "", ErrInvalidRole
}

// NormalizeRole folds a stored role to lower case. Used on values already in the
// store, where legacy rows may carry "Admin".
func NormalizeRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func (r Role) IsSuperAdmin() bool {
	return r == RoleSuperAdmin
}

func (r Role) String() string {
	return string(r)
}
