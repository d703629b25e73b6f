package enums

import (
	"fmt"
	"strings"
)

// Role is the system-wide role stored on users.role.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleBorrower Role = "borrower"
)

var validRoles = []Role{RoleAdmin, RoleStaff, RoleBorrower}

// legacy Indonesian role names still found in imported rows
var legacyRoles = map[string]Role{
	"petugas":  RoleStaff,
	"peminjam": RoleBorrower,
}

func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole accepts both canonical and legacy role names.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	if role, ok := legacyRoles[normalized]; ok {
		return role, nil
	}
	return "", fmt.Errorf("invalid role %q", value)
}
