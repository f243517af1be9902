package domain

import "time"

// Role is a staff role. Each role has its own portal.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleTreasurer   Role = "treasurer"
	RoleSecretary   Role = "secretary"
	RoleCoordinator Role = "coordinator"
	RoleAuditor     Role = "auditor"
)

// Roles lists every staff role.
var Roles = []Role{RoleAdmin, RoleTreasurer, RoleSecretary, RoleCoordinator, RoleAuditor}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Staff is an officer of the welfare fund who signs in to a role portal.
type Staff struct {
	ID           string
	Email        string
	FullName     string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}
