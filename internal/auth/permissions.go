package auth

import "welfare/internal/domain"

// Permission names an action guarded by role.
type Permission string

const (
	PermMembersRead       Permission = "members:read"
	PermPaymentsRead      Permission = "payments:read"
	PermPaymentsReconcile Permission = "payments:reconcile"
	PermLedgerRead        Permission = "ledger:read"
	PermLedgerWrite       Permission = "ledger:write"
	PermReportsExport     Permission = "reports:export"
)

var permissions = map[Permission][]domain.Role{
	PermMembersRead:       {domain.RoleAdmin, domain.RoleSecretary, domain.RoleCoordinator, domain.RoleTreasurer, domain.RoleAuditor},
	PermPaymentsRead:      {domain.RoleAdmin, domain.RoleTreasurer, domain.RoleAuditor},
	PermPaymentsReconcile: {domain.RoleAdmin, domain.RoleTreasurer},
	PermLedgerRead:        {domain.RoleAdmin, domain.RoleTreasurer, domain.RoleAuditor},
	PermLedgerWrite:       {domain.RoleAdmin, domain.RoleTreasurer},
	PermReportsExport:     {domain.RoleAdmin, domain.RoleTreasurer, domain.RoleAuditor, domain.RoleSecretary},
}

// Permissions lists every known permission.
func Permissions() []Permission {
	out := make([]Permission, 0, len(permissions))
	for p := range permissions {
		out = append(out, p)
	}
	return out
}

// Allowed reports whether role may use permission. Unknown permissions are denied.
func Allowed(role domain.Role, permission Permission) bool {
	for _, r := range permissions[permission] {
		if r == role {
			return true
		}
	}
	return false
}

var portals = map[domain.Role]string{
	domain.RoleAdmin:       "/admin",
	domain.RoleTreasurer:   "/treasurer",
	domain.RoleSecretary:   "/secretary",
	domain.RoleCoordinator: "/coordinator",
	domain.RoleAuditor:     "/auditor",
}

// PortalPath returns the landing page for role, or "/" for an unknown role.
func PortalPath(role domain.Role) string {
	if p, ok := portals[role]; ok {
		return p
	}
	return "/"
}
