package auth

import (
	"testing"

	"welfare/internal/domain"
)

func TestAllowed_AdminHasEveryPermission(t *testing.T) {
	for _, p := range Permissions() {
		if !Allowed(domain.RoleAdmin, p) {
			t.Errorf("admin denied %s", p)
		}
	}
}

func TestAllowed_RoleTable(t *testing.T) {
	tests := []struct {
		role domain.Role
		perm Permission
		want bool
	}{
		{domain.RoleAuditor, PermLedgerRead, true},
		{domain.RoleAuditor, PermLedgerWrite, false},
		{domain.RoleTreasurer, PermLedgerWrite, true},
		{domain.RoleTreasurer, PermPaymentsReconcile, true},
		{domain.RoleSecretary, PermPaymentsRead, false},
		{domain.RoleSecretary, PermReportsExport, true},
		{domain.RoleCoordinator, PermMembersRead, true},
		{domain.RoleCoordinator, PermReportsExport, false},
		{domain.RoleAdmin, Permission("unknown:perm"), false},
		{domain.Role("member"), PermMembersRead, false},
	}

	for _, tt := range tests {
		if got := Allowed(tt.role, tt.perm); got != tt.want {
			t.Errorf("Allowed(%s, %s) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
}

func TestPortalPath(t *testing.T) {
	if got := PortalPath(domain.RoleTreasurer); got != "/treasurer" {
		t.Errorf("treasurer portal = %q", got)
	}
	if got := PortalPath(domain.Role("nobody")); got != "/" {
		t.Errorf("unknown portal = %q", got)
	}
}
