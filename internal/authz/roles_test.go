package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	valid := []string{
		"ADMIN", "GENERAL_MANAGER", "BRANCH_MANAGER",
		"BRANCH_EMPLOYEE", "CENTER_MANAGER", "CENTER_TECHNICIAN",
	}
	for _, s := range valid {
		role, ok := ParseRole(s)
		require.True(t, ok, s)
		assert.Equal(t, Role(s), role)
	}

	for _, s := range []string{"", "admin", "SUPERUSER", "BRANCH MANAGER"} {
		_, ok := ParseRole(s)
		assert.False(t, ok, s)
	}
}

func TestRolePredicates(t *testing.T) {
	tests := []struct {
		role       Role
		global     bool
		center     bool
		privileged bool
	}{
		{RoleAdmin, true, false, true},
		{RoleGeneralManager, true, false, true},
		{RoleBranchManager, false, false, true},
		{RoleBranchEmployee, false, false, false},
		{RoleCenterManager, false, true, true},
		{RoleCenterTechnician, false, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.global, IsGlobalRole(tt.role))
			assert.Equal(t, tt.center, IsCenterRole(tt.role))
			assert.Equal(t, tt.privileged, IsPrivilegedRole(tt.role))
		})
	}
}
