package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestScopedTechnicianID(t *testing.T) {
	userID := uuid.New()

	cases := []struct {
		name   string
		roles  []string
		scoped bool
	}{
		{"tech only", []string{RoleTech}, true},
		{"admin", []string{RoleAdmin}, false},
		{"dispatcher", []string{RoleDispatcher}, false},
		{"tech and admin", []string{RoleTech, RoleAdmin}, false},
		{"admin listed after tech", []string{RoleAdmin, RoleTech}, false},
		{"no roles", nil, false},
		{"unknown role only", []string{"AUDITOR"}, false},
	}

	for _, tc := range cases {
		scope := ScopedTechnicianID(userID, tc.roles)
		if tc.scoped {
			if scope == nil || *scope != userID {
				t.Errorf("%s: scope = %v, want %v", tc.name, scope, userID)
			}
		} else if scope != nil {
			t.Errorf("%s: scope = %v, want nil", tc.name, *scope)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleAdmin, RoleDispatcher, RoleTech} {
		if !ValidRole(role) {
			t.Errorf("ValidRole(%s) = false, want true", role)
		}
	}
	for _, role := range []string{"", "admin", "SUPERUSER"} {
		if ValidRole(role) {
			t.Errorf("ValidRole(%q) = true, want false", role)
		}
	}
}
