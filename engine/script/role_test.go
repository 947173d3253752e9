package script

import (
	"testing"

	"github.com/sprintlab/sprintlab/types"
)

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		role string
		want types.RoleKey
	}{
		{"PO", types.RolePO},
		{"po", types.RolePO},
		{"BA", types.RolePO},
		{"Professor", types.RolePO},
		{"Student", types.RolePO},
		{"Dev", types.RoleDev},
		{"developer", types.RoleDev},
		{"DEV", types.RoleDev},
		{"Tester", types.RoleTester},
		{"QA", types.RoleTester},
		{"qa", types.RoleTester},
		{"  Tester  ", types.RoleTester},
		{"Scrum Master", types.RolePO}, // unrecognized defaults to PO
		{"", types.RolePO},
	}

	for _, tt := range tests {
		if got := NormalizeRole(tt.role); got != tt.want {
			t.Errorf("NormalizeRole(%q) = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestIsProfessor(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{"Professor", true},
		{"professor", true},
		{"PROFESSOR", true},
		{" Professor ", true},
		{"PO", false},
		{"Student", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsProfessor(tt.role); got != tt.want {
			t.Errorf("IsProfessor(%q) = %v, want %v", tt.role, got, tt.want)
		}
	}
}
