package script

import (
	"strings"

	"github.com/sprintlab/sprintlab/types"
)

// NormalizeRole maps a nominal role label to its sequence-role key. The
// mapping is total: BA, Professor, and Student read the PO arc, QA reads the
// Tester arc, and anything unrecognized defaults to PO. Aliased roles share
// the target key's progress counter.
func NormalizeRole(role string) types.RoleKey {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "po", "ba", "professor", "student":
		return types.RolePO
	case "dev", "developer":
		return types.RoleDev
	case "tester", "qa":
		return types.RoleTester
	default:
		return types.RolePO
	}
}

// IsProfessor reports whether the acting role is the reviewing professor.
// Professors read base replies only; they are reviewing, not practicing.
func IsProfessor(role string) bool {
	return strings.EqualFold(strings.TrimSpace(role), "professor")
}
