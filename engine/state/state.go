// Package state manages the mutable simulation state and the immutable
// compiled scenario definitions it is derived from.
package state

import "github.com/sprintlab/sprintlab/types"

// Defs holds the immutable scenario content loaded from Lua.
type Defs struct {
	Scenarios map[string]types.ScenarioDef
	Order     []string // catalog order as declared

	Personas  map[string][]types.PersonaDef                   // scenario → ordered personas
	Scripts   map[string]map[string]types.RuleSet             // scenario → persona → rules
	FollowUps map[string]map[string]map[string]string         // scenario → persona → topic → reply
	Hints     map[string]map[string]map[string]string         // scenario → role (lowercase) → topic → hint
	Backlog   map[string][]types.BacklogItem                  // scenario → items
	Tasks     map[string]map[string][]types.TaskDef           // scenario → role → checklist
	ClassView map[string][]types.ClassGroup                   // scenario → static class rows
}

// defaultRoleSlots are the claimable roles seeded for every active scenario.
var defaultRoleSlots = []types.RoleSlot{
	{Name: "PO", Label: "Product Owner", Status: "available"},
	{Name: "BA", Label: "Business Analyst", Status: "available"},
	{Name: "Dev", Label: "Developer", Status: "available"},
	{Name: "Tester", Label: "Tester", Status: "available"},
}

// NewSim creates a fresh simulation state. Conversations are created lazily
// by the conversation store, not here.
func NewSim(defs *Defs) *types.Sim {
	sim := &types.Sim{
		User: types.User{
			Name: "Student",
			Kind: "student",
			Role: "Student",
		},
		Chats:       map[string]map[string]*types.Conversation{},
		Roles:       map[string][]types.RoleSlot{},
		Workspace:   map[string]map[string]map[string]bool{},
		BacklogUI:   map[string]types.BacklogFilters{},
		Activity:    map[string]types.Activity{},
		Reflections: map[string]string{},
	}

	for _, id := range defs.Order {
		scen := defs.Scenarios[id]
		if !scen.Active {
			continue
		}
		if sim.User.SelectedScenario == "" {
			sim.User.SelectedScenario = id
		}
		slots := make([]types.RoleSlot, len(defaultRoleSlots))
		copy(slots, defaultRoleSlots)
		sim.Roles[id] = slots
		sim.BacklogUI[id] = types.BacklogFilters{Priority: "All", Status: "All", Role: "All"}
		sim.Activity[id] = types.Activity{}
	}

	return sim
}

// Persona returns a scenario's persona definition by ID.
func Persona(defs *Defs, scenarioID, personaID string) (types.PersonaDef, bool) {
	for _, p := range defs.Personas[scenarioID] {
		if p.ID == personaID {
			return p, true
		}
	}
	return types.PersonaDef{}, false
}

// ClaimRole assigns a role slot to a person and records it as the user's
// acting role. Returns false if the slot is unknown or already assigned.
func ClaimRole(sim *types.Sim, scenarioID, roleName, person string) bool {
	slots := sim.Roles[scenarioID]
	for i, slot := range slots {
		if slot.Name != roleName {
			continue
		}
		if slot.Status == "assigned" && slot.Person != person {
			return false
		}
		slots[i].Status = "assigned"
		slots[i].Person = person
		sim.User.Role = roleName
		return true
	}
	return false
}

// ReleaseRole frees a role slot. The user's acting role reverts to Student
// if it was the released role.
func ReleaseRole(sim *types.Sim, scenarioID, roleName string) {
	slots := sim.Roles[scenarioID]
	for i, slot := range slots {
		if slot.Name == roleName {
			slots[i].Status = "available"
			slots[i].Person = ""
			if sim.User.Role == roleName {
				sim.User.Role = "Student"
			}
			return
		}
	}
}

// ToggleTask flips a workspace task's completion and returns the new value.
func ToggleTask(sim *types.Sim, scenarioID, role, taskID string) bool {
	if sim.Workspace[scenarioID] == nil {
		sim.Workspace[scenarioID] = map[string]map[string]bool{}
	}
	if sim.Workspace[scenarioID][role] == nil {
		sim.Workspace[scenarioID][role] = map[string]bool{}
	}
	done := !sim.Workspace[scenarioID][role][taskID]
	sim.Workspace[scenarioID][role][taskID] = done
	return done
}

// TouchBacklogItem records that the user opened a backlog item.
// Each item is recorded once.
func TouchBacklogItem(sim *types.Sim, scenarioID string, itemID int) {
	act := sim.Activity[scenarioID]
	for _, id := range act.BacklogTouched {
		if id == itemID {
			return
		}
	}
	act.BacklogTouched = append(act.BacklogTouched, itemID)
	sim.Activity[scenarioID] = act
}

// BumpChatCount increments the scenario's chat activity counter.
func BumpChatCount(sim *types.Sim, scenarioID string) {
	act := sim.Activity[scenarioID]
	act.ChatCount++
	sim.Activity[scenarioID] = act
}

// DropScenario discards all per-scenario state: conversations, role slots,
// workspace progress, filters, activity, and the reflection. Pending reply
// resolutions for dropped conversations become stale no-ops.
func DropScenario(sim *types.Sim, scenarioID string) {
	delete(sim.Chats, scenarioID)
	delete(sim.Roles, scenarioID)
	delete(sim.Workspace, scenarioID)
	delete(sim.BacklogUI, scenarioID)
	delete(sim.Activity, scenarioID)
	delete(sim.Reflections, scenarioID)
	if sim.User.SelectedScenario == scenarioID {
		sim.User.SelectedScenario = ""
	}
}

// FilteredBacklog returns the scenario's backlog items that pass the
// current filter selections.
func FilteredBacklog(defs *Defs, sim *types.Sim, scenarioID string) []types.BacklogItem {
	filters := sim.BacklogUI[scenarioID]
	var result []types.BacklogItem
	for _, item := range defs.Backlog[scenarioID] {
		if filters.Priority != "" && filters.Priority != "All" && item.Priority != filters.Priority {
			continue
		}
		if filters.Status != "" && filters.Status != "All" && item.Status != filters.Status {
			continue
		}
		if filters.Role != "" && filters.Role != "All" && !hasRole(item.Roles, filters.Role) {
			continue
		}
		result = append(result, item)
	}
	return result
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
