package loader

import (
	"fmt"
	"strings"

	"github.com/sprintlab/sprintlab/engine/state"
	"github.com/sprintlab/sprintlab/types"
	lua "github.com/yuin/gopher-lua"
)

// rawScenario holds a scenario table before compilation.
type rawScenario struct {
	id    string
	table *lua.LTable
}

// rawPersona holds a persona table before compilation.
type rawPersona struct {
	scenario string
	id       string
	table    *lua.LTable
}

// rawReplies holds a keyword rule list before compilation.
type rawReplies struct {
	scenario string
	persona  string
	table    *lua.LTable
}

// rawSequence holds a role-sequence table before compilation.
type rawSequence struct {
	scenario string
	persona  string
	table    *lua.LTable
}

// rawFollowUps holds a topic → follow-up table before compilation.
type rawFollowUps struct {
	scenario string
	persona  string
	table    *lua.LTable
}

// rawHints holds a role → topic → hint table before compilation.
type rawHints struct {
	scenario string
	table    *lua.LTable
}

// rawBacklog holds a backlog item list before compilation.
type rawBacklog struct {
	scenario string
	table    *lua.LTable
}

// rawTasks holds role task lists before compilation.
type rawTasks struct {
	scenario string
	table    *lua.LTable
}

// rawClassView holds class view rows before compilation.
type rawClassView struct {
	scenario string
	table    *lua.LTable
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return int(n)
	}
	return 0
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// stringSlice converts a Lua array of strings to a Go slice.
func stringSlice(tbl *lua.LTable) []string {
	if tbl == nil {
		return nil
	}
	var result []string
	for i := 1; i <= tbl.MaxN(); i++ {
		if s, ok := tbl.RawGetInt(i).(lua.LString); ok {
			result = append(result, string(s))
		}
	}
	return result
}

// stringMap converts a Lua table to a map[string]string.
func stringMap(tbl *lua.LTable) map[string]string {
	if tbl == nil {
		return nil
	}
	m := map[string]string{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			if vs, ok := v.(lua.LString); ok {
				m[string(ks)] = string(vs)
			}
		}
	})
	return m
}

// compile turns collected raw tables into immutable Defs.
func compile(coll *collector) (*state.Defs, error) {
	defs := &state.Defs{
		Scenarios: map[string]types.ScenarioDef{},
		Personas:  map[string][]types.PersonaDef{},
		Scripts:   map[string]map[string]types.RuleSet{},
		FollowUps: map[string]map[string]map[string]string{},
		Hints:     map[string]map[string]map[string]string{},
		Backlog:   map[string][]types.BacklogItem{},
		Tasks:     map[string]map[string][]types.TaskDef{},
		ClassView: map[string][]types.ClassGroup{},
	}

	for _, raw := range coll.scenarios {
		if _, dup := defs.Scenarios[raw.id]; dup {
			return nil, fmt.Errorf("duplicate scenario %q", raw.id)
		}
		defs.Scenarios[raw.id] = compileScenario(raw)
		defs.Order = append(defs.Order, raw.id)
	}

	for _, raw := range coll.personas {
		if err := checkScope("Persona", raw.id, raw.scenario); err != nil {
			return nil, err
		}
		defs.Personas[raw.scenario] = append(defs.Personas[raw.scenario], compilePersona(raw))
	}

	for _, raw := range coll.replies {
		if err := checkScope("Replies", raw.persona, raw.scenario); err != nil {
			return nil, err
		}
		set, err := compileReplies(raw)
		if err != nil {
			return nil, err
		}
		if err := putScript(defs, raw.scenario, raw.persona, set); err != nil {
			return nil, err
		}
	}

	for _, raw := range coll.sequences {
		if err := checkScope("Sequence", raw.persona, raw.scenario); err != nil {
			return nil, err
		}
		set, err := compileSequence(raw)
		if err != nil {
			return nil, err
		}
		if err := putScript(defs, raw.scenario, raw.persona, set); err != nil {
			return nil, err
		}
	}

	for _, raw := range coll.followUps {
		if err := checkScope("FollowUps", raw.persona, raw.scenario); err != nil {
			return nil, err
		}
		if defs.FollowUps[raw.scenario] == nil {
			defs.FollowUps[raw.scenario] = map[string]map[string]string{}
		}
		defs.FollowUps[raw.scenario][raw.persona] = stringMap(raw.table)
	}

	for _, raw := range coll.hints {
		if err := checkScope("Hints", "", raw.scenario); err != nil {
			return nil, err
		}
		if defs.Hints[raw.scenario] == nil {
			defs.Hints[raw.scenario] = map[string]map[string]string{}
		}
		raw.table.ForEach(func(k, v lua.LValue) {
			role, ok := k.(lua.LString)
			if !ok {
				return
			}
			if byTopic, ok := v.(*lua.LTable); ok {
				defs.Hints[raw.scenario][strings.ToLower(string(role))] = stringMap(byTopic)
			}
		})
	}

	for _, raw := range coll.backlogs {
		if err := checkScope("Backlog", "", raw.scenario); err != nil {
			return nil, err
		}
		defs.Backlog[raw.scenario] = compileBacklog(raw.table)
	}

	for _, raw := range coll.tasks {
		if err := checkScope("Tasks", "", raw.scenario); err != nil {
			return nil, err
		}
		defs.Tasks[raw.scenario] = compileTasks(raw.table)
	}

	for _, raw := range coll.classView {
		if err := checkScope("ClassView", "", raw.scenario); err != nil {
			return nil, err
		}
		defs.ClassView[raw.scenario] = compileClassView(raw.table)
	}

	return defs, nil
}

// checkScope rejects content declared before any Scenario.
func checkScope(kind, id, scenario string) error {
	if scenario == "" {
		if id != "" {
			return fmt.Errorf("%s %q declared before any Scenario", kind, id)
		}
		return fmt.Errorf("%s declared before any Scenario", kind)
	}
	return nil
}

func compileScenario(raw rawScenario) types.ScenarioDef {
	return types.ScenarioDef{
		ID:              raw.id,
		Title:           getString(raw.table, "title"),
		Short:           getString(raw.table, "short"),
		Status:          getString(raw.table, "status"),
		Active:          getBool(raw.table, "active", false),
		Overview:        getString(raw.table, "overview"),
		Goals:           stringSlice(getTable(raw.table, "goals")),
		Constraints:     stringSlice(getTable(raw.table, "constraints")),
		SuccessCriteria: stringSlice(getTable(raw.table, "success_criteria")),
	}
}

func compilePersona(raw rawPersona) types.PersonaDef {
	return types.PersonaDef{
		ID:       raw.id,
		Name:     getString(raw.table, "name"),
		Subtitle: getString(raw.table, "subtitle"),
		Bio:      getString(raw.table, "bio"),
		Goals:    stringSlice(getTable(raw.table, "goals")),
		Pains:    stringSlice(getTable(raw.table, "pains")),
		Needs:    stringSlice(getTable(raw.table, "needs")),
	}
}

// compileReplies builds a keyworded rule set. Triggers are lowercased here so
// matching never has to renormalize script data.
func compileReplies(raw rawReplies) (types.RuleSet, error) {
	var rules []types.ScriptRule
	for i := 1; i <= raw.table.MaxN(); i++ {
		entry, ok := raw.table.RawGetInt(i).(*lua.LTable)
		if !ok {
			return types.RuleSet{}, fmt.Errorf("Replies %q: entry %d is not a table", raw.persona, i)
		}
		rule := types.ScriptRule{
			Topic: getString(entry, "topic"),
			Reply: getString(entry, "reply"),
		}
		for _, trigger := range stringSlice(getTable(entry, "match")) {
			rule.Match = append(rule.Match, strings.ToLower(trigger))
		}
		if rule.Reply == "" {
			return types.RuleSet{}, fmt.Errorf("Replies %q: entry %d has no reply", raw.persona, i)
		}
		rules = append(rules, rule)
	}
	return types.RuleSet{Kind: types.RuleSetKeyworded, Rules: rules}, nil
}

// compileSequence builds a sequenced rule set keyed by lowercase role keys.
func compileSequence(raw rawSequence) (types.RuleSet, error) {
	sequences := map[types.RoleKey]types.RoleSequence{}
	var compileErr error
	raw.table.ForEach(func(k, v lua.LValue) {
		role, ok := k.(lua.LString)
		if !ok {
			return
		}
		entry, ok := v.(*lua.LTable)
		if !ok {
			compileErr = fmt.Errorf("Sequence %q: role %s is not a table", raw.persona, role)
			return
		}
		seq := types.RoleSequence{
			Steps:    stringSlice(getTable(entry, "steps")),
			Fallback: getString(entry, "fallback"),
		}
		sequences[types.RoleKey(strings.ToLower(string(role)))] = seq
	})
	if compileErr != nil {
		return types.RuleSet{}, compileErr
	}
	return types.RuleSet{Kind: types.RuleSetSequenced, Sequences: sequences}, nil
}

// putScript stores a persona's rule set, rejecting double definitions — a
// persona is keyworded or sequenced, decided once at load time.
func putScript(defs *state.Defs, scenario, persona string, set types.RuleSet) error {
	if defs.Scripts[scenario] == nil {
		defs.Scripts[scenario] = map[string]types.RuleSet{}
	}
	if _, dup := defs.Scripts[scenario][persona]; dup {
		return fmt.Errorf("persona %q has more than one script definition", persona)
	}
	defs.Scripts[scenario][persona] = set
	return nil
}

func compileBacklog(tbl *lua.LTable) []types.BacklogItem {
	var items []types.BacklogItem
	for i := 1; i <= tbl.MaxN(); i++ {
		entry, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			continue
		}
		items = append(items, types.BacklogItem{
			ID:       getInt(entry, "id"),
			Title:    getString(entry, "title"),
			Roles:    stringSlice(getTable(entry, "roles")),
			Priority: getString(entry, "priority"),
			Status:   getString(entry, "status"),
			Story:    getString(entry, "story"),
			AC:       stringSlice(getTable(entry, "ac")),
		})
	}
	return items
}

func compileTasks(tbl *lua.LTable) map[string][]types.TaskDef {
	tasks := map[string][]types.TaskDef{}
	tbl.ForEach(func(k, v lua.LValue) {
		role, ok := k.(lua.LString)
		if !ok {
			return
		}
		list, ok := v.(*lua.LTable)
		if !ok {
			return
		}
		var defs []types.TaskDef
		for i := 1; i <= list.MaxN(); i++ {
			if entry, ok := list.RawGetInt(i).(*lua.LTable); ok {
				defs = append(defs, types.TaskDef{
					ID:   getString(entry, "id"),
					Text: getString(entry, "text"),
				})
			}
		}
		tasks[string(role)] = defs
	})
	return tasks
}

func compileClassView(tbl *lua.LTable) []types.ClassGroup {
	var groups []types.ClassGroup
	for i := 1; i <= tbl.MaxN(); i++ {
		entry, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			continue
		}
		groups = append(groups, types.ClassGroup{
			Name:           getString(entry, "name"),
			Role:           getString(entry, "role"),
			Status:         getString(entry, "status"),
			Chats:          getInt(entry, "chats"),
			BacklogTouched: getInt(entry, "backlog_touched"),
		})
	}
	return groups
}
