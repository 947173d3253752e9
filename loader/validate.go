package loader

import (
	"fmt"
	"strings"

	"github.com/sprintlab/sprintlab/engine/state"
	"github.com/sprintlab/sprintlab/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// Known role labels for backlog items and task lists.
var validRoles = map[string]bool{
	"PO":     true,
	"BA":     true,
	"Dev":    true,
	"Tester": true,
}

// Known hint-table role keys (lowercase).
var validHintRoles = map[string]bool{
	"po":      true,
	"ba":      true,
	"dev":     true,
	"tester":  true,
	"qa":      true,
	"student": true,
}

// validate checks the compiled defs for referential integrity and
// consistency.
func validate(defs *state.Defs) error {
	ve := &ValidationError{}

	if len(defs.Scenarios) == 0 {
		ve.Errors = append(ve.Errors, "no scenarios declared")
	}

	activeCount := 0
	for _, id := range defs.Order {
		scen := defs.Scenarios[id]
		if scen.Title == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("scenario %q: title is required", id))
		}
		if scen.Active {
			activeCount++
			validateActiveScenario(ve, defs, id)
		}
	}
	if len(defs.Scenarios) > 0 && activeCount == 0 {
		ve.Errors = append(ve.Errors, "no active scenario declared")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateActiveScenario(ve *ValidationError, defs *state.Defs, scenarioID string) {
	personas := defs.Personas[scenarioID]
	if len(personas) == 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("active scenario %q has no personas", scenarioID))
		return
	}

	known := map[string]bool{}
	for _, p := range personas {
		if known[p.ID] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("scenario %q: duplicate persona %q", scenarioID, p.ID))
		}
		known[p.ID] = true
		if p.Name == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("persona %q: name is required", p.ID))
		}
	}

	// Scripts must belong to declared personas; personas without scripts
	// degrade to the clarification reply at runtime, so only warn.
	for personaID, set := range defs.Scripts[scenarioID] {
		if !known[personaID] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("scenario %q: script for undeclared persona %q", scenarioID, personaID))
			continue
		}
		switch set.Kind {
		case types.RuleSetKeyworded:
			validateKeyworded(ve, personaID, set)
		case types.RuleSetSequenced:
			validateSequenced(ve, personaID, set)
		}
	}
	for _, p := range personas {
		if _, ok := defs.Scripts[scenarioID][p.ID]; !ok {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("persona %q has no scripts; replies degrade to the clarification fallback", p.ID))
		}
	}

	// Follow-up topics must exist on some rule of the same persona.
	for personaID, byTopic := range defs.FollowUps[scenarioID] {
		if !known[personaID] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("scenario %q: follow-ups for undeclared persona %q", scenarioID, personaID))
			continue
		}
		topics := ruleTopics(defs.Scripts[scenarioID][personaID])
		for topic := range byTopic {
			if !topics[topic] {
				ve.Warnings = append(ve.Warnings, fmt.Sprintf("persona %q: follow-up topic %q matches no rule topic", personaID, topic))
			}
		}
	}

	// Hint role keys must be known; topics are cross-persona, so only
	// check against the union of rule topics.
	allTopics := map[string]bool{}
	for _, set := range defs.Scripts[scenarioID] {
		for topic := range ruleTopics(set) {
			allTopics[topic] = true
		}
	}
	for role, byTopic := range defs.Hints[scenarioID] {
		if !validHintRoles[role] {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("hints: unknown role key %q", role))
		}
		for topic := range byTopic {
			if !allTopics[topic] {
				ve.Warnings = append(ve.Warnings, fmt.Sprintf("hints: topic %q matches no rule topic", topic))
			}
		}
	}

	for _, item := range defs.Backlog[scenarioID] {
		if item.ID == 0 {
			ve.Errors = append(ve.Errors, fmt.Sprintf("backlog item %q: id is required", item.Title))
		}
		for _, role := range item.Roles {
			if !validRoles[role] {
				ve.Warnings = append(ve.Warnings, fmt.Sprintf("backlog item %d: unknown role %q", item.ID, role))
			}
		}
	}

	for role := range defs.Tasks[scenarioID] {
		if !validRoles[role] {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("tasks: unknown role %q", role))
		}
	}
}

// validateKeyworded enforces the catch-all contract: at most one rule with an
// empty trigger list, and it must be declared last.
func validateKeyworded(ve *ValidationError, personaID string, set types.RuleSet) {
	if len(set.Rules) == 0 {
		ve.Warnings = append(ve.Warnings, fmt.Sprintf("persona %q: empty rule list", personaID))
		return
	}
	catchAlls := 0
	for i, rule := range set.Rules {
		if len(rule.Match) > 0 {
			continue
		}
		catchAlls++
		if i != len(set.Rules)-1 {
			ve.Errors = append(ve.Errors, fmt.Sprintf("persona %q: catch-all rule must be declared last", personaID))
		}
	}
	if catchAlls > 1 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("persona %q: more than one catch-all rule", personaID))
	}
	if catchAlls == 0 {
		ve.Warnings = append(ve.Warnings, fmt.Sprintf("persona %q: no catch-all rule; unmatched text falls back to the clarification reply", personaID))
	}
}

// validateSequenced requires a po or default entry and complete sequences.
func validateSequenced(ve *ValidationError, personaID string, set types.RuleSet) {
	if len(set.Sequences) == 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("persona %q: sequence script with no role entries", personaID))
		return
	}
	_, hasPO := set.Sequences[types.RolePO]
	_, hasDefault := set.Sequences[types.RoleDefault]
	if !hasPO && !hasDefault {
		ve.Errors = append(ve.Errors, fmt.Sprintf("persona %q: sequence needs a po or default entry", personaID))
	}
	for role, seq := range set.Sequences {
		if len(seq.Steps) == 0 {
			ve.Errors = append(ve.Errors, fmt.Sprintf("persona %q: sequence for role %q has no steps", personaID, role))
		}
		if seq.Fallback == "" {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("persona %q: sequence for role %q has no fallback", personaID, role))
		}
	}
}

func ruleTopics(set types.RuleSet) map[string]bool {
	topics := map[string]bool{}
	for _, rule := range set.Rules {
		if rule.Topic != "" {
			topics[rule.Topic] = true
		}
	}
	return topics
}
