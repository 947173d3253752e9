package script

import (
	"errors"
	"testing"

	"github.com/sprintlab/sprintlab/engine/state"
	"github.com/sprintlab/sprintlab/types"
)

func fixtureDefs() *state.Defs {
	return &state.Defs{
		Scenarios: map[string]types.ScenarioDef{
			"s1": {ID: "s1", Title: "Test Scenario", Active: true},
		},
		Order: []string{"s1"},
		Personas: map[string][]types.PersonaDef{
			"s1": {
				{ID: "customer", Name: "Maria"},
				{ID: "coach", Name: "Alex"},
				{ID: "silent", Name: "Quiet"},
			},
		},
		Scripts: map[string]map[string]types.RuleSet{
			"s1": {
				"customer": {
					Kind: types.RuleSetKeyworded,
					Rules: []types.ScriptRule{
						{Match: []string{"refund"}, Topic: "refund", Reply: "Refunds take 5 days."},
						{Reply: "My main priority is speed."},
					},
				},
				"coach": {
					Kind: types.RuleSetSequenced,
					Sequences: map[types.RoleKey]types.RoleSequence{
						types.RolePO:  {Steps: []string{"po one", "po two"}, Fallback: "po done"},
						types.RoleDev: {Steps: []string{"dev one"}, Fallback: "dev done"},
					},
				},
			},
		},
		FollowUps: map[string]map[string]map[string]string{
			"s1": {"customer": {"refund": "Also, refunds go to the original card."}},
		},
		Hints: map[string]map[string]map[string]string{
			"s1": {"po": {"refund": "Consider the SLA."}},
		},
	}
}

func TestHasPersona(t *testing.T) {
	repo := NewRepository(fixtureDefs())

	if !repo.HasPersona("s1", "customer") {
		t.Error("expected customer to exist")
	}
	if repo.HasPersona("s1", "ghost") {
		t.Error("expected ghost to be unknown")
	}
	if repo.HasPersona("nope", "customer") {
		t.Error("expected unknown scenario to have no personas")
	}
}

func TestRulesFor(t *testing.T) {
	repo := NewRepository(fixtureDefs())

	set, err := repo.RulesFor("s1", "customer")
	if err != nil {
		t.Fatalf("RulesFor failed: %v", err)
	}
	if set.Kind != types.RuleSetKeyworded {
		t.Errorf("expected keyworded rule set, got kind %d", set.Kind)
	}
	if len(set.Rules) != 2 {
		t.Errorf("expected 2 rules, got %d", len(set.Rules))
	}
}

func TestRulesForUnknownPersona(t *testing.T) {
	repo := NewRepository(fixtureDefs())

	_, err := repo.RulesFor("s1", "ghost")
	if !errors.Is(err, ErrUnknownPersona) {
		t.Errorf("expected ErrUnknownPersona, got %v", err)
	}
}

func TestRulesForPersonaWithoutScripts(t *testing.T) {
	repo := NewRepository(fixtureDefs())

	set, err := repo.RulesFor("s1", "silent")
	if err != nil {
		t.Fatalf("persona without scripts should not error: %v", err)
	}
	if set.Kind != types.RuleSetEmpty {
		t.Errorf("expected empty rule set, got kind %d", set.Kind)
	}
}

func TestFollowUpAndHint(t *testing.T) {
	repo := NewRepository(fixtureDefs())

	if reply, ok := repo.FollowUp("s1", "customer", "refund"); !ok || reply == "" {
		t.Errorf("expected refund follow-up, got %q ok=%v", reply, ok)
	}
	if _, ok := repo.FollowUp("s1", "customer", "shipping"); ok {
		t.Error("expected no follow-up for unknown topic")
	}

	if hint, ok := repo.Hint("s1", "po", "refund"); !ok || hint != "Consider the SLA." {
		t.Errorf("expected po refund hint, got %q ok=%v", hint, ok)
	}
	if _, ok := repo.Hint("s1", "dev", "refund"); ok {
		t.Error("expected no hint for role without entries")
	}
}

func TestSequenceFor(t *testing.T) {
	set := fixtureDefs().Scripts["s1"]["coach"]

	tests := []struct {
		key         types.RoleKey
		wantKey     types.RoleKey
		wantStepOne string
	}{
		{types.RolePO, types.RolePO, "po one"},
		{types.RoleDev, types.RoleDev, "dev one"},
		// No tester entry: falls through to PO, sharing its counter key.
		{types.RoleTester, types.RolePO, "po one"},
	}

	for _, tt := range tests {
		seq, resolved, ok := SequenceFor(set, tt.key)
		if !ok {
			t.Fatalf("SequenceFor(%q) not found", tt.key)
		}
		if resolved != tt.wantKey {
			t.Errorf("SequenceFor(%q) resolved key = %q, want %q", tt.key, resolved, tt.wantKey)
		}
		if seq.Steps[0] != tt.wantStepOne {
			t.Errorf("SequenceFor(%q) first step = %q, want %q", tt.key, seq.Steps[0], tt.wantStepOne)
		}
	}
}

func TestSequenceForDefaultEntry(t *testing.T) {
	set := types.RuleSet{
		Kind: types.RuleSetSequenced,
		Sequences: map[types.RoleKey]types.RoleSequence{
			types.RoleDefault: {Steps: []string{"step"}, Fallback: "done"},
		},
	}

	_, resolved, ok := SequenceFor(set, types.RoleDev)
	if !ok || resolved != types.RoleDefault {
		t.Errorf("expected fall-through to default entry, got key %q ok=%v", resolved, ok)
	}

	empty := types.RuleSet{Kind: types.RuleSetSequenced}
	if _, _, ok := SequenceFor(empty, types.RolePO); ok {
		t.Error("expected no sequence in an empty set")
	}
}
