package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sprintlab/sprintlab/engine"
	"github.com/sprintlab/sprintlab/engine/state"
	"github.com/sprintlab/sprintlab/types"
)

func testDefs() *state.Defs {
	return &state.Defs{
		Scenarios: map[string]types.ScenarioDef{
			"s1": {
				ID: "s1", Title: "Returns", Short: "Handle product returns.",
				Active: true, Overview: "A returns policy scenario.",
				Goals: []string{"Clarify the policy"},
			},
		},
		Order: []string{"s1"},
		Personas: map[string][]types.PersonaDef{
			"s1": {{ID: "customer", Name: "Maria", Subtitle: "Retail customer"}},
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
			},
		},
		Backlog: map[string][]types.BacklogItem{
			"s1": {{
				ID: 101, Title: "Refund flow", Roles: []string{"PO"},
				Priority: "High", Status: "Ready",
				Story: "As a customer I want a refund.",
				AC:    []string{"Refund within 5 days"},
			}},
		},
		Tasks: map[string]map[string][]types.TaskDef{
			"s1": {"PO": {{ID: "t1", Text: "Interview the customer"}}},
		},
		ClassView: map[string][]types.ClassGroup{
			"s1": {{Name: "Team A", Role: "PO", Status: "On track", Chats: 2, BacklogTouched: 1}},
		},
	}
}

// runSession executes a scripted session and returns the captured output.
func runSession(t *testing.T, input string) string {
	t.Helper()
	eng := engine.New(testDefs())
	c := New(eng, testDefs())
	c.In = strings.NewReader(input)
	var out bytes.Buffer
	c.Out = &out
	c.SaveDir = t.TempDir()
	c.Run()
	return out.String()
}

func TestSessionGreeting(t *testing.T) {
	out := runSession(t, "/quit\n")
	if !strings.Contains(out, "Returns") {
		t.Error("greeting should show the scenario title")
	}
	if !strings.Contains(out, "/help") {
		t.Error("greeting should point at /help")
	}
}

func TestChatFlow(t *testing.T) {
	out := runSession(t, "/talk customer\nrefund please\n/quit\n")

	if !strings.Contains(out, "Chatting with Maria") {
		t.Error("opening a chat should announce the persona")
	}
	if !strings.Contains(out, "Maria: Refunds take 5 days.") {
		t.Errorf("scripted reply missing from output:\n%s", out)
	}
}

func TestChatRequiresOpenPersona(t *testing.T) {
	out := runSession(t, "hello there\n/quit\n")
	if !strings.Contains(out, "No chat open") {
		t.Error("free text without an open chat should prompt for /talk")
	}
}

func TestUnknownPersona(t *testing.T) {
	out := runSession(t, "/talk ghost\n/quit\n")
	if !strings.Contains(out, `No persona "ghost"`) {
		t.Errorf("unknown persona should be reported:\n%s", out)
	}
}

func TestRoleClaim(t *testing.T) {
	out := runSession(t, "/role PO\n/roles\n/quit\n")
	if !strings.Contains(out, "acting as PO") {
		t.Error("claiming a role should be confirmed")
	}
	if !strings.Contains(out, "assigned") {
		t.Error("roles listing should show the assignment")
	}
}

func TestBacklogAndTasks(t *testing.T) {
	out := runSession(t, "/backlog\n/item 101\n/role PO\n/tasks\n/done t1\n/tasks\n/quit\n")

	if !strings.Contains(out, "#101 [High/Ready] Refund flow") {
		t.Errorf("backlog listing missing:\n%s", out)
	}
	if !strings.Contains(out, "Acceptance criteria:") {
		t.Error("item detail should list acceptance criteria")
	}
	if !strings.Contains(out, "[ ] t1") || !strings.Contains(out, "[x] t1") {
		t.Error("task toggle should flip the checkbox between listings")
	}
}

func TestBacklogFilters(t *testing.T) {
	out := runSession(t, "/backlog\n/filter priority Low\n/backlog\n/filter priority All\n/backlog\n/quit\n")

	// Item 101 is High: listed, hidden under the Low filter, then listed
	// twice more (the reset /filter re-lists, then the final /backlog).
	if got := strings.Count(out, "#101"); got != 3 {
		t.Errorf("item 101 listed %d times, want 3:\n%s", got, out)
	}
	if !strings.Contains(runSession(t, "/filter\n/quit\n"), "priority=All") {
		t.Error("bare /filter should show current selections")
	}
}

func TestReflectAndClass(t *testing.T) {
	out := runSession(t, "/reflect Splitting the story helped.\n/reflect\n/class\n/quit\n")

	if !strings.Contains(out, "Reflection saved.") {
		t.Error("writing a reflection should be confirmed")
	}
	if !strings.Contains(out, "Splitting the story helped.") {
		t.Error("bare /reflect should echo the saved text")
	}
	if !strings.Contains(out, "Team A") {
		t.Error("class view should list teams")
	}
}

func TestSaveAndLoad(t *testing.T) {
	eng := engine.New(testDefs())
	c := New(eng, testDefs())
	c.SaveDir = t.TempDir()
	var out bytes.Buffer
	c.Out = &out

	session := "/talk customer\nrefund please\n/save demo\n/load demo\n/talk customer\n/quit\n"
	c.In = strings.NewReader(session)
	c.Run()

	text := out.String()
	if !strings.Contains(text, "Session saved to demo.") {
		t.Errorf("save not confirmed:\n%s", text)
	}
	if !strings.Contains(text, "Session loaded from demo.") {
		t.Errorf("load not confirmed:\n%s", text)
	}
	// The reopened chat replays the saved exchange.
	if strings.Count(text, "Maria: Refunds take 5 days.") < 2 {
		t.Errorf("loaded session should replay the conversation:\n%s", text)
	}
}

func TestCommentLinesSkipped(t *testing.T) {
	out := runSession(t, "# just a comment\n/quit\n")
	if strings.Contains(out, "Unknown command") {
		t.Error("comment lines must be ignored")
	}
}

func TestUnknownCommand(t *testing.T) {
	out := runSession(t, "/frobnicate\n/quit\n")
	if !strings.Contains(out, "Unknown command: /frobnicate") {
		t.Errorf("unknown commands should be reported:\n%s", out)
	}
}
