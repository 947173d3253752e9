package engine

import (
	"errors"
	"testing"

	"github.com/sprintlab/sprintlab/engine/resolve"
	"github.com/sprintlab/sprintlab/engine/save"
	"github.com/sprintlab/sprintlab/engine/script"
	"github.com/sprintlab/sprintlab/engine/state"
	"github.com/sprintlab/sprintlab/types"
)

func testDefs() *state.Defs {
	return &state.Defs{
		Scenarios: map[string]types.ScenarioDef{
			"s1": {ID: "s1", Title: "Returns", Active: true},
		},
		Order: []string{"s1"},
		Personas: map[string][]types.PersonaDef{
			"s1": {{ID: "customer", Name: "Maria"}},
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
	}
}

func TestSubmitAndResolve(t *testing.T) {
	eng := New(testDefs())

	id, err := eng.SubmitMessage("s1", "customer", "Student", "refund please")
	if err != nil {
		t.Fatalf("SubmitMessage failed: %v", err)
	}

	msgs := eng.Messages("s1", "customer")
	if len(msgs) != 2 {
		t.Fatalf("expected user message + placeholder, got %d messages", len(msgs))
	}
	if msgs[0].From != types.SpeakerUser || msgs[0].Text != "refund please" {
		t.Errorf("first message should be the user's, got %+v", msgs[0])
	}
	if !msgs[1].Pending || msgs[1].Text != TypingPlaceholder {
		t.Errorf("second message should be the typing placeholder, got %+v", msgs[1])
	}

	if !eng.ResolvePending(id) {
		t.Fatal("ResolvePending should deliver the parked reply")
	}

	msgs = eng.Messages("s1", "customer")
	if msgs[1].Pending {
		t.Error("placeholder should no longer be pending")
	}
	if msgs[1].Text != "Refunds take 5 days." {
		t.Errorf("delivered text = %q, want the scripted reply", msgs[1].Text)
	}
	if eng.Unread("s1", "customer") != 1 {
		t.Errorf("unread = %d, want 1", eng.Unread("s1", "customer"))
	}
	if eng.State.Activity["s1"].ChatCount != 1 {
		t.Errorf("chat count = %d, want 1", eng.State.Activity["s1"].ChatCount)
	}
}

func TestSubmitSerializedPerConversation(t *testing.T) {
	eng := New(testDefs())

	id, err := eng.SubmitMessage("s1", "customer", "Student", "refund")
	if err != nil {
		t.Fatalf("SubmitMessage failed: %v", err)
	}

	if _, err := eng.SubmitMessage("s1", "customer", "Student", "again"); !errors.Is(err, ErrReplyPending) {
		t.Errorf("second send while pending: error = %v, want ErrReplyPending", err)
	}
	if !eng.HasPendingReply("s1", "customer") {
		t.Error("HasPendingReply should report the parked reply")
	}

	eng.ResolvePending(id)
	if _, err := eng.SubmitMessage("s1", "customer", "Student", "again"); err != nil {
		t.Errorf("send after delivery should succeed, got %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	eng := New(testDefs())

	if _, err := eng.SubmitMessage("s1", "customer", "Student", "   "); !errors.Is(err, resolve.ErrEmptyText) {
		t.Errorf("blank text: error = %v, want ErrEmptyText", err)
	}
	if _, err := eng.SubmitMessage("s1", "ghost", "Student", "hi"); !errors.Is(err, script.ErrUnknownPersona) {
		t.Errorf("unknown persona: error = %v, want ErrUnknownPersona", err)
	}
}

func TestResolvePendingUnknownID(t *testing.T) {
	eng := New(testDefs())

	if eng.ResolvePending("nonexistent") {
		t.Error("unknown placeholder ID must be a no-op returning false")
	}
}

func TestStaleResolutionAfterDrop(t *testing.T) {
	eng := New(testDefs())

	id, err := eng.SubmitMessage("s1", "customer", "Student", "refund")
	if err != nil {
		t.Fatalf("SubmitMessage failed: %v", err)
	}

	eng.DropScenario("s1")

	if eng.ResolvePending(id) {
		t.Error("resolution after scenario drop must be a silent no-op")
	}
	if eng.Unread("s1", "customer") != 0 {
		t.Error("stale resolution must not bump counters")
	}
}

func TestMarkRead(t *testing.T) {
	eng := New(testDefs())

	id, _ := eng.SubmitMessage("s1", "customer", "Student", "refund")
	eng.ResolvePending(id)

	eng.MarkRead("s1", "customer")
	if eng.Unread("s1", "customer") != 0 {
		t.Errorf("unread after MarkRead = %d, want 0", eng.Unread("s1", "customer"))
	}
}

func TestRestoreDiscardsParkedReplies(t *testing.T) {
	eng := New(testDefs())

	snapshot, err := eng.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	id, _ := eng.SubmitMessage("s1", "customer", "Student", "refund")

	sd, err := save.Load(snapshot)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	eng.Restore(sd)

	if eng.ResolvePending(id) {
		t.Error("replies parked before Restore must be discarded")
	}
	if eng.HasPendingReply("s1", "customer") {
		t.Error("no pending replies should survive Restore")
	}
	if len(eng.Messages("s1", "customer")) != 0 {
		t.Error("restored state should have the snapshot's empty conversation")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	eng := New(testDefs())

	id, _ := eng.SubmitMessage("s1", "customer", "Student", "refund")
	eng.ResolvePending(id)
	eng.State.Reflections["s1"] = "learned about refunds"
	state.ClaimRole(eng.State, "s1", "PO", "Student")

	data, err := eng.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	fresh := New(testDefs())
	sd, err := save.Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	fresh.Restore(sd)

	msgs := fresh.Messages("s1", "customer")
	if len(msgs) != 2 || msgs[1].Text != "Refunds take 5 days." {
		t.Errorf("restored conversation = %+v, want the original exchange", msgs)
	}
	if fresh.State.Reflections["s1"] != "learned about refunds" {
		t.Error("reflection should survive the round trip")
	}
	if fresh.State.User.Role != "PO" {
		t.Errorf("restored role = %q, want PO", fresh.State.User.Role)
	}
}
