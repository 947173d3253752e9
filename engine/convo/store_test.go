package convo

import (
	"testing"
	"time"

	"github.com/sprintlab/sprintlab/types"
)

func newTestStore() *Store {
	return NewStore(map[string]map[string]*types.Conversation{})
}

func TestGetOrCreate(t *testing.T) {
	s := newTestStore()

	if _, ok := s.Get("s1", "customer"); ok {
		t.Fatal("expected no conversation before first access")
	}

	conv := s.GetOrCreate("s1", "customer")
	if conv == nil {
		t.Fatal("GetOrCreate returned nil")
	}
	if conv.Messages == nil || conv.SequenceProgress == nil {
		t.Error("new conversation should have initialized maps and slices")
	}

	again := s.GetOrCreate("s1", "customer")
	if again != conv {
		t.Error("GetOrCreate should return the same conversation on repeat access")
	}
}

func TestAppendAndSetMessageText(t *testing.T) {
	s := newTestStore()

	s.Append("s1", "customer", types.Message{
		ID: "m1", From: types.SpeakerUser, Text: "hello", Time: time.Now(),
	})
	s.Append("s1", "customer", types.Message{
		ID: "m2", From: types.SpeakerPersona, Text: "…", Pending: true,
	})

	if !s.SetMessageText("s1", "customer", "m2", "actual reply") {
		t.Fatal("SetMessageText should find m2")
	}

	conv, _ := s.Get("s1", "customer")
	if got := conv.Messages[1].Text; got != "actual reply" {
		t.Errorf("message text = %q, want %q", got, "actual reply")
	}
	if conv.Messages[1].Pending {
		t.Error("pending flag should be cleared on overwrite")
	}
	if conv.Messages[0].Text != "hello" {
		t.Error("other messages must be untouched")
	}
}

func TestSetMessageTextStale(t *testing.T) {
	s := newTestStore()

	// Conversation never created: stale resolution is a silent no-op.
	if s.SetMessageText("s1", "customer", "m1", "late") {
		t.Error("missing conversation should return false")
	}

	s.Append("s1", "customer", types.Message{ID: "m1", Text: "hi"})
	if s.SetMessageText("s1", "customer", "gone", "late") {
		t.Error("missing message ID should return false")
	}
}

func TestUnreadCounters(t *testing.T) {
	s := newTestStore()

	if s.Unread("s1", "customer") != 0 {
		t.Error("unread should be 0 for a missing conversation")
	}

	s.BumpUnread("s1", "customer")
	s.BumpUnread("s1", "customer")
	if got := s.Unread("s1", "customer"); got != 2 {
		t.Errorf("unread = %d, want 2", got)
	}

	s.MarkRead("s1", "customer")
	if got := s.Unread("s1", "customer"); got != 0 {
		t.Errorf("unread after MarkRead = %d, want 0", got)
	}
}

func TestTopicMemory(t *testing.T) {
	s := newTestStore()

	if s.LastTopic("s1", "customer") != "" {
		t.Error("last topic should start empty")
	}

	s.RecordTopic("s1", "customer", "refund")
	if got := s.LastTopic("s1", "customer"); got != "refund" {
		t.Errorf("last topic = %q, want refund", got)
	}

	s.RecordTopic("s1", "customer", "status")
	if got := s.LastTopic("s1", "customer"); got != "status" {
		t.Errorf("last topic = %q, want status (overwritten)", got)
	}
}

func TestBumpSequenceBounded(t *testing.T) {
	s := newTestStore()

	// Three steps: counter advances 0→1→2→3, then stays at the bound.
	for want := 0; want < 3; want++ {
		if got := s.BumpSequence("s1", "coach", types.RolePO, 3); got != want {
			t.Errorf("bump %d returned %d, want %d", want, got, want)
		}
	}

	for i := 0; i < 5; i++ {
		if got := s.BumpSequence("s1", "coach", types.RolePO, 3); got != 3 {
			t.Errorf("bump past bound returned %d, want 3", got)
		}
	}
	if got := s.SequenceCount("s1", "coach", types.RolePO); got != 3 {
		t.Errorf("sequence count = %d, want 3", got)
	}
}

func TestSequenceCountersIndependentPerKey(t *testing.T) {
	s := newTestStore()

	s.BumpSequence("s1", "coach", types.RolePO, 4)
	s.BumpSequence("s1", "coach", types.RolePO, 4)
	s.BumpSequence("s1", "coach", types.RoleDev, 3)

	if got := s.SequenceCount("s1", "coach", types.RolePO); got != 2 {
		t.Errorf("po count = %d, want 2", got)
	}
	if got := s.SequenceCount("s1", "coach", types.RoleDev); got != 1 {
		t.Errorf("dev count = %d, want 1", got)
	}
	if got := s.SequenceCount("s1", "coach", types.RoleTester); got != 0 {
		t.Errorf("tester count = %d, want 0", got)
	}
}
