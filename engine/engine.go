// Package engine orchestrates message submission and delayed reply delivery
// over the script repository, the conversation store, and the resolver.
package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sprintlab/sprintlab/engine/convo"
	"github.com/sprintlab/sprintlab/engine/resolve"
	"github.com/sprintlab/sprintlab/engine/save"
	"github.com/sprintlab/sprintlab/engine/script"
	"github.com/sprintlab/sprintlab/engine/state"
	"github.com/sprintlab/sprintlab/types"
)

// ErrReplyPending reports a second send into a conversation whose previous
// reply has not been delivered yet. Sends are serialized per conversation;
// the host must wait or queue.
var ErrReplyPending = errors.New("reply pending for this conversation")

// TypingPlaceholder is the text of the provisional persona message shown
// while the reply delay runs.
const TypingPlaceholder = "…"

// ReplyDelay is how long the host should wait before delivering a reply.
// The engine itself never sleeps; the host's timer calls ResolvePending.
const ReplyDelay = 900 * time.Millisecond

// pendingReply parks a resolved reply until the host's timer delivers it.
type pendingReply struct {
	scenarioID string
	personaID  string
	text       string
}

// Engine wires the immutable definitions, the mutable state tree, and the
// dialogue components together. It is single-threaded by design: one
// submission runs to completion before the next.
type Engine struct {
	Defs  *state.Defs
	State *types.Sim
	Repo  *script.Repository
	Store *convo.Store

	pending       map[string]pendingReply // placeholder ID → parked reply
	pendingByConv map[string]string       // scenario/persona → placeholder ID
}

// New creates an engine with a fresh state tree.
func New(defs *state.Defs) *Engine {
	sim := state.NewSim(defs)
	return &Engine{
		Defs:          defs,
		State:         sim,
		Repo:          script.NewRepository(defs),
		Store:         convo.NewStore(sim.Chats),
		pending:       map[string]pendingReply{},
		pendingByConv: map[string]string{},
	}
}

// SubmitMessage appends the user's message and a pending placeholder reply,
// resolves the actual reply text, and parks it under the placeholder's ID.
// The host delivers it later via ResolvePending. Returns the placeholder ID.
func (e *Engine) SubmitMessage(scenarioID, personaID, actingRole, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", resolve.ErrEmptyText
	}
	if !e.Repo.HasPersona(scenarioID, personaID) {
		return "", fmt.Errorf("%w: %s/%s", script.ErrUnknownPersona, scenarioID, personaID)
	}
	convKey := scenarioID + "/" + personaID
	if _, busy := e.pendingByConv[convKey]; busy {
		return "", ErrReplyPending
	}

	reply, err := resolve.Resolve(e.Repo, e.Store, resolve.Request{
		ScenarioID: scenarioID,
		PersonaID:  personaID,
		ActingRole: actingRole,
		Text:       text,
	})
	if err != nil {
		return "", err
	}

	now := time.Now()
	e.Store.Append(scenarioID, personaID, types.Message{
		ID:   uuid.NewString(),
		From: types.SpeakerUser,
		Text: text,
		Time: now,
	})

	placeholderID := uuid.NewString()
	e.Store.Append(scenarioID, personaID, types.Message{
		ID:      placeholderID,
		From:    types.SpeakerPersona,
		Text:    TypingPlaceholder,
		Time:    now,
		Pending: true,
	})

	e.pending[placeholderID] = pendingReply{scenarioID: scenarioID, personaID: personaID, text: reply.Text}
	e.pendingByConv[convKey] = placeholderID
	return placeholderID, nil
}

// ResolvePending overwrites the placeholder with its parked reply text and
// updates unread and activity counters. Unknown or stale IDs (conversation
// reset or scenario dropped since submission) return false with no other
// effect.
func (e *Engine) ResolvePending(placeholderID string) bool {
	p, ok := e.pending[placeholderID]
	if !ok {
		return false
	}
	delete(e.pending, placeholderID)
	delete(e.pendingByConv, p.scenarioID+"/"+p.personaID)

	if !e.Store.SetMessageText(p.scenarioID, p.personaID, placeholderID, p.text) {
		return false // conversation or message gone: silently dropped
	}
	e.Store.BumpUnread(p.scenarioID, p.personaID)
	state.BumpChatCount(e.State, p.scenarioID)
	return true
}

// HasPendingReply reports whether a reply is awaiting delivery for the
// conversation.
func (e *Engine) HasPendingReply(scenarioID, personaID string) bool {
	_, ok := e.pendingByConv[scenarioID+"/"+personaID]
	return ok
}

// Messages returns the conversation history, oldest first.
func (e *Engine) Messages(scenarioID, personaID string) []types.Message {
	if conv, ok := e.Store.Get(scenarioID, personaID); ok {
		return conv.Messages
	}
	return nil
}

// Unread returns the unread count for a conversation.
func (e *Engine) Unread(scenarioID, personaID string) int {
	return e.Store.Unread(scenarioID, personaID)
}

// MarkRead zeroes the unread counter, as when the user opens the chat.
func (e *Engine) MarkRead(scenarioID, personaID string) {
	e.Store.MarkRead(scenarioID, personaID)
}

// DropScenario discards all state for a scenario. Parked replies for its
// conversations become stale and are dropped when their timer fires.
func (e *Engine) DropScenario(scenarioID string) {
	state.DropScenario(e.State, scenarioID)
}

// Snapshot serializes the current state tree.
func (e *Engine) Snapshot() ([]byte, error) {
	return save.Save(e.State)
}

// Restore replaces the state tree with loaded save data. The conversation
// store is rebound to the new chat map and all parked replies are discarded —
// they reference conversations from the previous tree.
func (e *Engine) Restore(sd *save.SaveData) {
	save.Apply(e.State, sd)
	e.Store = convo.NewStore(e.State.Chats)
	e.pending = map[string]pendingReply{}
	e.pendingByConv = map[string]string{}
}
