// Package convo owns the per-(scenario, persona) conversation state: message
// history, unread counts, sequence progress, and topic memory. The store is a
// view over the simulation state tree's chat slice, so saving the tree
// persists everything here.
package convo

import (
	"github.com/sprintlab/sprintlab/types"
)

// Store provides read-modify-write access to conversations. It is not safe
// for concurrent use; the engine serializes writers per conversation.
type Store struct {
	chats map[string]map[string]*types.Conversation
}

// NewStore wraps the state tree's chat map. The map is shared, not copied.
func NewStore(chats map[string]map[string]*types.Conversation) *Store {
	return &Store{chats: chats}
}

// GetOrCreate returns the conversation for (scenario, persona), lazily
// creating an empty one on first access.
func (s *Store) GetOrCreate(scenarioID, personaID string) *types.Conversation {
	if s.chats[scenarioID] == nil {
		s.chats[scenarioID] = map[string]*types.Conversation{}
	}
	conv, ok := s.chats[scenarioID][personaID]
	if !ok {
		conv = &types.Conversation{
			Messages:         []types.Message{},
			SequenceProgress: map[types.RoleKey]int{},
		}
		s.chats[scenarioID][personaID] = conv
	}
	return conv
}

// Get returns an existing conversation without creating one.
func (s *Store) Get(scenarioID, personaID string) (*types.Conversation, bool) {
	conv, ok := s.chats[scenarioID][personaID]
	return conv, ok
}

// Append adds a message to the conversation. Messages are append-only and
// chronological; nothing here reorders or removes them.
func (s *Store) Append(scenarioID, personaID string, msg types.Message) {
	conv := s.GetOrCreate(scenarioID, personaID)
	conv.Messages = append(conv.Messages, msg)
}

// SetMessageText overwrites a message's text by its stable ID and clears its
// pending flag. Returns false without side effects when the conversation or
// message no longer exists, so stale delayed resolutions are no-ops.
func (s *Store) SetMessageText(scenarioID, personaID, messageID, text string) bool {
	conv, ok := s.Get(scenarioID, personaID)
	if !ok {
		return false
	}
	for i := range conv.Messages {
		if conv.Messages[i].ID == messageID {
			conv.Messages[i].Text = text
			conv.Messages[i].Pending = false
			return true
		}
	}
	return false
}

// MarkRead zeroes the unread counter. Messages are untouched.
func (s *Store) MarkRead(scenarioID, personaID string) {
	if conv, ok := s.Get(scenarioID, personaID); ok {
		conv.Unread = 0
	}
}

// BumpUnread increments the unread counter.
func (s *Store) BumpUnread(scenarioID, personaID string) {
	conv := s.GetOrCreate(scenarioID, personaID)
	conv.Unread++
}

// Unread returns the unread count without creating a conversation.
func (s *Store) Unread(scenarioID, personaID string) int {
	if conv, ok := s.Get(scenarioID, personaID); ok {
		return conv.Unread
	}
	return 0
}

// RecordTopic overwrites the conversation's last matched topic.
func (s *Store) RecordTopic(scenarioID, personaID, topic string) {
	conv := s.GetOrCreate(scenarioID, personaID)
	conv.LastTopic = topic
}

// LastTopic returns the most recently recorded topic, or "" if none.
func (s *Store) LastTopic(scenarioID, personaID string) string {
	if conv, ok := s.Get(scenarioID, personaID); ok {
		return conv.LastTopic
	}
	return ""
}

// SequenceCount returns the number of sequence replies already issued for
// the given sequence key.
func (s *Store) SequenceCount(scenarioID, personaID string, key types.RoleKey) int {
	if conv, ok := s.Get(scenarioID, personaID); ok {
		return conv.SequenceProgress[key]
	}
	return 0
}

// BumpSequence increments the sequence counter for key, bounded above by
// limit, and returns the count before incrementing. The pre-increment value
// is what the resolver indexes the sequence with; once the counter reaches
// the limit further calls return it unchanged.
func (s *Store) BumpSequence(scenarioID, personaID string, key types.RoleKey, limit int) int {
	conv := s.GetOrCreate(scenarioID, personaID)
	if conv.SequenceProgress == nil {
		conv.SequenceProgress = map[types.RoleKey]int{}
	}
	prev := conv.SequenceProgress[key]
	if prev < limit {
		conv.SequenceProgress[key] = prev + 1
	}
	return prev
}
