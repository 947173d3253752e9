// Package types defines the shared data structures for the SprintLab engine.
// This package contains only type definitions — no logic, no methods.
package types

import "time"

// Speaker identifies who authored a chat message.
type Speaker string

const (
	SpeakerUser    Speaker = "user"
	SpeakerPersona Speaker = "persona"
)

// RoleKey is a normalized sequence-role key used for sequence lookups and
// progress counters. Nominal role labels (BA, Professor, QA, ...) are
// normalized to one of these before any sequence access.
type RoleKey string

const (
	RolePO      RoleKey = "po"
	RoleDev     RoleKey = "dev"
	RoleTester  RoleKey = "tester"
	RoleDefault RoleKey = "default"
)

// Message is a single chat entry. ID is stable for the lifetime of the
// message so a pending placeholder can be overwritten later by identity,
// never by position.
type Message struct {
	ID      string    `json:"id"`
	From    Speaker   `json:"from"`
	Text    string    `json:"text"`
	Time    time.Time `json:"time"`
	Pending bool      `json:"pending,omitempty"`
}

// Conversation is the mutable per-(scenario, persona) chat state.
type Conversation struct {
	Messages         []Message       `json:"messages"`
	Unread           int             `json:"unread"`
	SequenceProgress map[RoleKey]int `json:"sequence_progress"`
	LastTopic        string          `json:"last_topic,omitempty"`
}

// PersonaDef is a scripted stakeholder's immutable identity and display data.
// Goals, pains, and needs are shown on the persona card; none of them
// participate in reply matching.
type PersonaDef struct {
	ID       string
	Name     string
	Subtitle string
	Bio      string
	Goals    []string
	Pains    []string
	Needs    []string
}

// ScriptRule is one keyword-matched reply rule. An empty Match list marks the
// persona's catch-all, which must be the last rule considered.
type ScriptRule struct {
	Match []string // lowercase triggers, substring-matched against user text
	Topic string   // optional tag driving follow-up replies
	Reply string
}

// RoleSequence is an ordered per-role script consumed one step per message,
// with a fixed fallback once exhausted.
type RoleSequence struct {
	Steps    []string
	Fallback string
}

// RuleSetKind tags the two rule representations.
type RuleSetKind int

const (
	RuleSetEmpty RuleSetKind = iota
	RuleSetKeyworded
	RuleSetSequenced
)

// RuleSet is a persona's complete reply behavior, decided once at load time.
// Exactly one of Rules/Sequences is populated depending on Kind.
type RuleSet struct {
	Kind      RuleSetKind
	Rules     []ScriptRule
	Sequences map[RoleKey]RoleSequence
}

// BacklogItem is one static backlog entry for a scenario.
type BacklogItem struct {
	ID       int
	Title    string
	Roles    []string
	Priority string
	Status   string
	Story    string
	AC       []string
}

// TaskDef is one workspace checklist entry for a role.
type TaskDef struct {
	ID   string
	Text string
}

// ClassGroup is one row of the professor's static class view.
type ClassGroup struct {
	Name           string
	Role           string
	Status         string
	Chats          int
	BacklogTouched int
}

// ScenarioDef is a catalog entry. Inactive entries are "coming soon" stubs
// with no personas or backlog.
type ScenarioDef struct {
	ID              string
	Title           string
	Short           string
	Status          string
	Active          bool
	Overview        string
	Goals           []string
	Constraints     []string
	SuccessCriteria []string
}

// RoleSlot is one claimable role in a scenario.
type RoleSlot struct {
	Name   string `json:"name"`  // PO, BA, Dev, Tester
	Label  string `json:"label"` // Product Owner, ...
	Status string `json:"status"`
	Person string `json:"person,omitempty"`
}

// BacklogFilters holds the backlog screen's filter selections.
// "All" (the zero default) disables a filter.
type BacklogFilters struct {
	Priority string `json:"priority"`
	Status   string `json:"status"`
	Role     string `json:"role"`
}

// Activity tracks lightweight per-scenario engagement counters.
type Activity struct {
	BacklogTouched []int `json:"backlog_touched"`
	ChatCount      int   `json:"chat_count"`
}

// User is the current participant.
type User struct {
	Name             string `json:"name"`
	Kind             string `json:"kind"` // student | professor
	Role             string `json:"role"` // Student | PO | BA | Dev | Tester | QA | Professor
	SelectedScenario string `json:"selected_scenario"`
}

// Sim is the complete mutable application state tree. The host persists it as
// one JSON blob.
type Sim struct {
	User        User                                  `json:"user"`
	Chats       map[string]map[string]*Conversation   `json:"chats"` // scenario → persona → conversation
	Roles       map[string][]RoleSlot                 `json:"roles"`
	Workspace   map[string]map[string]map[string]bool `json:"workspace"` // scenario → role → task → done
	BacklogUI   map[string]BacklogFilters             `json:"backlog_ui"`
	Activity    map[string]Activity                   `json:"activity"`
	Reflections map[string]string                     `json:"reflections"`
}
