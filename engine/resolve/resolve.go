// Package resolve implements the reply resolver: given a persona's rule set,
// the asking user's role, and the conversation state, it deterministically
// produces exactly one reply per user message.
package resolve

import (
	"errors"
	"strings"

	"github.com/sprintlab/sprintlab/engine/convo"
	"github.com/sprintlab/sprintlab/engine/script"
	"github.com/sprintlab/sprintlab/types"
)

// ErrEmptyText reports a blank user message. The caller is required to
// validate input before invoking the resolver, so this is a contract
// violation, not a user-facing condition.
var ErrEmptyText = errors.New("empty user text")

// ClarifyReply is the fixed reply for personas with no usable script
// configuration and for keyworded personas without a catch-all rule.
const ClarifyReply = "Thanks—could you clarify what you need?"

// Source identifies which branch of the resolution algorithm produced
// a reply.
type Source int

const (
	SourceClarify Source = iota
	SourceRule
	SourceFollowUp
	SourceCatchAll
	SourceSequence
	SourceSequenceFallback
)

// Request carries one user utterance into the resolver.
type Request struct {
	ScenarioID string
	PersonaID  string
	ActingRole string // nominal role label: Student, Professor, PO, BA, Dev, Tester, QA
	Text       string // raw user input, possibly mixed-case with stray whitespace
}

// Reply is the resolver's output.
type Reply struct {
	Text      string
	Topic     string // topic of the matched rule or follow-up, "" if none
	Source    Source
	Augmented bool // true when a role hint was appended
}

// Resolve produces the reply for one user message. Side effects are limited
// to topic and sequence bookkeeping on the conversation store; appending
// messages is the caller's job.
//
// Priority order: sequenced personas consume their per-role script; keyworded
// personas scan rules in declaration order for a case-insensitive substring
// match, then fall back to the last-topic follow-up, then the catch-all rule,
// then the generic clarification.
func Resolve(repo *script.Repository, store *convo.Store, req Request) (Reply, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Reply{}, ErrEmptyText
	}

	set, err := repo.RulesFor(req.ScenarioID, req.PersonaID)
	if err != nil {
		return Reply{}, err
	}

	switch set.Kind {
	case types.RuleSetSequenced:
		return resolveSequenced(store, set, req), nil
	case types.RuleSetKeyworded:
		return resolveKeyworded(repo, store, set, req, text), nil
	default:
		// Persona exists but carries no scripts: degrade gracefully rather
		// than fail, so the UI stays usable with incomplete content.
		return Reply{Text: ClarifyReply, Source: SourceClarify}, nil
	}
}

// resolveSequenced emits the next step of the per-role script, or the fixed
// fallback once exhausted. Sequence replies already encode role perspective,
// so no hint augmentation happens on this path.
func resolveSequenced(store *convo.Store, set types.RuleSet, req Request) Reply {
	key := script.NormalizeRole(req.ActingRole)
	seq, resolvedKey, ok := script.SequenceFor(set, key)
	if !ok {
		return Reply{Text: ClarifyReply, Source: SourceClarify}
	}

	count := store.SequenceCount(req.ScenarioID, req.PersonaID, resolvedKey)
	if count < len(seq.Steps) {
		prev := store.BumpSequence(req.ScenarioID, req.PersonaID, resolvedKey, len(seq.Steps))
		return Reply{Text: seq.Steps[prev], Source: SourceSequence}
	}

	// Exhausted: fixed fallback, idempotent, counter stays at the bound.
	return Reply{Text: seq.Fallback, Source: SourceSequenceFallback}
}

// resolveKeyworded scans rules in declaration order. First trigger containing
// a substring match wins — no scoring, no longest-match preference, no
// tokenization. This is deliberate and load-bearing for reproducibility.
func resolveKeyworded(repo *script.Repository, store *convo.Store,
	set types.RuleSet, req Request, text string) Reply {

	lower := strings.ToLower(text)

	reply := Reply{Source: SourceClarify, Text: ClarifyReply}
	matched := false

	for _, rule := range set.Rules {
		if len(rule.Match) == 0 {
			continue // catch-all is only consulted after everything else
		}
		if containsAny(lower, rule.Match) {
			reply = Reply{Text: rule.Reply, Topic: rule.Topic, Source: SourceRule}
			if rule.Topic != "" {
				store.RecordTopic(req.ScenarioID, req.PersonaID, rule.Topic)
			}
			matched = true
			break
		}
	}

	if !matched {
		reply = keywordFallback(repo, store, set, req)
	}

	return augment(repo, req, reply)
}

// keywordFallback handles the no-match path: last-topic follow-up, then the
// catch-all rule, then the generic clarification.
func keywordFallback(repo *script.Repository, store *convo.Store,
	set types.RuleSet, req Request) Reply {

	if topic := store.LastTopic(req.ScenarioID, req.PersonaID); topic != "" {
		if text, ok := repo.FollowUp(req.ScenarioID, req.PersonaID, topic); ok {
			return Reply{Text: text, Topic: topic, Source: SourceFollowUp}
		}
	}

	for _, rule := range set.Rules {
		if len(rule.Match) == 0 {
			return Reply{Text: rule.Reply, Topic: rule.Topic, Source: SourceCatchAll}
		}
	}

	return Reply{Text: ClarifyReply, Source: SourceClarify}
}

// augment appends the role hint for (role, topic) when one exists. Professors
// read base replies only, and replies without a topic have nothing to key
// the hint table with.
func augment(repo *script.Repository, req Request, reply Reply) Reply {
	if reply.Topic == "" || script.IsProfessor(req.ActingRole) {
		return reply
	}
	role := strings.ToLower(strings.TrimSpace(req.ActingRole))
	if hint, ok := repo.Hint(req.ScenarioID, role, reply.Topic); ok {
		reply.Text = reply.Text + " " + hint
		reply.Augmented = true
	}
	return reply
}

func containsAny(text string, triggers []string) bool {
	for _, trigger := range triggers {
		if strings.Contains(text, trigger) {
			return true
		}
	}
	return false
}
