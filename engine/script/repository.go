// Package script holds the immutable reply-script tables and role-name
// normalization. The repository is an explicit value injected into the
// resolver, never an ambient singleton, so tests can substitute fixtures.
package script

import (
	"errors"
	"fmt"

	"github.com/sprintlab/sprintlab/engine/state"
	"github.com/sprintlab/sprintlab/types"
)

// ErrUnknownPersona reports a persona the repository has no entry for.
// The caller must have validated persona existence against the scenario's
// persona list, so hitting this is a caller-side bug.
var ErrUnknownPersona = errors.New("unknown persona")

// Repository maps (scenario, persona) to reply behavior, plus the follow-up
// and role-hint tables that augment keyworded replies.
type Repository struct {
	scripts   map[string]map[string]types.RuleSet
	followUps map[string]map[string]map[string]string
	hints     map[string]map[string]map[string]string
	personas  map[string][]types.PersonaDef
}

// NewRepository builds a repository over compiled scenario definitions.
func NewRepository(defs *state.Defs) *Repository {
	return &Repository{
		scripts:   defs.Scripts,
		followUps: defs.FollowUps,
		hints:     defs.Hints,
		personas:  defs.Personas,
	}
}

// HasPersona reports whether the scenario lists this persona.
func (r *Repository) HasPersona(scenarioID, personaID string) bool {
	for _, p := range r.personas[scenarioID] {
		if p.ID == personaID {
			return true
		}
	}
	return false
}

// RulesFor returns the persona's rule set. A persona that exists in the
// scenario but has no scripts returns an empty rule set and no error; the
// resolver degrades that to its clarification reply.
func (r *Repository) RulesFor(scenarioID, personaID string) (types.RuleSet, error) {
	if !r.HasPersona(scenarioID, personaID) {
		return types.RuleSet{}, fmt.Errorf("%w: %s/%s", ErrUnknownPersona, scenarioID, personaID)
	}
	set, ok := r.scripts[scenarioID][personaID]
	if !ok {
		return types.RuleSet{Kind: types.RuleSetEmpty}, nil
	}
	return set, nil
}

// FollowUp returns the persona's follow-up reply for a topic, if one exists.
func (r *Repository) FollowUp(scenarioID, personaID, topic string) (string, bool) {
	reply, ok := r.followUps[scenarioID][personaID][topic]
	return reply, ok
}

// Hint returns the hint sentence for a (role, topic) pair, if one exists.
// Role is matched by its lowercase label.
func (r *Repository) Hint(scenarioID, role, topic string) (string, bool) {
	hint, ok := r.hints[scenarioID][role][topic]
	return hint, ok
}

// SequenceFor resolves a normalized role key against a sequenced rule set.
// Lookup order: the key itself, then the PO entry, then the "default" entry.
// The returned key is the one the sequence was found under — progress
// counters are keyed by it, so aliases that land on the same entry share
// one counter.
func SequenceFor(set types.RuleSet, key types.RoleKey) (types.RoleSequence, types.RoleKey, bool) {
	if seq, ok := set.Sequences[key]; ok {
		return seq, key, true
	}
	if seq, ok := set.Sequences[types.RolePO]; ok {
		return seq, types.RolePO, true
	}
	if seq, ok := set.Sequences[types.RoleDefault]; ok {
		return seq, types.RoleDefault, true
	}
	return types.RoleSequence{}, "", false
}
