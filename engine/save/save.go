// Package save implements JSON serialization and deserialization of the
// whole simulation state tree as one blob.
package save

import (
	"encoding/json"

	"github.com/sprintlab/sprintlab/types"
)

// FormatVersion is bumped when the save layout changes incompatibly.
const FormatVersion = 1

// SaveData is the JSON-serializable save format.
type SaveData struct {
	Version     int                                           `json:"version"`
	User        types.User                                    `json:"user"`
	Chats       map[string]map[string]*types.Conversation     `json:"chats"`
	Roles       map[string][]types.RoleSlot                   `json:"roles"`
	Workspace   map[string]map[string]map[string]bool         `json:"workspace"`
	BacklogUI   map[string]types.BacklogFilters               `json:"backlog_ui"`
	Activity    map[string]types.Activity                     `json:"activity"`
	Reflections map[string]string                             `json:"reflections"`
}

// Save serializes the state tree to JSON bytes.
func Save(sim *types.Sim) ([]byte, error) {
	data := SaveData{
		Version:     FormatVersion,
		User:        sim.User,
		Chats:       sim.Chats,
		Roles:       sim.Roles,
		Workspace:   sim.Workspace,
		BacklogUI:   sim.BacklogUI,
		Activity:    sim.Activity,
		Reflections: sim.Reflections,
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	// Ensure maps are never nil after load.
	if sd.Chats == nil {
		sd.Chats = map[string]map[string]*types.Conversation{}
	}
	for _, byPersona := range sd.Chats {
		for _, conv := range byPersona {
			if conv.Messages == nil {
				conv.Messages = []types.Message{}
			}
			if conv.SequenceProgress == nil {
				conv.SequenceProgress = map[types.RoleKey]int{}
			}
		}
	}
	if sd.Roles == nil {
		sd.Roles = map[string][]types.RoleSlot{}
	}
	if sd.Workspace == nil {
		sd.Workspace = map[string]map[string]map[string]bool{}
	}
	if sd.BacklogUI == nil {
		sd.BacklogUI = map[string]types.BacklogFilters{}
	}
	if sd.Activity == nil {
		sd.Activity = map[string]types.Activity{}
	}
	if sd.Reflections == nil {
		sd.Reflections = map[string]string{}
	}
	return &sd, nil
}

// Apply applies loaded save data onto a state tree.
func Apply(sim *types.Sim, sd *SaveData) {
	sim.User = sd.User
	sim.Chats = sd.Chats
	sim.Roles = sd.Roles
	sim.Workspace = sd.Workspace
	sim.BacklogUI = sd.BacklogUI
	sim.Activity = sd.Activity
	sim.Reflections = sd.Reflections
}
