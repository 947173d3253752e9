package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sprintlab/sprintlab/engine/state"
)

// renderStatusBar produces a full-width inverted status line showing the
// scenario, the acting role, the open chat, and total unread messages.
func (m Model) renderStatusBar() string {
	scenarioID := m.engine.State.User.SelectedScenario
	scen := m.defs.Scenarios[scenarioID]

	title := scen.Title
	if title == "" {
		title = "No scenario"
	}

	left := fmt.Sprintf(" %s | Role: %s", title, m.engine.State.User.Role)
	if m.persona != "" {
		if p, ok := state.Persona(m.defs, scenarioID, m.persona); ok {
			left += " | Chat: " + p.Name
		}
	}

	unread := 0
	for _, p := range m.defs.Personas[scenarioID] {
		unread += m.engine.Unread(scenarioID, p.ID)
	}
	right := ""
	if unread > 0 {
		right = fmt.Sprintf("Unread: %d ", unread)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
