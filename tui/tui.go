package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sprintlab/sprintlab/engine"
	"github.com/sprintlab/sprintlab/engine/save"
	"github.com/sprintlab/sprintlab/engine/state"
	"github.com/sprintlab/sprintlab/types"
)

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text      string
	isInput   bool // echoed user input
	isSystem  bool // system/meta output
	isPersona bool // persona dialogue
	isPending bool // typing placeholder awaiting its reply
}

// pendingLine remembers where a typing placeholder was rendered so the
// delivered reply can overwrite it in place.
type pendingLine struct {
	index     int
	personaID string
}

// Model is the Bubble Tea model for the SprintLab TUI.
type Model struct {
	engine *engine.Engine
	defs   *state.Defs

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine
	pending  map[string]pendingLine // placeholder ID → rendered line

	persona  string // open persona chat, "" if none
	width    int
	height   int
	ready    bool
	quitting bool
	saveDir  string
}

// sessionMsg carries output lines into the Update loop.
type sessionMsg struct {
	input    string
	lines    []string
	isSystem bool
}

// replyTickMsg fires when a pending reply's typing delay has elapsed.
type replyTickMsg struct {
	placeholderID string
}

// New creates a TUI model wired to the given engine.
func New(eng *engine.Engine, defs *state.Defs) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	home, _ := os.UserHomeDir()
	return Model{
		engine:  eng,
		defs:    defs,
		input:   ti,
		history: NewHistory(100),
		pending: map[string]pendingLine{},
		saveDir: filepath.Join(home, ".sprintlab", "saves"),
	}
}

// Run starts the Bubble Tea program.
func Run(eng *engine.Engine, defs *state.Defs) error {
	m := New(eng, defs)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Init returns the initial command that produces the scenario brief.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialOutput())
}

func (m Model) initialOutput() tea.Cmd {
	return func() tea.Msg {
		var lines []string
		scen := m.defs.Scenarios[m.engine.State.User.SelectedScenario]
		if scen.Title != "" {
			lines = append(lines, scen.Title, scen.Short, "")
		}
		lines = append(lines, "Type /help for commands. /talk <persona> opens a chat.")
		return sessionMsg{lines: lines, isSystem: true}
	}
}

// Update handles messages (key presses, window resize, session output,
// reply delivery ticks).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case sessionMsg:
		m = m.appendOutput(msg)

	case replyTickMsg:
		m = m.deliverReply(msg.placeholderID)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	m.history.Push(input)
	m.history.ResetCursor()

	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		m = m.appendOutput(sessionMsg{input: input, lines: output, isSystem: true})
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	return m.sendChat(input)
}

// sendChat submits free text to the open persona. The user line and a typing
// placeholder render immediately; the reply overwrites the placeholder when
// the delay elapses.
func (m Model) sendChat(text string) (tea.Model, tea.Cmd) {
	if m.persona == "" {
		m = m.appendOutput(sessionMsg{
			lines: []string{"No chat open. Use /talk <persona> first, or /help."}, isSystem: true,
		})
		return m, nil
	}

	scenarioID := m.engine.State.User.SelectedScenario
	placeholderID, err := m.engine.SubmitMessage(scenarioID, m.persona, m.engine.State.User.Role, text)
	if err != nil {
		m = m.appendOutput(sessionMsg{
			lines: []string{fmt.Sprintf("Send failed: %v", err)}, isSystem: true,
		})
		return m, nil
	}

	m.rawLines = append(m.rawLines, rawLine{text: "You: " + text, isInput: true})
	m.pending[placeholderID] = pendingLine{index: len(m.rawLines), personaID: m.persona}
	m.rawLines = append(m.rawLines, rawLine{
		text: m.personaName(m.persona) + " is typing…", isPending: true,
	})
	m.refreshViewport()

	return m, tea.Tick(engine.ReplyDelay, func(time.Time) tea.Msg {
		return replyTickMsg{placeholderID: placeholderID}
	})
}

// deliverReply resolves a pending reply and overwrites its placeholder line.
// Stale deliveries (state reloaded, scenario dropped) just clear the
// bookkeeping.
func (m Model) deliverReply(placeholderID string) Model {
	pl, tracked := m.pending[placeholderID]
	delete(m.pending, placeholderID)

	scenarioID := m.engine.State.User.SelectedScenario
	if !m.engine.ResolvePending(placeholderID) {
		return m
	}
	if m.persona == pl.personaID {
		m.engine.MarkRead(scenarioID, pl.personaID)
	}
	if !tracked || pl.index >= len(m.rawLines) {
		return m
	}

	for _, msg := range m.engine.Messages(scenarioID, pl.personaID) {
		if msg.ID == placeholderID {
			m.rawLines[pl.index] = rawLine{
				text: m.personaName(pl.personaID) + ": " + msg.Text, isPersona: true,
			}
			break
		}
	}
	m.refreshViewport()
	return m
}

// appendOutput adds lines to the stream and refreshes the viewport.
func (m Model) appendOutput(msg sessionMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{text: "> " + msg.input, isInput: true})
	}

	for _, line := range msg.lines {
		m.rawLines = append(m.rawLines, rawLine{text: line, isSystem: msg.isSystem})
	}

	// Blank line separator between commands.
	m.rawLines = append(m.rawLines, rawLine{})

	m.refreshViewport()

	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordWrap(rl.text, width)

		switch {
		case rl.isInput:
			styled = append(styled, styleUserInput.Render(wrapped))
		case rl.isPending:
			styled = append(styled, stylePending.Render(wrapped))
		case rl.isPersona:
			styled = append(styled, stylePersona.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styleSystem.Render(wrapped))
		default:
			styled = append(styled, styleText.Render(wrapped))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wLen := len(word)

		if i == 0 {
			result.WriteString(word)
			lineLen = wLen
			continue
		}

		if lineLen+1+wLen > width {
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wLen
		} else {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wLen
		}
	}

	return result.String()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

func (m Model) personaName(personaID string) string {
	if p, ok := state.Persona(m.defs, m.engine.State.User.SelectedScenario, personaID); ok {
		return p.Name
	}
	return personaID
}

func (m Model) messageSpeaker(personaID string, msg types.Message) string {
	if msg.From == types.SpeakerUser {
		return "You"
	}
	return m.personaName(personaID)
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = strings.Join(parts[1:], " ")
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/help":
		return m.cmdHelp(), false

	case "/overview":
		return m.cmdOverview(), false

	case "/personas":
		return m.cmdPersonas(), false

	case "/talk":
		return m.cmdTalk(arg), false

	case "/close":
		m.persona = ""
		return []string{"Chat closed."}, false

	case "/role":
		return m.cmdRole(arg), false

	case "/roles":
		return m.cmdRoles(), false

	case "/backlog":
		return m.cmdBacklog(), false

	case "/filter":
		return m.cmdFilter(arg), false

	case "/item":
		return m.cmdItem(arg), false

	case "/tasks":
		return m.cmdTasks(), false

	case "/done":
		return m.cmdDone(arg), false

	case "/reflect":
		return m.cmdReflect(arg), false

	case "/class":
		return m.cmdClass(), false

	case "/save":
		return m.cmdSave(arg), false

	case "/load":
		return m.cmdLoad(arg), false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) cmdHelp() []string {
	return []string{
		"Session:",
		"  /save [name]     — Save session (default: quicksave)",
		"  /load [name]     — Load session (default: quicksave)",
		"  /quit            — Exit",
		"",
		"Scenario:",
		"  /overview        — Scenario brief, goals, constraints",
		"  /personas        — List stakeholders and unread counts",
		"  /talk <persona>  — Open a stakeholder chat (then just type)",
		"  /close           — Close the open chat",
		"  /role <name>     — Claim a role: PO, BA, Dev, Tester",
		"  /roles           — Show role assignments",
		"",
		"Work:",
		"  /backlog         — List backlog items",
		"  /filter <f> <v>  — Filter backlog: priority, status, or role",
		"  /item <id>       — Show a backlog item in full",
		"  /tasks           — Show your role's checklist",
		"  /done <id>       — Toggle a checklist task",
		"  /reflect <text>  — Write your reflection",
		"  /class           — Class progress (professor view)",
		"",
		"Navigation: PgUp/PgDn to scroll, Up/Down for input history",
	}
}

func (m *Model) cmdOverview() []string {
	scen := m.defs.Scenarios[m.engine.State.User.SelectedScenario]
	lines := []string{scen.Title, "", scen.Overview}
	if len(scen.Goals) > 0 {
		lines = append(lines, "", "Goals:")
		for _, g := range scen.Goals {
			lines = append(lines, "  - "+g)
		}
	}
	if len(scen.Constraints) > 0 {
		lines = append(lines, "", "Constraints:")
		for _, c := range scen.Constraints {
			lines = append(lines, "  - "+c)
		}
	}
	return lines
}

func (m *Model) cmdPersonas() []string {
	scenarioID := m.engine.State.User.SelectedScenario
	var lines []string
	for _, p := range m.defs.Personas[scenarioID] {
		line := fmt.Sprintf("  %-10s %s — %s", p.ID, p.Name, p.Subtitle)
		if unread := m.engine.Unread(scenarioID, p.ID); unread > 0 {
			line += styleUnread.Render(fmt.Sprintf(" (%d unread)", unread))
		}
		lines = append(lines, line)
	}
	return lines
}

func (m *Model) cmdTalk(personaID string) []string {
	scenarioID := m.engine.State.User.SelectedScenario
	p, ok := state.Persona(m.defs, scenarioID, personaID)
	if !ok {
		return []string{fmt.Sprintf("No persona %q in this scenario. Try /personas.", personaID)}
	}
	m.persona = personaID
	m.engine.MarkRead(scenarioID, personaID)

	lines := []string{fmt.Sprintf("Chatting with %s (%s). Type to send, /close to leave.", p.Name, p.Subtitle)}
	for _, msg := range m.engine.Messages(scenarioID, personaID) {
		lines = append(lines, fmt.Sprintf("%s: %s", m.messageSpeaker(personaID, msg), msg.Text))
	}
	return lines
}

func (m *Model) cmdRole(roleName string) []string {
	if roleName == "" {
		return []string{fmt.Sprintf("Acting role: %s", m.engine.State.User.Role)}
	}
	scenarioID := m.engine.State.User.SelectedScenario
	if state.ClaimRole(m.engine.State, scenarioID, roleName, m.engine.State.User.Name) {
		return []string{fmt.Sprintf("You are now acting as %s.", roleName)}
	}
	return []string{fmt.Sprintf("Role %q is unavailable. Try /roles.", roleName)}
}

func (m *Model) cmdRoles() []string {
	scenarioID := m.engine.State.User.SelectedScenario
	var lines []string
	for _, slot := range m.engine.State.Roles[scenarioID] {
		line := fmt.Sprintf("  %-7s %-17s %s", slot.Name, slot.Label, slot.Status)
		if slot.Person != "" {
			line += " — " + slot.Person
		}
		lines = append(lines, line)
	}
	return lines
}

func (m *Model) cmdBacklog() []string {
	scenarioID := m.engine.State.User.SelectedScenario
	var lines []string
	for _, item := range state.FilteredBacklog(m.defs, m.engine.State, scenarioID) {
		lines = append(lines, fmt.Sprintf("  #%d [%s/%s] %s (%s)",
			item.ID, item.Priority, item.Status, item.Title, strings.Join(item.Roles, ", ")))
	}
	return lines
}

func (m *Model) cmdFilter(arg string) []string {
	scenarioID := m.engine.State.User.SelectedScenario
	filters := m.engine.State.BacklogUI[scenarioID]

	if arg == "" {
		return []string{fmt.Sprintf("Filters: priority=%s status=%s role=%s",
			filters.Priority, filters.Status, filters.Role)}
	}

	parts := strings.Fields(arg)
	if len(parts) != 2 {
		return []string{"Usage: /filter <priority|status|role> <value|All>"}
	}
	switch strings.ToLower(parts[0]) {
	case "priority":
		filters.Priority = parts[1]
	case "status":
		filters.Status = parts[1]
	case "role":
		filters.Role = parts[1]
	default:
		return []string{"Usage: /filter <priority|status|role> <value|All>"}
	}
	m.engine.State.BacklogUI[scenarioID] = filters
	return m.cmdBacklog()
}

func (m *Model) cmdItem(arg string) []string {
	scenarioID := m.engine.State.User.SelectedScenario
	var id int
	if _, err := fmt.Sscanf(arg, "%d", &id); err != nil {
		return []string{"Usage: /item <id>"}
	}
	for _, item := range m.defs.Backlog[scenarioID] {
		if item.ID != id {
			continue
		}
		state.TouchBacklogItem(m.engine.State, scenarioID, id)
		lines := []string{
			fmt.Sprintf("#%d %s — %s / %s", item.ID, item.Title, item.Priority, item.Status),
			item.Story,
			"Acceptance criteria:",
		}
		for _, ac := range item.AC {
			lines = append(lines, "  - "+ac)
		}
		return lines
	}
	return []string{fmt.Sprintf("No backlog item #%d.", id)}
}

func (m *Model) cmdTasks() []string {
	scenarioID := m.engine.State.User.SelectedScenario
	role := m.engine.State.User.Role
	tasks := m.defs.Tasks[scenarioID][role]
	if len(tasks) == 0 {
		return []string{fmt.Sprintf("No checklist for role %s. Claim one with /role.", role)}
	}
	done := m.engine.State.Workspace[scenarioID][role]
	var lines []string
	for _, task := range tasks {
		mark := "[ ]"
		if done[task.ID] {
			mark = "[x]"
		}
		lines = append(lines, fmt.Sprintf("  %s %s  %s", mark, task.ID, task.Text))
	}
	return lines
}

func (m *Model) cmdDone(taskID string) []string {
	if taskID == "" {
		return []string{"Usage: /done <task id>"}
	}
	scenarioID := m.engine.State.User.SelectedScenario
	role := m.engine.State.User.Role
	if state.ToggleTask(m.engine.State, scenarioID, role, taskID) {
		return []string{fmt.Sprintf("Task %s done.", taskID)}
	}
	return []string{fmt.Sprintf("Task %s reopened.", taskID)}
}

func (m *Model) cmdReflect(text string) []string {
	scenarioID := m.engine.State.User.SelectedScenario
	if text == "" {
		current := m.engine.State.Reflections[scenarioID]
		if current == "" {
			return []string{"No reflection yet. /reflect <text> to write one."}
		}
		return []string{current}
	}
	m.engine.State.Reflections[scenarioID] = text
	return []string{"Reflection saved."}
}

func (m *Model) cmdClass() []string {
	scenarioID := m.engine.State.User.SelectedScenario
	rows := m.defs.ClassView[scenarioID]
	if len(rows) == 0 {
		return []string{"No class view for this scenario."}
	}
	var lines []string
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("  %-7s %-7s %-12s chats:%d backlog:%d",
			row.Name, row.Role, row.Status, row.Chats, row.BacklogTouched))
	}
	return lines
}

func (m *Model) cmdSave(name string) []string {
	if name == "" {
		name = "quicksave"
	}

	data, err := m.engine.Snapshot()
	if err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	if err := os.MkdirAll(m.saveDir, 0o755); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	path := filepath.Join(m.saveDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	return []string{fmt.Sprintf("Session saved to %s.", name)}
}

func (m *Model) cmdLoad(name string) []string {
	if name == "" {
		name = "quicksave"
	}

	path := filepath.Join(m.saveDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}

	sd, err := save.Load(data)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}

	m.engine.Restore(sd)
	m.persona = ""
	m.pending = map[string]pendingLine{}
	return []string{fmt.Sprintf("Session loaded from %s.", name)}
}
