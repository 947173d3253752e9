// Package cli provides terminal I/O and meta-command dispatch for the
// SprintLab simulator. Free text goes to the currently open persona chat;
// everything else is a /-prefixed meta command.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sprintlab/sprintlab/engine"
	"github.com/sprintlab/sprintlab/engine/save"
	"github.com/sprintlab/sprintlab/engine/state"
	"github.com/sprintlab/sprintlab/types"
)

// CLI handles terminal interaction with the participant.
type CLI struct {
	Engine    *engine.Engine
	Defs      *state.Defs
	In        io.Reader
	Out       io.Writer
	SaveDir   string
	EchoInput bool   // echo each input line after the prompt (for script playback)
	persona   string // currently open persona chat, "" if none
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine, defs *state.Defs) *CLI {
	home, _ := os.UserHomeDir()
	saveDir := filepath.Join(home, ".sprintlab", "saves")
	return &CLI{
		Engine:  eng,
		Defs:    defs,
		In:      os.Stdin,
		Out:     os.Stdout,
		SaveDir: saveDir,
	}
}

// Run starts the session loop: prompt → input → dispatch → output.
func (c *CLI) Run() {
	scen := c.scenario()
	if scen.Title != "" {
		c.printLine(scen.Title)
		c.printLine(scen.Short)
		c.printLine("")
	}
	c.printSystem("Type /help for commands. /talk <persona> opens a chat.")

	scanner := bufio.NewScanner(c.In)
	for {
		c.print(c.prompt())
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			if c.handleMeta(input) {
				return // /quit
			}
			continue
		}

		c.sendChat(input)
	}
}

// prompt shows the acting role and the open persona.
func (c *CLI) prompt() string {
	role := c.Engine.State.User.Role
	if c.persona == "" {
		return fmt.Sprintf("(%s) > ", role)
	}
	return fmt.Sprintf("(%s → %s) > ", role, c.persona)
}

// sendChat submits free text to the open persona and delivers the reply
// immediately — the plain CLI has no typing delay.
func (c *CLI) sendChat(text string) {
	if c.persona == "" {
		c.printSystem("No chat open. Use /talk <persona> first, or /help.")
		return
	}
	scenarioID := c.Engine.State.User.SelectedScenario
	placeholderID, err := c.Engine.SubmitMessage(scenarioID, c.persona, c.Engine.State.User.Role, text)
	if err != nil {
		c.printSystem(fmt.Sprintf("Send failed: %v", err))
		return
	}
	c.Engine.ResolvePending(placeholderID)
	c.Engine.MarkRead(scenarioID, c.persona)

	messages := c.Engine.Messages(scenarioID, c.persona)
	if len(messages) > 0 {
		last := messages[len(messages)-1]
		name := c.personaName(c.persona)
		c.printLine(fmt.Sprintf("%s: %s", name, last.Text))
	}
}

// handleMeta dispatches meta-commands. Returns true if the session should
// exit.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	arg := ""
	if len(parts) > 1 {
		arg = strings.Join(parts[1:], " ")
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/help":
		c.cmdHelp()

	case "/overview":
		c.cmdOverview()

	case "/personas":
		c.cmdPersonas()

	case "/talk":
		c.cmdTalk(arg)

	case "/close":
		c.persona = ""

	case "/role":
		c.cmdRole(arg)

	case "/roles":
		c.cmdRoles()

	case "/backlog":
		c.cmdBacklog()

	case "/filter":
		c.cmdFilter(arg)

	case "/item":
		c.cmdItem(arg)

	case "/tasks":
		c.cmdTasks()

	case "/done":
		c.cmdDone(arg)

	case "/reflect":
		c.cmdReflect(arg)

	case "/class":
		c.cmdClass()

	case "/save":
		c.cmdSave(arg)

	case "/load":
		c.cmdLoad(arg)

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdHelp() {
	help := []string{
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
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdOverview() {
	scen := c.scenario()
	c.printLine(scen.Title)
	c.printLine("")
	c.printLine(scen.Overview)
	if len(scen.Goals) > 0 {
		c.printLine("")
		c.printLine("Goals:")
		for _, g := range scen.Goals {
			c.printLine("  - " + g)
		}
	}
	if len(scen.Constraints) > 0 {
		c.printLine("")
		c.printLine("Constraints:")
		for _, con := range scen.Constraints {
			c.printLine("  - " + con)
		}
	}
}

func (c *CLI) cmdPersonas() {
	scenarioID := c.Engine.State.User.SelectedScenario
	for _, p := range c.Defs.Personas[scenarioID] {
		line := fmt.Sprintf("  %-10s %s — %s", p.ID, p.Name, p.Subtitle)
		if unread := c.Engine.Unread(scenarioID, p.ID); unread > 0 {
			line += fmt.Sprintf(" (%d unread)", unread)
		}
		c.printLine(line)
	}
}

func (c *CLI) cmdTalk(personaID string) {
	scenarioID := c.Engine.State.User.SelectedScenario
	if _, ok := state.Persona(c.Defs, scenarioID, personaID); !ok {
		c.printSystem(fmt.Sprintf("No persona %q in this scenario. Try /personas.", personaID))
		return
	}
	c.persona = personaID
	c.Engine.MarkRead(scenarioID, personaID)

	p, _ := state.Persona(c.Defs, scenarioID, personaID)
	c.printSystem(fmt.Sprintf("Chatting with %s (%s). Type to send, /close to leave.", p.Name, p.Subtitle))
	for _, msg := range c.Engine.Messages(scenarioID, personaID) {
		speaker := "You"
		if msg.From == types.SpeakerPersona {
			speaker = p.Name
		}
		c.printLine(fmt.Sprintf("%s: %s", speaker, msg.Text))
	}
}

func (c *CLI) cmdRole(roleName string) {
	if roleName == "" {
		c.printSystem(fmt.Sprintf("Acting role: %s", c.Engine.State.User.Role))
		return
	}
	scenarioID := c.Engine.State.User.SelectedScenario
	if state.ClaimRole(c.Engine.State, scenarioID, roleName, c.Engine.State.User.Name) {
		c.printSystem(fmt.Sprintf("You are now acting as %s.", roleName))
	} else {
		c.printSystem(fmt.Sprintf("Role %q is unavailable. Try /roles.", roleName))
	}
}

func (c *CLI) cmdRoles() {
	scenarioID := c.Engine.State.User.SelectedScenario
	for _, slot := range c.Engine.State.Roles[scenarioID] {
		line := fmt.Sprintf("  %-7s %-17s %s", slot.Name, slot.Label, slot.Status)
		if slot.Person != "" {
			line += " — " + slot.Person
		}
		c.printLine(line)
	}
}

func (c *CLI) cmdBacklog() {
	scenarioID := c.Engine.State.User.SelectedScenario
	items := state.FilteredBacklog(c.Defs, c.Engine.State, scenarioID)
	for _, item := range items {
		c.printLine(fmt.Sprintf("  #%d [%s/%s] %s (%s)",
			item.ID, item.Priority, item.Status, item.Title, strings.Join(item.Roles, ", ")))
	}
}

func (c *CLI) cmdFilter(arg string) {
	scenarioID := c.Engine.State.User.SelectedScenario
	filters := c.Engine.State.BacklogUI[scenarioID]

	if arg == "" {
		c.printSystem(fmt.Sprintf("Filters: priority=%s status=%s role=%s",
			filters.Priority, filters.Status, filters.Role))
		return
	}

	parts := strings.Fields(arg)
	if len(parts) != 2 {
		c.printSystem("Usage: /filter <priority|status|role> <value|All>")
		return
	}
	switch strings.ToLower(parts[0]) {
	case "priority":
		filters.Priority = parts[1]
	case "status":
		filters.Status = parts[1]
	case "role":
		filters.Role = parts[1]
	default:
		c.printSystem("Usage: /filter <priority|status|role> <value|All>")
		return
	}
	c.Engine.State.BacklogUI[scenarioID] = filters
	c.cmdBacklog()
}

func (c *CLI) cmdItem(arg string) {
	scenarioID := c.Engine.State.User.SelectedScenario
	var id int
	if _, err := fmt.Sscanf(arg, "%d", &id); err != nil {
		c.printSystem("Usage: /item <id>")
		return
	}
	for _, item := range c.Defs.Backlog[scenarioID] {
		if item.ID != id {
			continue
		}
		state.TouchBacklogItem(c.Engine.State, scenarioID, id)
		c.printLine(fmt.Sprintf("#%d %s — %s / %s", item.ID, item.Title, item.Priority, item.Status))
		c.printLine(item.Story)
		c.printLine("Acceptance criteria:")
		for _, ac := range item.AC {
			c.printLine("  - " + ac)
		}
		return
	}
	c.printSystem(fmt.Sprintf("No backlog item #%d.", id))
}

func (c *CLI) cmdTasks() {
	scenarioID := c.Engine.State.User.SelectedScenario
	role := c.Engine.State.User.Role
	tasks := c.Defs.Tasks[scenarioID][role]
	if len(tasks) == 0 {
		c.printSystem(fmt.Sprintf("No checklist for role %s. Claim one with /role.", role))
		return
	}
	done := c.Engine.State.Workspace[scenarioID][role]
	for _, task := range tasks {
		mark := "[ ]"
		if done[task.ID] {
			mark = "[x]"
		}
		c.printLine(fmt.Sprintf("  %s %s  %s", mark, task.ID, task.Text))
	}
}

func (c *CLI) cmdDone(taskID string) {
	scenarioID := c.Engine.State.User.SelectedScenario
	role := c.Engine.State.User.Role
	if taskID == "" {
		c.printSystem("Usage: /done <task id>")
		return
	}
	if state.ToggleTask(c.Engine.State, scenarioID, role, taskID) {
		c.printSystem(fmt.Sprintf("Task %s done.", taskID))
	} else {
		c.printSystem(fmt.Sprintf("Task %s reopened.", taskID))
	}
}

func (c *CLI) cmdReflect(text string) {
	scenarioID := c.Engine.State.User.SelectedScenario
	if text == "" {
		current := c.Engine.State.Reflections[scenarioID]
		if current == "" {
			c.printSystem("No reflection yet. /reflect <text> to write one.")
		} else {
			c.printLine(current)
		}
		return
	}
	c.Engine.State.Reflections[scenarioID] = text
	c.printSystem("Reflection saved.")
}

func (c *CLI) cmdClass() {
	scenarioID := c.Engine.State.User.SelectedScenario
	rows := c.Defs.ClassView[scenarioID]
	if len(rows) == 0 {
		c.printSystem("No class view for this scenario.")
		return
	}
	for _, row := range rows {
		c.printLine(fmt.Sprintf("  %-7s %-7s %-12s chats:%d backlog:%d",
			row.Name, row.Role, row.Status, row.Chats, row.BacklogTouched))
	}
}

func (c *CLI) cmdSave(name string) {
	if name == "" {
		name = "quicksave"
	}

	data, err := c.Engine.Snapshot()
	if err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	if err := os.MkdirAll(c.SaveDir, 0o755); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	path := filepath.Join(c.SaveDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	c.printSystem(fmt.Sprintf("Session saved to %s.", name))
}

func (c *CLI) cmdLoad(name string) {
	if name == "" {
		name = "quicksave"
	}

	path := filepath.Join(c.SaveDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}

	sd, err := save.Load(data)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}

	c.Engine.Restore(sd)
	c.persona = ""
	c.printSystem(fmt.Sprintf("Session loaded from %s.", name))
}

func (c *CLI) scenario() types.ScenarioDef {
	return c.Defs.Scenarios[c.Engine.State.User.SelectedScenario]
}

func (c *CLI) personaName(personaID string) string {
	if p, ok := state.Persona(c.Defs, c.Engine.State.User.SelectedScenario, personaID); ok {
		return p.Name
	}
	return personaID
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
