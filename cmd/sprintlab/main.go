// SprintLab is a scripted product-management role-play simulator for the
// classroom.
// Usage: sprintlab [--version] [--plain] [--script <file>] [--state <file>] <scenario_directory>
package main

import (
	"fmt"
	"os"

	"github.com/sprintlab/sprintlab/cli"
	"github.com/sprintlab/sprintlab/engine"
	"github.com/sprintlab/sprintlab/engine/save"
	"github.com/sprintlab/sprintlab/loader"
	"github.com/sprintlab/sprintlab/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	plain := false
	var scenarioDir string
	var scriptFile string
	var stateFile string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("sprintlab %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--script":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--script requires a file path\n")
				os.Exit(1)
			}
			i++
			scriptFile = args[i]
		case "--state":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--state requires a file path\n")
				os.Exit(1)
			}
			i++
			stateFile = args[i]
		default:
			if scenarioDir == "" {
				scenarioDir = args[i]
			}
		}
	}

	if scenarioDir == "" {
		fmt.Fprintf(os.Stderr, "Usage: sprintlab [--version] [--plain] [--script <file>] [--state <file>] <scenario_directory>\n")
		os.Exit(1)
	}

	// Load and compile Lua scenario content.
	defs, err := loader.Load(scenarioDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scenarios: %v\n", err)
		os.Exit(1)
	}

	eng := engine.New(defs)

	// Resume from a saved session if requested.
	if stateFile != "" {
		data, err := os.ReadFile(stateFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading state: %v\n", err)
			os.Exit(1)
		}
		sd, err := save.Load(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading state: %v\n", err)
			os.Exit(1)
		}
		eng.Restore(sd)
	}

	// Script mode: open file, force plain, echo commands.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		c := cli.New(eng, defs)
		c.In = f
		c.EchoInput = true
		c.Run()
		return
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if plain || !isTerminal() {
		c := cli.New(eng, defs)
		c.Run()
		return
	}

	if err := tui.Run(eng, defs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
