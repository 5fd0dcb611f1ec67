package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v3"
)

// replCommand is an interactive shell over the built-in demos, grounded on
// hey's cmd/hey interactive-shell mode (its own `-a` flag) but built on
// chzyer/readline instead of hey's bufio fallback - hey's go.mod already
// carries chzyer/readline as a direct dependency that its own shell never
// actually uses (DESIGN.md); this is the concrete home that dependency
// gets here. Typing a demo name runs it; `disasm <name>` prints its
// instructions; `list` shows what's available; `quit`/Ctrl-D exits.
var replCommand = &cli.Command{
	Name:  "repl",
	Usage: "interactively run built-in demos",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "embervm> ",
			HistoryFile:     "",
			InterruptPrompt: "^C",
			EOFPrompt:       "quit",
		})
		if err != nil {
			return fmt.Errorf("repl: %w", err)
		}
		defer rl.Close()

		fmt.Println("embervm repl - type a demo name to run it, `list`, or `quit`")
		for {
			line, err := rl.Readline()
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("repl: %w", err)
			}
			if !replDispatch(strings.TrimSpace(line)) {
				return nil
			}
		}
	},
}

// replDispatch handles one input line, returning false when the repl
// should exit.
func replDispatch(line string) bool {
	switch {
	case line == "":
		return true
	case line == "quit" || line == "exit":
		return false
	case line == "list":
		for _, d := range demos {
			fmt.Printf("  %-12s %s\n", d.name, d.doc)
		}
		return true
	case strings.HasPrefix(line, "disasm "):
		name := strings.TrimSpace(strings.TrimPrefix(line, "disasm "))
		d := findDemo(name)
		if d == nil {
			fmt.Printf("no such demo %q\n", name)
			return true
		}
		unit, entry := d.build()
		fmt.Printf("; entry: %s\n", hashName(entry))
		fmt.Print(assembleDisasm(unit))
		return true
	default:
		d := findDemo(line)
		if d == nil {
			fmt.Printf("no such demo %q (try `list`)\n", line)
			return true
		}
		result, _, _, err := runDemo(d, false)
		if err != nil {
			fmt.Println(err)
			return true
		}
		fmt.Println(result.String())
		return true
	}
}
