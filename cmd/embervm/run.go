package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

// listDemoNames renders the available demo identifiers for an error
// message or `--help`, matching hey's own composerShowHelp-style listing.
func listDemoNames() string {
	names := make([]string, len(demos))
	for i, d := range demos {
		names[i] = d.name
	}
	return strings.Join(names, ", ")
}

func demoFromArgs(cmd *cli.Command) (*demo, error) {
	name := cmd.Args().First()
	if name == "" {
		return nil, fmt.Errorf("missing demo name (available: %s)", listDemoNames())
	}
	d := findDemo(name)
	if d == nil {
		return nil, fmt.Errorf("no such demo %q (available: %s)", name, listDemoNames())
	}
	return d, nil
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "run a built-in demo program and print its result",
	ArgsUsage: "<demo-name>",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		d, err := demoFromArgs(cmd)
		if err != nil {
			return err
		}
		result, _, _, err := runDemo(d, false)
		if err != nil {
			fmt.Println(err)
			return nil
		}
		fmt.Printf("%s => %s\n", d.name, result.String())
		return nil
	},
}

var disasmCommand = &cli.Command{
	Name:      "disasm",
	Usage:     "print a built-in demo's instructions",
	ArgsUsage: "<demo-name>",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		d, err := demoFromArgs(cmd)
		if err != nil {
			return err
		}
		unit, entry := d.build()
		fmt.Printf("; %s (%s)\n; entry: %s\n", unit.Name, d.doc, hashName(entry))
		fmt.Print(assembleDisasm(unit))
		return nil
	},
}

var statsCommand = &cli.Command{
	Name:      "stats",
	Usage:     "run a built-in demo with tracing enabled and print hot spots",
	ArgsUsage: "<demo-name>",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		d, err := demoFromArgs(cmd)
		if err != nil {
			return err
		}
		result, m, trace, err := runDemo(d, true)
		if err != nil {
			fmt.Println(err)
			return nil
		}
		fmt.Printf("%s => %s\n", d.name, result.String())
		fmt.Println(m.Stats())
		fmt.Print(trace.HotSpots())
		return nil
	},
}
