// Command embervm is a small driver around the embervm execution core,
// grounded on hey's cmd/hey (a urfave/cli/v3 command tree) and cmd/vm-demo
// (a plain walkthrough of hand-built VM runs) - the compiler that would
// normally turn source text into a bytecode.Unit is out of scope for this
// core (§1), so every subcommand here operates on the small set of
// hand-assembled demo Units in demos.go rather than parsing a script file.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/emberscript/embervm/version"
)

func main() {
	app := &cli.Command{
		Name:  "embervm",
		Usage: "drive the embervm execution core's built-in demo programs",
		Commands: []*cli.Command{
			runCommand,
			disasmCommand,
			statsCommand,
			replCommand,
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "version",
				Usage: "print the embervm version and exit",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("version") {
				fmt.Println(version.Version())
				return nil
			}
			return cli.ShowAppHelp(cmd)
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "embervm: %v\n", err)
		os.Exit(1)
	}
}
