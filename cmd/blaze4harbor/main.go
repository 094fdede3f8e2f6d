// Package main provides the blaze4harbor CLI entrypoint.
//
// Without a subcommand every argument is passed to harbor, whose output is
// captured and whose results are published to the configured stores.
//
// Usage:
//
//	blaze4harbor [global options] <harbor arguments...>
//	blaze4harbor [global options] publish <task_dir>
//	blaze4harbor schema | version
//
// Exit codes:
//   - harbor's own exit code when harbor fails
//   - 0: harbor succeeded (upload failures are logged only)
//   - 1: wrapper failure (configuration, capture, results line)
//   - 130: interrupted
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/kewos554321/blaze4harbor/cli/cmd"
	"github.com/kewos554321/blaze4harbor/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:            "blaze4harbor",
		Usage:           "Run harbor and publish its results",
		UsageText:       "blaze4harbor [global options] <harbor arguments...>",
		Version:         fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		HideHelpCommand: true,
		ExitErrHandler:  exitErrHandler,
		Flags:           cmd.GlobalFlags(),
		Action:          cmd.HarborAction,
		Commands: []*cli.Command{
			cmd.PublishCommand(),
			cmd.SchemaCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already exited for cli.ExitCoder errors.
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit, including harbor's own.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() is "exit status N"; nothing to print.
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
