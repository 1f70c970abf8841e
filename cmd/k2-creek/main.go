// Package main provides the k2-creek CLI entrypoint.
//
// Usage:
//
//	k2-creek [--config k2-creek.yaml] [--output dir] [--k2-url url]
//	k2-creek inspect [--from-mirror]
//	k2-creek version
//
// Exit codes:
//   - 0: card data written, or no card found
//   - 1: configuration error
//   - 2: K2 unreachable
//   - 3: K2 sent invalid JSON
//   - 4: K2 sent a non-JSON failure reply
//   - 5: an artifact could not be deleted or written
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/maxmartens/k2-creek/cli/cmd"
	"github.com/maxmartens/k2-creek/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "k2-creek",
		Usage:          "Fetch eGK card data from K2 and write it as XML files",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags:          cmd.RunFlags(),
		Action:         cmd.RunAction,
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.RunCommand(),
			cmd.InspectCommand(),
			cmd.VersionCommand(commit),
		},
	}
}

// exitErrHandler prints the error and exits with the code carried by
// cli.Exit errors, or 1 for anything else.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	code, msg := exitStatus(err)
	if msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(code)
}

// exitStatus maps err to an exit code and the message to print.
func exitStatus(err error) (int, string) {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		// cli.Exit("", N).Error() returns "exit status N"
		if msg == fmt.Sprintf("exit status %d", code) {
			msg = ""
		}
		return code, msg
	}
	return 1, fmt.Sprintf("Error: %v", err)
}
