// Command footpredict queries the football backend from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/footpredict/internal/cli"
	fperrors "github.com/matzehuels/footpredict/pkg/errors"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes the command line in args and reports errors to stderr.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	root := newRoot(stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	code := exitCode(err)
	if code != exitOK && code != exitInterrupted {
		fmt.Fprintln(stderr, "Error:", fperrors.UserMessage(err))
	}
	return code
}

// exitCode maps a command error to the process exit status. Bad input and
// bad configuration exit with 2 so scripts can tell them from backend failures.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case fperrors.Is(err, fperrors.ErrCodeInvalidInput),
		fperrors.Is(err, fperrors.ErrCodeInvalidConfig):
		return exitUsage
	default:
		return exitFailure
	}
}

// newRoot builds the root command with the --verbose flag layered over the
// CLI's own persistent pre-run hook.
func newRoot(stderr io.Writer) *cobra.Command {
	var verbose bool

	c := cli.New(stderr, cli.LogInfo)
	root := c.RootCommand()
	root.SilenceErrors = true
	root.SetErr(stderr)

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log each request and retry")

	next := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			c.SetLogLevel(cli.LogDebug)
		}
		if next != nil {
			return next(cmd, args)
		}
		return nil
	}
	return root
}
