// Package cli implements the mediumctl command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mediums/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

// app carries the state shared by one command tree.
type app struct {
	flags  rootFlags
	stderr io.Writer
}

// NewRootCmd creates the top-level "mediumctl" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "mediumctl",
		Short: "Inspect and modify storage media",
		Long:  "mediumctl reads, writes, erases and snapshots storage media\nthrough their capability interfaces.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.stderr = cmd.ErrOrStderr()
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug messages")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newInfoCmd(a))
	root.AddCommand(newReadCmd(a))
	root.AddCommand(newWriteCmd(a))
	root.AddCommand(newEraseCmd(a))
	root.AddCommand(newDigestCmd(a))
	root.AddCommand(newDumpCmd(a))
	root.AddCommand(newLoadCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(ExitCode(err))
	}
}

// logger returns the slog logger for this invocation: text on stderr,
// Info by default and Debug with --verbose.
func (a *app) logger() *slog.Logger {
	level := slog.LevelInfo
	if a.flags.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
}

// exitError pairs an error with the exit code it should produce.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// userError marks err as caused by bad input.
func userError(err error) error {
	return &exitError{code: exitUserError, err: err}
}

// sysError marks err as an environment or I/O failure.
func sysError(err error) error {
	return &exitError{code: exitSysError, err: err}
}

// ExitCode maps an error returned by the command tree to a process exit
// code. Medium faults and errors marked as system errors exit with 2;
// everything else, including access errors and bad arguments, exits with 1.
func ExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	if errors.Is(err, types.ErrMediumFault) {
		return exitSysError
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}
