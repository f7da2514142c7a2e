// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// dualentry runs text-processing jobs described by scenario files and writes
// a structured JSONL event log for every run.
//
// Exit codes:
//   - 0: success
//   - 1: run or verification failure
//   - 2: scenario, configuration or usage error
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
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// exitError carries a process exit code out of a command. A nil err exits
// silently.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI and returns the exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	code := exitUsage
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintf(stderr, "Error: %s\n", msg)
	}
	return code
}

type globalFlags struct {
	configPath  string
	verbose     bool
	logFile     string
	eventLog    string
	metricsFile string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "dualentry",
		Short:         "Run scenario-driven jobs with a structured event log",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "path to config file (YAML)")
	pf.BoolVar(&g.verbose, "verbose", false, "enable debug logging")
	pf.StringVar(&g.logFile, "log-file", "", "also write logs to this file")
	pf.StringVar(&g.eventLog, "event-log", "", "write every run's events to this JSONL file")
	pf.StringVar(&g.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")

	root.AddCommand(
		newRunCmd(g),
		newScenariosCmd(g),
		newEventsCmd(),
		newVersionCmd(),
	)
	return root
}
