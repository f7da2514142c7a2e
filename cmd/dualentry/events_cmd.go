// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/ManuGH/dualentry/internal/contract"
	"github.com/ManuGH/dualentry/internal/eventlog"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var (
		file   string
		runID  string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print events from a JSONL event log",
		Long: `Prints the events of an event log, optionally restricted to one run.
With --check, every event is validated against the event contract and the
command fails on the first violation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, err := eventlog.ReadEvents(file)
			if err != nil {
				return exitWith(exitUsage, err)
			}
			if runID != "" {
				events = eventlog.FilterRun(events, runID)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			for i, ev := range events {
				if strict {
					if err := contract.Validate(ev); err != nil {
						return exitWith(exitFailure, fmt.Errorf("event %d: %w", i+1, err))
					}
				}
				if err := enc.Encode(ev); err != nil {
					return exitWith(exitFailure, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "event log to read")
	cmd.Flags().StringVar(&runID, "run-id", "", "only print events of this run")
	cmd.Flags().BoolVar(&strict, "check", false, "validate events against the event contract")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
