// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"

	"github.com/ManuGH/dualentry/internal/scenario"
	"github.com/spf13/cobra"
)

func newScenariosCmd(g *globalFlags) *cobra.Command {
	var (
		dir      string
		parallel int
	)
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Run and verify every scenario in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.close(ctx)

			paths, err := scenario.ListFiles(dir)
			if err != nil {
				return exitWith(exitUsage, err)
			}
			if len(paths) == 0 {
				return exitWith(exitUsage, fmt.Errorf("no scenario files in %s", dir))
			}

			out := cmd.OutOrStdout()
			failed, invalid := 0, 0
			for _, o := range scenario.RunSuite(ctx, s.runner, paths, parallel, modeCLI) {
				switch {
				case errors.Is(o.Err, scenario.ErrInvalidScenario):
					invalid++
					fmt.Fprintf(out, "INVALID %s: %v\n", o.Path, o.Err)
				case o.Failed():
					failed++
					reason := o.Verdict.Reason
					if o.Err != nil {
						reason = o.Err.Error()
					}
					fmt.Fprintf(out, "FAIL    %s run_id=%s: %s\n", o.Scenario.ID, o.Result.RunID, reason)
				default:
					fmt.Fprintf(out, "PASS    %s run_id=%s\n", o.Scenario.ID, o.Result.RunID)
				}
			}
			fmt.Fprintf(out, "%d scenarios, %d failed, %d invalid\n", len(paths), failed, invalid)

			switch {
			case failed > 0:
				return exitWith(exitFailure, nil)
			case invalid > 0:
				return exitWith(exitUsage, nil)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "scenarios", "directory holding scenario files")
	cmd.Flags().IntVar(&parallel, "parallel", 1, "maximum scenarios run at once")
	return cmd
}
