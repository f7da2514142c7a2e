// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"strings"

	"github.com/ManuGH/dualentry/internal/job"
	dlog "github.com/ManuGH/dualentry/internal/log"
	"github.com/ManuGH/dualentry/internal/scenario"
	"github.com/spf13/cobra"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		scenarioPath string
		verify       bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one scenario",
		Long: `Loads a scenario file (.json, .yaml or .yml), runs its job and,
with --verify, checks the result against the scenario's expectations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.close(ctx)

			sc, err := scenario.Load(scenarioPath)
			if err != nil {
				s.logger.Error().Err(err).Str(dlog.FieldPath, scenarioPath).Msg("scenario load failed")
				return exitWith(exitUsage, err)
			}
			s.logger.Info().
				Str(dlog.FieldScenarioID, sc.ID).
				Str("description", sc.Description).
				Msg("scenario loaded")

			res := s.runner.Run(dlog.ContextWithScenarioID(ctx, sc.ID), sc.Job, job.CancelFromContext(ctx), modeCLI)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s run_id=%s lines=%d\n", sc.ID, res.Status, res.RunID, res.LinesProcessed)
			for _, e := range res.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "  error: %s\n", e)
			}

			if verify {
				v, err := scenario.Check(sc, res)
				if err != nil {
					return exitWith(exitFailure, fmt.Errorf("verification failed: %w", err))
				}
				if !v.Passed {
					msg := "verification failed: " + v.Reason
					if v.Diff != "" {
						msg += "\n" + strings.TrimRight(v.Diff, "\n")
					}
					return exitWith(exitFailure, fmt.Errorf("%s", msg))
				}
				s.logger.Info().Str(dlog.FieldScenarioID, sc.ID).Msg("verification passed")
			}
			if code := res.ExitCode(); code != exitOK {
				return exitWith(code, nil)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to a scenario file")
	cmd.Flags().BoolVar(&verify, "verify", false, "verify the result against the scenario's expectations")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}
