// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scenario

import (
	"context"
	"fmt"

	"github.com/ManuGH/dualentry/internal/job"
	"github.com/ManuGH/dualentry/internal/log"
	"github.com/ManuGH/dualentry/internal/verification"
	"golang.org/x/sync/errgroup"
)

// Runner executes one job.
type Runner interface {
	Run(ctx context.Context, cfg job.Config, cancelled job.CancelCheck, mode string) job.Result
}

// Verdict is the result of checking a run against its scenario.
type Verdict struct {
	Passed bool
	Reason string
	Diff   string
}

// Check compares res with what sc expects. Output content is compared only
// when the run succeeded and the scenario names an expected output.
func Check(sc Scenario, res job.Result) (Verdict, error) {
	if res.Success != sc.Expected.Success {
		return Verdict{Reason: fmt.Sprintf("expected success=%t but got success=%t", sc.Expected.Success, res.Success)}, nil
	}
	if !res.Success || sc.Expected.OutputPath == "" || res.OutputPath == "" {
		return Verdict{Passed: true}, nil
	}
	cmp, err := verification.CompareTextFiles(sc.Expected.OutputPath, res.OutputPath)
	if err != nil {
		return Verdict{}, err
	}
	if !cmp.Matches {
		return Verdict{Reason: "output mismatch", Diff: cmp.Diff}, nil
	}
	return Verdict{Passed: true}, nil
}

// Outcome is one scenario's entry in a suite report. Err is set when the
// scenario could not be loaded or verified; Result and Verdict are then zero.
type Outcome struct {
	Path     string
	Scenario Scenario
	Result   job.Result
	Verdict  Verdict
	Err      error
}

// Failed reports whether the outcome should fail the suite.
func (o Outcome) Failed() bool {
	return o.Err != nil || !o.Verdict.Passed
}

// RunSuite runs every scenario in paths with at most parallel runs in flight
// and returns one outcome per path, in input order. parallel < 1 means one.
// Cancelling ctx cancels the runs in flight; scenarios not yet started are
// still run and report cancellation through their results.
func RunSuite(ctx context.Context, r Runner, paths []string, parallel int, mode string) []Outcome {
	if parallel < 1 {
		parallel = 1
	}
	logger := log.WithComponent("scenario")
	outcomes := make([]Outcome, len(paths))

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, path := range paths {
		g.Go(func() error {
			out := Outcome{Path: path}
			defer func() { outcomes[i] = out }()

			sc, err := Load(path)
			if err != nil {
				out.Err = err
				return nil
			}
			out.Scenario = sc
			runCtx := log.ContextWithScenarioID(ctx, sc.ID)
			out.Result = r.Run(runCtx, sc.Job, job.CancelFromContext(ctx), mode)
			out.Verdict, out.Err = Check(sc, out.Result)

			logger.Info().
				Str(log.FieldScenarioID, sc.ID).
				Str(log.FieldRunID, out.Result.RunID).
				Str(log.FieldStatus, string(out.Result.Status)).
				Bool("passed", !out.Failed()).
				Msg("scenario finished")
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
