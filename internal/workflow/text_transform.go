// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package workflow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/dualentry/internal/job"
	dlog "github.com/ManuGH/dualentry/internal/log"
	"github.com/google/renameio/v2"
)

// TextTransformID is the id of the line-by-line text transform.
const TextTransformID = "text_transform_v1"

// TextTransformV1 transforms a text file line by line using configured steps.
func TextTransformV1() Workflow {
	return Func{
		WorkflowID: TextTransformID,
		Summary:    "Transform a text file line-by-line using configured steps.",
		Fn:         runTextTransform,
	}
}

func runTextTransform(ctx context.Context, cfg job.Config, cancelled job.CancelCheck) (ProcessResult, error) {
	steps, err := Steps(cfg.Workflow)
	if err != nil {
		return ProcessResult{Error: err.Error()}, nil
	}
	return ProcessTextFile(ctx, cfg.InputPath, cfg.OutputPath, steps, cancelled)
}

// ProcessTextFile streams inputPath through steps into outputPath. Output is
// written to a pending file and only renamed into place on success, so a
// cancelled or failed run leaves no output behind.
func ProcessTextFile(ctx context.Context, inputPath, outputPath string, steps []map[string]any, cancelled job.CancelCheck) (ProcessResult, error) {
	logger := dlog.WithComponentFromContext(ctx, "workflow")
	logger.Info().
		Str(dlog.FieldInputPath, inputPath).
		Str(dlog.FieldOutputPath, outputPath).
		Msg("processing text file")

	isCancelled := job.Or(cancelled, job.CancelFromContext(ctx))

	// #nosec G304 -- input path is validated before the workflow runs
	in, err := os.Open(inputPath)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o750); err != nil {
		return ProcessResult{}, fmt.Errorf("create output directory: %w", err)
	}
	pending, err := renameio.NewPendingFile(outputPath, renameio.WithPermissions(0o644))
	if err != nil {
		return ProcessResult{}, fmt.Errorf("create pending output: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	w := bufio.NewWriter(pending)
	r := bufio.NewReader(in)
	lines := 0
	for {
		raw, readErr := r.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return ProcessResult{LinesProcessed: lines}, fmt.Errorf("read input: %w", readErr)
		}
		if raw == "" && readErr != nil {
			break
		}
		if isCancelled() {
			logger.Warn().Int(dlog.FieldLines, lines).Msg("cancellation requested; stopping early")
			return ProcessResult{Cancelled: true, LinesProcessed: lines}, nil
		}

		out, keep, stepErr := applySteps(strings.TrimRight(raw, "\r\n"), steps, isCancelled)
		if errors.Is(stepErr, errStepCancelled) {
			logger.Warn().Int(dlog.FieldLines, lines).Msg("cancellation requested during step execution; stopping early")
			return ProcessResult{Cancelled: true, LinesProcessed: lines}, nil
		}
		if stepErr != nil {
			return ProcessResult{LinesProcessed: lines, Error: stepErr.Error()}, nil
		}
		if keep {
			if _, err := w.WriteString(out + "\n"); err != nil {
				return ProcessResult{LinesProcessed: lines}, fmt.Errorf("write output: %w", err)
			}
			lines++
		}
		if readErr != nil {
			break
		}
	}

	if err := w.Flush(); err != nil {
		return ProcessResult{LinesProcessed: lines}, fmt.Errorf("flush output: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return ProcessResult{LinesProcessed: lines}, fmt.Errorf("commit output: %w", err)
	}
	return ProcessResult{Success: true, LinesProcessed: lines}, nil
}
