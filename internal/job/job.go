// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package job holds the input and output shapes shared by the runner, the
// CLI and the scenario suite.
package job

import "context"

// Config describes one unit of work.
type Config struct {
	WorkflowID string         `json:"workflow_id" yaml:"workflow_id"`
	InputPath  string         `json:"input_path" yaml:"input_path"`
	OutputPath string         `json:"output_path" yaml:"output_path"`
	Workflow   map[string]any `json:"workflow" yaml:"workflow"`
}

// Status is the caller-facing terminal classification of a run.
type Status string

const (
	StatusExecuted  Status = "EXECUTED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Result is returned synchronously by the runner.
type Result struct {
	Success        bool     `json:"success"`
	Status         Status   `json:"status"`
	RunID          string   `json:"run_id"`
	OutputPath     string   `json:"output_path,omitempty"`
	LinesProcessed int      `json:"lines_processed"`
	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings"`
}

// ExitCode maps the result onto a process exit status.
func (r Result) ExitCode() int {
	if r.Success {
		return 0
	}
	return 1
}

// CancelCheck reports whether cancellation has been requested. It is polled.
type CancelCheck func() bool

// Never is a CancelCheck that is never cancelled.
func Never() bool { return false }

// CancelFromContext adapts ctx into a CancelCheck.
func CancelFromContext(ctx context.Context) CancelCheck {
	return func() bool { return ctx.Err() != nil }
}

// Or combines checks; a nil check is treated as never cancelled.
func Or(checks ...CancelCheck) CancelCheck {
	return func() bool {
		for _, c := range checks {
			if c != nil && c() {
				return true
			}
		}
		return false
	}
}
