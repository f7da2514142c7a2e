// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for run spans.
const (
	RunIDKey      = "run.id"
	RunModeKey    = "run.mode"
	RunResultKey  = "run.result"
	WorkflowIDKey = "workflow.id"
	PhaseKey      = "run.phase"
	PhaseSeqKey   = "run.phase_seq"
	ReasonCodeKey = "run.reason_code"
	LinesKey      = "run.lines_processed"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// RunAttributes creates the attributes set when a run span starts.
func RunAttributes(runID, mode, workflowID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(RunIDKey, runID),
		attribute.String(RunModeKey, mode),
	}
	if workflowID != "" {
		attrs = append(attrs, attribute.String(WorkflowIDKey, workflowID))
	}
	return attrs
}

// PhaseAttributes creates the attributes of a phase span event.
func PhaseAttributes(phase string, seq int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PhaseKey, phase),
		attribute.Int(PhaseSeqKey, seq),
	}
}

// OutcomeAttributes creates the attributes set when a run span ends.
func OutcomeAttributes(result, reasonCode string, lines int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(RunResultKey, result),
		attribute.String(ReasonCodeKey, reasonCode),
		attribute.Int(LinesKey, lines),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
