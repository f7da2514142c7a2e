// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService    = "service"
	FieldVersion    = "version"
	FieldComponent  = "component"
	FieldRunID      = "run_id"
	FieldScenarioID = "scenario_id"
	FieldWorkflowID = "workflow_id"
	FieldMode       = "mode"

	// Lifecycle fields
	FieldEvent      = "event"
	FieldPhase      = "phase"
	FieldPhaseSeq   = "phase_seq"
	FieldReasonCode = "reason_code"
	FieldResult     = "result"
	FieldStatus     = "status"

	// Path fields
	FieldPath       = "path"
	FieldInputPath  = "input_path"
	FieldOutputPath = "output_path"
	FieldEventLog   = "event_log_path"

	// Counters
	FieldLines      = "lines_processed"
	FieldDurationMS = "duration_ms"
)
