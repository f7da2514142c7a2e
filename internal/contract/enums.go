// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package contract

// LoggerName identifies the structured event stream in sink records.
const LoggerName = "dualentry.events"

// EventName is the discriminator of a lifecycle event.
type EventName string

const (
	EventRunStart        EventName = "run_start"
	EventPhaseTransition EventName = "phase_transition"
	EventItemTerminal    EventName = "item_terminal"
	EventFailure         EventName = "failure_event"
	EventRunEnd          EventName = "run_end"
)

// Phase is the run's position in the lifecycle state machine.
type Phase string

const (
	PhaseInit             Phase = "INIT"
	PhaseValidated        Phase = "VALIDATED"
	PhaseCommitReady      Phase = "COMMIT_READY"
	PhaseCommitting       Phase = "COMMITTING"
	PhaseCleaning         Phase = "CLEANING"
	PhaseDone             Phase = "DONE"
	PhaseFailedValidation Phase = "FAILED_VALIDATION"
	PhaseFailedCommit     Phase = "FAILED_COMMIT"
	PhaseFailedCleanup    Phase = "FAILED_CLEANUP"
)

// IsTerminal returns true if no further transition may leave the phase.
func (p Phase) IsTerminal() bool {
	switch p {
	case PhaseDone, PhaseFailedValidation, PhaseFailedCommit, PhaseFailedCleanup:
		return true
	}
	return false
}

// IsFailed returns true for the FAILED_* phases.
func (p Phase) IsFailed() bool {
	switch p {
	case PhaseFailedValidation, PhaseFailedCommit, PhaseFailedCleanup:
		return true
	}
	return false
}

// RunResultKind is the run-level terminal classification.
type RunResultKind string

const (
	ResultSuccess        RunResultKind = "SUCCESS"
	ResultPartialSuccess RunResultKind = "PARTIAL_SUCCESS"
	ResultFailure        RunResultKind = "FAILURE"
)

// ItemOutcome is the terminal classification of one unit of work.
type ItemOutcome string

const (
	OutcomeExecuted ItemOutcome = "EXECUTED"
	OutcomeSkipped  ItemOutcome = "SKIPPED"
	OutcomeFailed   ItemOutcome = "FAILED"
)

// ReasonCode explains why a run or item reached its terminal state.
// Keep these stable: event consumers key on them.
type ReasonCode string

const (
	ReasonCompleted           ReasonCode = "COMPLETED"
	ReasonValidationFailed    ReasonCode = "VALIDATION_FAILED"
	ReasonUnknownWorkflow     ReasonCode = "UNKNOWN_WORKFLOW"
	ReasonFileNotFound        ReasonCode = "FILE_NOT_FOUND"
	ReasonPermissionDenied    ReasonCode = "PERMISSION_DENIED"
	ReasonOSError             ReasonCode = "OS_ERROR"
	ReasonWorkflowFailed      ReasonCode = "WORKFLOW_FAILED"
	ReasonOutputNotCreated    ReasonCode = "OUTPUT_NOT_CREATED"
	ReasonCancelled           ReasonCode = "CANCELLED"
	ReasonUnexpectedException ReasonCode = "UNEXPECTED_EXCEPTION"
	ReasonFailedCleanup       ReasonCode = "FAILED_CLEANUP"
)

// IsFailure returns true for reason codes that classify a failed item.
func (r ReasonCode) IsFailure() bool {
	switch r {
	case ReasonCompleted, ReasonCancelled:
		return false
	case ReasonValidationFailed, ReasonUnknownWorkflow, ReasonFileNotFound, ReasonPermissionDenied,
		ReasonOSError, ReasonWorkflowFailed, ReasonOutputNotCreated, ReasonUnexpectedException, ReasonFailedCleanup:
		return true
	}
	return false
}

var (
	eventNames = []EventName{EventRunStart, EventPhaseTransition, EventItemTerminal, EventFailure, EventRunEnd}
	phases     = []Phase{
		PhaseInit, PhaseValidated, PhaseCommitReady, PhaseCommitting, PhaseCleaning, PhaseDone,
		PhaseFailedValidation, PhaseFailedCommit, PhaseFailedCleanup,
	}
	resultKinds  = []RunResultKind{ResultSuccess, ResultPartialSuccess, ResultFailure}
	itemOutcomes = []ItemOutcome{OutcomeExecuted, OutcomeSkipped, OutcomeFailed}
	reasonCodes  = []ReasonCode{
		ReasonCompleted, ReasonValidationFailed, ReasonUnknownWorkflow, ReasonFileNotFound,
		ReasonPermissionDenied, ReasonOSError, ReasonWorkflowFailed, ReasonOutputNotCreated,
		ReasonCancelled, ReasonUnexpectedException, ReasonFailedCleanup,
	}
)

// EventNames returns every event kind in declaration order.
func EventNames() []EventName { return append([]EventName(nil), eventNames...) }

// Phases returns every phase in declaration order.
func Phases() []Phase { return append([]Phase(nil), phases...) }

// ResultKinds returns every run result kind in declaration order.
func ResultKinds() []RunResultKind { return append([]RunResultKind(nil), resultKinds...) }

// ItemOutcomes returns every item outcome in declaration order.
func ItemOutcomes() []ItemOutcome { return append([]ItemOutcome(nil), itemOutcomes...) }

// ReasonCodes returns every reason code in declaration order.
func ReasonCodes() []ReasonCode { return append([]ReasonCode(nil), reasonCodes...) }

func (e EventName) Valid() bool     { return contains(eventNames, e) }
func (p Phase) Valid() bool         { return contains(phases, p) }
func (r RunResultKind) Valid() bool { return contains(resultKinds, r) }
func (o ItemOutcome) Valid() bool   { return contains(itemOutcomes, o) }
func (r ReasonCode) Valid() bool    { return contains(reasonCodes, r) }

func contains[T ~string](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func stringsOf[T ~string](set []T) []string {
	out := make([]string, len(set))
	for i, s := range set {
		out[i] = string(s)
	}
	return out
}

// ParsePhase converts s into a Phase, rejecting values outside the set.
func ParsePhase(s string) (Phase, error) { return parse("phase", phases, s) }

// ParseReasonCode converts s into a ReasonCode, rejecting values outside the set.
func ParseReasonCode(s string) (ReasonCode, error) { return parse("reason_code", reasonCodes, s) }

// ParseItemOutcome converts s into an ItemOutcome, rejecting values outside the set.
func ParseItemOutcome(s string) (ItemOutcome, error) { return parse("outcome", itemOutcomes, s) }

// ParseRunResultKind converts s into a RunResultKind, rejecting values outside the set.
func ParseRunResultKind(s string) (RunResultKind, error) { return parse("result", resultKinds, s) }

func parse[T ~string](field string, set []T, s string) (T, error) {
	v := T(s)
	if !contains(set, v) {
		return "", &Error{Kind: ErrInvalidEnum, Field: field, Value: s, Allowed: stringsOf(set)}
	}
	return v, nil
}
