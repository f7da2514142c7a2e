// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package contract

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownEvent classifies payloads whose event field is not a known kind.
	ErrUnknownEvent = errors.New("unknown event name")
	// ErrMissingFields classifies payloads lacking required fields for their kind.
	ErrMissingFields = errors.New("missing required fields")
	// ErrInvalidRunID classifies payloads without a usable run_id.
	ErrInvalidRunID = errors.New("run_id must be a non-empty string")
	// ErrInvalidEnum classifies enum-typed fields holding a value outside their set.
	ErrInvalidEnum = errors.New("invalid enum value")
	// ErrInconsistentTerminal classifies item outcomes that contradict their phase or reason.
	ErrInconsistentTerminal = errors.New("inconsistent item terminal")
)

// Error describes a contract violation.
// Use errors.Is with the sentinel values above to classify it.
type Error struct {
	Kind    error
	Event   string
	Field   string
	Missing []string
	Allowed []string
	Value   any
}

func (e *Error) Error() string {
	switch {
	case errors.Is(e.Kind, ErrUnknownEvent):
		return fmt.Sprintf("%s: %q", e.Kind, fmt.Sprint(e.Value))
	case errors.Is(e.Kind, ErrMissingFields):
		return fmt.Sprintf("event %q %s: [%s]", e.Event, e.Kind, strings.Join(e.Missing, ", "))
	case errors.Is(e.Kind, ErrInvalidEnum):
		return fmt.Sprintf("invalid %s: %q, allowed values: [%s]", e.Field, fmt.Sprint(e.Value), strings.Join(e.Allowed, ", "))
	case errors.Is(e.Kind, ErrInconsistentTerminal):
		return fmt.Sprintf("%s: %s", e.Kind, e.Field)
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Unwrap() error { return e.Kind }

var requiredFields = map[EventName][]string{
	EventRunStart:        {"ts", "event", "run_id", "app", "version", "mode", "inputs", "outputs", "config"},
	EventPhaseTransition: {"ts", "event", "run_id", "phase", "phase_seq"},
	EventItemTerminal: {
		"ts", "event", "run_id", "phase", "item_id", "outcome", "final_phase",
		"reason_code", "reason_detail", "evidence", "write_effects", "duration_ms",
	},
	EventFailure: {"ts", "event", "run_id", "phase", "reason_code", "reason_detail", "error"},
	EventRunEnd:  {"ts", "event", "run_id", "app", "version", "mode", "result", "summary", "timings_ms", "errors"},
}

// RequiredFields returns the required field set for an event kind, or nil for
// an unknown kind.
func RequiredFields(kind EventName) []string {
	fields, ok := requiredFields[kind]
	if !ok {
		return nil
	}
	return append([]string(nil), fields...)
}

// Validate fails fast when an event payload violates the contract.
func Validate(payload map[string]any) error {
	raw := payload["event"]
	name, ok := asString(raw)
	if !ok || !EventName(name).Valid() {
		return &Error{Kind: ErrUnknownEvent, Value: raw}
	}
	kind := EventName(name)

	var missing []string
	for _, field := range requiredFields[kind] {
		if _, present := payload[field]; !present {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &Error{Kind: ErrMissingFields, Event: name, Missing: missing}
	}

	if runID, ok := asString(payload["run_id"]); !ok || strings.TrimSpace(runID) == "" {
		return &Error{Kind: ErrInvalidRunID, Event: name, Field: "run_id", Value: payload["run_id"]}
	}

	checks := []struct {
		field   string
		valid   func(string) bool
		allowed []string
	}{
		{"phase", func(s string) bool { return Phase(s).Valid() }, stringsOf(phases)},
		{"final_phase", func(s string) bool { return Phase(s).Valid() }, stringsOf(phases)},
		{"result", func(s string) bool { return RunResultKind(s).Valid() }, stringsOf(resultKinds)},
		{"outcome", func(s string) bool { return ItemOutcome(s).Valid() }, stringsOf(itemOutcomes)},
		{"reason_code", func(s string) bool { return ReasonCode(s).Valid() }, stringsOf(reasonCodes)},
	}
	for _, c := range checks {
		v, present := payload[c.field]
		if !present {
			continue
		}
		if s, ok := asString(v); !ok || !c.valid(s) {
			return &Error{Kind: ErrInvalidEnum, Event: name, Field: c.field, Value: v, Allowed: c.allowed}
		}
	}
	return nil
}

// CheckTerminalConsistency enforces the joint rule between an item's outcome,
// final phase and reason code.
func CheckTerminalConsistency(outcome ItemOutcome, finalPhase Phase, reason ReasonCode) error {
	fail := func(detail string) error {
		return &Error{Kind: ErrInconsistentTerminal, Event: string(EventItemTerminal), Field: detail}
	}
	switch outcome {
	case OutcomeExecuted:
		if reason != ReasonCompleted || finalPhase != PhaseDone {
			return fail(fmt.Sprintf("EXECUTED requires COMPLETED/DONE, got %s/%s", reason, finalPhase))
		}
	case OutcomeSkipped:
		if reason != ReasonCancelled {
			return fail(fmt.Sprintf("SKIPPED requires CANCELLED, got %s", reason))
		}
	case OutcomeFailed:
		if !reason.IsFailure() || !finalPhase.IsFailed() {
			return fail(fmt.Sprintf("FAILED requires a failure reason and FAILED_* phase, got %s/%s", reason, finalPhase))
		}
	default:
		return &Error{Kind: ErrInvalidEnum, Event: string(EventItemTerminal), Field: "outcome", Value: outcome, Allowed: stringsOf(itemOutcomes)}
	}
	return nil
}

// asString accepts plain strings and the typed enums of this package.
func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case EventName:
		return string(s), true
	case Phase:
		return string(s), true
	case RunResultKind:
		return string(s), true
	case ItemOutcome:
		return string(s), true
	case ReasonCode:
		return string(s), true
	default:
		return "", false
	}
}
