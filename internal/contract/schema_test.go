// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package contract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func fullPayload(kind EventName) map[string]any {
	p := map[string]any{}
	for _, f := range RequiredFields(kind) {
		p[f] = map[string]any{}
	}
	p["ts"] = "2026-02-09T12:00:00.000+00:00"
	p["event"] = string(kind)
	p["run_id"] = "abc"
	for _, f := range []string{"app", "version", "mode", "item_id", "reason_detail"} {
		if _, ok := p[f]; ok {
			p[f] = "x"
		}
	}
	if _, ok := p["phase"]; ok {
		p["phase"] = string(PhaseFailedCommit)
	}
	if _, ok := p["final_phase"]; ok {
		p["final_phase"] = string(PhaseFailedCommit)
	}
	if _, ok := p["phase_seq"]; ok {
		p["phase_seq"] = 1
	}
	if _, ok := p["outcome"]; ok {
		p["outcome"] = string(OutcomeFailed)
	}
	if _, ok := p["reason_code"]; ok {
		p["reason_code"] = string(ReasonOSError)
	}
	if _, ok := p["result"]; ok {
		p["result"] = string(ResultFailure)
	}
	if _, ok := p["duration_ms"]; ok {
		p["duration_ms"] = int64(3)
	}
	if _, ok := p["errors"]; ok {
		p["errors"] = []any{}
	}
	return p
}

func TestValidate_AcceptsCompletePayloads(t *testing.T) {
	for _, kind := range EventNames() {
		t.Run(string(kind), func(t *testing.T) {
			require.NoError(t, Validate(fullPayload(kind)))
		})
	}
}

func TestValidate_UnknownEvent(t *testing.T) {
	for _, raw := range []any{nil, "", "run_begin", 42} {
		err := Validate(map[string]any{"event": raw, "run_id": "abc"})
		require.ErrorIs(t, err, ErrUnknownEvent)
		require.Contains(t, err.Error(), "unknown event name")
	}
}

func TestValidate_NamesEveryMissingField(t *testing.T) {
	for _, kind := range EventNames() {
		t.Run(string(kind), func(t *testing.T) {
			err := Validate(map[string]any{"event": string(kind)})
			require.ErrorIs(t, err, ErrMissingFields)

			var cerr *Error
			require.True(t, errors.As(err, &cerr))
			for _, f := range RequiredFields(kind) {
				if f == "event" {
					continue
				}
				require.Contains(t, cerr.Missing, f)
				require.Contains(t, err.Error(), f)
			}
		})
	}
}

func TestValidate_RunStartMissingOutputs(t *testing.T) {
	p := fullPayload(EventRunStart)
	delete(p, "outputs")

	err := Validate(p)
	require.ErrorIs(t, err, ErrMissingFields)
	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, []string{"outputs"}, cerr.Missing)
}

func TestValidate_RunID(t *testing.T) {
	for _, raw := range []any{"", "   ", 7, nil} {
		p := fullPayload(EventPhaseTransition)
		p["run_id"] = raw
		require.ErrorIs(t, Validate(p), ErrInvalidRunID)
	}
}

func TestValidate_EnumFields(t *testing.T) {
	cases := []struct {
		kind  EventName
		field string
	}{
		{EventFailure, "reason_code"},
		{EventFailure, "phase"},
		{EventItemTerminal, "final_phase"},
		{EventItemTerminal, "outcome"},
		{EventRunEnd, "result"},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			p := fullPayload(tc.kind)
			p[tc.field] = "NOT_A_REAL_CODE"
			err := Validate(p)
			require.ErrorIs(t, err, ErrInvalidEnum)
			require.Contains(t, err.Error(), tc.field)
			require.Contains(t, err.Error(), "NOT_A_REAL_CODE")
			require.Contains(t, err.Error(), "allowed values")
		})
	}
}

func TestValidate_OptionalEnumOnOtherKind(t *testing.T) {
	p := fullPayload(EventRunStart)
	p["phase"] = "BOGUS"
	require.ErrorIs(t, Validate(p), ErrInvalidEnum)
}

func TestValidate_AcceptsTypedEnums(t *testing.T) {
	p := fullPayload(EventPhaseTransition)
	p["event"] = EventPhaseTransition
	p["phase"] = PhaseDone
	require.NoError(t, Validate(p))
}

func TestCheckTerminalConsistency(t *testing.T) {
	cases := []struct {
		name    string
		outcome ItemOutcome
		phase   Phase
		reason  ReasonCode
		ok      bool
	}{
		{"executed", OutcomeExecuted, PhaseDone, ReasonCompleted, true},
		{"executed wrong phase", OutcomeExecuted, PhaseCleaning, ReasonCompleted, false},
		{"executed wrong reason", OutcomeExecuted, PhaseDone, ReasonCancelled, false},
		{"skipped", OutcomeSkipped, PhaseFailedCommit, ReasonCancelled, true},
		{"skipped wrong reason", OutcomeSkipped, PhaseFailedCommit, ReasonOSError, false},
		{"failed", OutcomeFailed, PhaseFailedValidation, ReasonValidationFailed, true},
		{"failed cleanup", OutcomeFailed, PhaseFailedCleanup, ReasonFailedCleanup, true},
		{"failed with completed", OutcomeFailed, PhaseFailedCommit, ReasonCompleted, false},
		{"failed in done", OutcomeFailed, PhaseDone, ReasonOSError, false},
		{"unknown outcome", ItemOutcome("MAYBE"), PhaseDone, ReasonCompleted, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckTerminalConsistency(tc.outcome, tc.phase, tc.reason)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestPhasePredicates(t *testing.T) {
	terminal := map[Phase]bool{PhaseDone: true, PhaseFailedValidation: true, PhaseFailedCommit: true, PhaseFailedCleanup: true}
	for _, p := range Phases() {
		require.Equal(t, terminal[p], p.IsTerminal(), p)
		require.Equal(t, terminal[p] && p != PhaseDone, p.IsFailed(), p)
	}
	require.False(t, Phase("NOPE").Valid())
}

func TestReasonCodeIsFailure(t *testing.T) {
	for _, r := range ReasonCodes() {
		want := r != ReasonCompleted && r != ReasonCancelled
		require.Equal(t, want, r.IsFailure(), r)
	}
}

func TestParseEnums(t *testing.T) {
	p, err := ParsePhase("DONE")
	require.NoError(t, err)
	require.Equal(t, PhaseDone, p)

	_, err = ParsePhase("done")
	require.ErrorIs(t, err, ErrInvalidEnum)
	require.Contains(t, err.Error(), "FAILED_CLEANUP")

	r, err := ParseReasonCode("CANCELLED")
	require.NoError(t, err)
	require.Equal(t, ReasonCancelled, r)

	_, err = ParseItemOutcome("LOST")
	require.ErrorIs(t, err, ErrInvalidEnum)

	k, err := ParseRunResultKind("PARTIAL_SUCCESS")
	require.NoError(t, err)
	require.Equal(t, ResultPartialSuccess, k)
}
