// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package runner

import (
	"github.com/ManuGH/dualentry/internal/contract"
	"github.com/ManuGH/dualentry/internal/fsm"
)

// trigger drives the phase machine.
type trigger string

const (
	trBegin         trigger = "begin"
	trValidate      trigger = "validate"
	trReject        trigger = "reject"
	trPrepare       trigger = "prepare"
	trCommit        trigger = "commit"
	trFail          trigger = "fail"
	trClean         trigger = "clean"
	trFinish        trigger = "finish"
	trCleanupFailed trigger = "cleanup_failed"
	trFault         trigger = "fault"
)

// phaseNone is the state before INIT has been entered.
const phaseNone contract.Phase = ""

func phaseTable() []fsm.Transition[contract.Phase, trigger] {
	t := []fsm.Transition[contract.Phase, trigger]{
		{From: phaseNone, Event: trBegin, To: contract.PhaseInit},
		{From: contract.PhaseInit, Event: trValidate, To: contract.PhaseValidated},
		{From: contract.PhaseInit, Event: trReject, To: contract.PhaseFailedValidation},
		{From: contract.PhaseValidated, Event: trReject, To: contract.PhaseFailedValidation},
		{From: contract.PhaseValidated, Event: trPrepare, To: contract.PhaseCommitReady},
		{From: contract.PhaseCommitReady, Event: trCommit, To: contract.PhaseCommitting},
		{From: contract.PhaseCommitting, Event: trFail, To: contract.PhaseFailedCommit},
		{From: contract.PhaseCommitting, Event: trClean, To: contract.PhaseCleaning},
		{From: contract.PhaseCleaning, Event: trFinish, To: contract.PhaseDone},
		// No cleanup step can fail yet; the edge keeps FAILED_CLEANUP reachable.
		{From: contract.PhaseCleaning, Event: trCleanupFailed, To: contract.PhaseFailedCleanup},
	}
	for _, from := range []contract.Phase{
		phaseNone, contract.PhaseInit, contract.PhaseValidated,
		contract.PhaseCommitReady, contract.PhaseCommitting, contract.PhaseCleaning,
	} {
		t = append(t, fsm.Transition[contract.Phase, trigger]{From: from, Event: trFault, To: contract.PhaseFailedCommit})
	}
	return t
}

func newPhaseMachine() *fsm.Machine[contract.Phase, trigger] {
	m, err := fsm.New(phaseNone, phaseTable())
	if err != nil {
		panic("runner: invalid phase table: " + err.Error())
	}
	return m
}
