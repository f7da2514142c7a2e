// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package observability builds and validates the lifecycle events of a run
// and hands them to the event sink.
package observability

import (
	"path"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/dualentry/internal/contract"
	"github.com/ManuGH/dualentry/internal/eventlog"
	"github.com/ManuGH/dualentry/internal/redact"
)

// EventRecorder counts emitted events.
type EventRecorder interface {
	IncEvent(event string)
}

// Options configures Begin.
type Options struct {
	App     string
	Version string
	Mode    string
	// RunID is generated when empty.
	RunID string
	// EventLog overrides the sink's path resolution for this run.
	EventLog string
	Events   EventRecorder
	// Clock overrides time.Now for event timestamps.
	Clock func() time.Time
}

// Emitter emits the events of exactly one run.
type Emitter struct {
	sink   *eventlog.Sink
	run    RunContext
	events EventRecorder
	clock  func() time.Time

	mu  sync.Mutex
	seq int
}

// Begin creates the run context and its emitter. The event log path is
// resolved here and stays fixed for the run.
func Begin(sink *eventlog.Sink, opts Options) *Emitter {
	runID := opts.RunID
	if runID == "" {
		runID = NewRunID()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	var logPath string
	if opts.EventLog != "" {
		logPath = sink.Paths().Remember(runID, opts.EventLog)
	} else {
		logPath = sink.ResolvePath(runID)
	}
	return &Emitter{
		sink:   sink,
		events: opts.Events,
		clock:  clock,
		run: RunContext{
			RunID:        runID,
			App:          opts.App,
			Version:      opts.Version,
			Mode:         opts.Mode,
			StartedAt:    time.Now(),
			EventLogPath: logPath,
		},
	}
}

// Run returns the run context.
func (e *Emitter) Run() RunContext {
	return e.run
}

// Seq returns the phase_seq of the last emitted transition.
func (e *Emitter) Seq() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}

// RunStart emits run_start. inputs, outputs and config are sanitized.
func (e *Emitter) RunStart(inputs, outputs, config map[string]any) error {
	payload := e.base(contract.EventRunStart)
	payload["app"] = e.run.App
	payload["version"] = e.run.Version
	payload["mode"] = e.run.Mode
	payload["inputs"] = redact.Sanitize(inputs, "")
	payload["outputs"] = redact.Sanitize(outputs, "")
	payload["config"] = redact.Sanitize(config, "")
	payload["event_log_path"] = e.run.EventLogPath
	return e.emit(payload)
}

// PhaseTransition emits phase_transition with the next phase_seq. The
// sequence only advances when the event passes validation.
func (e *Emitter) PhaseTransition(phase contract.Phase, notes string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	payload := e.base(contract.EventPhaseTransition)
	payload["phase"] = string(phase)
	payload["phase_seq"] = e.seq + 1
	payload["notes"] = notes
	if err := e.emit(payload); err != nil {
		return err
	}
	e.seq++
	return nil
}

// ErrorInfo is the error block of a failure_event.
type ErrorInfo struct {
	Type    string
	Message string
	Where   string
}

func (i *ErrorInfo) fields() map[string]any {
	if i == nil {
		return map[string]any{}
	}
	out := map[string]any{"type": i.Type, "message": i.Message}
	if i.Where != "" {
		out["where"] = i.Where
	}
	return out
}

// Failure emits failure_event. info may be nil when no error value exists.
func (e *Emitter) Failure(phase contract.Phase, reason contract.ReasonCode, detail string, info *ErrorInfo) error {
	payload := e.base(contract.EventFailure)
	payload["phase"] = string(phase)
	payload["reason_code"] = string(reason)
	payload["reason_detail"] = detail
	payload["error"] = redact.Sanitize(info.fields(), "")
	return e.emit(payload)
}

// ItemTerminal describes the terminal state of the run's unit of work.
type ItemTerminal struct {
	Phase        contract.Phase
	ItemID       string
	Outcome      contract.ItemOutcome
	FinalPhase   contract.Phase
	ReasonCode   contract.ReasonCode
	ReasonDetail string
	Evidence     map[string]any
	WriteEffects map[string]any
	Duration     time.Duration
}

// ItemTerminal emits item_terminal after checking that outcome, final phase
// and reason code agree.
func (e *Emitter) ItemTerminal(it ItemTerminal) error {
	if err := contract.CheckTerminalConsistency(it.Outcome, it.FinalPhase, it.ReasonCode); err != nil {
		return err
	}
	payload := e.base(contract.EventItemTerminal)
	payload["phase"] = string(it.Phase)
	payload["item_id"] = it.ItemID
	payload["outcome"] = string(it.Outcome)
	payload["final_phase"] = string(it.FinalPhase)
	payload["reason_code"] = string(it.ReasonCode)
	payload["reason_detail"] = it.ReasonDetail
	payload["evidence"] = sanitizeMap(it.Evidence)
	payload["write_effects"] = sanitizeMap(it.WriteEffects)
	payload["duration_ms"] = it.Duration.Milliseconds()
	return e.emit(payload)
}

// RunEnd carries the run-level summary.
type RunEnd struct {
	Result    contract.RunResultKind
	Summary   map[string]any
	Timings   map[string]any
	Errors    []map[string]any
	Resources map[string]any
}

// RunEnd emits run_end.
func (e *Emitter) RunEnd(end RunEnd) error {
	errs := make([]any, 0, len(end.Errors))
	for _, rec := range end.Errors {
		errs = append(errs, rec)
	}
	payload := e.base(contract.EventRunEnd)
	payload["app"] = e.run.App
	payload["version"] = e.run.Version
	payload["mode"] = e.run.Mode
	payload["result"] = string(end.Result)
	payload["summary"] = sanitizeMap(end.Summary)
	payload["timings_ms"] = sanitizeMap(end.Timings)
	payload["errors"] = redact.Sanitize(errs, "")
	if end.Resources != nil {
		payload["resources"] = sanitizeMap(end.Resources)
	}
	return e.emit(payload)
}

// IOSnapshot describes the input and output paths for run_start.
func IOSnapshot(inputPath, outputPath string) (inputs, outputs map[string]any) {
	return map[string]any{"input_path": redact.Path(inputPath)},
		map[string]any{"output_path": redact.Path(outputPath)}
}

func (e *Emitter) base(kind contract.EventName) map[string]any {
	return map[string]any{
		"ts":     e.clock().Format(eventlog.TimestampFormat),
		"event":  string(kind),
		"run_id": e.run.RunID,
	}
}

// emit validates payload and appends it. It must be called directly from an
// exported emitter method so the caller frame is the event source.
func (e *Emitter) emit(payload map[string]any) error {
	if err := contract.Validate(payload); err != nil {
		return err
	}
	e.sink.Append(e.run.EventLogPath, payload, callerSource(3))
	if e.events != nil {
		e.events.IncEvent(payload["event"].(string))
	}
	return nil
}

func sanitizeMap(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}
	return redact.Sanitize(m, "")
}

// callerSource resolves the frame skip levels above itself.
func callerSource(skip int) eventlog.Source {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return eventlog.Source{Module: "unknown", Function: "unknown", File: "unknown"}
	}
	module, function := "unknown", "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		module, function = splitFuncName(fn.Name())
	}
	return eventlog.Source{Module: module, Function: function, File: path.Base(file), Line: line}
}

// splitFuncName turns "example.com/pkg.(*T).M" into ("example.com/pkg", "(*T).M").
func splitFuncName(name string) (string, string) {
	slash := strings.LastIndex(name, "/")
	dot := strings.Index(name[slash+1:], ".")
	if dot < 0 {
		return name, name
	}
	cut := slash + 1 + dot
	return name[:cut], name[cut+1:]
}
