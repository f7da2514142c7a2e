// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package runner drives a job through the run lifecycle and emits its
// structured event stream.
package runner

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/ManuGH/dualentry/internal/contract"
	"github.com/ManuGH/dualentry/internal/eventlog"
	"github.com/ManuGH/dualentry/internal/fsm"
	"github.com/ManuGH/dualentry/internal/job"
	dlog "github.com/ManuGH/dualentry/internal/log"
	"github.com/ManuGH/dualentry/internal/metrics"
	"github.com/ManuGH/dualentry/internal/observability"
	"github.com/ManuGH/dualentry/internal/redact"
	"github.com/ManuGH/dualentry/internal/telemetry"
	"github.com/ManuGH/dualentry/internal/validate"
	"github.com/ManuGH/dualentry/internal/workflow"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Validator checks a job before anything runs.
type Validator interface {
	Validate(cfg job.Config) validate.Result
}

// Registry resolves workflow ids.
type Registry interface {
	Lookup(id string) (workflow.Workflow, bool)
}

// Options configures a Runner. Zero values select the defaults.
type Options struct {
	App     string
	Version string
	// EventLog pins every run to one event log file.
	EventLog  string
	Sink      *eventlog.Sink
	Validator Validator
	Registry  Registry
	Metrics   *metrics.Recorder
	Tracer    trace.Tracer
	Logger    *zerolog.Logger
}

// Runner executes jobs. It is safe for concurrent use; every Run is
// independent.
type Runner struct {
	app       string
	version   string
	eventLog  string
	sink      *eventlog.Sink
	validator Validator
	registry  Registry
	metrics   *metrics.Recorder
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// New creates a runner.
func New(opts Options) *Runner {
	r := &Runner{
		app:       opts.App,
		version:   opts.Version,
		eventLog:  opts.EventLog,
		sink:      opts.Sink,
		validator: opts.Validator,
		registry:  opts.Registry,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
	}
	if r.app == "" {
		r.app = "dualentry"
	}
	if opts.Logger != nil {
		r.logger = *opts.Logger
	} else {
		r.logger = dlog.WithComponent("runner")
	}
	if r.sink == nil {
		r.sink = eventlog.New(eventlog.Options{
			EventLog:   r.eventLog,
			LoggerName: contract.LoggerName,
			Failures:   r.metrics,
		})
	}
	if r.validator == nil {
		r.validator = validate.JobValidator{}
	}
	if r.registry == nil {
		r.registry = workflow.Default()
	}
	if r.tracer == nil {
		r.tracer = telemetry.Tracer("github.com/ManuGH/dualentry/internal/runner")
	}
	return r
}

// Run executes cfg and returns its classified result. It never panics and
// always emits run_start first and run_end last. cancelled may be nil; ctx
// cancellation is treated the same as cancelled returning true.
func (r *Runner) Run(ctx context.Context, cfg job.Config, cancelled job.CancelCheck, mode string) (res job.Result) {
	em := observability.Begin(r.sink, observability.Options{
		App:      r.app,
		Version:  r.version,
		Mode:     mode,
		EventLog: r.eventLog,
		Events:   r.metrics,
	})
	rc := em.Run()

	ctx = dlog.ContextWithRunID(ctx, rc.RunID)
	ctx, span := r.tracer.Start(ctx, "dualentry.run",
		trace.WithAttributes(telemetry.RunAttributes(rc.RunID, mode, cfg.WorkflowID)...))
	defer span.End()

	logger := dlog.WithContext(ctx, r.logger).With().
		Str(dlog.FieldMode, mode).
		Str(dlog.FieldWorkflowID, cfg.WorkflowID).
		Logger()

	st := &runState{
		r:         r,
		ctx:       ctx,
		cfg:       cfg,
		em:        em,
		span:      span,
		logger:    logger,
		machine:   newPhaseMachine(),
		cancelled: job.Or(cancelled, job.CancelFromContext(ctx)),
		errors:    []string{},
		warnings:  []string{},
		records:   []map[string]any{},
	}

	defer func() {
		if p := recover(); p != nil {
			info := panicInfo(p)
			st.ensureStarted()
			st.fault(info)
		}
		res = st.finalize()
	}()

	snapshot := configSnapshot(cfg)
	logger.Info().
		Str(dlog.FieldInputPath, cfg.InputPath).
		Str(dlog.FieldEventLog, rc.EventLogPath).
		Msg("job starting")
	logger.Debug().Interface("config", redact.Sanitize(snapshot, "")).Msg("full job config")

	inputs, outputs := observability.IOSnapshot(cfg.InputPath, cfg.OutputPath)
	st.check(em.RunStart(inputs, outputs, snapshot))
	st.started = true

	st.execute()
	return res
}

// runState is the mutable state of one run. It is owned by a single goroutine.
type runState struct {
	r         *Runner
	ctx       context.Context
	cfg       job.Config
	em        *observability.Emitter
	span      trace.Span
	logger    zerolog.Logger
	machine   *fsm.Machine[contract.Phase, trigger]
	cancelled job.CancelCheck
	started   bool

	outcome     contract.ItemOutcome
	reason      contract.ReasonCode
	detail      string
	lines       int
	workflowDur time.Duration
	created     bool
	errors      []string
	warnings    []string
	records     []map[string]any
}

func (s *runState) execute() {
	s.advance(trBegin, "")

	v := s.r.validator.Validate(s.cfg)
	s.warnings = append(s.warnings, v.Warnings...)
	if !v.Valid {
		s.logger.Error().Strs("errors", v.Errors).Msg("validation failed")
		s.advance(trReject, "")
		s.fail(contract.ReasonValidationFailed, sanitizeDetail(strings.Join(v.Errors, "; ")), nil, v.Errors...)
		return
	}
	s.advance(trValidate, "")

	wf, ok := s.r.registry.Lookup(s.cfg.WorkflowID)
	if !ok {
		msg := "Unknown workflow_id: " + s.cfg.WorkflowID
		s.logger.Error().Msg(msg)
		s.advance(trReject, "")
		s.fail(contract.ReasonUnknownWorkflow, msg, nil)
		return
	}

	s.advance(trPrepare, "")
	s.advance(trCommit, "")
	if s.cancelled() {
		s.advance(trFail, "cancelled before workflow start")
		s.cancel()
		return
	}

	start := time.Now()
	pr, err := wf.Run(s.ctx, s.cfg, s.cancelled)
	s.workflowDur = time.Since(start)
	s.lines = pr.LinesProcessed

	switch {
	case err != nil && errors.Is(err, context.Canceled):
		s.advance(trFail, "")
		s.cancel()
	case err != nil:
		reason, detail := classifyError(err)
		s.logger.Error().Err(err).Str(dlog.FieldReasonCode, string(reason)).Msg("workflow error")
		s.advance(trFail, "")
		s.fail(reason, detail, errorInfo(err))
	case pr.Cancelled:
		s.advance(trFail, "")
		s.cancel()
	case !pr.Success:
		msg := pr.Error
		if msg == "" {
			msg = "Unknown error"
		}
		s.logger.Error().Str("error", msg).Msg("job failed")
		s.advance(trFail, "")
		s.fail(contract.ReasonWorkflowFailed, sanitizeDetail(msg), nil, msg)
	case !outputExists(s.cfg.OutputPath):
		msg := "Output file was not created: " + s.cfg.OutputPath
		s.logger.Error().Msg(msg)
		s.advance(trFail, "")
		s.fail(contract.ReasonOutputNotCreated, msg, nil)
	default:
		s.created = true
		s.advance(trClean, "")
		s.advance(trFinish, "")
		s.outcome = contract.OutcomeExecuted
		s.reason = contract.ReasonCompleted
		s.logger.Info().
			Int(dlog.FieldLines, s.lines).
			Str(dlog.FieldOutputPath, s.cfg.OutputPath).
			Msg("job completed")
	}
}

// advance fires t and emits the resulting phase. Illegal transitions and
// contract violations are programming errors and only logged.
func (s *runState) advance(t trigger, notes string) {
	to, err := s.machine.Fire(s.ctx, t)
	if err != nil {
		s.logger.Error().Err(err).Msg("illegal phase transition")
		return
	}
	s.check(s.em.PhaseTransition(to, notes))
	s.span.AddEvent("phase", trace.WithAttributes(telemetry.PhaseAttributes(string(to), s.em.Seq())...))
}

// fail records a classified failure in the current phase.
func (s *runState) fail(reason contract.ReasonCode, detail string, info *observability.ErrorInfo, messages ...string) {
	s.outcome = contract.OutcomeFailed
	s.reason = reason
	s.detail = detail
	if len(messages) == 0 {
		messages = []string{detail}
	}
	s.errors = append(s.errors, messages...)

	phase := s.machine.State()
	s.records = append(s.records, map[string]any{
		"reason_code": string(reason),
		"phase":       string(phase),
		"message":     detail,
	})
	s.check(s.em.Failure(phase, reason, detail, info))
	s.span.SetAttributes(telemetry.ErrorAttributes(string(reason))...)
}

func (s *runState) cancel() {
	s.logger.Warn().Int(dlog.FieldLines, s.lines).Msg("job cancelled")
	s.outcome = contract.OutcomeSkipped
	s.reason = contract.ReasonCancelled
	s.detail = "Cancelled"
	s.errors = append(s.errors, "Cancelled")
}

// ensureStarted emits run_start for a run that faulted before its own
// run_start went out. The workflow body is left out of the config since it
// may be what faulted.
func (s *runState) ensureStarted() {
	if s.started {
		return
	}
	s.started = true
	s.check(s.em.RunStart(map[string]any{}, map[string]any{}, map[string]any{
		"workflow_id": s.cfg.WorkflowID,
		"input_path":  s.cfg.InputPath,
		"output_path": s.cfg.OutputPath,
	}))
}

// fault handles a recovered panic from anywhere in the run.
func (s *runState) fault(info *observability.ErrorInfo) {
	s.logger.Error().
		Str("panic", info.Message).
		Str("where", info.Where).
		Msg("unexpected error")
	if _, err := s.machine.Fire(s.ctx, trFault); err != nil {
		s.logger.Error().Err(err).Msg("illegal phase transition")
	} else {
		s.check(s.em.PhaseTransition(contract.PhaseFailedCommit, "unexpected error"))
	}
	s.fail(contract.ReasonUnexpectedException, sanitizeDetail("Unexpected error: "+info.Message), info)
}

// finalize emits item_terminal and run_end and builds the caller's result.
func (s *runState) finalize() job.Result {
	phase := s.machine.State()
	if s.outcome == "" {
		// execute returned without classifying; treat as an internal fault.
		s.fault(&observability.ErrorInfo{Type: "internal", Message: "run ended without an outcome"})
		phase = s.machine.State()
	}
	elapsed := s.em.Run().Elapsed()

	warnings := make([]any, len(s.warnings))
	for i, w := range s.warnings {
		warnings[i] = w
	}
	s.check(s.em.ItemTerminal(observability.ItemTerminal{
		Phase:        phase,
		ItemID:       s.cfg.InputPath,
		Outcome:      s.outcome,
		FinalPhase:   phase,
		ReasonCode:   s.reason,
		ReasonDetail: s.detail,
		Evidence: map[string]any{
			"lines_processed":     s.lines,
			"validation_warnings": warnings,
			"output":              redact.Path(s.cfg.OutputPath),
		},
		WriteEffects: map[string]any{
			"output_path":    s.cfg.OutputPath,
			"output_created": s.created,
		},
		Duration: elapsed,
	}))

	result := resultKind(s.outcome)
	byFailingPhase := map[string]any{}
	if phase.IsFailed() {
		byFailingPhase[string(phase)] = 1
	}
	s.check(s.em.RunEnd(observability.RunEnd{
		Result: result,
		Summary: map[string]any{
			"items_total":      1,
			"by_outcome":       map[string]any{string(s.outcome): 1},
			"by_failing_phase": byFailingPhase,
			"lines_processed":  s.lines,
		},
		Timings: map[string]any{
			"total":    elapsed.Milliseconds(),
			"workflow": s.workflowDur.Milliseconds(),
		},
		Errors: s.records,
	}))

	s.r.sink.Paths().Forget(s.em.Run().RunID)

	s.r.metrics.ObserveRun(string(result), string(s.reason), elapsed, s.lines)
	s.span.SetAttributes(telemetry.OutcomeAttributes(string(result), string(s.reason), s.lines)...)
	if result == contract.ResultFailure {
		s.span.SetStatus(codes.Error, s.detail)
	}

	res := job.Result{
		Success:        s.outcome == contract.OutcomeExecuted,
		RunID:          s.em.Run().RunID,
		LinesProcessed: s.lines,
		Errors:         s.errors,
		Warnings:       s.warnings,
	}
	switch s.outcome {
	case contract.OutcomeExecuted:
		res.Status = job.StatusExecuted
		res.OutputPath = s.cfg.OutputPath
	case contract.OutcomeSkipped:
		res.Status = job.StatusCancelled
	default:
		res.Status = job.StatusFailed
	}
	return res
}

// check logs contract violations. They never change the run's result.
func (s *runState) check(err error) {
	if err != nil {
		s.logger.Error().Err(err).Msg("event contract violation")
	}
}

func resultKind(outcome contract.ItemOutcome) contract.RunResultKind {
	switch outcome {
	case contract.OutcomeExecuted:
		return contract.ResultSuccess
	case contract.OutcomeSkipped:
		return contract.ResultPartialSuccess
	default:
		return contract.ResultFailure
	}
}

func configSnapshot(cfg job.Config) map[string]any {
	return map[string]any{
		"workflow_id": cfg.WorkflowID,
		"input_path":  cfg.InputPath,
		"output_path": cfg.OutputPath,
		"workflow":    cfg.Workflow,
	}
}

func outputExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
