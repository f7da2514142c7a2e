// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ManuGH/dualentry/internal/contract"
	"github.com/ManuGH/dualentry/internal/eventlog"
	"github.com/ManuGH/dualentry/internal/job"
	"github.com/ManuGH/dualentry/internal/metrics"
	"github.com/ManuGH/dualentry/internal/workflow"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a log sink safe for concurrent runs.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	runner   *Runner
	eventLog string
	logs     *syncBuffer
	metrics  *metrics.Recorder
	dir      string
}

type harnessOption func(*Options)

func withRegistry(reg Registry) harnessOption {
	return func(o *Options) { o.Registry = reg }
}

func withValidator(v Validator) harnessOption {
	return func(o *Options) { o.Validator = v }
}

func newHarness(t *testing.T, eventLog string, opts ...harnessOption) *harness {
	t.Helper()
	dir := t.TempDir()
	if eventLog == "" {
		eventLog = filepath.Join(dir, "events.jsonl")
	}
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	logs := &syncBuffer{}
	logger := zerolog.New(logs).Level(zerolog.DebugLevel)
	rec := metrics.NewRecorder()
	sink := eventlog.New(eventlog.Options{
		EventLog:   eventLog,
		LoggerName: contract.LoggerName,
		Logger:     &logger,
		Failures:   rec,
	})
	o := Options{
		App:      "dualentry",
		Version:  "test",
		EventLog: eventLog,
		Sink:     sink,
		Metrics:  rec,
		Logger:   &logger,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &harness{runner: New(o), eventLog: eventLog, logs: logs, metrics: rec, dir: dir}
}

// textJob writes content to an input file and returns a config for it.
func (h *harness) textJob(t *testing.T, content string, steps ...map[string]any) job.Config {
	t.Helper()
	in := filepath.Join(h.dir, "input.txt")
	require.NoError(t, os.WriteFile(in, []byte(content), 0o600))
	list := make([]any, len(steps))
	for i, s := range steps {
		list[i] = s
	}
	return job.Config{
		WorkflowID: workflow.TextTransformID,
		InputPath:  in,
		OutputPath: filepath.Join(h.dir, "output.txt"),
		Workflow:   map[string]any{workflow.KeySteps: list},
	}
}

func (h *harness) run(t *testing.T, cfg job.Config, cancelled job.CancelCheck) job.Result {
	t.Helper()
	return h.runner.Run(context.Background(), cfg, cancelled, "test")
}

func (h *harness) events(t *testing.T, runID string) []map[string]any {
	t.Helper()
	all, err := eventlog.ReadEvents(h.eventLog)
	require.NoError(t, err)
	return eventlog.FilterRun(all, runID)
}

func ofKind(events []map[string]any, kind contract.EventName) []map[string]any {
	var out []map[string]any
	for _, e := range events {
		if e["event"] == string(kind) {
			out = append(out, e)
		}
	}
	return out
}

func phases(events []map[string]any) []string {
	var out []string
	for _, e := range ofKind(events, contract.EventPhaseTransition) {
		out = append(out, e["phase"].(string))
	}
	return out
}

func single(t *testing.T, events []map[string]any, kind contract.EventName) map[string]any {
	t.Helper()
	got := ofKind(events, kind)
	require.Len(t, got, 1, "expected exactly one %s", kind)
	return got[0]
}

func staticWorkflow(res workflow.ProcessResult, err error) Registry {
	return workflow.NewRegistry(workflow.Func{
		WorkflowID: "static",
		Fn: func(context.Context, job.Config, job.CancelCheck) (workflow.ProcessResult, error) {
			return res, err
		},
	})
}
