// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scenario

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/dualentry/internal/eventlog"
	"github.com/ManuGH/dualentry/internal/job"
	"github.com/ManuGH/dualentry/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu       sync.Mutex
	seen     []string
	inflight atomic.Int32
	peak     atomic.Int32
	result   func(cfg job.Config) job.Result
}

func (f *fakeRunner) Run(_ context.Context, cfg job.Config, _ job.CancelCheck, _ string) job.Result {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)

	f.mu.Lock()
	f.seen = append(f.seen, cfg.WorkflowID)
	f.mu.Unlock()
	return f.result(cfg)
}

func scenarioJSON(id string, success bool) string {
	return fmt.Sprintf(`{"id":%q,"job":{"workflow_id":%q,"input_path":"in.txt","output_path":"out.txt"},"expected":{"success":%t}}`,
		id, id, success)
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	expected := writeFile(t, filepath.Join(dir, "expected.txt"), "A\n")
	same := writeFile(t, filepath.Join(dir, "same.txt"), "A\r\n")
	other := writeFile(t, filepath.Join(dir, "other.txt"), "B\n")

	sc := Scenario{Expected: Expected{Success: true, OutputPath: expected}}

	v, err := Check(sc, job.Result{Success: true, OutputPath: same})
	require.NoError(t, err)
	assert.True(t, v.Passed)

	v, err = Check(sc, job.Result{Success: true, OutputPath: other})
	require.NoError(t, err)
	assert.False(t, v.Passed)
	assert.Equal(t, "output mismatch", v.Reason)
	assert.NotEmpty(t, v.Diff)

	v, err = Check(sc, job.Result{Success: false})
	require.NoError(t, err)
	assert.False(t, v.Passed)
	assert.Equal(t, "expected success=true but got success=false", v.Reason)

	v, err = Check(Scenario{Expected: Expected{Success: false}}, job.Result{Success: false})
	require.NoError(t, err)
	assert.True(t, v.Passed)

	_, err = Check(sc, job.Result{Success: true, OutputPath: filepath.Join(dir, "absent.txt")})
	require.Error(t, err)
}

func TestRunSuite_OrderLimitAndFailures(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := range 6 {
		id := fmt.Sprintf("s%d", i)
		paths = append(paths, writeFile(t, filepath.Join(dir, id+".json"), scenarioJSON(id, i != 3)))
	}
	paths = append(paths, writeFile(t, filepath.Join(dir, "broken.json"), `{"id":`))

	fr := &fakeRunner{result: func(cfg job.Config) job.Result {
		return job.Result{Success: true, RunID: "r-" + cfg.WorkflowID, Status: job.StatusExecuted}
	}}

	outcomes := RunSuite(context.Background(), fr, paths, 2, "cli")
	require.Len(t, outcomes, len(paths))

	for i, o := range outcomes {
		assert.Equal(t, paths[i], o.Path)
	}
	for i := range 6 {
		o := outcomes[i]
		require.NoError(t, o.Err)
		assert.Equal(t, fmt.Sprintf("s%d", i), o.Scenario.ID)
		assert.Equal(t, "r-"+o.Scenario.ID, o.Result.RunID)
		assert.Equal(t, i == 3, o.Failed(), "scenario %d", i)
	}
	broken := outcomes[6]
	assert.ErrorIs(t, broken.Err, ErrInvalidScenario)
	assert.True(t, broken.Failed())

	assert.Len(t, fr.seen, 6)
	assert.LessOrEqual(t, fr.peak.Load(), int32(2))
}

func TestRunSuite_WithRunner(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data", "in.txt"), "  hello \nworld\n")
	writeFile(t, filepath.Join(dir, "data", "expected.txt"), "HELLO\nWORLD\n")
	path := writeFile(t, filepath.Join(dir, "upper.yaml"), `
id: upper
job:
  workflow_id: text_transform_v1
  input_path: data/in.txt
  output_path: out/result.txt
  workflow:
    steps:
      - op: strip
      - op: uppercase
expected:
  success: true
  output_path: data/expected.txt
`)
	missing := writeFile(t, filepath.Join(dir, "missing.json"),
		`{"id":"missing","job":{"workflow_id":"text_transform_v1","input_path":"nope.txt","output_path":"o.txt"},"expected":{"success":false}}`)

	eventLog := filepath.Join(dir, "events.jsonl")
	r := runner.New(runner.Options{EventLog: eventLog})

	outcomes := RunSuite(context.Background(), r, []string{path, missing}, 2, "cli")
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		require.NoError(t, o.Err)
		assert.True(t, o.Verdict.Passed, "%s: %s %s", o.Scenario.ID, o.Verdict.Reason, o.Verdict.Diff)
	}
	assert.Equal(t, job.StatusExecuted, outcomes[0].Result.Status)
	assert.Equal(t, 2, outcomes[0].Result.LinesProcessed)
	assert.Equal(t, job.StatusFailed, outcomes[1].Result.Status)

	events, err := eventlog.ReadEvents(eventLog)
	require.NoError(t, err)
	assert.NotEmpty(t, eventlog.FilterRun(events, outcomes[0].Result.RunID))
	assert.NotEmpty(t, eventlog.FilterRun(events, outcomes[1].Result.RunID))
}
