// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventlog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 2, 9, 13, 14, 15, 123_000_000, time.UTC)

type countingRecorder struct {
	mu sync.Mutex
	n  int
}

func (c *countingRecorder) IncSinkFailure() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func newTestSink(t *testing.T, opts Options) (*Sink, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	opts.Logger = &logger
	opts.Clock = func() time.Time { return fixedNow }
	if opts.LoggerName == "" {
		opts.LoggerName = "dualentry.events"
	}
	return New(opts), &buf
}

func TestDefaultPath(t *testing.T) {
	got := DefaultPath("", "stable-run-id", fixedNow)
	assert.Equal(t, filepath.Join("run-logs", "20260209", "stable-run-id.jsonl"), got)

	local := time.Date(2026, 2, 10, 0, 30, 0, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, filepath.Join("logs", "20260209", "r.jsonl"), DefaultPath("logs", "r", local))
}

func TestPathStore_ConcurrentFirstResolutionWins(t *testing.T) {
	store := NewPathStore()
	const n = 32
	got := make([]string, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			got[i] = store.Remember("run-1", filepath.Join("logs", fmt.Sprintf("candidate-%d.jsonl", i)))
		}(i)
	}
	close(start)
	wg.Wait()

	winner, ok := store.Lookup("run-1")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(winner, filepath.Join("logs", "candidate-")))
	for i, p := range got {
		assert.Equal(t, winner, p, "caller %d", i)
	}

	assert.Equal(t, winner, store.Remember("run-1", "late.jsonl"))
	store.Forget("run-1")
	_, ok = store.Lookup("run-1")
	assert.False(t, ok)
}

func TestSink_AppendFillsDefaultsAndSortsKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")
	sink, _ := newTestSink(t, Options{EventLog: path})

	sink.Append("", map[string]any{"run_id": "r1", "event": "run_start", "b": 2, "a": 1},
		Source{Module: "runner", Function: "Run", File: "runner.go", Line: 42})

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSuffix(string(raw), "\n")
	require.NotContains(t, line, "\n")
	assert.True(t, strings.HasPrefix(line, `{"a":1,"b":2,"event":"run_start","logger":"dualentry.events","run_id":"r1","source":{"file":"runner.go"`), line)

	events, err := ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2026-02-09T13:14:15.123+00:00", events[0]["ts"])
	assert.Equal(t, "dualentry.events", events[0]["logger"])
	src := events[0]["source"].(map[string]any)
	assert.Equal(t, "runner", src["module"])
	assert.Equal(t, float64(42), src["line"])
}

func TestSink_AppendKeepsCallerSuppliedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	sink, _ := newTestSink(t, Options{EventLog: path})

	sink.Append("", map[string]any{
		"run_id": "r1",
		"ts":     "given",
		"logger": "other",
		"source": map[string]any{"module": "x"},
	}, Source{Module: "ignored"})

	events, err := ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "given", events[0]["ts"])
	assert.Equal(t, "other", events[0]["logger"])
	assert.Equal(t, map[string]any{"module": "x"}, events[0]["source"])
}

func TestSink_DefaultLayoutAndStablePath(t *testing.T) {
	root := filepath.Join(t.TempDir(), "run-logs")
	sink, _ := newTestSink(t, Options{Root: root})

	first := sink.ResolvePath("stable-run-id")
	assert.Equal(t, filepath.Join(root, "20260209", "stable-run-id.jsonl"), first)

	sink.clock = func() time.Time { return fixedNow.Add(48 * time.Hour) }
	assert.Equal(t, first, sink.ResolvePath("stable-run-id"))

	sink.Append("", map[string]any{"run_id": "stable-run-id", "event": "run_start"}, Source{})
	sink.Append("", map[string]any{"run_id": "stable-run-id", "event": "run_end"}, Source{})

	events, err := ReadEvents(first)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "run_start", events[0]["event"])
	assert.Equal(t, "run_end", events[1]["event"])
}

func TestSink_ExplicitPathIsRememberedPerRun(t *testing.T) {
	dir := t.TempDir()
	sink, _ := newTestSink(t, Options{Root: dir})
	explicit := filepath.Join(dir, "custom.jsonl")

	sink.Append(explicit, map[string]any{"run_id": "r1", "event": "run_start"}, Source{})
	sink.Append("", map[string]any{"run_id": "r1", "event": "run_end"}, Source{})

	events, err := ReadEvents(explicit)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestSink_FailureIsSwallowedAndReportedOnce(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	rec := &countingRecorder{}
	sink, logs := newTestSink(t, Options{EventLog: filepath.Join(blocker, "events.jsonl"), Failures: rec})

	for i := 0; i < 3; i++ {
		sink.Append("", map[string]any{"run_id": "r1", "event": "run_start"}, Source{})
	}

	assert.Equal(t, 1, strings.Count(logs.String(), "event log write failed"))
	assert.Equal(t, 3, rec.n)
}

func TestSink_FailureWarningRearmsAfterSuccess(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	sink, logs := newTestSink(t, Options{})

	bad := filepath.Join(blocker, "a.jsonl")
	good := filepath.Join(dir, "b.jsonl")
	sink.Append(bad, map[string]any{"run_id": "bad-1"}, Source{})
	sink.Append(good, map[string]any{"run_id": "good"}, Source{})
	sink.Append(bad, map[string]any{"run_id": "bad-2"}, Source{})

	assert.Equal(t, 2, strings.Count(logs.String(), "event log write failed"))
}

func TestSink_ConcurrentAppendsKeepLinesWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	sink, _ := newTestSink(t, Options{EventLog: path})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				sink.Append("", map[string]any{"run_id": "r1", "worker": w, "i": i, "pad": strings.Repeat("x", 200)}, Source{})
			}
		}(w)
	}
	wg.Wait()

	events, err := ReadEvents(path)
	require.NoError(t, err)
	assert.Len(t, events, 200)
}

func TestFilterRun(t *testing.T) {
	events := []map[string]any{
		{"run_id": "a", "n": 1},
		{"run_id": "b", "n": 2},
		{"run_id": "a", "n": 3},
		{"n": 4},
	}
	got := FilterRun(events, "a")
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0]["n"])
	assert.Equal(t, 3, got[1]["n"])
}

func TestReadEvents_ReportsBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"run_id\":\"a\"}\n\nnot json\n"), 0o600))

	_, err := ReadEvents(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}
