// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package eventlog appends structured lifecycle events to per-run JSONL files.
//
// Writing is best effort: a sink never returns write errors to its callers.
// Failures are reported once through the side-channel logger until a write
// succeeds again.
package eventlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	dlog "github.com/ManuGH/dualentry/internal/log"
	"github.com/rs/zerolog"
)

// TimestampFormat is ISO-8601 with milliseconds and a numeric zone offset.
const TimestampFormat = "2006-01-02T15:04:05.000-07:00"

// Source is the code location an event originated from.
type Source struct {
	Module   string `json:"module"`
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Map renders the source with the same sorted key order as the rest of the entry.
func (s Source) Map() map[string]any {
	return map[string]any{
		"module":   s.Module,
		"function": s.Function,
		"file":     s.File,
		"line":     s.Line,
	}
}

// FailureRecorder is notified about every failed write.
type FailureRecorder interface {
	IncSinkFailure()
}

// Options configures a Sink.
type Options struct {
	// EventLog, when set, receives the events of every run.
	EventLog string
	// Root is the directory for the per-run default layout.
	Root string
	// LoggerName populates the "logger" field of entries lacking one.
	LoggerName string
	// Paths is the run id -> path cache. A fresh store is used when nil.
	Paths *PathStore
	// Logger is the side channel for write failures.
	Logger *zerolog.Logger
	// Clock overrides time.Now.
	Clock func() time.Time
	// Failures is optional.
	Failures FailureRecorder
}

// Sink appends events as newline-delimited JSON.
type Sink struct {
	eventLog   string
	root       string
	loggerName string
	paths      *PathStore
	logger     zerolog.Logger
	clock      func() time.Time
	failures   FailureRecorder

	failureReported atomic.Bool
}

// New creates a sink.
func New(opts Options) *Sink {
	s := &Sink{
		eventLog:   opts.EventLog,
		root:       opts.Root,
		loggerName: opts.LoggerName,
		paths:      opts.Paths,
		clock:      opts.Clock,
		failures:   opts.Failures,
	}
	if s.root == "" {
		s.root = DefaultRoot
	}
	if s.paths == nil {
		s.paths = NewPathStore()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	} else {
		s.logger = dlog.WithComponent("eventlog")
	}
	return s
}

// Paths exposes the run id -> path cache.
func (s *Sink) Paths() *PathStore {
	return s.paths
}

// ResolvePath returns the event log path for runID, fixing it on first use.
func (s *Sink) ResolvePath(runID string) string {
	if p, ok := s.paths.Lookup(runID); ok {
		return p
	}
	candidate := s.eventLog
	if candidate == "" {
		candidate = DefaultPath(s.root, runID, s.clock())
	}
	return s.paths.Remember(runID, candidate)
}

// Append writes payload as one JSON line. ts, source and logger are filled in
// when absent. path may be empty, in which case the run's resolved path is used.
// Write errors are logged and swallowed.
func (s *Sink) Append(path string, payload map[string]any, src Source) {
	runID, _ := payload["run_id"].(string)
	if runID == "" {
		runID = "unknown"
	}
	if path == "" {
		path = s.ResolvePath(runID)
	} else {
		path = s.paths.Remember(runID, path)
	}

	entry := make(map[string]any, len(payload)+3)
	for k, v := range payload {
		entry[k] = v
	}
	if _, ok := entry["ts"]; !ok {
		entry["ts"] = s.clock().Format(TimestampFormat)
	}
	if _, ok := entry["source"]; !ok {
		entry["source"] = src.Map()
	}
	if _, ok := entry["logger"]; !ok && s.loggerName != "" {
		entry["logger"] = s.loggerName
	}

	if err := s.write(path, entry); err != nil {
		if s.failures != nil {
			s.failures.IncSinkFailure()
		}
		if s.failureReported.CompareAndSwap(false, true) {
			s.logger.Warn().
				Err(err).
				Str(dlog.FieldPath, path).
				Str(dlog.FieldRunID, runID).
				Msg("event log write failed")
		}
		return
	}
	s.failureReported.Store(false)
}

func (s *Sink) write(path string, entry map[string]any) error {
	line, err := encodeLine(entry)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create event log directory: %w", err)
	}
	// #nosec G304 -- event log paths come from operator configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append event: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close event log: %w", err)
	}
	return nil
}

// encodeLine renders entry as compact JSON with sorted keys and a trailing \n.
func encodeLine(entry map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entry); err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return buf.Bytes(), nil
}
