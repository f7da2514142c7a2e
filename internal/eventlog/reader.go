// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// ReadEvents parses every non-blank line of a JSONL event log.
func ReadEvents(path string) ([]map[string]any, error) {
	// #nosec G304 -- reading an operator-selected event log
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var events []map[string]any
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var event map[string]any
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("parse event line %d: %w", lineNo, err)
		}
		events = append(events, event)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	return events, nil
}

// FilterRun keeps the events that belong to runID, preserving order.
func FilterRun(events []map[string]any, runID string) []map[string]any {
	out := make([]map[string]any, 0, len(events))
	for _, e := range events {
		if id, _ := e["run_id"].(string); id == runID {
			out = append(out, e)
		}
	}
	return out
}
