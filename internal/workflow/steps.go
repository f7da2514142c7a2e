// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Workflow parameter keys.
const (
	KeySteps = "steps"
	KeyOp    = "op"
	KeyValue = "value"
	KeyOld   = "old"
	KeyNew   = "new"
	KeyMS    = "ms"
)

// Step operations.
const (
	OpStrip          = "strip"
	OpUppercase      = "uppercase"
	OpLowercase      = "lowercase"
	OpPrefix         = "prefix"
	OpSuffix         = "suffix"
	OpReplace        = "replace"
	OpFilterContains = "filter_contains"
	OpSleepMS        = "sleep_ms"
)

// SupportedOps lists every known step operation.
func SupportedOps() []string {
	return []string{OpStrip, OpUppercase, OpLowercase, OpPrefix, OpSuffix, OpReplace, OpFilterContains, OpSleepMS}
}

// sleepSlice bounds how long a sleep step runs between cancellation polls.
const sleepSlice = 50 * time.Millisecond

var errStepCancelled = errors.New("step cancelled")

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

// applySteps transforms line. ok is false when a filter dropped the line.
func applySteps(line string, steps []map[string]any, cancelled func() bool) (out string, ok bool, err error) {
	current := line
	for _, step := range steps {
		if cancelled() {
			return "", false, errStepCancelled
		}
		op, _ := step[KeyOp].(string)
		switch op {
		case OpStrip:
			current = strings.TrimSpace(current)
		case OpUppercase:
			current = upper.String(current)
		case OpLowercase:
			current = lower.String(current)
		case OpPrefix:
			current = stringParam(step, KeyValue) + current
		case OpSuffix:
			current += stringParam(step, KeyValue)
		case OpReplace:
			current = strings.ReplaceAll(current, stringParam(step, KeyOld), stringParam(step, KeyNew))
		case OpFilterContains:
			if !strings.Contains(current, stringParam(step, KeyValue)) {
				return "", false, nil
			}
		case OpSleepMS:
			ms, _ := NumberParam(step, KeyMS)
			if sleepInterruptibly(time.Duration(ms*float64(time.Millisecond)), cancelled) {
				return "", false, errStepCancelled
			}
		default:
			return "", false, fmt.Errorf("unknown operation: %q", op)
		}
	}
	return current, true, nil
}

// sleepInterruptibly sleeps for d in slices, reporting whether it was cancelled.
func sleepInterruptibly(d time.Duration, cancelled func() bool) bool {
	for remaining := d; remaining > 0; remaining -= sleepSlice {
		if cancelled() {
			return true
		}
		time.Sleep(min(remaining, sleepSlice))
	}
	return cancelled()
}

func stringParam(step map[string]any, key string) string {
	s, _ := step[key].(string)
	return s
}

// NumberParam reads a numeric step parameter decoded from JSON or YAML.
func NumberParam(step map[string]any, key string) (float64, bool) {
	switch n := step[key].(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Steps extracts the step list from workflow parameters. Entries that are not
// objects are reported as an error.
func Steps(params map[string]any) ([]map[string]any, error) {
	raw, present := params[KeySteps]
	if !present || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("workflow.%s must be a list", KeySteps)
	}
	steps := make([]map[string]any, 0, len(list))
	for i, item := range list {
		step, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("steps[%d] must be an object", i)
		}
		steps = append(steps, step)
	}
	return steps, nil
}
