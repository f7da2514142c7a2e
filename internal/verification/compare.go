// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package verification compares produced outputs against expected fixtures.
package verification

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Mismatch describes the first line where two files diverge. Line is 1-based;
// an empty side means that file ended first.
type Mismatch struct {
	Line     int    `json:"line"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Result is the outcome of a comparison.
type Result struct {
	Matches  bool      `json:"matches"`
	Mismatch *Mismatch `json:"mismatch,omitempty"`
	Diff     string    `json:"diff,omitempty"`
}

// CompareTextFiles compares two text files line by line. CRLF and CR line
// endings are treated as LF.
func CompareTextFiles(expectedPath, actualPath string) (Result, error) {
	expected, err := readLines(expectedPath)
	if err != nil {
		return Result{}, fmt.Errorf("read expected output: %w", err)
	}
	actual, err := readLines(actualPath)
	if err != nil {
		return Result{}, fmt.Errorf("read actual output: %w", err)
	}

	if cmp.Equal(expected, actual) {
		return Result{Matches: true}, nil
	}
	return Result{
		Mismatch: firstMismatch(expected, actual),
		Diff:     fmt.Sprintf("--- %s\n+++ %s\n%s", expectedPath, actualPath, cmp.Diff(expected, actual)),
	}, nil
}

func readLines(path string) ([]string, error) {
	// #nosec G304 -- paths come from the operator's scenario files
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if text == "" {
		return []string{}, nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

func firstMismatch(expected, actual []string) *Mismatch {
	n := max(len(expected), len(actual))
	for i := range n {
		var e, a string
		if i < len(expected) {
			e = expected[i]
		}
		if i < len(actual) {
			a = actual[i]
		}
		if e != a {
			return &Mismatch{Line: i + 1, Expected: e, Actual: a}
		}
	}
	return nil
}
