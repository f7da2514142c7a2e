// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package scenario loads scenario files: a job plus the outcome it is
// expected to produce.
package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ManuGH/dualentry/internal/job"
	"github.com/ManuGH/dualentry/internal/log"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario classifies every load failure. The CLI maps it to exit code 2.
var ErrInvalidScenario = errors.New("invalid scenario")

const (
	keyID          = "id"
	keyDescription = "description"
	keyJob         = "job"
	keyExpected    = "expected"
	keyWorkflowID  = "workflow_id"
	keyInputPath   = "input_path"
	keyOutputPath  = "output_path"
	keyWorkflow    = "workflow"
	keySuccess     = "success"
)

// Expected is the outcome a scenario asserts. An empty OutputPath skips the
// content comparison.
type Expected struct {
	Success    bool
	OutputPath string
}

// Scenario is a loaded scenario file. Relative paths are already resolved
// against the scenario's directory.
type Scenario struct {
	ID          string
	Description string
	Job         job.Config
	Expected    Expected
	SourcePath  string
}

// ListFiles returns the scenario files directly inside dir, sorted. A missing
// directory yields no files.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !isScenarioFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func isScenarioFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads and checks the scenario at path.
func Load(path string) (Scenario, error) {
	raw, err := decode(path)
	if err != nil {
		return Scenario{}, err
	}
	invalid := func(key string) error {
		return fmt.Errorf("%w: missing/invalid '%s' in: %s", ErrInvalidScenario, key, path)
	}
	baseDir := filepath.Dir(path)

	id, ok := nonBlank(raw[keyID])
	if !ok {
		return Scenario{}, invalid(keyID)
	}
	var description string
	if v, present := raw[keyDescription]; present && v != nil {
		if description, ok = v.(string); !ok {
			return Scenario{}, invalid(keyDescription)
		}
	}

	jobRaw, ok := raw[keyJob].(map[string]any)
	if !ok {
		return Scenario{}, invalid(keyJob)
	}
	workflowID, ok := nonBlank(jobRaw[keyWorkflowID])
	if !ok {
		return Scenario{}, invalid(keyWorkflowID)
	}
	input, ok := resolve(jobRaw[keyInputPath], baseDir)
	if !ok {
		return Scenario{}, invalid(keyInputPath)
	}
	output, ok := resolve(jobRaw[keyOutputPath], baseDir)
	if !ok {
		return Scenario{}, invalid(keyOutputPath)
	}
	params := map[string]any{}
	if v := jobRaw[keyWorkflow]; v != nil {
		if params, ok = v.(map[string]any); !ok {
			return Scenario{}, invalid(keyWorkflow)
		}
	}

	expected := Expected{Success: true}
	if v := raw[keyExpected]; v != nil {
		expRaw, ok := v.(map[string]any)
		if !ok {
			return Scenario{}, invalid(keyExpected)
		}
		if s, present := expRaw[keySuccess]; present {
			if expected.Success, ok = s.(bool); !ok {
				return Scenario{}, invalid(keySuccess)
			}
		}
		if p := expRaw[keyOutputPath]; p != nil {
			if expected.OutputPath, ok = resolve(p, baseDir); !ok {
				return Scenario{}, invalid(keyOutputPath)
			}
		}
	}

	logger := log.WithComponent("scenario")
	logger.Debug().
		Str(log.FieldScenarioID, id).
		Str(log.FieldPath, path).
		Msg("loaded scenario")

	return Scenario{
		ID:          id,
		Description: description,
		Job: job.Config{
			WorkflowID: workflowID,
			InputPath:  input,
			OutputPath: output,
			Workflow:   params,
		},
		Expected:   expected,
		SourcePath: path,
	}, nil
}

func decode(path string) (map[string]any, error) {
	// #nosec G304 -- scenario paths are provided by the operator
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: scenario file not found: %s", ErrInvalidScenario, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidScenario, path, err)
	}

	var doc any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse scenario file: %s: %v", ErrInvalidScenario, path, err)
	}

	root, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: scenario root must be an object: %s", ErrInvalidScenario, path)
	}
	return root, nil
}

func nonBlank(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func resolve(v any, baseDir string) (string, bool) {
	s, ok := nonBlank(v)
	if !ok {
		return "", false
	}
	if filepath.IsAbs(s) {
		return s, true
	}
	return filepath.Join(baseDir, s), true
}
