// SPDX-License-Identifier: MIT
package validate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ManuGH/dualentry/internal/job"
	"github.com/ManuGH/dualentry/internal/workflow"
)

// Result is the outcome of validating a job.
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// JobValidator validates job configs for the runner.
type JobValidator struct{}

// Validate implements the runner's validator contract.
func (JobValidator) Validate(cfg job.Config) Result {
	return ValidateJob(cfg)
}

// ValidateJob checks the workflow id, the input and output paths and the
// step list of a job.
func ValidateJob(cfg job.Config) Result {
	v := New()
	v.NotEmpty("workflow_id", cfg.WorkflowID)
	if strings.TrimSpace(cfg.InputPath) == "" {
		v.AddError("input_path", "input path is required", cfg.InputPath)
	} else {
		v.ExistingFile("input_path", cfg.InputPath)
	}
	if strings.TrimSpace(cfg.OutputPath) == "" {
		v.AddError("output_path", "output path is required", cfg.OutputPath)
	} else {
		v.NotDirectory("output_path", cfg.OutputPath)
	}
	validateSteps(v, cfg.Workflow)

	res := Result{Valid: v.IsValid(), Warnings: append([]string{}, v.Warnings()...)}
	for _, e := range v.Errors() {
		res.Errors = append(res.Errors, e.Message)
	}
	if res.Errors == nil {
		res.Errors = []string{}
	}
	return res
}

func validateSteps(v *Validator, params map[string]any) {
	raw, present := params[workflow.KeySteps]
	if !present || raw == nil {
		return
	}
	list, ok := raw.([]any)
	if !ok {
		v.AddError("workflow.steps", fmt.Sprintf("workflow.%s must be a list", workflow.KeySteps), raw)
		return
	}
	if len(list) == 0 {
		v.AddWarning("workflow has no steps; input is copied unchanged")
	}

	supported := workflow.SupportedOps()
	for idx, item := range list {
		field := fmt.Sprintf("steps[%d]", idx)
		step, ok := item.(map[string]any)
		if !ok {
			v.AddError(field, field+" must be an object", item)
			continue
		}
		op, _ := step[workflow.KeyOp].(string)
		if strings.TrimSpace(op) == "" {
			v.AddError(field, fmt.Sprintf("%s.%s is required", field, workflow.KeyOp), step)
			continue
		}
		if !slices.Contains(supported, op) {
			v.AddError(field, fmt.Sprintf("%s.%s unknown op: %s", field, workflow.KeyOp, op), op)
			continue
		}

		switch op {
		case workflow.OpPrefix, workflow.OpSuffix, workflow.OpFilterContains:
			requireString(v, field, step, workflow.KeyValue)
		case workflow.OpReplace:
			requireString(v, field, step, workflow.KeyOld)
			requireString(v, field, step, workflow.KeyNew)
		case workflow.OpSleepMS:
			ms, ok := workflow.NumberParam(step, workflow.KeyMS)
			if !ok || ms < 0 {
				v.AddError(field, fmt.Sprintf("%s requires non-negative number '%s'", field, workflow.KeyMS), step[workflow.KeyMS])
			}
		}
	}
}

func requireString(v *Validator, field string, step map[string]any, key string) {
	if _, ok := step[key].(string); !ok {
		v.AddError(field, fmt.Sprintf("%s requires string '%s'", field, key), step[key])
	}
}
