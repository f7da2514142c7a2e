// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package workflow holds the registry of runnable workflows.
package workflow

import (
	"context"
	"sort"
	"sync"

	"github.com/ManuGH/dualentry/internal/job"
)

// ProcessResult is what a workflow reports back to the runner.
type ProcessResult struct {
	Success        bool
	LinesProcessed int
	Cancelled      bool
	Error          string
}

// Workflow is a runnable unit of work. A returned error means the workflow
// could not run at all (I/O failure); a ProcessResult with Success=false means
// it ran and failed.
type Workflow interface {
	ID() string
	Description() string
	Run(ctx context.Context, cfg job.Config, cancelled job.CancelCheck) (ProcessResult, error)
}

// Func adapts a function into a Workflow.
type Func struct {
	WorkflowID string
	Summary    string
	Fn         func(ctx context.Context, cfg job.Config, cancelled job.CancelCheck) (ProcessResult, error)
}

func (f Func) ID() string          { return f.WorkflowID }
func (f Func) Description() string { return f.Summary }

func (f Func) Run(ctx context.Context, cfg job.Config, cancelled job.CancelCheck) (ProcessResult, error) {
	return f.Fn(ctx, cfg, cancelled)
}

// Registry maps stable workflow ids to implementations.
type Registry struct {
	mu        sync.RWMutex
	workflows map[string]Workflow
}

// NewRegistry returns a registry holding workflows.
func NewRegistry(workflows ...Workflow) *Registry {
	r := &Registry{workflows: make(map[string]Workflow, len(workflows))}
	for _, w := range workflows {
		r.Register(w)
	}
	return r
}

// Default returns a registry with the built-in workflows.
func Default() *Registry {
	return NewRegistry(TextTransformV1())
}

// Register adds or replaces w.
func (r *Registry) Register(w Workflow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[w.ID()] = w
}

// Lookup returns the workflow registered under id.
func (r *Registry) Lookup(id string) (Workflow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workflows[id]
	return w, ok
}

// IDs lists the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.workflows))
	for id := range r.workflows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
