// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsm is a small strict state machine: an event that has no edge
// from the current state is an error and leaves the state untouched.
package fsm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition is returned by Fire for events without an edge.
var ErrInvalidTransition = errors.New("invalid transition")

// Transition describes a single edge.
// Guard may reject the transition; Action runs side effects before the
// state moves.
type Transition[S ~string, E ~string] struct {
	From   S
	Event  E
	To     S
	Guard  func(ctx context.Context, from S, event E) error
	Action func(ctx context.Context, from S, to S, event E) error
}

// Machine applies transitions from a fixed table.
type Machine[S ~string, E ~string] struct {
	mu      sync.Mutex
	state   S
	index   map[string]Transition[S, E]
	history []S
}

// New validates the table and returns a machine in the initial state.
func New[S ~string, E ~string](initial S, transitions []Transition[S, E]) (*Machine[S, E], error) {
	idx := make(map[string]Transition[S, E], len(transitions))
	for _, t := range transitions {
		k := key(t.From, t.Event)
		if _, exists := idx[k]; exists {
			return nil, fmt.Errorf("duplicate transition: %s -> %s", t.From, t.Event)
		}
		idx[k] = t
	}
	return &Machine[S, E]{state: initial, index: idx}, nil
}

// State returns the current state.
func (m *Machine[S, E]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// History returns every state entered through Fire, in order.
func (m *Machine[S, E]) History() []S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]S(nil), m.history...)
}

// Can reports whether event has an edge from the current state.
func (m *Machine[S, E]) Can(event E) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.index[key(m.state, event)]
	return ok
}

// Fire attempts to apply an event atomically.
func (m *Machine[S, E]) Fire(ctx context.Context, event E) (S, error) {
	m.mu.Lock()
	from := m.state
	t, ok := m.index[key(from, event)]
	if !ok {
		m.mu.Unlock()
		return from, fmt.Errorf("%w: state=%s event=%s", ErrInvalidTransition, from, event)
	}
	to := t.To
	m.mu.Unlock()

	// Guard and Action run outside the lock.
	if t.Guard != nil {
		if err := t.Guard(ctx, from, event); err != nil {
			return from, err
		}
	}
	if t.Action != nil {
		if err := t.Action(ctx, from, to, event); err != nil {
			return from, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != from {
		return m.state, fmt.Errorf("concurrent transition detected: from=%s cur=%s event=%s", from, m.state, event)
	}
	m.state = to
	m.history = append(m.history, to)
	return to, nil
}

func key[S ~string, E ~string](from S, event E) string {
	return string(from) + "|" + string(event)
}
