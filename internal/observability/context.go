// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package observability

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// RunContext identifies one execution. It is immutable once created.
type RunContext struct {
	RunID        string
	App          string
	Version      string
	Mode         string
	StartedAt    time.Time
	EventLogPath string
}

// Elapsed is the monotonic time since the run started.
func (rc RunContext) Elapsed() time.Duration {
	return time.Since(rc.StartedAt)
}

// NewRunID returns a random 32-character hex id.
func NewRunID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
