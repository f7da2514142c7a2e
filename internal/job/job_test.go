// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package job

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultExitCode(t *testing.T) {
	assert.Equal(t, 0, Result{Success: true, Status: StatusExecuted}.ExitCode())
	assert.Equal(t, 1, Result{Status: StatusFailed}.ExitCode())
	assert.Equal(t, 1, Result{Status: StatusCancelled}.ExitCode())
}

func TestCancelFromContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	check := CancelFromContext(ctx)
	assert.False(t, check())
	cancel()
	assert.True(t, check())
}

func TestOr(t *testing.T) {
	yes := func() bool { return true }
	assert.False(t, Or()())
	assert.False(t, Or(nil, Never)())
	assert.True(t, Or(nil, Never, yes)())
}
