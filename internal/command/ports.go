package command

import (
	"context"
	"errors"
	"time"

	"github.com/radio-control/chanhop/internal/hop"
)

// AuditLogger records operator actions.
type AuditLogger interface {
	LogControlAction(ctx context.Context, at time.Time, user, action string, params map[string]interface{}, err error)
}

// SweepRecorder receives the result of every sweep that ran.
type SweepRecorder interface {
	ObserveSweep(res hop.SweepResult)
}

// HopUpdate changes hop settings at runtime. Nil fields are left alone.
type HopUpdate struct {
	Hopping        *bool
	Dwell          *time.Duration
	ChannelCeiling *int
}

// Orchestrator errors.
var (
	// ErrNotRunning means the loop is not accepting commands.
	ErrNotRunning = errors.New("UNAVAILABLE")

	// ErrInvalidParameter indicates a required parameter is missing or structurally invalid.
	ErrInvalidParameter = errors.New("BAD_REQUEST")
)
