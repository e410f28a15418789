package hop

import (
	"context"
	"time"

	"github.com/radio-control/chanhop/internal/channel"
)

// Reason tells observers what caused a channel change.
type Reason string

const (
	ReasonInitial Reason = "initial"
	ReasonHop     Reason = "hop"
	ReasonManual  Reason = "manual"
)

// ChangeEvent is emitted after a channel was applied.
type ChangeEvent struct {
	PreviousIndex channel.Index
	Previous      channel.Entry
	Index         channel.Index
	Entry         channel.Entry
	Reason        Reason
	At            time.Time
}

// FailureEvent is emitted when the radio refused a channel.
type FailureEvent struct {
	Index  channel.Index
	Entry  channel.Entry
	Reason Reason
	Err    error
	At     time.Time
}

// Observer receives hop events. Calls happen on the hopper's goroutine and
// must not block.
type Observer interface {
	ChannelChanged(ctx context.Context, ev ChangeEvent)
	ApplyFailed(ctx context.Context, ev FailureEvent)
	SweepExhausted(ctx context.Context, res SweepResult, at time.Time)
}
