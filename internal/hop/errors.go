package hop

import (
	"errors"
	"fmt"

	"github.com/radio-control/chanhop/internal/channel"
)

// Hop errors.
var (
	// ErrApplyFailed means the radio refused a channel. The sweep absorbs it.
	ErrApplyFailed = errors.New("APPLY_FAILED")

	// ErrCycleExhausted means every candidate of a sweep failed.
	ErrCycleExhausted = errors.New("CYCLE_EXHAUSTED")

	// ErrInitialChannelApplyFailed aborts initialization.
	ErrInitialChannelApplyFailed = errors.New("INITIAL_CHANNEL_APPLY_FAILED")

	// ErrInvalidSetting rejects a runtime settings change.
	ErrInvalidSetting = errors.New("INVALID_SETTING")
)

// ApplyError describes a failed attempt to tune one table entry.
type ApplyError struct {
	Index channel.Index
	Entry channel.Entry
	Err   error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply channel %d (index %d, %d MHz): %v",
		e.Entry.Channel, e.Index, e.Entry.FrequencyMhz, e.Err)
}

// Unwrap exposes both ErrApplyFailed and the radio's error.
func (e *ApplyError) Unwrap() []error {
	return []error{ErrApplyFailed, e.Err}
}
