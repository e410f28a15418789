package hop

import (
	"context"
	"fmt"
	"time"

	"github.com/radio-control/chanhop/internal/adapter"
	"github.com/radio-control/chanhop/internal/channel"
	"github.com/radio-control/chanhop/internal/logging"
)

// SweepResult reports the outcome of one AutoHop call.
type SweepResult struct {
	// Hopped is true when a candidate was applied.
	Hopped bool
	// Index is the active index after the call.
	Index channel.Index
	// Attempts counts SetFrequency calls made by the sweep.
	Attempts int
	// Exhausted is true when every attempt failed.
	Exhausted bool
}

// Hopper owns the active channel of one radio interface.
type Hopper struct {
	radio     adapter.IRadioAdapter
	table     *channel.Table
	settings  Settings
	clock     DwellClock
	active    channel.Index
	logger    logging.Logger
	observers []Observer

	initialized bool
}

// New creates a hopper for radio. The table stays empty until Init.
func New(radio adapter.IRadioAdapter, settings Settings, logger logging.Logger) *Hopper {
	if logger == nil {
		logger = logging.Noop()
	}
	return &Hopper{
		radio:    radio,
		table:    &channel.Table{},
		settings: settings,
		clock:    DwellClock{Enabled: settings.Hopping, Dwell: settings.Dwell},
		active:   channel.Unknown,
		logger:   logger,
	}
}

// AddObserver registers o for hop events.
func (h *Hopper) AddObserver(o Observer) {
	h.observers = append(h.observers, o)
}

// Apply tunes the radio to the entry at idx. On failure nothing changes.
func (h *Hopper) Apply(ctx context.Context, idx channel.Index, now time.Time) error {
	return h.apply(ctx, idx, now, ReasonManual)
}

// ChangeChannel applies the entry carrying channel number ch.
func (h *Hopper) ChangeChannel(ctx context.Context, ch int, now time.Time) error {
	idx, ok := h.table.IndexOfChannel(ch)
	if !ok {
		return fmt.Errorf("channel %d: %w", ch, channel.ErrNotFound)
	}
	return h.apply(ctx, idx, now, ReasonManual)
}

func (h *Hopper) apply(ctx context.Context, idx channel.Index, now time.Time, reason Reason) error {
	entry, ok := h.table.EntryAt(idx)
	if !ok {
		return &ApplyError{Index: idx, Err: fmt.Errorf("index %d: %w", idx, channel.ErrNotFound)}
	}

	if err := h.radio.SetFrequency(ctx, entry.FrequencyMhz); err != nil {
		h.logger.Error(ctx, "could not set channel",
			logging.Int("channel", entry.Channel),
			logging.Int("frequencyMhz", entry.FrequencyMhz),
			logging.Err(err))
		ev := FailureEvent{Index: idx, Entry: entry, Reason: reason, Err: err, At: now}
		for _, o := range h.observers {
			o.ApplyFailed(ctx, ev)
		}
		return &ApplyError{Index: idx, Entry: entry, Err: err}
	}

	prevIdx := h.active
	prev, _ := h.table.EntryAt(prevIdx)
	h.active = idx
	h.clock.MarkChanged(now)

	ev := ChangeEvent{
		PreviousIndex: prevIdx,
		Previous:      prev,
		Index:         idx,
		Entry:         entry,
		Reason:        reason,
		At:            now,
	}
	for _, o := range h.observers {
		o.ChannelChanged(ctx, ev)
	}
	return nil
}

// AutoHop moves to the next channel once the dwell time has run out.
func (h *Hopper) AutoHop(ctx context.Context, now time.Time) SweepResult {
	res := SweepResult{Index: h.active}
	if !h.Due(now) {
		return res
	}

	start := h.active
	limit := h.CycleLength()
	for idx := start; res.Attempts < limit; {
		idx = h.next(idx)
		res.Attempts++
		if err := h.apply(ctx, idx, now, ReasonHop); err == nil {
			res.Hopped = true
			res.Index = idx
			return res
		}
		if idx == start {
			break
		}
	}

	res.Exhausted = true
	h.logger.Warn(ctx, "no channel could be applied",
		logging.Int("channel", h.CurrentChannel()),
		logging.Int("attempts", res.Attempts),
		logging.Err(ErrCycleExhausted))
	for _, o := range h.observers {
		o.SweepExhausted(ctx, res, now)
	}
	return res
}

// Due reports whether AutoHop would sweep at now. Nothing is due until a
// channel is confirmed, while hopping is off, or while dwell time remains.
func (h *Hopper) Due(now time.Time) bool {
	if !h.active.Known() || !h.settings.Hopping {
		return false
	}
	return h.clock.Remaining(now) <= 0
}

// next returns the candidate after i in hop order.
func (h *Hopper) next(i channel.Index) channel.Index {
	n := i + 1
	if int(n) >= min(h.table.Count(), channel.MaxChannels) {
		return 0
	}
	if ceiling := h.settings.ChannelCeiling; ceiling > 0 && h.table.ChannelAt(n) > ceiling {
		return 0
	}
	return n
}

// CycleLength is the number of indices reachable from 0 before wrapping.
func (h *Hopper) CycleLength() int {
	if h.table.Count() == 0 {
		return 0
	}
	n := 1
	for i := h.next(0); i != 0; i = h.next(i) {
		n++
	}
	return n
}

// Remaining returns the dwell time left on the active channel.
func (h *Hopper) Remaining(now time.Time) time.Duration {
	return h.clock.Remaining(now)
}

// LastChange returns when the active channel was applied.
func (h *Hopper) LastChange() time.Time {
	return h.clock.LastChange()
}

// CurrentChannel returns the active channel number, or channel.Invalid.
func (h *Hopper) CurrentChannel() int {
	return h.table.ChannelAt(h.active)
}

// ActiveIndex returns the active index, possibly channel.Unknown.
func (h *Hopper) ActiveIndex() channel.Index {
	return h.active
}

// Table returns the channel table. It must not be modified after Init.
func (h *Hopper) Table() *channel.Table {
	return h.table
}

// Settings returns the current settings.
func (h *Hopper) Settings() Settings {
	return h.settings
}

// Initialized reports whether Init completed.
func (h *Hopper) Initialized() bool {
	return h.initialized
}

// SetHopping enables or disables automatic hopping.
func (h *Hopper) SetHopping(enabled bool) {
	h.settings.Hopping = enabled
	h.clock.Enabled = enabled
}

// SetDwell changes the dwell time. The running dwell is measured against it.
func (h *Hopper) SetDwell(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("dwell %v: %w", d, ErrInvalidSetting)
	}
	h.settings.Dwell = d
	h.clock.Dwell = d
	return nil
}

// SetChannelCeiling limits hopping to channels up to ceiling; 0 removes it.
func (h *Hopper) SetChannelCeiling(ceiling int) error {
	if ceiling < 0 {
		return fmt.Errorf("channel ceiling %d: %w", ceiling, ErrInvalidSetting)
	}
	h.settings.ChannelCeiling = ceiling
	return nil
}
