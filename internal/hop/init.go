package hop

import (
	"context"
	"fmt"
	"time"

	"github.com/radio-control/chanhop/internal/adapter"
	"github.com/radio-control/chanhop/internal/channel"
	"github.com/radio-control/chanhop/internal/logging"
)

// describedRadio is implemented by adapters embedding adapter.AdapterBase.
type describedRadio interface {
	GetInterface() string
	GetModel() string
}

// Init loads the channel table, finds the channel the radio is on and, if
// configured, forces the initial channel. Only a failed initial channel is
// fatal.
func (h *Hopper) Init(ctx context.Context, now time.Time) error {
	bands, err := h.radio.ListFrequencies(ctx)
	if err != nil {
		h.logger.Error(ctx, "could not list frequencies", logging.Err(err))
	}

	table, dropped := channel.Populate(bands)
	h.table = table
	fields := []logging.Field{
		logging.Int("bands", len(bands)),
		logging.Int("channels", table.Count()),
	}
	if d, ok := h.radio.(describedRadio); ok {
		fields = append(fields,
			logging.String("interface", d.GetInterface()),
			logging.String("model", d.GetModel()))
	}
	h.logger.Info(ctx, "channel table loaded", fields...)
	for _, e := range table.Entries() {
		h.logger.Debug(ctx, "channel",
			logging.Int("channel", e.Channel),
			logging.Int("frequencyMhz", e.FrequencyMhz))
	}
	if dropped > 0 {
		h.logger.Warn(ctx, "channel table full, entries dropped",
			logging.Int("reported", adapter.CountChannels(bands)),
			logging.Int("dropped", dropped),
			logging.Err(channel.ErrCapacityExceeded))
	}

	h.active = channel.Unknown
	freq, err := h.radio.GetFrequency(ctx)
	if err != nil {
		h.logger.Warn(ctx, "could not read current frequency", logging.Err(err))
	} else if idx, ok := table.IndexOfFrequency(freq); ok {
		h.active = idx
	} else {
		h.logger.Warn(ctx, "current frequency not in channel table",
			logging.Int("frequencyMhz", freq))
	}

	if initial := h.settings.InitialChannel; initial > 0 {
		idx, ok := table.IndexOfChannel(initial)
		if !ok {
			return fmt.Errorf("%w: channel %d: %w", ErrInitialChannelApplyFailed, initial, channel.ErrNotFound)
		}
		if err := h.apply(ctx, idx, now, ReasonInitial); err != nil {
			return fmt.Errorf("%w: %w", ErrInitialChannelApplyFailed, err)
		}
	} else if h.active.Known() {
		h.settings.InitialChannel = h.CurrentChannel()
	}

	h.initialized = true
	h.logger.Info(ctx, "hopper initialized",
		logging.Int("channel", h.CurrentChannel()),
		logging.Bool("hopping", h.settings.Hopping),
		logging.Duration("dwell", h.settings.Dwell))
	return nil
}
