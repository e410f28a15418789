package command

import (
	"time"

	"github.com/radio-control/chanhop/internal/channel"
	"github.com/radio-control/chanhop/internal/hop"
)

// Snapshot is a read-only copy of the hop state.
type Snapshot struct {
	Initialized    bool
	Index          channel.Index
	Channel        int
	FrequencyMhz   int
	Hopping        bool
	Dwell          time.Duration
	ChannelCeiling int
	InitialChannel int
	CycleLength    int
	LastChange     time.Time
	LastSweep      hop.SweepResult
	Channels       []channel.Entry
}

// Remaining returns the dwell time left at now, as the hopper computes it.
func (s Snapshot) Remaining(now time.Time) time.Duration {
	c := hop.DwellClock{Enabled: s.Hopping, Dwell: s.Dwell}
	c.MarkChanged(s.LastChange)
	return c.Remaining(now)
}

func snapshotOf(h *hop.Hopper, last hop.SweepResult, channels []channel.Entry) Snapshot {
	settings := h.Settings()
	freq, _ := h.Table().FrequencyAt(h.ActiveIndex())
	return Snapshot{
		Initialized:    h.Initialized(),
		Index:          h.ActiveIndex(),
		Channel:        h.CurrentChannel(),
		FrequencyMhz:   freq,
		Hopping:        settings.Hopping,
		Dwell:          settings.Dwell,
		ChannelCeiling: settings.ChannelCeiling,
		InitialChannel: settings.InitialChannel,
		CycleLength:    h.CycleLength(),
		LastChange:     h.LastChange(),
		LastSweep:      last,
		Channels:       channels,
	}
}
