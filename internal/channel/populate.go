package channel

import "github.com/radio-control/chanhop/internal/adapter"

// Populate builds a table from the bands a radio reports, band by band in
// reported order. Channels beyond MaxChannels are dropped and counted.
func Populate(bands []adapter.Band) (*Table, int) {
	t := &Table{}
	dropped := 0
	for _, b := range bands {
		for _, ch := range b.Channels {
			if err := t.Add(ch.Number, ch.FrequencyMhz); err != nil {
				dropped++
			}
		}
	}
	return t, dropped
}
