package hop

import "time"

// Settings are the hopping parameters. InitialChannel is rewritten by Init
// to the channel the radio was found on when no channel is forced.
type Settings struct {
	Hopping        bool
	Dwell          time.Duration
	ChannelCeiling int
	InitialChannel int
}
