package hop

import (
	"math"
	"time"

	"github.com/radio-control/chanhop/internal/channel"
)

// DwellClock tracks how long the active channel has been held.
type DwellClock struct {
	Enabled bool
	Dwell   time.Duration

	lastChange time.Time
}

// Remaining returns the dwell time left at now. It is channel.Forever while
// hopping is disabled and non-positive once a hop is due.
func (c *DwellClock) Remaining(now time.Time) time.Duration {
	if !c.Enabled {
		return channel.Forever
	}

	elapsed := now.UnixMicro() - c.lastChange.UnixMicro()
	return microseconds(c.Dwell.Microseconds() - elapsed)
}

// MarkChanged records a successful channel change at now.
func (c *DwellClock) MarkChanged(now time.Time) {
	c.lastChange = now
}

// LastChange returns the time of the last successful change.
func (c *DwellClock) LastChange() time.Time {
	return c.lastChange
}

// microseconds converts us to a Duration, saturating instead of overflowing.
func microseconds(us int64) time.Duration {
	const perUs = int64(time.Microsecond)
	switch {
	case us > math.MaxInt64/perUs:
		return time.Duration(math.MaxInt64)
	case us < math.MinInt64/perUs:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(us * perUs)
}
