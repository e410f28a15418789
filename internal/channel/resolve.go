package channel

import (
	"math"
	"time"
)

// Index is a position in a Table. Unknown marks "no channel confirmed yet".
type Index int

// Sentinels kept for compact internal representation.
const (
	Unknown Index = -1
	// Invalid is the channel number reported for an index outside the table.
	Invalid = -1
)

// Forever is the largest representable dwell time.
const Forever = time.Duration(math.MaxInt64)

// Known reports whether i refers to a confirmed position.
func (i Index) Known() bool {
	return i != Unknown
}

// Contains reports whether i addresses an entry of the table.
func (t *Table) Contains(i Index) bool {
	return t != nil && i >= 0 && int(i) < t.n && int(i) < MaxChannels
}

// IndexOfChannel returns the first index carrying channel number c.
func (t *Table) IndexOfChannel(c int) (Index, bool) {
	for i := 0; i < t.Count(); i++ {
		if t.entries[i].Channel == c {
			return Index(i), true
		}
	}
	return Unknown, false
}

// IndexOfFrequency returns the first index tuned to frequencyMhz.
func (t *Table) IndexOfFrequency(frequencyMhz int) (Index, bool) {
	for i := 0; i < t.Count(); i++ {
		if t.entries[i].FrequencyMhz == frequencyMhz {
			return Index(i), true
		}
	}
	return Unknown, false
}

// ChannelAt returns the channel number at i, or Invalid. Callers probe with
// stale or unknown indices routinely, so this never fails.
func (t *Table) ChannelAt(i Index) int {
	if !t.Contains(i) {
		return Invalid
	}
	return t.entries[i].Channel
}

// FrequencyAt returns the frequency at i.
func (t *Table) FrequencyAt(i Index) (int, bool) {
	e, ok := t.EntryAt(i)
	return e.FrequencyMhz, ok
}
