package channel

import (
	"errors"
	"fmt"
)

// MaxChannels is the fixed capacity of a Table.
const MaxChannels = 64

// Table errors.
var (
	ErrCapacityExceeded = errors.New("CAPACITY_EXCEEDED")
	ErrNotFound         = errors.New("NOT_FOUND")
)

// Entry is one channel number / frequency pair as reported by the radio.
type Entry struct {
	Channel      int `json:"channel"`
	FrequencyMhz int `json:"frequencyMhz"`
}

func (e Entry) String() string {
	return fmt.Sprintf("%d (%d MHz)", e.Channel, e.FrequencyMhz)
}

// Table is the ordered, fixed-capacity channel registry.
// The zero value is an empty table ready for use.
type Table struct {
	entries [MaxChannels]Entry
	n       int
}

// NewTable returns a table holding entries in order. Entries beyond
// MaxChannels are dropped; the number dropped is returned.
func NewTable(entries []Entry) (*Table, int) {
	t := &Table{}
	return t, t.AddAll(entries)
}

// Add appends one entry. It fails without mutation once the table is full.
func (t *Table) Add(channel, frequencyMhz int) error {
	if t.n >= MaxChannels {
		return fmt.Errorf("%w: table holds %d channels, dropping %d (%d MHz)",
			ErrCapacityExceeded, MaxChannels, channel, frequencyMhz)
	}

	t.entries[t.n] = Entry{Channel: channel, FrequencyMhz: frequencyMhz}
	t.n++
	return nil
}

// AddAll appends entries in order and returns how many did not fit.
func (t *Table) AddAll(entries []Entry) int {
	dropped := 0
	for _, e := range entries {
		if err := t.Add(e.Channel, e.FrequencyMhz); err != nil {
			dropped++
		}
	}
	return dropped
}

// Count returns the number of entries in the table.
func (t *Table) Count() int {
	if t == nil {
		return 0
	}
	return t.n
}

// EntryAt returns the entry at index i.
func (t *Table) EntryAt(i Index) (Entry, bool) {
	if !t.Contains(i) {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Entries returns a copy of the table contents in hop order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, t.Count())
	if t != nil {
		copy(out, t.entries[:t.n])
	}
	return out
}
