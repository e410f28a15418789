// Package channel implements the channel table of a scanning radio interface.
//
// The table holds the channel number / frequency pairs reported by the radio
// at startup, in the order the radio reported them. That order is also the
// hop order. The table is populated once and is read-only afterwards, so it
// can be shared with display and API code without locking.
//
// Lookups never fault on stale or unknown indices: ChannelAt returns Invalid
// and the (value, ok) accessors return false.
package channel
