// Package adapter defines the radio adapter contract used by the channel hopper.
//
// An adapter enumerates the frequencies an interface supports, reports the
// frequency it is currently tuned to, and tunes it. A refused tune is an
// ordinary outcome (regulatory-restricted channels do this routinely), so
// adapters return normalized errors that the hopper can skip past.
package adapter
