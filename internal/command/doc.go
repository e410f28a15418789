// Package command runs the hopper on a single goroutine.
//
// The Orchestrator owns the hop.Hopper: a ticker drives AutoHop and API
// intents are queued and executed between ticks. Readers use Snapshot,
// which never touches the hopper.
package command
