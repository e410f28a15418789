// Package telemetry streams hop events to HTTP clients as Server-Sent Events.
//
// Events carry monotonic IDs and are kept in a bounded buffer so a client
// reconnecting with Last-Event-ID receives what it missed.
package telemetry
