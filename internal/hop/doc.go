// Package hop decides which channel a scanning interface should be tuned to.
//
// A Hopper owns the active channel index and the time it was last changed.
// Once the dwell time runs out, AutoHop walks the channel table in order,
// skipping channels the radio refuses, until one applies or the whole cycle
// has been tried. A Hopper is not safe for concurrent use; the command
// package runs it on a single goroutine.
package hop
