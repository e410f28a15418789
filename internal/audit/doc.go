// Package audit writes an append-only JSONL trail of channel changes and
// operator actions. Files are rotated by size.
package audit
