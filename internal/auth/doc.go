// Package auth verifies bearer tokens for the control API.
//
// Tokens are JWTs signed with HS256 (shared secret) or RS256 (PEM public
// key). Viewers may read state and subscribe to telemetry; controllers may
// also change the channel and the hop settings.
package auth
