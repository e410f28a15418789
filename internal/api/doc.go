// Package api serves the HTTP control and display surface of the hopper.
//
// Responses use a JSON envelope ({"result","data"} or {"result","code",
// "message"}). Hop events are streamed over Server-Sent Events on
// /api/v1/telemetry and Prometheus metrics are served on /metrics.
package api
