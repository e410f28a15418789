package api

import (
	"context"
	"net/http"

	"github.com/radio-control/chanhop/internal/command"
	"github.com/radio-control/chanhop/internal/telemetry"
)

// OrchestratorPort is what the API needs from the orchestrator.
type OrchestratorPort interface {
	Snapshot() command.Snapshot
	SetChannel(ctx context.Context, user string, ch int) error
	UpdateHop(ctx context.Context, user string, u command.HopUpdate) error
}

// TelemetryPort streams hop events to a client.
type TelemetryPort interface {
	Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error
	ClientCount() int
}

var _ OrchestratorPort = (*command.Orchestrator)(nil)
var _ TelemetryPort = (*telemetry.Hub)(nil)
