package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/radio-control/chanhop/internal/auth"
	"github.com/radio-control/chanhop/internal/channel"
	"github.com/radio-control/chanhop/internal/command"
	"github.com/radio-control/chanhop/internal/logging"
)

const apiV1 = "/api/v1"

// RegisterRoutes registers all endpoints on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	m := s.authMiddleware
	viewer := m.RequireRole(auth.RoleViewer)
	controller := m.RequireRole(auth.RoleController)

	mux.HandleFunc(apiV1+"/health", s.handleHealth)
	mux.HandleFunc(apiV1+"/channels", m.RequireAuth(viewer(s.handleChannels)))
	mux.HandleFunc(apiV1+"/channel", m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			viewer(s.handleGetChannel)(w, r)
		case http.MethodPost:
			controller(s.handleSetChannel)(w, r)
		default:
			methodNotAllowed(w, "GET, POST")
		}
	}))
	mux.HandleFunc(apiV1+"/hop", m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			viewer(s.handleGetHop)(w, r)
		case http.MethodPost:
			controller(s.handleSetHop)(w, r)
		default:
			methodNotAllowed(w, "GET, POST")
		}
	}))
	mux.HandleFunc(apiV1+"/telemetry", m.RequireAuth(viewer(s.handleTelemetry)))
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
}

// ChannelView is the JSON form of a table entry.
type ChannelView struct {
	Index        int `json:"index"`
	Channel      int `json:"channel"`
	FrequencyMhz int `json:"frequencyMhz"`
}

// CurrentView is the JSON form of the active channel.
type CurrentView struct {
	Known         bool   `json:"known"`
	Index         int    `json:"index"`
	Channel       int    `json:"channel"`
	FrequencyMhz  int    `json:"frequencyMhz,omitempty"`
	Hopping       bool   `json:"hopping"`
	RemainingUs   *int64 `json:"remainingUs,omitempty"`
	LastChange    string `json:"lastChange,omitempty"`
	LastAttempts  int    `json:"lastSweepAttempts"`
	LastExhausted bool   `json:"lastSweepExhausted"`
}

// HopView is the JSON form of the hop settings.
type HopView struct {
	Hopping        bool   `json:"hopping"`
	Dwell          string `json:"dwell"`
	DwellUs        int64  `json:"dwellUs"`
	ChannelCeiling int    `json:"channelCeiling"`
	InitialChannel int    `json:"initialChannel"`
	CycleLength    int    `json:"cycleLength"`
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	snap := s.orchestrator.Snapshot()
	views := make([]ChannelView, 0, len(snap.Channels))
	for i, e := range snap.Channels {
		views = append(views, ChannelView{Index: i, Channel: e.Channel, FrequencyMhz: e.FrequencyMhz})
	}
	WriteSuccess(w, map[string]interface{}{
		"count":    len(views),
		"capacity": channel.MaxChannels,
		"channels": views,
	})
}

func (s *Server) handleGetChannel(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, s.currentView(s.orchestrator.Snapshot()))
}

func (s *Server) currentView(snap command.Snapshot) CurrentView {
	v := CurrentView{
		Known:         snap.Index.Known(),
		Index:         int(snap.Index),
		Channel:       snap.Channel,
		FrequencyMhz:  snap.FrequencyMhz,
		Hopping:       snap.Hopping,
		LastAttempts:  snap.LastSweep.Attempts,
		LastExhausted: snap.LastSweep.Exhausted,
	}
	if !snap.LastChange.IsZero() {
		v.LastChange = snap.LastChange.UTC().Format(time.RFC3339Nano)
	}
	if snap.Hopping && v.Known {
		remaining := max(0, snap.Remaining(s.clock())).Microseconds()
		v.RemainingUs = &remaining
	}
	return v
}

func (s *Server) handleSetChannel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel *int `json:"channel"`
	}
	if err := decodeStrict(r.Body, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if req.Channel == nil {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "channel is required", nil)
		return
	}

	user := auth.Subject(r)
	if err := s.orchestrator.SetChannel(r.Context(), user, *req.Channel); err != nil {
		s.logger.Warn(r.Context(), "set channel failed",
			logging.String("user", user), logging.Int("channel", *req.Channel), logging.Err(err))
		WriteErr(w, err)
		return
	}
	WriteSuccess(w, s.currentView(s.orchestrator.Snapshot()))
}

func (s *Server) handleGetHop(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, hopView(s.orchestrator.Snapshot()))
}

func hopView(snap command.Snapshot) HopView {
	return HopView{
		Hopping:        snap.Hopping,
		Dwell:          snap.Dwell.String(),
		DwellUs:        snap.Dwell.Microseconds(),
		ChannelCeiling: snap.ChannelCeiling,
		InitialChannel: snap.InitialChannel,
		CycleLength:    snap.CycleLength,
	}
}

func (s *Server) handleSetHop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hopping        *bool   `json:"hopping"`
		Dwell          *string `json:"dwell"`
		ChannelCeiling *int    `json:"channelCeiling"`
	}
	if err := decodeStrict(r.Body, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	update := command.HopUpdate{Hopping: req.Hopping, ChannelCeiling: req.ChannelCeiling}
	if req.Dwell != nil {
		d, err := time.ParseDuration(*req.Dwell)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("invalid dwell %q", *req.Dwell), nil)
			return
		}
		update.Dwell = &d
	}

	if err := s.orchestrator.UpdateHop(r.Context(), auth.Subject(r), update); err != nil {
		WriteErr(w, err)
		return
	}
	WriteSuccess(w, hopView(s.orchestrator.Snapshot()))
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	if s.telemetryHub == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Telemetry not available", nil)
		return
	}
	if err := s.telemetryHub.Subscribe(r.Context(), w, r); err != nil {
		s.logger.Debug(r.Context(), "telemetry stream ended", logging.Err(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	snap := s.orchestrator.Snapshot()
	health := map[string]interface{}{
		"status":      "ok",
		"uptime":      time.Since(s.startTime).Round(time.Second).String(),
		"initialized": snap.Initialized,
		"channels":    len(snap.Channels),
	}
	if s.telemetryHub != nil {
		health["telemetryClients"] = s.telemetryHub.ClientCount()
	}

	if !snap.Initialized || len(snap.Channels) == 0 {
		health["status"] = "degraded"
		WriteError(w, http.StatusServiceUnavailable, "SERVICE_DEGRADED",
			"Hopper has no usable channel table", health)
		return
	}
	WriteSuccess(w, health)
}

// decodeStrict decodes a single JSON object, rejecting unknown fields.
func decodeStrict(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("malformed JSON or unknown fields")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("trailing data after JSON object")
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
		fmt.Sprintf("Only %s allowed", allowed), nil)
}
