package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/radio-control/chanhop/internal/config"
	"github.com/radio-control/chanhop/internal/hop"
	"github.com/radio-control/chanhop/internal/logging"
)

// Event types.
const (
	EventReady          = "ready"
	EventChannelChanged = "channelChanged"
	EventApplyFailed    = "applyFailed"
	EventSweepExhausted = "sweepExhausted"
	EventHeartbeat      = "heartbeat"
)

// clientQueue is the per-client backlog before events are dropped.
const clientQueue = 100

// Event is one SSE message.
type Event struct {
	ID   int64                  `json:"id,omitempty"`
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Client is one SSE connection. LastID is only touched by the goroutine
// serving the connection.
type Client struct {
	ID     string
	LastID int64
	Events chan Event

	writer http.ResponseWriter
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// Hub fans hop events out to SSE clients. It implements hop.Observer.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	nextClient atomic.Uint64
	nextID     atomic.Int64
	buffer     *EventBuffer
	dropped    atomic.Int64

	heartbeat time.Duration
	snapshot  func() map[string]interface{}
	logger    logging.Logger

	done     chan struct{}
	stopOnce sync.Once
}

var _ hop.Observer = (*Hub)(nil)

// NewHub creates a hub using the heartbeat and buffer settings of cfg.
func NewHub(cfg config.APIConfig, logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Noop()
	}
	return &Hub{
		clients:   make(map[string]*Client),
		buffer:    NewEventBuffer(cfg.EventBufferSize),
		heartbeat: cfg.HeartbeatInterval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// SetSnapshotFunc sets the source of the state sent in the ready event.
func (h *Hub) SetSnapshotFunc(fn func() map[string]interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = fn
}

// Subscribe streams events to w until the request or the hub ends.
func (h *Hub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientCtx, cancel := context.WithCancel(ctx)
	client := &Client{
		ID:     fmt.Sprintf("client_%d", h.nextClient.Add(1)),
		Events: make(chan Event, clientQueue),
		writer: w,
		ctx:    clientCtx,
		cancel: cancel,
	}
	if lastIDStr := r.Header.Get("Last-Event-ID"); lastIDStr != "" {
		if id, err := strconv.ParseInt(lastIDStr, 10, 64); err == nil {
			client.LastID = id
		}
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	snapshot := h.snapshot
	h.mu.Unlock()
	defer h.unregisterClient(client.ID)

	ready := Event{Type: EventReady, Data: map[string]interface{}{}}
	if snapshot != nil {
		ready.Data["snapshot"] = snapshot()
	}
	if err := client.send(ready); err != nil {
		return fmt.Errorf("failed to send ready event: %w", err)
	}

	if client.LastID > 0 {
		for _, ev := range h.buffer.GetEventsAfter(client.LastID) {
			if err := client.send(ev); err != nil {
				return fmt.Errorf("failed to replay events: %w", err)
			}
		}
	}

	h.logger.Debug(ctx, "telemetry client connected", logging.String("client", client.ID))
	h.handleClient(client)
	return nil
}

// Publish assigns an ID, buffers the event and queues it for every client.
// It never blocks: a client whose queue is full misses the event.
func (h *Hub) Publish(ev Event) {
	select {
	case <-h.done:
		return
	default:
	}

	ev.ID = h.nextID.Add(1)
	h.buffer.AddEvent(ev)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.Events <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped returns how many client deliveries were skipped.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ChannelChanged implements hop.Observer.
func (h *Hub) ChannelChanged(_ context.Context, ev hop.ChangeEvent) {
	data := map[string]interface{}{
		"channel":      ev.Entry.Channel,
		"frequencyMhz": ev.Entry.FrequencyMhz,
		"index":        int(ev.Index),
		"reason":       string(ev.Reason),
		"ts":           ev.At.UTC().Format(time.RFC3339Nano),
	}
	if ev.PreviousIndex.Known() {
		data["previousChannel"] = ev.Previous.Channel
	}
	h.Publish(Event{Type: EventChannelChanged, Data: data})
}

// ApplyFailed implements hop.Observer.
func (h *Hub) ApplyFailed(_ context.Context, ev hop.FailureEvent) {
	h.Publish(Event{Type: EventApplyFailed, Data: map[string]interface{}{
		"channel":      ev.Entry.Channel,
		"frequencyMhz": ev.Entry.FrequencyMhz,
		"reason":       string(ev.Reason),
		"error":        errString(ev.Err),
		"ts":           ev.At.UTC().Format(time.RFC3339Nano),
	}})
}

// SweepExhausted implements hop.Observer.
func (h *Hub) SweepExhausted(_ context.Context, res hop.SweepResult, at time.Time) {
	h.Publish(Event{Type: EventSweepExhausted, Data: map[string]interface{}{
		"index":    int(res.Index),
		"attempts": res.Attempts,
		"ts":       at.UTC().Format(time.RFC3339Nano),
	}})
}

func (h *Hub) handleClient(c *Client) {
	var tick <-chan time.Time
	if h.heartbeat > 0 {
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-h.done:
			return
		case ev := <-c.Events:
			// already delivered by replay
			if ev.ID <= c.LastID {
				continue
			}
			if err := c.send(ev); err != nil {
				return
			}
		case now := <-tick:
			hb := Event{Type: EventHeartbeat, Data: map[string]interface{}{
				"ts": now.UTC().Format(time.RFC3339),
			}}
			if err := c.send(hb); err != nil {
				return
			}
		}
	}
}

func (h *Hub) unregisterClient(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		c.cancel()
		delete(h.clients, id)
	}
}

// Stop disconnects every client. Further events are discarded.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		for _, c := range h.clients {
			c.cancel()
		}
		h.mu.Unlock()
	})
}

// send writes one event in SSE framing and flushes it.
func (c *Client) send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	if ev.ID > 0 {
		if _, err := fmt.Fprintf(c.writer, "id: %d\n", ev.ID); err != nil {
			return fmt.Errorf("failed to write event ID: %w", err)
		}
	}
	if _, err := fmt.Fprintf(c.writer, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	if flusher, ok := c.writer.(http.Flusher); ok {
		flusher.Flush()
	}
	if ev.ID > 0 {
		c.LastID = ev.ID
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
