package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/gridmate/gridmate/internal/market"
)

// writeTimeout bounds a single frame write to one client.
const writeTimeout = 5 * time.Second

// subscriberBuffer is the per-client frame queue; slow clients drop
// frames rather than block the tick.
const subscriberBuffer = 8

// SnapshotSource provides the drift-applied snapshot for the plain JSON
// asset endpoint. *market.Service satisfies it.
type SnapshotSource interface {
	Snapshot(memberID string) (*market.MarketSnapshot, error)
}

// Hub fans telemetry frames out to connected websocket clients. It
// satisfies market.TickBroadcaster, so the scheduled simulation tick
// drives the stream.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan Frame]bool
	source      SnapshotSource
	clock       market.Clock
	log         zerolog.Logger
}

// NewHub creates a telemetry hub.
func NewHub(source SnapshotSource, clock market.Clock, log zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[chan Frame]bool),
		source:      source,
		clock:       clock,
		log:         log.With().Str("component", "live_hub").Logger(),
	}
}

// Publish builds a frame from the snapshot and fans it out. Frames for
// clients with full buffers are dropped.
func (h *Hub) Publish(snapshot *market.MarketSnapshot) {
	frame := BuildFrame(snapshot, h.clock.Now())

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers {
		select {
		case sub <- frame:
		default:
			// Slow client; skip this frame.
		}
	}
}

// SubscriberCount returns the number of connected clients.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// HandleWS upgrades the request to a websocket and streams frames until
// the client disconnects.
// GET /api/live/ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is handled by the HTTP middleware
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	sub := h.subscribe()
	defer h.unsubscribe(sub)

	h.log.Debug().Int("subscribers", h.SubscriberCount()).Msg("Live client connected")

	// The stream is one-way; CloseRead surfaces client disconnects.
	ctx := conn.CloseRead(r.Context())

	// Send an initial frame so dashboards render immediately.
	if snapshot, err := h.source.Snapshot(""); err == nil {
		if err := h.writeFrame(ctx, conn, BuildFrame(snapshot, h.clock.Now())); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case frame := <-sub:
			if err := h.writeFrame(ctx, conn, frame); err != nil {
				return
			}
		}
	}
}

// HandleGetAssets returns the current asset overview as plain JSON for
// non-websocket consumers.
// GET /api/live/assets
func (h *Hub) HandleGetAssets(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.source.Snapshot("")
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load snapshot for asset overview")
		http.Error(w, "Failed to load asset overview", http.StatusInternalServerError)
		return
	}

	frame := BuildFrame(snapshot, h.clock.Now())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(frame); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode asset overview")
	}
}

func (h *Hub) writeFrame(ctx context.Context, conn *websocket.Conn, frame Frame) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, frame)
}

func (h *Hub) subscribe() chan Frame {
	sub := make(chan Frame, subscriberBuffer)
	h.mu.Lock()
	h.subscribers[sub] = true
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub chan Frame) {
	h.mu.Lock()
	delete(h.subscribers, sub)
	h.mu.Unlock()
}
