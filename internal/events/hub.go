// Package events provides a websocket fan-out of bot and alert activity for
// the dashboard.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Event types published on the feed.
const (
	TypeMessageIn  = "message_in"
	TypeMessageOut = "message_out"
	TypeAlertSent  = "alert_sent"
)

// Event is one entry on the activity feed.
type Event struct {
	Type   string    `json:"type"`
	ChatID int64     `json:"chat_id,omitempty"`
	Text   string    `json:"text,omitempty"`
	Time   time.Time `json:"time"`
}

const writeTimeout = 5 * time.Second

// Hub broadcasts events to all connected websocket clients. Slow or dead
// clients are dropped rather than blocking the publisher.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

// Publish sends the event to every connected client. Safe to call on a nil
// hub so callers can leave the feed unwired.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("failed to marshal event", "type", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := conn.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "write failed")
			delete(h.conns, conn)
		}
	}
}

// ClientCount returns the number of connected feed clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects. The feed is write-only; inbound frames are discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept websocket", "error", err)
		return
	}
	defer func() {
		if closeErr := conn.Close(websocket.StatusNormalClosure, "feed closed"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	h.register(conn)
	defer h.unregister(conn)
	slog.Info("Event feed client connected", "ip", r.RemoteAddr)

	// Block until the client goes away.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			return
		}
	}
}
