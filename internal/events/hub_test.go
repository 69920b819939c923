package events

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func TestNilHubPublish(t *testing.T) {
	var h *Hub
	// Must not panic.
	h.Publish(Event{Type: TypeMessageIn, Text: "hello"})
}

func TestHubBroadcast(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):], nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// Wait for the server side to register the connection.
	deadline := time.After(2 * time.Second)
	for h.ClientCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("Client never registered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	h.Publish(Event{Type: TypeAlertSent, ChatID: 42, Text: "Fix bug"})

	_, payload, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	var got Event
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if got.Type != TypeAlertSent || got.ChatID != 42 || got.Text != "Fix bug" {
		t.Errorf("Unexpected event: %+v", got)
	}
	if got.Time.IsZero() {
		t.Error("Expected publish to stamp the event time")
	}
}

func TestHubDropsClosedClients(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):], nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for h.ClientCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("Client never registered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	conn.Close(websocket.StatusNormalClosure, "going away")

	// The server read loop notices the close and unregisters.
	deadline = time.After(2 * time.Second)
	for h.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("Client never unregistered")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
