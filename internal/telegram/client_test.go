package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestClientSend(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": map[string]interface{}{}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token")
	if err := client.Send(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotPath != "/bottest-token/sendMessage" {
		t.Errorf("Expected sendMessage path with token, got %q", gotPath)
	}
	if gotBody["chat_id"].(float64) != 42 {
		t.Errorf("Expected chat_id 42, got %v", gotBody["chat_id"])
	}
	if gotBody["text"] != "hello" {
		t.Errorf("Expected text hello, got %v", gotBody["text"])
	}
}

func TestClientSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "description": "chat not found"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token")
	err := client.Send(context.Background(), 42, "hello")
	if err == nil {
		t.Fatal("Expected error for failed API call")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("Expected API description in error, got %v", err)
	}
}

func TestPollerDeliversMessagesAndAdvancesOffset(t *testing.T) {
	var mu sync.Mutex
	var offsets []int64
	calls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode poll request: %v", err)
		}
		mu.Lock()
		offsets = append(offsets, int64(req["offset"].(float64)))
		calls++
		first := calls == 1
		mu.Unlock()

		if first {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"ok": true,
				"result": []map[string]interface{}{
					{
						"update_id": 7,
						"message": map[string]interface{}{
							"text": "/start",
							"chat": map[string]interface{}{"id": 42},
							"from": map[string]interface{}{"id": 42},
						},
					},
					// Non-text updates are skipped but still advance the offset.
					{"update_id": 8},
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": []map[string]interface{}{}})
	}))
	defer srv.Close()

	type received struct {
		chatID, fromID int64
		text           string
	}
	got := make(chan received, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := NewPoller(NewClient(srv.URL, "test-token"), func(_ context.Context, chatID, fromID int64, text string) {
		got <- received{chatID: chatID, fromID: fromID, text: text}
	})
	go poller.Run(ctx)

	select {
	case msg := <-got:
		if msg.chatID != 42 || msg.fromID != 42 || msg.text != "/start" {
			t.Errorf("Unexpected message: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Handler never received the message")
	}

	// Wait for the second poll to observe the advanced offset.
	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(offsets)
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Second poll never happened")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	mu.Lock()
	defer mu.Unlock()
	if offsets[0] != 0 {
		t.Errorf("Expected first poll at offset 0, got %d", offsets[0])
	}
	if offsets[1] != 9 {
		t.Errorf("Expected offset 9 after update 8, got %d", offsets[1])
	}
}
