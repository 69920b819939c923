// Package api provides HTTP handlers for the TaskMaster API.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tmasterhq/taskmaster/internal/alert"
	"github.com/tmasterhq/taskmaster/internal/bot"
	"github.com/tmasterhq/taskmaster/internal/events"
	"github.com/tmasterhq/taskmaster/internal/store"
)

// maxRequestBodySize caps inbound JSON bodies (1MB).
const maxRequestBodySize = 1 << 20

// Handler bundles the dependencies of the HTTP surface.
type Handler struct {
	repo       store.Repository
	engine     *bot.Engine
	dispatcher *alert.Dispatcher
	hub        *events.Hub
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, engine *bot.Engine, dispatcher *alert.Dispatcher, hub *events.Hub) *Handler {
	return &Handler{
		repo:       repo,
		engine:     engine,
		dispatcher: dispatcher,
		hub:        hub,
	}
}

// RegisterRoutes mounts all API routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/bot/messages", h.handleBotMessage)
	r.Get("/healthz", h.handleHealth)

	h.registerIssueRoutes(r)
	h.registerUserRoutes(r)
	h.registerSprintRoutes(r)
	h.registerAlertRoutes(r)

	if h.hub != nil {
		r.Get("/ws/events", h.hub.ServeHTTP)
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeBody decodes a size-capped JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// pathID parses the {id} URL parameter.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		Error(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// inboundMessage is the webhook payload for one chat message.
type inboundMessage struct {
	ChatID int64  `json:"chat_id"`
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

// handleBotMessage feeds one inbound chat message to the conversation
// engine. The engine replies through the transport, so the HTTP response
// only acknowledges receipt.
func (h *Handler) handleBotMessage(w http.ResponseWriter, r *http.Request) {
	var msg inboundMessage
	if !decodeBody(w, r, &msg) {
		return
	}
	if msg.ChatID == 0 || msg.Text == "" {
		Error(w, http.StatusBadRequest, "chat_id and text are required")
		return
	}

	h.engine.HandleMessage(r.Context(), msg.ChatID, msg.UserID, msg.Text)
	JSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		Error(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
