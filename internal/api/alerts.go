package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tmasterhq/taskmaster/internal/alert"
	"github.com/tmasterhq/taskmaster/internal/domain"
	"github.com/tmasterhq/taskmaster/internal/store"
)

func (h *Handler) registerAlertRoutes(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", h.listAlerts)
		r.Post("/", h.createAlert)
		r.Post("/send", h.sendAlerts)
		r.Get("/{id}", h.getAlert)
		r.Put("/{id}", h.updateAlertStatus)
		r.Delete("/{id}", h.deleteAlert)
	})
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = domain.AlertStatusPending
	}
	alerts, err := h.repo.ListAlertsByStatus(r.Context(), status)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []*domain.Alert{}
	}
	JSON(w, http.StatusOK, alerts)
}

type createAlertRequest struct {
	Message       string    `json:"message"`
	TaskID        int64     `json:"task_id"`
	Task          string    `json:"task"`
	ProjectID     int64     `json:"project_id"`
	UserID        string    `json:"user_id"`
	Priority      string    `json:"priority"`
	ScheduledTime time.Time `json:"scheduled_time"`
}

// createAlert stores an alert and attempts immediate delivery. A failed
// delivery leaves the alert pending for the sweep.
func (h *Handler) createAlert(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		Error(w, http.StatusBadRequest, "user_id is required")
		return
	}

	created, err := h.dispatcher.CreateAndSend(r.Context(), alert.CreateParams{
		Message:       req.Message,
		TaskID:        req.TaskID,
		Task:          req.Task,
		ProjectID:     req.ProjectID,
		UserID:        req.UserID,
		Priority:      req.Priority,
		ScheduledTime: req.ScheduledTime,
	})
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to create alert")
		return
	}
	// Re-read so the response carries the post-delivery status.
	saved, err := h.repo.GetAlert(r.Context(), created.ID)
	if err != nil || saved == nil {
		JSON(w, http.StatusCreated, created)
		return
	}
	JSON(w, http.StatusCreated, saved)
}

// sendAlerts triggers an immediate sweep of pending alerts.
func (h *Handler) sendAlerts(w http.ResponseWriter, r *http.Request) {
	sent, err := h.dispatcher.Sweep(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, "alert sweep failed")
		return
	}
	JSON(w, http.StatusOK, map[string]int{"sent": sent})
}

func (h *Handler) getAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := h.repo.GetAlert(r.Context(), id)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load alert")
		return
	}
	if a == nil {
		Error(w, http.StatusNotFound, "alert not found")
		return
	}
	JSON(w, http.StatusOK, a)
}

type updateAlertRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateAlertStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateAlertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status != domain.AlertStatusPending && req.Status != domain.AlertStatusSent {
		Error(w, http.StatusBadRequest, "invalid status")
		return
	}

	a, err := h.repo.GetAlert(r.Context(), id)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load alert")
		return
	}
	if a == nil {
		Error(w, http.StatusNotFound, "alert not found")
		return
	}

	a.Status = req.Status
	saved, err := h.repo.SaveAlert(r.Context(), a)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to update alert")
		return
	}
	JSON(w, http.StatusOK, saved)
}

func (h *Handler) deleteAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := h.repo.DeleteAlert(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to delete alert")
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
