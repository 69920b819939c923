package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tmasterhq/taskmaster/internal/domain"
	"github.com/tmasterhq/taskmaster/internal/store"
)

func (h *Handler) registerSprintRoutes(r chi.Router) {
	r.Route("/sprints", func(r chi.Router) {
		r.Get("/", h.listSprints)
		r.Post("/", h.createSprint)
		r.Get("/{id}", h.getSprint)
		r.Put("/{id}", h.updateSprint)
		r.Delete("/{id}", h.deleteSprint)
	})
}

func (h *Handler) listSprints(w http.ResponseWriter, r *http.Request) {
	sprints, err := h.repo.ListSprints(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to list sprints")
		return
	}
	if sprints == nil {
		sprints = []*domain.Sprint{}
	}
	JSON(w, http.StatusOK, sprints)
}

func (h *Handler) createSprint(w http.ResponseWriter, r *http.Request) {
	var sprint domain.Sprint
	if !decodeBody(w, r, &sprint) {
		return
	}

	created, err := h.repo.CreateSprint(r.Context(), &sprint)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to create sprint")
		return
	}
	JSON(w, http.StatusCreated, created)
}

func (h *Handler) getSprint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sprint, err := h.repo.GetSprint(r.Context(), id)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load sprint")
		return
	}
	if sprint == nil {
		Error(w, http.StatusNotFound, "sprint not found")
		return
	}
	JSON(w, http.StatusOK, sprint)
}

func (h *Handler) updateSprint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var sprint domain.Sprint
	if !decodeBody(w, r, &sprint) {
		return
	}

	updated, err := h.repo.UpdateSprint(r.Context(), id, &sprint)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "sprint not found")
		return
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to update sprint")
		return
	}
	JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteSprint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := h.repo.DeleteSprint(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "sprint not found")
		return
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to delete sprint")
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
