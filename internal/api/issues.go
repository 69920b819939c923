package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tmasterhq/taskmaster/internal/domain"
	"github.com/tmasterhq/taskmaster/internal/store"
)

func (h *Handler) registerIssueRoutes(r chi.Router) {
	r.Route("/issues", func(r chi.Router) {
		r.Get("/", h.listIssues)
		r.Post("/", h.createIssue)
		r.Get("/{id}", h.getIssue)
		r.Put("/{id}", h.updateIssue)
		r.Delete("/{id}", h.deleteIssue)
	})
}

func (h *Handler) listIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := h.repo.ListIssues(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to list issues")
		return
	}
	if issues == nil {
		issues = []*domain.Issue{}
	}
	JSON(w, http.StatusOK, issues)
}

func (h *Handler) createIssue(w http.ResponseWriter, r *http.Request) {
	var issue domain.Issue
	if !decodeBody(w, r, &issue) {
		return
	}
	if issue.Title == "" {
		Error(w, http.StatusBadRequest, "title is required")
		return
	}

	created, err := h.repo.CreateIssue(r.Context(), &issue)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to create issue")
		return
	}
	JSON(w, http.StatusCreated, created)
}

func (h *Handler) getIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	issue, err := h.repo.GetIssue(r.Context(), id)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load issue")
		return
	}
	if issue == nil {
		Error(w, http.StatusNotFound, "issue not found")
		return
	}
	JSON(w, http.StatusOK, issue)
}

func (h *Handler) updateIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var issue domain.Issue
	if !decodeBody(w, r, &issue) {
		return
	}

	updated, err := h.repo.UpdateIssue(r.Context(), id, &issue)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "issue not found")
		return
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to update issue")
		return
	}
	JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := h.repo.DeleteIssue(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "issue not found")
		return
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to delete issue")
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
