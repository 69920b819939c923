package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tmasterhq/taskmaster/internal/domain"
	"github.com/tmasterhq/taskmaster/internal/store"
)

func (h *Handler) registerUserRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.listUsers)
		r.Post("/", h.createUser)
		r.Get("/{id}", h.getUser)
		r.Put("/{id}", h.updateUser)
		r.Delete("/{id}", h.deleteUser)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	var (
		users []*domain.User
		err   error
	)
	if role := r.URL.Query().Get("role"); role != "" {
		users, err = h.repo.ListUsersByRole(r.Context(), role)
	} else {
		users, err = h.repo.ListUsers(r.Context())
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []*domain.User{}
	}
	JSON(w, http.StatusOK, users)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var user domain.User
	if !decodeBody(w, r, &user) {
		return
	}
	if user.Name == "" || user.Role == "" {
		Error(w, http.StatusBadRequest, "name and role are required")
		return
	}

	created, err := h.repo.CreateUser(r.Context(), &user)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	JSON(w, http.StatusCreated, created)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.repo.GetUser(r.Context(), id)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil {
		Error(w, http.StatusNotFound, "user not found")
		return
	}
	JSON(w, http.StatusOK, user)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var user domain.User
	if !decodeBody(w, r, &user) {
		return
	}

	updated, err := h.repo.UpdateUser(r.Context(), id, &user)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := h.repo.DeleteUser(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
