package sub

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	myMiddleware "github.com/SAPAAAA/Roundtable-sub001/internal/middleware"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s, validate: validator.New()}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(int)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	st, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		http.Error(w, "could not create subtable", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(st)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "subtable not found", http.StatusNotFound)
			return
		}
		http.Error(w, "could not fetch subtable", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(st)
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(int)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	err := h.service.Subscribe(r.Context(), chi.URLParam(r, "name"), userID)
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "subtable not found", http.StatusNotFound)
	case err != nil:
		http.Error(w, "could not subscribe", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(int)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	err := h.service.Unsubscribe(r.Context(), chi.URLParam(r, "name"), userID)
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "subtable not found", http.StatusNotFound)
	case err != nil:
		http.Error(w, "could not unsubscribe", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) InviteModerator(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(int)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req InviteModeratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.service.InviteModerator(r.Context(), chi.URLParam(r, "name"), userID, &req)
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "subtable not found", http.StatusNotFound)
	case errors.Is(err, ErrAlreadyModerator):
		http.Error(w, "already a moderator", http.StatusConflict)
	case err != nil:
		http.Error(w, "could not invite moderator", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
