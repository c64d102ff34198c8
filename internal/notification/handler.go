package notification

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	myMiddleware "github.com/SAPAAAA/Roundtable-sub001/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

type listResponse struct {
	Notifications []*Notification `json:"notifications"`
	TotalCount    int             `json:"total_count"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(int)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	opts := FetchOptions{}
	opts.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	opts.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if raw := r.URL.Query().Get("is_read"); raw != "" {
		isRead, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "invalid is_read", http.StatusBadRequest)
			return
		}
		opts.IsRead = &isRead
	}

	notifications, total, err := h.service.GetForUser(r.Context(), userID, opts)
	if err != nil {
		http.Error(w, "could not list notifications", http.StatusInternalServerError)
		return
	}
	if notifications == nil {
		notifications = []*Notification{}
	}
	json.NewEncoder(w).Encode(listResponse{Notifications: notifications, TotalCount: total})
}

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(int)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	count, err := h.service.UnreadCount(r.Context(), userID)
	if err != nil {
		http.Error(w, "could not count notifications", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]int{"unread_count": count})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(int)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid notification id", http.StatusBadRequest)
		return
	}

	if err := h.service.MarkRead(r.Context(), id, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "notification not found", http.StatusNotFound)
			return
		}
		http.Error(w, "could not mark notification read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
