package message

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

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

func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(int)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req StartConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	convID, err := h.service.StartConversation(r.Context(), userID, req.TargetID)
	if err != nil {
		http.Error(w, "could not start conversation", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]int{"conversation_id": convID})
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(int)
	username, ok2 := r.Context().Value(myMiddleware.UsernameKey).(string)
	if !ok || !ok2 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m, err := h.service.Send(r.Context(), userID, username, &req)
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "conversation not found", http.StatusNotFound)
	case errors.Is(err, ErrNotParticipant):
		http.Error(w, "not a participant", http.StatusForbidden)
	case err != nil:
		http.Error(w, "could not send message", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(m)
	}
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(int)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conversationID, err := strconv.Atoi(r.URL.Query().Get("conversation_id"))
	if err != nil || conversationID <= 0 {
		http.Error(w, "invalid conversation_id", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := h.service.History(r.Context(), userID, conversationID, limit)
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "conversation not found", http.StatusNotFound)
	case errors.Is(err, ErrNotParticipant):
		http.Error(w, "not a participant", http.StatusForbidden)
	case err != nil:
		http.Error(w, "could not load history", http.StatusInternalServerError)
	default:
		if messages == nil {
			messages = []*Message{}
		}
		json.NewEncoder(w).Encode(messages)
	}
}

func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(int)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conversations, err := h.service.Conversations(r.Context(), userID)
	if err != nil {
		http.Error(w, "could not list conversations", http.StatusInternalServerError)
		return
	}
	if conversations == nil {
		conversations = []*Conversation{}
	}
	json.NewEncoder(w).Encode(conversations)
}
