package vote

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	myMiddleware "github.com/SAPAAAA/Roundtable-sub001/internal/middleware"
)

type Handler struct {
	service  *Service
	scores   *ScoreCache
	validate *validator.Validate
}

func NewHandler(s *Service, scores *ScoreCache) *Handler {
	return &Handler{service: s, scores: scores, validate: validator.New()}
}

func (h *Handler) Cast(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(int)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.Cast(r.Context(), userID, &req); err != nil {
		http.Error(w, "could not cast vote", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	targetType := r.URL.Query().Get("target_type")
	if targetType != TargetPost && targetType != TargetComment {
		http.Error(w, "invalid target_type", http.StatusBadRequest)
		return
	}
	targetID, err := strconv.Atoi(r.URL.Query().Get("target_id"))
	if err != nil || targetID <= 0 {
		http.Error(w, "invalid target_id", http.StatusBadRequest)
		return
	}

	score, err := h.scores.Score(r.Context(), targetType, targetID)
	if err != nil {
		http.Error(w, "could not fetch score", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]int{"score": score})
}
