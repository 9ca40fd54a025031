package assistant

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/spendwise/spendwise-api/internal/api/middleware"
)

// Handler exposes the chat endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat handles POST /api/assistant/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reply, err := h.service.Chat(r.Context(), userID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyQuestion):
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrRateLimited):
			middleware.WriteError(w, http.StatusTooManyRequests, "Too many requests, slow down")
		case errors.Is(err, ErrAssistantUnavailable):
			middleware.WriteError(w, http.StatusServiceUnavailable, "Assistant is temporarily unavailable")
		default:
			h.logger.Error("chat failed", slog.Any("error", err))
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to answer")
		}
		return
	}

	middleware.WriteJSON(w, http.StatusOK, reply)
}

// History handles GET /api/assistant/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			middleware.WriteError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	messages, err := h.service.History(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("loading chat history failed", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}
	if messages == nil {
		messages = []Message{}
	}

	middleware.WriteJSON(w, http.StatusOK, messages)
}
