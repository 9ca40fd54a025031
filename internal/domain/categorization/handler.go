package categorization

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/spendwise/spendwise-api/internal/api/middleware"
)

// Handler exposes merchant rule management.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type createRuleRequest struct {
	Pattern   string   `json:"pattern"`
	CleanName string   `json:"clean_name"`
	Category  Category `json:"category"`
}

// ListRules handles GET /api/categorization/rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	rules, err := h.service.Rules(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing merchant rules failed", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list rules")
		return
	}
	if rules == nil {
		rules = []MerchantRule{}
	}

	middleware.WriteJSON(w, http.StatusOK, rules)
}

// CreateRule handles POST /api/categorization/rules.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Pattern == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Pattern is required")
		return
	}
	if !req.Category.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown category")
		return
	}

	rule, err := h.service.AddRule(r.Context(), userID, req.Pattern, req.CleanName, req.Category)
	if err != nil {
		h.logger.Error("creating merchant rule failed", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create rule")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, rule)
}

// DeleteRule handles DELETE /api/categorization/rules/{id}.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	ruleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid rule ID")
		return
	}

	if err := h.service.RemoveRule(r.Context(), userID, ruleID); err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Rule not found")
			return
		}
		h.logger.Error("deleting merchant rule failed", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete rule")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Rule deleted"})
}
