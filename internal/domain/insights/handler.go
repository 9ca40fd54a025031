package insights

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/spendwise/spendwise-api/internal/api/middleware"
	"github.com/spendwise/spendwise-api/internal/domain/categorization"
)

// Handler exposes the forecast endpoint. Anomaly checks run inside expense
// creation and have no endpoint of their own.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Forecast handles GET /api/insights/forecast?category=food&months=3.
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	category := categorization.Category(r.URL.Query().Get("category"))
	if !category.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown category")
		return
	}

	horizon := DefaultHorizonMonths
	if raw := r.URL.Query().Get("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 12 {
			middleware.WriteError(w, http.StatusBadRequest, "months must be between 1 and 12")
			return
		}
		horizon = n
	}

	forecast := h.service.ForecastCategory(r.Context(), userID, category, horizon)

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"forecast": forecast,
	})
}
