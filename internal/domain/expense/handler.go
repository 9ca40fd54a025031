package expense

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/spendwise/spendwise-api/internal/api/middleware"
	"github.com/spendwise/spendwise-api/internal/domain/categorization"
)

// Handler exposes the expense endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Create handles POST /api/expenses.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	e, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		if isValidationError(err) {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("create expense failed", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create expense")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, e)
}

// Get handles GET /api/expenses/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, expenseID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	e, err := h.service.Get(r.Context(), userID, expenseID)
	if err != nil {
		h.writeLookupError(w, err, "get expense")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, e)
}

// List handles GET /api/expenses with optional category, from, to, limit
// and offset query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	expenses, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		h.logger.Error("list expenses failed", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list expenses")
		return
	}
	if expenses == nil {
		expenses = []*Expense{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"expenses": expenses,
		"count":    len(expenses),
	})
}

// Update handles PATCH /api/expenses/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, expenseID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	e, err := h.service.Update(r.Context(), userID, expenseID, req)
	if err != nil {
		if errors.Is(err, ErrExpenseNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Expense not found")
			return
		}
		if isValidationError(err) {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("update expense failed", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update expense")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, e)
}

// Delete handles DELETE /api/expenses/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, expenseID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, expenseID); err != nil {
		h.writeLookupError(w, err, "delete expense")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/expenses/search?q=coffee.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	text := r.URL.Query().Get("q")
	if text == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	expenses, err := h.service.Search(r.Context(), userID, text, limit)
	if err != nil {
		h.logger.Error("search expenses failed", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"expenses": expenses,
		"count":    len(expenses),
	})
}

// Export handles GET /api/expenses/export as a CSV download.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.Limit = 500

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=expenses-%s.csv", time.Now().Format("2006-01-02")))

	if err := h.service.ExportCSV(r.Context(), userID, filter, w); err != nil {
		h.logger.Error("export expenses failed", slog.Any("error", err))
	}
}

func (h *Handler) pathIDs(w http.ResponseWriter, r *http.Request) (userID, expenseID uuid.UUID, ok bool) {
	userID, authed := middleware.UserID(r.Context())
	if !authed {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return uuid.Nil, uuid.Nil, false
	}

	expenseID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid expense id")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, expenseID, true
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, ErrExpenseNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Expense not found")
		return
	}
	h.logger.Error(op+" failed", slog.Any("error", err))
	middleware.WriteError(w, http.StatusInternalServerError, "Internal error")
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidCategory)
}

func filterFromQuery(r *http.Request) (ListFilter, error) {
	var filter ListFilter
	q := r.URL.Query()

	if raw := q.Get("category"); raw != "" {
		category := categorization.Category(raw)
		if !category.Valid() {
			return filter, fmt.Errorf("unknown category %q", raw)
		}
		filter.Category = category
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, errors.New("from must be YYYY-MM-DD")
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, errors.New("to must be YYYY-MM-DD")
		}
		filter.To = t
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Limit = n
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Offset = n
		}
	}
	return filter, nil
}
