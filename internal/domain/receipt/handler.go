package receipt

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/spendwise/spendwise-api/internal/api/middleware"
)

// Handler exposes the receipt endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Scan handles POST /api/receipts/scan with a multipart "file" field.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	result, err := h.service.Scan(r.Context(), userID, header.Filename, contentType, file)
	if err != nil {
		if errors.Is(err, ErrExtraction) {
			middleware.WriteError(w, http.StatusUnprocessableEntity, "Could not extract text from document")
			return
		}
		h.logger.Error("receipt scan failed", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to scan receipt")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// Get handles GET /api/receipts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	receiptID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid receipt id")
		return
	}

	rec, err := h.service.Get(r.Context(), userID, receiptID)
	if err != nil {
		if errors.Is(err, ErrReceiptNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Receipt not found")
			return
		}
		h.logger.Error("get receipt failed", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load receipt")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, rec)
}

// List handles GET /api/receipts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	receipts, err := h.service.List(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("list receipts failed", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list receipts")
		return
	}
	if receipts == nil {
		receipts = []*Receipt{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"receipts": receipts,
		"count":    len(receipts),
	})
}

// Delete handles DELETE /api/receipts/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	receiptID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid receipt id")
		return
	}

	if err := h.service.Delete(r.Context(), userID, receiptID); err != nil {
		if errors.Is(err, ErrReceiptNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Receipt not found")
			return
		}
		h.logger.Error("delete receipt failed", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete receipt")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
