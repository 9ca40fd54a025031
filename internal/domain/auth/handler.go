package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spendwise/spendwise-api/internal/api/middleware"
)

// Handler exposes registration, login and session endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type registerRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		middleware.WriteError(w, http.StatusBadRequest, "A valid email is required")
		return
	}
	if req.Username == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Username is required")
		return
	}

	result, err := h.service.Register(r.Context(), RegisterParams{
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Metadata:    sessionMetadata(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUserAlreadyExists):
			middleware.WriteError(w, http.StatusConflict, "An account with this email already exists")
		case errors.Is(err, ErrWeakPassword):
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("registration failed", slog.Any("error", err))
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to register")
		}
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, result)
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Login(r.Context(), LoginParams{
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: req.Password,
		Metadata: sessionMetadata(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			middleware.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, ErrAccountInactive):
			middleware.WriteError(w, http.StatusForbidden, "Account is deactivated")
		default:
			h.logger.Error("login failed", slog.Any("error", err))
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to log in")
		}
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// Refresh handles POST /api/auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken, sessionMetadata(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrSessionNotFound):
			middleware.WriteError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		case errors.Is(err, ErrAccountInactive):
			middleware.WriteError(w, http.StatusForbidden, "Account is deactivated")
		default:
			h.logger.Error("token refresh failed", slog.Any("error", err))
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to refresh tokens")
		}
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tokens)
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.Error("logout failed", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// ChangePassword handles POST /api/auth/change-password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.service.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			middleware.WriteError(w, http.StatusUnauthorized, "Current password is incorrect")
		case errors.Is(err, ErrWeakPassword):
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("password change failed", slog.Any("error", err))
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to change password")
		}
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := h.service.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("loading profile failed", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, user)
}

func sessionMetadata(r *http.Request) SessionMetadata {
	return SessionMetadata{
		UserAgent: r.UserAgent(),
		ClientIP:  r.RemoteAddr,
	}
}
