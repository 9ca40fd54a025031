package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const defaultSessionTTL = 30 * 24 * time.Hour

// ErrAccountInactive is returned when a deactivated user tries to sign in.
var ErrAccountInactive = errors.New("account is deactivated")

// SessionMetadata captures client information for the session audit trail.
type SessionMetadata struct {
	UserAgent string
	ClientIP  string
}

// RegisterParams contains the data required to create an account.
type RegisterParams struct {
	Email       string
	Username    string
	Password    string
	DisplayName string
	Metadata    SessionMetadata
}

// LoginParams is the payload for a login attempt.
type LoginParams struct {
	Email    string
	Password string
	Metadata SessionMetadata
}

// AuthResult is produced after a successful registration or login.
type AuthResult struct {
	User   *User      `json:"user"`
	Tokens *TokenPair `json:"tokens"`
}

// UserStore is the persistence surface the service needs.
type UserStore interface {
	CreateUser(ctx context.Context, email, username, hashedPassword, displayName string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*User, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error
	CreateSession(ctx context.Context, s Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteAllUserSessions(ctx context.Context, userID uuid.UUID) error
}

// Service coordinates registration, login and session rotation. Refresh
// tokens are stored hashed: a leaked sessions table cannot be replayed.
type Service struct {
	store      UserStore
	tokens     *TokenManager
	sessionTTL time.Duration
	logger     *slog.Logger
}

func NewService(store UserStore, tokens *TokenManager, logger *slog.Logger, sessionTTL time.Duration) *Service {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &Service{
		store:      store,
		tokens:     tokens,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// Register creates a new account and signs the user in.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := ValidatePassword(params.Password); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByEmail(ctx, params.Email); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hashedPassword, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, params.Email, params.Username, hashedPassword, params.DisplayName)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueSession(ctx, user.ID, params.Metadata)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID.String()))
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Login authenticates a user against stored credentials.
func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	user, err := s.store.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	if !ComparePassword(user.HashedPassword, params.Password) {
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.issueSession(ctx, user.ID, params.Metadata)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("updating last login failed", slog.Any("error", err))
	}

	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Refresh rotates a refresh token: the old session is deleted and a new
// pair issued. A token that validates but has no stored session has been
// rotated or revoked already.
func (s *Service) Refresh(ctx context.Context, refreshToken string, meta SessionMetadata) (*TokenPair, error) {
	userID, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	tokenHash := hashToken(refreshToken)
	if _, err := s.store.GetSessionByTokenHash(ctx, tokenHash); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if err := s.store.DeleteSession(ctx, tokenHash); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	return s.issueSession(ctx, user.ID, meta)
}

// Logout revokes one refresh token session. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return errors.New("refresh token required")
	}
	if err := s.store.DeleteSession(ctx, hashToken(refreshToken)); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	return nil
}

// ChangePassword verifies the current password, stores the new one and
// revokes every session.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if !ComparePassword(user.HashedPassword, currentPassword) {
		return ErrInvalidCredentials
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, userID, hashedPassword); err != nil {
		return err
	}

	if err := s.store.DeleteAllUserSessions(ctx, userID); err != nil {
		s.logger.Warn("revoking sessions after password change failed", slog.Any("error", err))
	}
	return nil
}

// Me returns the authenticated user's profile.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.store.GetUserByID(ctx, userID)
}

// VerifyAccessToken delegates to the token manager, exposing the service as
// a middleware.TokenVerifier.
func (s *Service) VerifyAccessToken(token string) (uuid.UUID, error) {
	return s.tokens.VerifyAccessToken(token)
}

func (s *Service) issueSession(ctx context.Context, userID uuid.UUID, meta SessionMetadata) (*TokenPair, error) {
	tokens, err := s.tokens.GenerateTokenPair(userID)
	if err != nil {
		return nil, err
	}

	userAgent := meta.UserAgent
	if userAgent == "" {
		userAgent = "unknown"
	}
	clientIP := meta.ClientIP
	if clientIP == "" {
		clientIP = "unknown"
	}

	err = s.store.CreateSession(ctx, Session{
		UserID:    userID,
		TokenHash: hashToken(tokens.RefreshToken),
		UserAgent: userAgent,
		ClientIP:  clientIP,
		ExpiresAt: time.Now().Add(s.sessionTTL),
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
