package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/spendwise/spendwise-api/pkg/metrics"
)

const (
	generateTimeout    = 30 * time.Second
	contextExpenses    = 20
	contextTotalsSince = 90 * 24 * time.Hour
	maxQuestionLength  = 2000
)

var (
	// ErrAssistantUnavailable covers quota and availability failures of
	// the model. Callers surface it as a retryable condition.
	ErrAssistantUnavailable = errors.New("assistant is unavailable")
	// ErrRateLimited means the per-user request budget is exhausted.
	ErrRateLimited = errors.New("too many assistant requests")
	// ErrEmptyQuestion rejects blank or oversized prompts before any
	// model call.
	ErrEmptyQuestion = errors.New("question must be between 1 and 2000 characters")
)

// TextGenerator is the model boundary: a prompt in, free text out.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChatStore persists conversation turns and reads spending context.
type ChatStore interface {
	SaveMessage(ctx context.Context, userID uuid.UUID, role, content string) (*Message, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]Message, error)
	RecentExpenses(ctx context.Context, userID uuid.UUID, limit int) ([]RecentExpense, error)
	CategoryTotals(ctx context.Context, userID uuid.UUID, since time.Time) ([]CategoryTotal, error)
}

// Service grounds each question in the user's spending history, calls the
// model under a timeout and a per-user rate limit, and records both turns.
type Service struct {
	store     ChatStore
	generator TextGenerator
	logger    *slog.Logger
	metrics   *metrics.Metrics

	perMinute rate.Limit
	burst     int

	mu       sync.Mutex
	limiters map[uuid.UUID]*rate.Limiter

	now func() time.Time
}

func NewService(store ChatStore, generator TextGenerator, logger *slog.Logger, m *metrics.Metrics, requestsPerMinute int) *Service {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	return &Service{
		store:     store,
		generator: generator,
		logger:    logger,
		metrics:   m,
		perMinute: rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:     requestsPerMinute,
		limiters:  make(map[uuid.UUID]*rate.Limiter),
		now:       time.Now,
	}
}

// Chat answers one user question. The user turn is persisted even when the
// model call fails, so the conversation record stays complete.
func (s *Service) Chat(ctx context.Context, userID uuid.UUID, question string) (*Message, error) {
	question = strings.TrimSpace(question)
	if question == "" || len(question) > maxQuestionLength {
		return nil, ErrEmptyQuestion
	}

	if !s.allow(userID) {
		s.countCall("rate_limited")
		return nil, ErrRateLimited
	}

	if _, err := s.store.SaveMessage(ctx, userID, RoleUser, question); err != nil {
		return nil, err
	}

	prompt := s.buildPrompt(ctx, userID, question)

	genCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	answer, err := s.generator.Generate(genCtx, prompt)
	if err != nil {
		s.countCall("failed")
		s.logger.Warn("assistant call failed",
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
		if errors.Is(err, ErrAssistantUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}
	s.countCall("ok")

	reply, err := s.store.SaveMessage(ctx, userID, RoleAssistant, answer)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// History returns the recent conversation, oldest turn first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]Message, error) {
	return s.store.History(ctx, userID, limit)
}

// buildPrompt assembles the grounding block. Context reads are best effort:
// a failed query shrinks the block instead of failing the chat.
func (s *Service) buildPrompt(ctx context.Context, userID uuid.UUID, question string) string {
	var b strings.Builder
	b.WriteString("You are a personal finance assistant. Answer the user's question using only the spending data below. Be concise and concrete. If the data does not support an answer, say so.\n")

	totals, err := s.store.CategoryTotals(ctx, userID, s.now().Add(-contextTotalsSince))
	if err != nil {
		s.logger.Warn("loading category totals for prompt failed", slog.Any("error", err))
	} else if len(totals) > 0 {
		b.WriteString("\nSpending by category over the last 90 days:\n")
		for _, t := range totals {
			fmt.Fprintf(&b, "- %s: %.2f\n", t.Category, t.Total)
		}
	}

	expenses, err := s.store.RecentExpenses(ctx, userID, contextExpenses)
	if err != nil {
		s.logger.Warn("loading recent expenses for prompt failed", slog.Any("error", err))
	} else if len(expenses) > 0 {
		b.WriteString("\nMost recent expenses:\n")
		for _, e := range expenses {
			fmt.Fprintf(&b, "- %s | %s | %.2f | %s\n",
				e.Date.Format("2006-01-02"), e.Name, e.Amount, e.Category)
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

func (s *Service) allow(userID uuid.UUID) bool {
	s.mu.Lock()
	limiter, ok := s.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(s.perMinute, s.burst)
		s.limiters[userID] = limiter
	}
	s.mu.Unlock()
	return limiter.Allow()
}

func (s *Service) countCall(outcome string) {
	if s.metrics != nil {
		s.metrics.AssistantCallsTotal.WithLabelValues(outcome).Inc()
	}
}
