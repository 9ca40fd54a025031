// Package cron runs scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/spendwise/spendwise-api/internal/domain/categorization"
	"github.com/spendwise/spendwise-api/internal/domain/expense"
	"github.com/spendwise/spendwise-api/internal/domain/insights"
)

const sweepTimeout = 30 * time.Minute

// SweepStore lists a day's expenses across users and rewrites their
// anomaly flags.
type SweepStore interface {
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*expense.Expense, error)
	SetAnomalyFlag(ctx context.Context, expenseID uuid.UUID, isAnomaly bool, reason string) error
}

// AnomalyScorer re-checks a persisted amount against a user's history,
// excluding the expense's own row from the baseline.
type AnomalyScorer interface {
	RecheckAnomaly(ctx context.Context, userID uuid.UUID, category categorization.Category, amount float64, expenseID uuid.UUID) insights.AnomalyResult
}

// Scheduler manages background jobs. Its one job re-scores the previous
// day's expenses: rows inserted by paths that skipped scoring, and rows
// scored against a thinner history than exists by the next morning, get a
// consistent verdict.
type Scheduler struct {
	cron    *cron.Cron
	store   SweepStore
	scorer  AnomalyScorer
	logger  *slog.Logger
	nowFunc func() time.Time
}

func NewScheduler(store SweepStore, scorer AnomalyScorer, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:    c,
		store:   store,
		scorer:  scorer,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Start registers the daily sweep at 3:00 AM and begins the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 3 * * *", s.sweepPreviousDay); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow triggers the sweep outside its schedule, for admin use.
func (s *Scheduler) RunNow() {
	go s.sweepPreviousDay()
}

func (s *Scheduler) sweepPreviousDay() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	now := s.nowFunc()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
	dayEnd := dayStart.AddDate(0, 0, 1)

	s.logger.Info("starting daily anomaly sweep",
		slog.Time("day", dayStart),
	)

	expenses, err := s.store.ListByDateRange(ctx, dayStart, dayEnd)
	if err != nil {
		s.logger.Error("listing expenses for sweep failed", slog.Any("error", err))
		return
	}

	updated := 0
	failed := 0

	for _, e := range expenses {
		result := s.scorer.RecheckAnomaly(ctx, e.UserID, e.Category, e.Amount.ToFloat64(), e.ID)
		if result.IsAnomaly == e.IsAnomaly && result.Reason == e.AnomalyReason {
			continue
		}

		if err := s.store.SetAnomalyFlag(ctx, e.ID, result.IsAnomaly, result.Reason); err != nil {
			s.logger.Warn("updating anomaly flag failed",
				slog.String("expense_id", e.ID.String()),
				slog.Any("error", err),
			)
			failed++
			continue
		}
		updated++
	}

	s.logger.Info("daily anomaly sweep completed",
		slog.Int("checked", len(expenses)),
		slog.Int("updated", updated),
		slog.Int("failed", failed),
	)
}
