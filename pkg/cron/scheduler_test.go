package cron

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendwise/spendwise-api/internal/domain/categorization"
	"github.com/spendwise/spendwise-api/internal/domain/expense"
	"github.com/spendwise/spendwise-api/internal/domain/insights"
	"github.com/spendwise/spendwise-api/pkg/money"
)

type mockSweepStore struct {
	expenses []*expense.Expense
	listFrom time.Time
	listTo   time.Time
	flags    map[uuid.UUID]insights.AnomalyResult
}

func (m *mockSweepStore) ListByDateRange(_ context.Context, from, to time.Time) ([]*expense.Expense, error) {
	m.listFrom, m.listTo = from, to
	return m.expenses, nil
}

func (m *mockSweepStore) SetAnomalyFlag(_ context.Context, expenseID uuid.UUID, isAnomaly bool, reason string) error {
	if m.flags == nil {
		m.flags = make(map[uuid.UUID]insights.AnomalyResult)
	}
	m.flags[expenseID] = insights.AnomalyResult{IsAnomaly: isAnomaly, Reason: reason}
	return nil
}

type stubScorer struct {
	results     map[uuid.UUID]insights.AnomalyResult
	calls       int
	excludedIDs []uuid.UUID
}

func (s *stubScorer) RecheckAnomaly(_ context.Context, userID uuid.UUID, _ categorization.Category, _ float64, expenseID uuid.UUID) insights.AnomalyResult {
	s.calls++
	s.excludedIDs = append(s.excludedIDs, expenseID)
	return s.results[userID]
}

func sweepExpense(userID uuid.UUID, amount int64, flagged bool, reason string) *expense.Expense {
	return &expense.Expense{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          "test expense",
		Amount:        money.New(amount, money.USD),
		Category:      categorization.CategoryFood,
		IsAnomaly:     flagged,
		AnomalyReason: reason,
	}
}

func TestSchedulerSweepUpdatesChangedVerdicts(t *testing.T) {
	changedUser := uuid.New()
	stableUser := uuid.New()

	changed := sweepExpense(changedUser, 25000, false, "Not enough history (2 of 5 expenses needed)")
	stable := sweepExpense(stableUser, 1200, false, "Amount within normal range")

	store := &mockSweepStore{expenses: []*expense.Expense{changed, stable}}
	scorer := &stubScorer{results: map[uuid.UUID]insights.AnomalyResult{
		changedUser: {IsAnomaly: true, Reason: "Amount deviates from category average"},
		stableUser:  {IsAnomaly: false, Reason: "Amount within normal range"},
	}}

	s := NewScheduler(store, scorer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.nowFunc = func() time.Time {
		return time.Date(2026, 8, 28, 3, 0, 0, 0, time.UTC)
	}

	s.sweepPreviousDay()

	assert.Equal(t, 2, scorer.calls)

	// The sweep hands the scorer each expense's own ID so its row is
	// excluded from the baseline it is judged against.
	assert.ElementsMatch(t, []uuid.UUID{changed.ID, stable.ID}, scorer.excludedIDs)

	// Only the changed verdict is written back.
	require.Len(t, store.flags, 1)
	got := store.flags[changed.ID]
	assert.True(t, got.IsAnomaly)
	assert.Equal(t, "Amount deviates from category average", got.Reason)
}

func TestSchedulerSweepCoversPreviousDay(t *testing.T) {
	store := &mockSweepStore{}
	scorer := &stubScorer{}

	s := NewScheduler(store, scorer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.nowFunc = func() time.Time {
		return time.Date(2026, 8, 28, 3, 0, 0, 0, time.UTC)
	}

	s.sweepPreviousDay()

	assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), store.listFrom)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), store.listTo)
	assert.Equal(t, 0, scorer.calls)
}
