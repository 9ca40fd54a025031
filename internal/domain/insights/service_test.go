package insights

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendwise/spendwise-api/internal/domain/categorization"
)

type mockHistoryStore struct {
	amounts          []float64
	amountsExcluding []float64
	amountsErr       error
	totals           []MonthlyTotal
	totalsErr        error
	since            time.Time
	excludedID       uuid.UUID
}

func (m *mockHistoryStore) CategoryAmounts(_ context.Context, _ uuid.UUID, _ categorization.Category, since time.Time) ([]float64, error) {
	m.since = since
	return m.amounts, m.amountsErr
}

func (m *mockHistoryStore) CategoryAmountsExcluding(_ context.Context, _ uuid.UUID, _ categorization.Category, since time.Time, excludeID uuid.UUID) ([]float64, error) {
	m.since = since
	m.excludedID = excludeID
	return m.amountsExcluding, m.amountsErr
}

func (m *mockHistoryStore) MonthlyTotals(_ context.Context, _ uuid.UUID, _ categorization.Category, since time.Time) ([]MonthlyTotal, error) {
	m.since = since
	return m.totals, m.totalsErr
}

func newInsightsService(store HistoryStore) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, logger, nil)
}

func TestService_CheckAnomaly(t *testing.T) {
	store := &mockHistoryStore{amounts: []float64{10, 12, 11, 13, 9}}
	svc := newInsightsService(store)

	result := svc.CheckAnomaly(context.Background(), uuid.New(), categorization.CategoryFood, 20)

	assert.True(t, result.IsAnomaly)
	require.NotNil(t, result.ZScore)
}

func TestService_CheckAnomalyUsesNinetyDayWindow(t *testing.T) {
	store := &mockHistoryStore{}
	svc := newInsightsService(store)
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	svc.CheckAnomaly(context.Background(), uuid.New(), categorization.CategoryFood, 20)

	assert.Equal(t, now.Add(-90*24*time.Hour), store.since)
}

func TestService_RecheckAnomalyExcludesOwnRow(t *testing.T) {
	// A 50 in a uniform 10s history is anomalous, but with its own row in
	// the baseline the mean and stddev shift enough to clear it
	// (mean 16.67, stddev 16.33, z ~2.04). The recheck reads the history
	// with the expense excluded and keeps the flag.
	store := &mockHistoryStore{
		amounts:          []float64{10, 10, 10, 10, 10, 50},
		amountsExcluding: []float64{10, 10, 10, 10, 10},
	}
	svc := newInsightsService(store)
	expenseID := uuid.New()

	selfIncluded := scoreAnomaly(50, store.amounts)
	assert.False(t, selfIncluded.IsAnomaly)

	result := svc.RecheckAnomaly(context.Background(), uuid.New(), categorization.CategoryFood, 50, expenseID)

	assert.True(t, result.IsAnomaly)
	assert.Equal(t, expenseID, store.excludedID)
}

func TestService_CheckAnomalyDegradesOnStoreError(t *testing.T) {
	store := &mockHistoryStore{amountsErr: errors.New("connection reset")}
	svc := newInsightsService(store)

	result := svc.CheckAnomaly(context.Background(), uuid.New(), categorization.CategoryFood, 20)

	assert.False(t, result.IsAnomaly)
	assert.Equal(t, "Detection failed", result.Reason)
	assert.Nil(t, result.ZScore)
}

func TestService_ForecastCategory(t *testing.T) {
	store := &mockHistoryStore{totals: []MonthlyTotal{
		{Month: month(2026, time.May), Total: 100},
		{Month: month(2026, time.June), Total: 110},
		{Month: month(2026, time.July), Total: 120},
	}}
	svc := newInsightsService(store)

	forecast := svc.ForecastCategory(context.Background(), uuid.New(), categorization.CategoryFood, 3)

	assert.Equal(t, ConfidenceMedium, forecast.Confidence)
	assert.Len(t, forecast.Points, 3)
}

func TestService_ForecastDegradesOnStoreError(t *testing.T) {
	store := &mockHistoryStore{totalsErr: errors.New("connection reset")}
	svc := newInsightsService(store)

	forecast := svc.ForecastCategory(context.Background(), uuid.New(), categorization.CategoryFood, 3)

	assert.Empty(t, forecast.Points)
	assert.Equal(t, ConfidenceLow, forecast.Confidence)
}
