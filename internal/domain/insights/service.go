package insights

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/spendwise/spendwise-api/internal/domain/categorization"
	"github.com/spendwise/spendwise-api/pkg/metrics"
)

const (
	// anomalyWindow is the trailing window the anomaly baseline is drawn
	// from.
	anomalyWindow = 90 * 24 * time.Hour

	// forecastWindowMonths bounds how far back monthly buckets are read.
	forecastWindowMonths = 12
)

// HistoryStore is the read surface over expense history.
type HistoryStore interface {
	CategoryAmounts(ctx context.Context, userID uuid.UUID, category categorization.Category, since time.Time) ([]float64, error)
	CategoryAmountsExcluding(ctx context.Context, userID uuid.UUID, category categorization.Category, since time.Time, excludeID uuid.UUID) ([]float64, error)
	MonthlyTotals(ctx context.Context, userID uuid.UUID, category categorization.Category, since time.Time) ([]MonthlyTotal, error)
}

// Service computes anomaly checks and forecasts. Both degrade rather than
// fail: a broken history read produces a negative anomaly result and an
// empty forecast.
type Service struct {
	store   HistoryStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

func NewService(store HistoryStore, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("insights"),
		now:     time.Now,
	}
}

// CheckAnomaly scores an amount against the user's same-category history
// from the last 90 days. It never returns an error: a failed history read
// degrades to a non-anomaly with an explanatory reason.
func (s *Service) CheckAnomaly(ctx context.Context, userID uuid.UUID, category categorization.Category, amount float64) AnomalyResult {
	ctx, span := s.tracer.Start(ctx, "insights.check_anomaly",
		trace.WithAttributes(attribute.String("expense.category", string(category))))
	defer span.End()

	history, err := s.store.CategoryAmounts(ctx, userID, category, s.now().Add(-anomalyWindow))
	return s.score(span, userID, category, amount, history, err)
}

// RecheckAnomaly re-scores an expense that is already persisted, reading
// the baseline with the expense's own row excluded so it cannot normalize
// itself.
func (s *Service) RecheckAnomaly(ctx context.Context, userID uuid.UUID, category categorization.Category, amount float64, expenseID uuid.UUID) AnomalyResult {
	ctx, span := s.tracer.Start(ctx, "insights.recheck_anomaly",
		trace.WithAttributes(attribute.String("expense.category", string(category))))
	defer span.End()

	history, err := s.store.CategoryAmountsExcluding(ctx, userID, category, s.now().Add(-anomalyWindow), expenseID)
	return s.score(span, userID, category, amount, history, err)
}

func (s *Service) score(span trace.Span, userID uuid.UUID, category categorization.Category, amount float64, history []float64, err error) AnomalyResult {
	if err != nil {
		s.logger.Warn("anomaly history read failed",
			slog.String("user_id", userID.String()),
			slog.String("category", string(category)),
			slog.Any("error", err))
		span.RecordError(err)
		s.countCheck("failed")
		return AnomalyResult{IsAnomaly: false, Reason: "Detection failed"}
	}

	result := scoreAnomaly(amount, history)
	s.countCheck(checkOutcome(result, len(history)))
	return result
}

// ForecastCategory projects the next horizon months of category spend from
// the trailing twelve months of history. A failed read degrades to an empty
// low-confidence forecast.
func (s *Service) ForecastCategory(ctx context.Context, userID uuid.UUID, category categorization.Category, horizon int) Forecast {
	ctx, span := s.tracer.Start(ctx, "insights.forecast",
		trace.WithAttributes(
			attribute.String("expense.category", string(category)),
			attribute.Int("forecast.horizon", horizon)))
	defer span.End()

	since := s.now().AddDate(0, -forecastWindowMonths, 0)
	observed, err := s.store.MonthlyTotals(ctx, userID, category, since)
	if err != nil {
		s.logger.Warn("forecast history read failed",
			slog.String("user_id", userID.String()),
			slog.String("category", string(category)),
			slog.Any("error", err))
		span.RecordError(err)
		return Forecast{Points: []ForecastPoint{}, Confidence: ConfidenceLow}
	}

	forecast := forecastSpend(observed, horizon)
	span.SetAttributes(
		attribute.Int("forecast.buckets", len(observed)),
		attribute.String("forecast.confidence", string(forecast.Confidence)))
	return forecast
}

func checkOutcome(result AnomalyResult, historySize int) string {
	switch {
	case historySize < minHistorySize:
		return "skipped"
	case result.IsAnomaly:
		return "anomaly"
	default:
		return "normal"
	}
}

func (s *Service) countCheck(outcome string) {
	if s.metrics != nil {
		s.metrics.AnomalyChecksTotal.WithLabelValues(outcome).Inc()
	}
}
