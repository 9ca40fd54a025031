package insights

import "time"

// Confidence labels how much history backs a forecast.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

const (
	// minForecastBuckets is the number of monthly buckets needed before a
	// trend can be fitted.
	minForecastBuckets = 3

	// highConfidenceBuckets is the sample count at which the forecast is
	// labeled high confidence.
	highConfidenceBuckets = 6

	// DefaultHorizonMonths is the number of months projected when the
	// caller does not ask for a specific horizon.
	DefaultHorizonMonths = 3
)

// ForecastPoint is one projected month of category spend. Never persisted;
// recomputed on every request.
type ForecastPoint struct {
	Month           time.Time `json:"month"`
	PredictedAmount float64   `json:"predicted_amount"`
}

// Forecast is a linear projection of a category's monthly spend.
type Forecast struct {
	Points     []ForecastPoint `json:"points"`
	Confidence Confidence      `json:"confidence"`
}

// MonthlyTotal is one observed month of category spend.
type MonthlyTotal struct {
	Month time.Time
	Total float64
}

// forecastSpend fits an ordinary least-squares line through the observed
// monthly totals (oldest first) and extrapolates horizon months past the
// last one. Predictions are clamped to zero: spend cannot go negative.
// Fewer than three observed months yields an empty low-confidence forecast.
func forecastSpend(observed []MonthlyTotal, horizon int) Forecast {
	if horizon <= 0 {
		horizon = DefaultHorizonMonths
	}

	n := len(observed)
	if n < minForecastBuckets {
		return Forecast{Points: []ForecastPoint{}, Confidence: ConfidenceLow}
	}

	slope, intercept := fitLine(observed)

	confidence := ConfidenceMedium
	if n >= highConfidenceBuckets {
		confidence = ConfidenceHigh
	}

	lastMonth := observed[n-1].Month
	points := make([]ForecastPoint, 0, horizon)
	for i := 1; i <= horizon; i++ {
		predicted := slope*float64(n-1+i) + intercept
		if predicted < 0 {
			predicted = 0
		}
		points = append(points, ForecastPoint{
			Month:           lastMonth.AddDate(0, i, 0),
			PredictedAmount: predicted,
		})
	}

	return Forecast{Points: points, Confidence: confidence}
}

// fitLine computes OLS slope and intercept with x = 0..n-1 against the
// monthly totals.
func fitLine(observed []MonthlyTotal) (slope, intercept float64) {
	n := float64(len(observed))

	var sumX, sumY, sumXY, sumXX float64
	for i, m := range observed {
		x := float64(i)
		sumX += x
		sumY += m.Total
		sumXY += x * m.Total
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}

	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}
