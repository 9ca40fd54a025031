// Package insights computes statistical signals over a user's expense
// history: anomaly flags at creation time and category spend forecasts on
// demand.
package insights

import (
	"fmt"
	"math"
)

const (
	// minHistorySize is the number of same-category transactions required
	// before anomaly scoring produces a signal.
	minHistorySize = 5

	// anomalyZThreshold flags amounts more than this many standard
	// deviations from the category mean.
	anomalyZThreshold = 2.5
)

// AnomalyResult describes whether an amount is unusual for its category.
// ZScore is nil when no score could be computed (insufficient history or a
// zero-variance baseline).
type AnomalyResult struct {
	IsAnomaly bool     `json:"is_anomaly"`
	ZScore    *float64 `json:"z_score,omitempty"`
	Mean      float64  `json:"mean"`
	StdDev    float64  `json:"std_dev"`
	Reason    string   `json:"reason"`
}

// scoreAnomaly runs the z-score test for amount against history. The
// history is the user's same-category amounts from the trailing window,
// already fetched.
//
// With a zero standard deviation the z-score is undefined, so the test
// degenerates to an exact comparison: any amount different from the
// constant baseline is flagged.
func scoreAnomaly(amount float64, history []float64) AnomalyResult {
	if len(history) < minHistorySize {
		return AnomalyResult{
			IsAnomaly: false,
			Reason: fmt.Sprintf("Not enough history (%d of %d transactions needed)",
				len(history), minHistorySize),
		}
	}

	mean, stdDev := meanStdDev(history)

	if stdDev == 0 {
		if amount == mean {
			return AnomalyResult{
				Mean:   mean,
				StdDev: 0,
				Reason: fmt.Sprintf("Amount matches the constant historical amount of %.2f", mean),
			}
		}
		return AnomalyResult{
			IsAnomaly: true,
			Mean:      mean,
			StdDev:    0,
			Reason:    fmt.Sprintf("Amount differs from the constant historical amount of %.2f", mean),
		}
	}

	z := math.Abs(amount-mean) / stdDev
	result := AnomalyResult{
		IsAnomaly: z > anomalyZThreshold,
		ZScore:    &z,
		Mean:      mean,
		StdDev:    stdDev,
	}

	if result.IsAnomaly {
		result.Reason = fmt.Sprintf("Amount is %.1f standard deviations from the category mean of %.2f", z, mean)
	} else {
		result.Reason = fmt.Sprintf("Amount is within %.1f standard deviations of the category mean", anomalyZThreshold)
	}
	return result
}

// meanStdDev returns the mean and sample standard deviation (n-1
// denominator). Callers guarantee at least two values.
func meanStdDev(values []float64) (mean, stdDev float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values) - 1)

	return mean, math.Sqrt(variance)
}
