package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreAnomaly_FlagsOutlier(t *testing.T) {
	history := []float64{10, 12, 11, 13, 9}

	result := scoreAnomaly(20, history)

	assert.True(t, result.IsAnomaly)
	require.NotNil(t, result.ZScore)
	assert.InDelta(t, 5.7, *result.ZScore, 0.1)
	assert.InDelta(t, 11.0, result.Mean, 0.001)
	assert.NotEmpty(t, result.Reason)
}

func TestScoreAnomaly_NormalAmount(t *testing.T) {
	history := []float64{10, 12, 11, 13, 9}

	result := scoreAnomaly(12.5, history)

	assert.False(t, result.IsAnomaly)
	require.NotNil(t, result.ZScore)
	assert.Less(t, *result.ZScore, anomalyZThreshold)
}

func TestScoreAnomaly_InsufficientHistory(t *testing.T) {
	result := scoreAnomaly(500, []float64{10, 11, 12, 13})

	assert.False(t, result.IsAnomaly)
	assert.Nil(t, result.ZScore)
	assert.Contains(t, result.Reason, "Not enough history")
}

func TestScoreAnomaly_EmptyHistory(t *testing.T) {
	result := scoreAnomaly(500, nil)

	assert.False(t, result.IsAnomaly)
	assert.Nil(t, result.ZScore)
}

func TestScoreAnomaly_ZeroVariance(t *testing.T) {
	history := []float64{10, 10, 10, 10, 10}

	t.Run("different amount is flagged", func(t *testing.T) {
		result := scoreAnomaly(50, history)

		assert.True(t, result.IsAnomaly)
		assert.Nil(t, result.ZScore, "z-score is undefined with zero variance")
		assert.Equal(t, 10.0, result.Mean)
		assert.Zero(t, result.StdDev)
	})

	t.Run("matching amount is not", func(t *testing.T) {
		result := scoreAnomaly(10, history)

		assert.False(t, result.IsAnomaly)
		assert.Nil(t, result.ZScore)
	})
}

func TestScoreAnomaly_BelowThresholdNotFlagged(t *testing.T) {
	// mean 10, stdDev ~2.19: an amount of 15 sits just under z = 2.5
	history := []float64{8, 8, 8, 12, 12, 12}

	result := scoreAnomaly(15, history)

	require.NotNil(t, result.ZScore)
	assert.Less(t, *result.ZScore, anomalyZThreshold)
	assert.False(t, result.IsAnomaly)
}

func TestMeanStdDev(t *testing.T) {
	mean, stdDev := meanStdDev([]float64{10, 12, 11, 13, 9})

	assert.InDelta(t, 11.0, mean, 0.001)
	assert.InDelta(t, 1.581, stdDev, 0.001)
}
