package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEmptyHistory(t *testing.T) {
	m := Compute(nil, 0.35)
	assert.Nil(t, m.Rank)
	assert.Nil(t, m.Percentile)
}

func TestComputeReferenceValues(t *testing.T) {
	m := Compute([]float64{0.2, 0.3, 0.4}, 0.3)
	require.NotNil(t, m.Rank)
	require.NotNil(t, m.Percentile)
	assert.InDelta(t, 0.5, *m.Rank, 1e-12)
	assert.InDelta(t, 2.0/3.0, *m.Percentile, 1e-12)
}

func TestComputeFlatHistory(t *testing.T) {
	m := Compute([]float64{0.25, 0.25, 0.25}, 0.25)
	assert.Nil(t, m.Rank, "flat history has no rank basis")
	require.NotNil(t, m.Percentile)
	assert.InDelta(t, 1.0, *m.Percentile, 1e-12)

	m = Compute([]float64{0.25, 0.25}, 0.10)
	assert.Nil(t, m.Rank)
	require.NotNil(t, m.Percentile)
	assert.InDelta(t, 0.0, *m.Percentile, 1e-12)
}

func TestRankIsUnclamped(t *testing.T) {
	m := Compute([]float64{0.2, 0.4}, 0.5)
	require.NotNil(t, m.Rank)
	assert.InDelta(t, 1.5, *m.Rank, 1e-12, "above-range current exceeds 1")

	m = Compute([]float64{0.2, 0.4}, 0.1)
	require.NotNil(t, m.Rank)
	assert.InDelta(t, -0.5, *m.Rank, 1e-12, "below-range current goes negative")
}

func TestPercentileBounds(t *testing.T) {
	history := []float64{0.31, 0.18, 0.27, 0.22, 0.40}

	m := Compute(history, 0.10)
	require.NotNil(t, m.Percentile)
	assert.Equal(t, 0.0, *m.Percentile)

	m = Compute(history, 0.50)
	require.NotNil(t, m.Percentile)
	assert.Equal(t, 1.0, *m.Percentile)

	// equal values count as "at or below"
	m = Compute(history, 0.27)
	require.NotNil(t, m.Percentile)
	assert.InDelta(t, 3.0/5.0, *m.Percentile, 1e-12)
}

func TestComputeDoesNotMutateHistory(t *testing.T) {
	history := []float64{0.4, 0.2, 0.3}
	Compute(history, 0.25)
	assert.Equal(t, []float64{0.4, 0.2, 0.3}, history)
}
