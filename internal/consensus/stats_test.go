package consensus

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePriceStatsIgnoresNonPositive(t *testing.T) {
	records := map[string]ConfidenceRecord{
		"a": {ChallengePrice: 105},
		"b": {ChallengePrice: 108},
		"c": {ChallengePrice: 200},
		"d": {ChallengePrice: 0},
		"e": {ChallengePrice: -5},
	}
	stats := ComputePriceStats(records)
	assert.Equal(t, 3, stats.ValidCount)
	assert.InDelta(t, 108, stats.Median, 1e-9)
	assert.InDelta(t, (105.0+108+200)/3, stats.Mean, 1e-9)
	assert.Greater(t, stats.StdDev, 0.0)
}

func TestComputePriceStatsEvenCountMedian(t *testing.T) {
	records := map[string]ConfidenceRecord{
		"a": {ChallengePrice: 100},
		"b": {ChallengePrice: 200},
	}
	stats := ComputePriceStats(records)
	assert.InDelta(t, 150, stats.Median, 1e-9)
}

func TestComputePriceStatsSingleSample(t *testing.T) {
	stats := ComputePriceStats(map[string]ConfidenceRecord{"a": {ChallengePrice: 50}})
	assert.Equal(t, 1, stats.ValidCount)
	assert.Equal(t, 0.0, stats.StdDev)
	assert.InDelta(t, 50, stats.Median, 1e-9)
}

func TestNormalizeWeights(t *testing.T) {
	records := map[string]ConfidenceRecord{
		"a": {Score: 0.9},
		"b": {Score: 0.6},
	}
	weights := NormalizeWeights(records)
	require.Len(t, weights, 2)
	assert.InDelta(t, 0.6, weights["a"], 1e-9)
	assert.InDelta(t, 0.4, weights["b"], 1e-9)

	sum := weights["a"] + weights["b"]
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestNormalizeWeightsZeroTotal(t *testing.T) {
	records := map[string]ConfidenceRecord{
		"a": {Score: 0},
		"b": {Score: 0},
		"c": {Score: 0},
	}
	weights := NormalizeWeights(records)
	for id, w := range weights {
		assert.InDelta(t, 1.0/3, w, 1e-9, id)
	}
}

func TestNormalizeWeightsEmpty(t *testing.T) {
	assert.Empty(t, NormalizeWeights(nil))
}

func TestWeightDispersion(t *testing.T) {
	_, _, ok := WeightDispersion(WeightMap{"only": 1})
	assert.False(t, ok)

	stdDev, final, ok := WeightDispersion(WeightMap{"a": 0.5, "b": 0.5})
	require.True(t, ok)
	assert.Equal(t, 0.0, stdDev)
	// cv=0 → 置信度 1，截断到上限 0.9
	assert.InDelta(t, 0.9, final, 1e-9)

	// 高度失衡的权重给出下限附近的置信度
	_, final, ok = WeightDispersion(WeightMap{"a": 0.99, "b": 0.01})
	require.True(t, ok)
	assert.GreaterOrEqual(t, final, 0.1)
	assert.Less(t, final, 0.5)
}

func TestWeightDispersionCV(t *testing.T) {
	weights := WeightMap{"a": 0.7, "b": 0.3}
	stdDev, final, ok := WeightDispersion(weights)
	require.True(t, ok)

	m := 0.5
	wantStd := math.Sqrt(math.Pow(0.7-m, 2) + math.Pow(0.3-m, 2))
	assert.InDelta(t, wantStd, stdDev, 1e-9)
	assert.InDelta(t, math.Max(0.1, math.Min(0.9, 1-wantStd/m)), final, 1e-9)
}
