package consensus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceChange(t *testing.T) {
	assert.Equal(t, 0.0, PriceChange(0, 0))
	assert.Equal(t, 0.8, PriceChange(0, 500))
	assert.InDelta(t, 0.1, PriceChange(100, 110), 1e-9)
	assert.InDelta(t, 0.1, PriceChange(100, 90), 1e-9)
	// 相对变化超过 100% 时截断到 1
	assert.Equal(t, 1.0, PriceChange(100, 500))
}

func TestConfidenceScore(t *testing.T) {
	// 价格完全稳定、文本完全一致 → 满分
	assert.InDelta(t, 1.0, ConfidenceScore(0, 1, 0.5), 1e-9)
	// 价格剧变、文本完全不同 → 零分
	assert.InDelta(t, 0.0, ConfidenceScore(1, 0, 0.5), 1e-9)
	// 等权混合
	assert.InDelta(t, 0.75, ConfidenceScore(0.1, 0.6, 0.5), 1e-9)
	// 权重越界时截断
	assert.InDelta(t, ConfidenceScore(0.3, 0.7, 1), ConfidenceScore(0.3, 0.7, 5), 1e-9)
	assert.InDelta(t, ConfidenceScore(0.3, 0.7, 0), ConfidenceScore(0.3, 0.7, -2), 1e-9)
}

func TestAnalyzeResponsesSkipsMissingAndFailed(t *testing.T) {
	scorer := NewSimilarityScorer(nil)
	p1, p2 := 100.0, 105.0
	initial := map[string]ModelResponse{
		"gpt":      {ModelID: "gpt", RawText: "raw", Price: &p1, Explanation: "steady floor price"},
		"deepseek": {ModelID: "deepseek", RawText: "raw", Price: &p1, Explanation: "steady floor price"},
		"broken":   {ModelID: "broken", Err: "timeout"},
	}
	challenge := map[string]ModelResponse{
		"gpt": {ModelID: "gpt", RawText: "raw", Price: &p2, Explanation: "steady floor price"},
		// deepseek 缺失挑战轮回答
		"broken": {ModelID: "broken", RawText: "raw", Price: &p2, Explanation: "x"},
	}

	records := AnalyzeResponses(context.Background(), scorer, initial, challenge, 0.5)
	require.Len(t, records, 1)
	rec, ok := records["gpt"]
	require.True(t, ok)
	assert.InDelta(t, 100, rec.InitialPrice, 1e-9)
	assert.InDelta(t, 105, rec.ChallengePrice, 1e-9)
	assert.InDelta(t, 0.05, rec.PriceChange, 1e-9)
	assert.InDelta(t, 0.95, rec.PriceStability, 1e-9)
	assert.Equal(t, 1.0, rec.TextSimilarity)
	assert.InDelta(t, 0.975, rec.Score, 1e-9)
}
