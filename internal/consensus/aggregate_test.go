package consensus

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concord/internal/gateway/provider"
)

type stubProvider struct {
	id      string
	reply   string
	err     error
	payload *provider.ChatPayload
}

func (s *stubProvider) ID() string    { return s.id }
func (s *stubProvider) Enabled() bool { return true }
func (s *stubProvider) Call(_ context.Context, p provider.ChatPayload) (string, error) {
	s.payload = &p
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func sampleRecords() (map[string]ConfidenceRecord, WeightMap, map[string]ModelResponse) {
	records := map[string]ConfidenceRecord{
		"gpt":      {ModelID: "gpt", ChallengePrice: 105, TextSimilarity: 0.9, PriceChange: 0.05, Score: 0.9},
		"deepseek": {ModelID: "deepseek", ChallengePrice: 108, TextSimilarity: 0.8, PriceChange: 0.1, Score: 0.85},
		"grok":     {ModelID: "grok", ChallengePrice: 200, TextSimilarity: 0.5, PriceChange: 0.4, Score: 0.5},
	}
	weights := NormalizeWeights(records)
	challenge := map[string]ModelResponse{
		"gpt":      {ModelID: "gpt", RawText: "gpt raw answer"},
		"deepseek": {ModelID: "deepseek", RawText: "deepseek raw answer"},
		"grok":     {ModelID: "grok", RawText: "grok raw answer"},
	}
	return records, weights, challenge
}

func TestAggregateUsesModelOutput(t *testing.T) {
	records, weights, challenge := sampleRecords()
	stub := &stubProvider{id: "agg", reply: `{"price": 120.5, "explanation": "Weighted synthesis."}`}

	result := NewAggregator(stub).Aggregate(context.Background(), records, weights, challenge)
	assert.InDelta(t, 120.5, result.Price, 1e-9)
	assert.Equal(t, "Weighted synthesis.", result.Text)
	assert.Len(t, result.Models, 3)
	assert.InDelta(t, 0.9+0.85+0.5, result.TotalConfidence, 1e-9)
	require.NotNil(t, result.FinalConfidence)
	assert.GreaterOrEqual(t, *result.FinalConfidence, 0.1)
	assert.LessOrEqual(t, *result.FinalConfidence, 0.9)

	// 聚合提示词里带上每个模型的权重与原文，模型按 ID 排序
	require.NotNil(t, stub.payload)
	assert.Contains(t, stub.payload.System, "Model: deepseek")
	assert.Contains(t, stub.payload.System, "gpt raw answer")
	assert.Less(t, strings.Index(stub.payload.System, "Model: deepseek"), strings.Index(stub.payload.System, "Model: gpt"))
}

func TestAggregateFallsBackToMedianOnCallError(t *testing.T) {
	records, weights, challenge := sampleRecords()
	stub := &stubProvider{id: "agg", err: errors.New("upstream down")}

	result := NewAggregator(stub).Aggregate(context.Background(), records, weights, challenge)
	assert.InDelta(t, 108, result.Price, 1e-9)
	assert.Equal(t, fallbackExplanation, result.Text)
	assert.Len(t, result.Models, 3)
}

func TestAggregateFallsBackOnUnparseableOutput(t *testing.T) {
	records, weights, challenge := sampleRecords()
	stub := &stubProvider{id: "agg", reply: "I think it is worth a lot, trust me"}

	result := NewAggregator(stub).Aggregate(context.Background(), records, weights, challenge)
	assert.InDelta(t, 108, result.Price, 1e-9)
	assert.Equal(t, fallbackExplanation, result.Text)
}

func TestAggregateSchemaRejectsWrongTypes(t *testing.T) {
	records, weights, challenge := sampleRecords()
	stub := &stubProvider{id: "agg", reply: `{"price": "not-a-number at all", "explanation": 42}`}

	result := NewAggregator(stub).Aggregate(context.Background(), records, weights, challenge)
	assert.InDelta(t, 108, result.Price, 1e-9)
	assert.Equal(t, fallbackExplanation, result.Text)
}

func TestAggregateMissingFieldsFallToDefaults(t *testing.T) {
	records, weights, challenge := sampleRecords()
	stub := &stubProvider{id: "agg", reply: `{"explanation": "No price given."}`}

	result := NewAggregator(stub).Aggregate(context.Background(), records, weights, challenge)
	// price 缺省时回落到中位数，explanation 采用模型输出
	assert.InDelta(t, 108, result.Price, 1e-9)
	assert.Equal(t, "No price given.", result.Text)
}

func TestAggregateNilProvider(t *testing.T) {
	records, weights, challenge := sampleRecords()
	result := NewAggregator(nil).Aggregate(context.Background(), records, weights, challenge)
	assert.InDelta(t, 108, result.Price, 1e-9)
	assert.Equal(t, fallbackExplanation, result.Text)
}
