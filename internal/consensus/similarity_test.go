package consensus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors[text], nil
}

func TestSimilarityIdenticalTexts(t *testing.T) {
	scorer := NewSimilarityScorer(nil)
	assert.Equal(t, 1.0, scorer.Score(context.Background(), "same text", "same text"))
	assert.Equal(t, 1.0, scorer.Score(context.Background(), "  padded  ", "padded"))
}

func TestSimilarityEmptySide(t *testing.T) {
	scorer := NewSimilarityScorer(nil)
	assert.Equal(t, 0.0, scorer.Score(context.Background(), "", "something"))
	assert.Equal(t, 0.0, scorer.Score(context.Background(), "something", "   "))
}

func TestSimilarityEmbeddingCosine(t *testing.T) {
	scorer := NewSimilarityScorer(&stubEmbedder{vectors: map[string][]float64{
		"alpha": {1, 0},
		"beta":  {0, 1},
		"gamma": {1, 0, 0},
	}})
	// 正交向量
	assert.InDelta(t, 0.0, scorer.Score(context.Background(), "alpha", "beta"), 1e-9)
	// 维度不一致时截断到共同长度
	assert.InDelta(t, 1.0, scorer.Score(context.Background(), "alpha", "gamma"), 1e-9)
}

func TestSimilarityTermFrequencyFallback(t *testing.T) {
	scorer := NewSimilarityScorer(&stubEmbedder{err: errors.New("embedding unavailable")})
	got := scorer.Score(context.Background(), "rare blue chip collection", "rare blue chip holdings")
	assert.Greater(t, got, 0.5)
	assert.Less(t, got, 1.0)

	disjoint := scorer.Score(context.Background(), "alpha beta", "gamma delta")
	assert.InDelta(t, 0.0, disjoint, 1e-9)
}

func TestSimilarityNilEmbedderUsesTermFrequency(t *testing.T) {
	scorer := NewSimilarityScorer(nil)
	got := scorer.Score(context.Background(), "strong sales momentum", "weak sales momentum")
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 1.0)
}
