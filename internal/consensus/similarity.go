package consensus

import (
	"context"
	"math"
	"strings"

	"concord/internal/gateway/embedding"
	"concord/internal/logger"
)

// 中文说明：
// 解释文本的相似度打分。优先用 embedding 余弦相似度；embedding 不可用或失败时
// 退化为共享词表上的词频向量余弦。任何向量计算失败都返回中性值 0.5，不向上传播。

const neutralSimilarity = 0.5

type SimilarityScorer struct {
	Embedder embedding.Provider
}

func NewSimilarityScorer(embedder embedding.Provider) *SimilarityScorer {
	return &SimilarityScorer{Embedder: embedder}
}

// Score 返回 [0,1] 范围内的相似度。
func (s *SimilarityScorer) Score(ctx context.Context, a, b string) float64 {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0
	}

	if s != nil && s.Embedder != nil {
		va, errA := s.Embedder.Embed(ctx, a)
		vb, errB := s.Embedder.Embed(ctx, b)
		if errA == nil && errB == nil {
			return cosineClamped(va, vb)
		}
		if errA != nil {
			logger.Warnf("[Similarity] embedding 失败，退化为词频向量: %v", errA)
		} else {
			logger.Warnf("[Similarity] embedding 失败，退化为词频向量: %v", errB)
		}
	}
	return termFrequencySimilarity(a, b)
}

// cosineClamped 余弦相似度，结果截断到 [0,1]。
// 维度不一致时截断到较短的一侧（有损，记录 debug 日志）。
func cosineClamped(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if len(a) != len(b) {
		logger.Debugf("[Similarity] 向量维度不一致 %d vs %d，截断到 %d", len(a), len(b), n)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return neutralSimilarity
	}
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// termFrequencySimilarity 在两段文本的共享词表上构建词频向量后取余弦。
func termFrequencySimilarity(a, b string) float64 {
	fa := termFrequencies(a)
	fb := termFrequencies(b)
	if len(fa) == 0 || len(fb) == 0 {
		return neutralSimilarity
	}

	vocab := make(map[string]struct{}, len(fa)+len(fb))
	for w := range fa {
		vocab[w] = struct{}{}
	}
	for w := range fb {
		vocab[w] = struct{}{}
	}

	va := make([]float64, 0, len(vocab))
	vb := make([]float64, 0, len(vocab))
	for w := range vocab {
		va = append(va, float64(fa[w]))
		vb = append(vb, float64(fb[w]))
	}
	return cosineClamped(va, vb)
}

func termFrequencies(s string) map[string]int {
	out := map[string]int{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?\"'()[]{}")
		if w == "" {
			continue
		}
		out[w]++
	}
	return out
}
