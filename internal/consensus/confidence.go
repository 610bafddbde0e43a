package consensus

import (
	"context"
	"math"

	"concord/internal/logger"
)

// 中文说明：
// 置信度 = 1 - (w*价格变化 + (1-w)*(1-文本相似度))。
// w 即 consensus.price_weight；价格稳定 + 解释一致的模型拿到高置信度。

const zeroBaselineChange = 0.8

// PriceChange 归一化价格变化，落在 [0,1]。
// 两价均为 0 记 0；仅基准为 0 时封顶记 0.8；其余取相对变化并截断到 1。
func PriceChange(initial, challenge float64) float64 {
	switch {
	case initial == 0 && challenge == 0:
		return 0
	case initial == 0:
		return zeroBaselineChange
	default:
		return math.Min(math.Abs(challenge-initial)/initial, 1)
	}
}

// ConfidenceScore 按价格稳定与文本相似度的加权混合计算置信度，截断到 [0,1]。
func ConfidenceScore(priceChange, textSimilarity, priceWeight float64) float64 {
	if priceWeight < 0 {
		priceWeight = 0
	}
	if priceWeight > 1 {
		priceWeight = 1
	}
	score := 1 - (priceWeight*priceChange + (1-priceWeight)*(1-textSimilarity))
	return math.Max(0, math.Min(1, score))
}

// AnalyzeResponses 对比挑战前后的回答，产出每个模型的稳定性分析。
// 任一侧缺失或失败的模型被跳过，不参与加权。
func AnalyzeResponses(ctx context.Context, scorer *SimilarityScorer, initial, challenge map[string]ModelResponse, priceWeight float64) map[string]ConfidenceRecord {
	out := make(map[string]ConfidenceRecord, len(initial))
	for modelID, init := range initial {
		chal, ok := challenge[modelID]
		if !ok || init.Failed() || chal.Failed() {
			logger.Warnf("[Consensus] 模型 %s 回答缺失，跳过分析", modelID)
			continue
		}

		initialPrice := init.PriceValue()
		challengePrice := chal.PriceValue()

		change := PriceChange(initialPrice, challengePrice)
		similarity := scorer.Score(ctx, init.Explanation, chal.Explanation)
		score := ConfidenceScore(change, similarity, priceWeight)

		out[modelID] = ConfidenceRecord{
			ModelID:        modelID,
			InitialPrice:   initialPrice,
			ChallengePrice: challengePrice,
			PriceChange:    change,
			PriceStability: 1 - change,
			TextSimilarity: similarity,
			Score:          score,
		}

		logger.Infof("[Consensus] %s: 初始价=%.2f 挑战价=%.2f 价格变化=%.4f 相似度=%.4f 置信度=%.4f",
			modelID, initialPrice, challengePrice, change, similarity, score)
	}
	return out
}
