package consensus

import (
	"math"
	"sort"
)

// ComputePriceStats 对有效（>0）的挑战价格做信息性统计。
// 样本数不足 2 时标准差记 0。
func ComputePriceStats(records map[string]ConfidenceRecord) PriceStats {
	valid := make([]float64, 0, len(records))
	for _, rec := range records {
		if rec.ChallengePrice > 0 {
			valid = append(valid, rec.ChallengePrice)
		}
	}
	if len(valid) == 0 {
		return PriceStats{}
	}
	return PriceStats{
		Mean:       mean(valid),
		Median:     median(valid),
		StdDev:     sampleStdDev(valid),
		ValidCount: len(valid),
	}
}

// NormalizeWeights 把置信度归一化为权重。总置信度为 0 时退化为均匀权重。
// 浮点误差导致 |Σw-1| 超过 1e-6 时整体重缩放。
func NormalizeWeights(records map[string]ConfidenceRecord) WeightMap {
	if len(records) == 0 {
		return WeightMap{}
	}
	total := 0.0
	for _, rec := range records {
		total += rec.Score
	}

	weights := make(WeightMap, len(records))
	if total > 0 {
		for id, rec := range records {
			weights[id] = rec.Score / total
		}
	} else {
		uniform := 1.0 / float64(len(records))
		for id := range records {
			weights[id] = uniform
		}
	}

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-6 && sum > 0 {
		correction := 1.0 / sum
		for id := range weights {
			weights[id] *= correction
		}
	}
	return weights
}

// WeightDispersion 由权重离散度计算最终置信度：
// cv = stdev(weights)/mean(weights)，final = clamp(1-min(cv,1), 0.1, 0.9)。
// 参与模型不足 2 个时 ok 为 false。
func WeightDispersion(weights WeightMap) (stdDev, finalConfidence float64, ok bool) {
	if len(weights) < 2 {
		return 0, 0, false
	}
	vals := make([]float64, 0, len(weights))
	for _, w := range weights {
		vals = append(vals, w)
	}
	stdDev = sampleStdDev(vals)
	m := mean(vals)
	if m == 0 {
		return stdDev, 0, false
	}
	cv := stdDev / m
	confidence := 1.0 - math.Min(cv, 1.0)
	finalConfidence = math.Max(0.1, math.Min(0.9, confidence))
	return stdDev, finalConfidence, true
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// sampleStdDev 样本标准差（n-1），样本数不足 2 时为 0。
func sampleStdDev(vals []float64) float64 {
	n := len(vals)
	if n < 2 {
		return 0
	}
	m := mean(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(n-1))
}
