package consensus

// 中文说明：
// 本文件定义共识评估流水线的通用数据结构，供轮次执行器与聚合器使用。

// ModelResponse 单个模型在某一轮的回答。捕获后不再修改。
type ModelResponse struct {
	ModelID     string
	Round       int
	RawText     string
	Price       *float64
	Explanation string
	// Err 调用失败时记录错误文本；该模型在本轮被排除出置信度加权
	Err string
}

// Failed 表示本轮调用失败或没有拿到文本。
func (r ModelResponse) Failed() bool {
	return r.Err != "" || r.RawText == ""
}

// PriceValue 返回提取出的价格，未提取到时为 0。
func (r ModelResponse) PriceValue() float64 {
	if r.Price == nil {
		return 0
	}
	return *r.Price
}

// ConfidenceRecord 一个模型在挑战前后的稳定性分析。比率字段均落在 [0,1]。
type ConfidenceRecord struct {
	ModelID        string
	InitialPrice   float64
	ChallengePrice float64
	PriceChange    float64
	PriceStability float64
	TextSimilarity float64
	Score          float64
}

// WeightMap 模型 ID 到归一化权重的映射，权重和为 1±1e-6。
type WeightMap map[string]float64

// PriceStats 对有效（>0）挑战价格的信息性统计。
type PriceStats struct {
	Mean       float64
	Median     float64
	StdDev     float64
	ValidCount int
}

// ModelBreakdown 最终结果里按模型展开的明细。
type ModelBreakdown struct {
	TextSimilarity float64 `json:"text_similarity"`
	PriceChange    float64 `json:"price_change"`
	Weight         float64 `json:"weight"`
}

// Result 一次评估的最终产物，生成后持久化、不再修改。
type Result struct {
	Price             float64                   `json:"price"`
	Text              string                    `json:"text"`
	StandardDeviation float64                   `json:"standard_deviation"`
	TotalConfidence   float64                   `json:"total_confidence"`
	Models            map[string]ModelBreakdown `json:"models"`
	Accuracy          *float64                  `json:"accuracy,omitempty"`
	ActualValue       *float64                  `json:"actual_value,omitempty"`
	EthereumPriceUSD  *float64                  `json:"ethereum_price_usd,omitempty"`
	FinalConfidence   *float64                  `json:"final_confidence_score,omitempty"`
	WeightsStdDev     *float64                  `json:"weights_standard_deviation,omitempty"`
	Error             string                    `json:"error,omitempty"`
}

// Request 一次评估请求。
type Request struct {
	ContractAddress string
	TokenID         string
	// Challenges 覆盖配置中的挑战轮数，<=0 时用配置值
	Challenges int
	// DateToPredict 显式指定预测目标日期（如 "March, 2025"），留空时由销售历史推断
	DateToPredict string
	// ActualValue 显式回测真值；为 nil 时从销售历史弹出最新成交作为真值
	ActualValue *float64
}
