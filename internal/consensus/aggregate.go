package consensus

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"concord/internal/gateway/provider"
	"concord/internal/logger"
	"concord/internal/pkg/jsonutil"
)

// 中文说明：
// 加权聚合。不自行计算加权平均，而是把每个模型的权重、报价与完整回答
// 交给聚合模型做最终合成；聚合输出按 JSON Schema 校验，不可解析时
// 退化为中位数的确定性兜底结果。

const aggregatorSystemTemplate = `You are synthesizing multiple NFT appraisals from different models. Each model has been assigned a confidence weight based on how consistent their analysis remained when challenged.

A higher weight means the model's response should be given more consideration in your final synthesis.

Here are the model responses with their confidence weights:

%s`

const aggregatorUserPrompt = `Based on the model responses and their assigned confidence weights, provide your final appraisal of the NFT's value.

Your response MUST be in JSON format with the following structure:
{
  "price": [Final price in USD as a number],
  "explanation": "[Brief explanation in 2-3 sentences]"
}

Important guidelines:
1. Use your expertise to determine the most reasonable price based on:
   - The quality of each model's reasoning
   - The confidence weights assigned to each model
   - Recent sales data emphasized in the responses
   - The NFT's rarity and market trends
2. Your price should reflect your best judgment of the true value, informed by the weighted model responses
3. Your explanation should be concise but informative

Do not include any text outside the JSON structure or any markdown code blocks.`

const fallbackExplanation = "Final price estimate based on analysis of model responses, with higher weight given to more consistent models."

var aggregateOutputSchema = jsonschema.MustCompileString("aggregate_output.json", `{
	"type": "object",
	"properties": {
		"price": {"type": "number"},
		"explanation": {"type": "string"}
	}
}`)

type Aggregator struct {
	Provider provider.ModelProvider
}

func NewAggregator(p provider.ModelProvider) *Aggregator {
	return &Aggregator{Provider: p}
}

// Aggregate 调用聚合模型合成最终结果。聚合调用失败或输出不可解析时
// 返回基于中位数的兜底结果，不向上返回错误。
func (a *Aggregator) Aggregate(ctx context.Context, records map[string]ConfidenceRecord, weights WeightMap, challenge map[string]ModelResponse) Result {
	stats := ComputePriceStats(records)
	base := baseResult(records, weights, stats)

	if a == nil || a.Provider == nil {
		logger.Warnf("[Aggregate] 未配置聚合模型，使用中位数兜底")
		base.Text = fallbackExplanation
		return base
	}

	system := fmt.Sprintf(aggregatorSystemTemplate, weightedResponsesText(records, weights, challenge))
	logger.LogLLMRequest("consensus", a.Provider.ID(), "aggregate", system, aggregatorUserPrompt, "")

	raw, err := a.Provider.Call(ctx, provider.ChatPayload{System: system, User: aggregatorUserPrompt})
	if err != nil {
		logger.Errorf("[Aggregate] 聚合模型调用失败: %v，使用中位数兜底", err)
		base.Text = fallbackExplanation
		return base
	}
	logger.LogLLMResponse("consensus", a.Provider.ID(), "aggregate", raw)

	price, explanation, ok := parseAggregatorOutput(raw)
	if !ok {
		logger.Warnf("[Aggregate] 聚合输出不可解析，使用中位数兜底")
		base.Text = fallbackExplanation
		return base
	}
	if price != nil {
		base.Price = *price
	}
	if explanation != "" {
		base.Text = explanation
	} else {
		base.Text = "Final price estimate based on weighted model contributions."
	}
	return base
}

// parseAggregatorOutput 去围栏后解析并按 schema 校验聚合输出。
// price 可缺省（nil），由调用方回落到中位数。
func parseAggregatorOutput(raw string) (*float64, string, bool) {
	cleaned := jsonutil.StripFence(raw)
	var decoded map[string]any
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		// 原文里可能混有解说文字，再试一次对象抽取
		obj, found := jsonutil.ExtractJSONObject(cleaned)
		if !found || json.Unmarshal([]byte(obj), &decoded) != nil {
			return nil, "", false
		}
	}
	if err := aggregateOutputSchema.Validate(decoded); err != nil {
		logger.Warnf("[Aggregate] 聚合输出未通过 schema 校验: %v", err)
		return nil, "", false
	}

	var price *float64
	if v, ok := decoded["price"].(float64); ok {
		price = &v
	}
	explanation, _ := decoded["explanation"].(string)
	return price, explanation, true
}

func baseResult(records map[string]ConfidenceRecord, weights WeightMap, stats PriceStats) Result {
	models := make(map[string]ModelBreakdown, len(records))
	totalConfidence := 0.0
	for id, rec := range records {
		models[id] = ModelBreakdown{
			TextSimilarity: rec.TextSimilarity,
			PriceChange:    rec.PriceChange,
			Weight:         weights[id],
		}
		totalConfidence += rec.Score
	}

	out := Result{
		Price:             stats.Median,
		StandardDeviation: stats.StdDev,
		TotalConfidence:   totalConfidence,
		Models:            models,
	}
	if stdDev, final, ok := WeightDispersion(weights); ok {
		out.WeightsStdDev = &stdDev
		out.FinalConfidence = &final
	}
	return out
}

// weightedResponsesText 按模型 ID 排序拼接权重、报价与回答原文。
func weightedResponsesText(records map[string]ConfidenceRecord, weights WeightMap, challenge map[string]ModelResponse) string {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	blocks := make([]string, 0, len(ids))
	for _, id := range ids {
		rec := records[id]
		resp := challenge[id]
		blocks = append(blocks, fmt.Sprintf("Model: %s (Weight: %.4f, Price: $%.2f)\n%s",
			id, weights[id], rec.ChallengePrice, resp.RawText))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}
