package consensus

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"concord/internal/pkg/jsonutil"
)

// 中文说明：
// 模型回答的价格提取。按如下优先级尝试，直至拿到一个价格：
//  1. 去掉代码围栏后整体按 JSON 解析，探测价格字段候选名；
//  2. 包含 "price" 的最小花括号子串；
//  3. 正则提取 "price": <n> 与 "explanation": "<s>"；
//  4. 美元金额（开头锚定优先，其后任意位置）。

var priceFieldCandidates = []string{"price", "predicted_price", "predicted_price_USD"}

var (
	bracePriceRe    = regexp.MustCompile(`\{[^{}]*"price"[^{}]*\}`)
	priceFieldRe    = regexp.MustCompile(`"price"\s*:\s*"?\$?([0-9][0-9,]*\.?[0-9]*)`)
	explanationRe   = regexp.MustCompile(`"explanation"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	leadingDollarRe = regexp.MustCompile(`^\$([0-9][0-9,]*\.?[0-9]*)`)
	anyDollarRe     = regexp.MustCompile(`\$([0-9][0-9,]*\.?[0-9]*)`)
)

// ExtractPriceExplanation 从模型原文提取价格与解释文本。
// 提取不到价格时返回 (nil, "", false)。
func ExtractPriceExplanation(raw string) (*float64, string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, "", false
	}
	cleaned := jsonutil.StripFence(trimmed)

	// 1) 整体 JSON
	if gjson.Valid(cleaned) {
		if p, expl, ok := probeJSONObject(gjson.Parse(cleaned)); ok {
			return p, expl, true
		}
	}

	// 2) 最小 "price" 花括号子串
	if m := bracePriceRe.FindString(cleaned); m != "" && gjson.Valid(m) {
		if p, expl, ok := probeJSONObject(gjson.Parse(m)); ok {
			if expl == "" {
				expl = extractExplanationRegex(trimmed)
			}
			return p, expl, true
		}
	}
	// 子串缺 explanation 时也可能整段原文里有完整对象
	if obj, ok := jsonutil.ExtractJSONObject(cleaned); ok && gjson.Valid(obj) {
		if p, expl, okP := probeJSONObject(gjson.Parse(obj)); okP {
			return p, expl, true
		}
	}

	// 3) 正则提取
	if m := priceFieldRe.FindStringSubmatch(trimmed); m != nil {
		if p, err := parsePriceNumber(m[1]); err == nil {
			return &p, extractExplanationRegex(trimmed), true
		}
	}

	// 4) 美元金额
	if m := leadingDollarRe.FindStringSubmatch(trimmed); m != nil {
		if p, err := parsePriceNumber(m[1]); err == nil {
			// 价格锚定在开头：解释取剩余文本
			expl := strings.TrimSpace(trimmed[len(m[0]):])
			return &p, expl, true
		}
	}
	if m := anyDollarRe.FindStringSubmatch(trimmed); m != nil {
		if p, err := parsePriceNumber(m[1]); err == nil {
			return &p, trimmed, true
		}
	}

	return nil, "", false
}

func probeJSONObject(v gjson.Result) (*float64, string, bool) {
	if !v.IsObject() {
		return nil, "", false
	}
	for _, key := range priceFieldCandidates {
		field := v.Get(key)
		if !field.Exists() {
			continue
		}
		p, err := parsePriceResult(field)
		if err != nil {
			continue
		}
		return &p, v.Get("explanation").String(), true
	}
	return nil, "", false
}

func parsePriceResult(field gjson.Result) (float64, error) {
	switch field.Type {
	case gjson.Number:
		return field.Float(), nil
	case gjson.String:
		return parsePriceNumber(field.String())
	default:
		return 0, strconv.ErrSyntax
	}
}

// parsePriceNumber 解析可能带千分位与美元符号的数字文本。
func parsePriceNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(s, 64)
}

func extractExplanationRegex(raw string) string {
	if m := explanationRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}
