package provider

import (
	"fmt"
	"strings"
	"time"

	"concord/internal/logger"
)

type ModelCfg struct {
	ID, APIURL, APIKey, Model string
	Enabled                   bool
	Headers                   map[string]string
	MaxTokens                 int
	Temperature               float64
}

func BuildProvidersFromConfig(models []ModelCfg, timeout time.Duration) []ModelProvider {
	out := make([]ModelProvider, 0, len(models))
	for _, m := range models {
		if !m.Enabled {
			continue
		}
		id := strings.TrimSpace(m.ID)
		if id == "" {
			model := strings.TrimSpace(m.Model)
			if model != "" {
				id = fmt.Sprintf("openai:%s", model)
			} else {
				id = "openai"
			}
			logger.Warnf("未配置 ai.models.id，已为 %q 生成 ID: %s", m.Model, id)
		}
		client := &OpenAIChatClient{
			BaseURL:            m.APIURL,
			APIKey:             m.APIKey,
			Model:              m.Model,
			ExtraHeaders:       m.Headers,
			DefaultMaxTokens:   m.MaxTokens,
			DefaultTemperature: m.Temperature,
		}
		if timeout > 0 {
			client.Timeout = timeout
		}
		out = append(out, NewOpenAIModelProvider(id, true, client))
	}
	return out
}

// BuildProvider 为单一模型（如聚合模型）构造 Provider。
func BuildProvider(m ModelCfg, timeout time.Duration) ModelProvider {
	ps := BuildProvidersFromConfig([]ModelCfg{{
		ID: m.ID, APIURL: m.APIURL, APIKey: m.APIKey, Model: m.Model,
		Enabled: true, Headers: m.Headers, MaxTokens: m.MaxTokens, Temperature: m.Temperature,
	}}, timeout)
	if len(ps) == 0 {
		return nil
	}
	return ps[0]
}
