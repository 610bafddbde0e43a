package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.AI.validate(); err != nil {
		return err
	}
	if err := c.Consensus.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AIConfig) validate() error {
	if len(a.Models) == 0 {
		return fmt.Errorf("ai.models requires at least one model")
	}
	seen := make(map[string]bool, len(a.Models))
	for _, m := range a.Models {
		id := strings.ToLower(strings.TrimSpace(m.ID))
		if id == "" {
			return fmt.Errorf("ai.models contains entry without id (model=%s)", m.Model)
		}
		if seen[id] {
			return fmt.Errorf("ai.models duplicate id %q", m.ID)
		}
		seen[id] = true
		if strings.TrimSpace(m.Model) == "" {
			return fmt.Errorf("ai.models.%s missing model", m.ID)
		}
		if strings.TrimSpace(m.APIURL) == "" {
			return fmt.Errorf("ai.models.%s missing api_url", m.ID)
		}
	}
	if strings.TrimSpace(a.AggregatorID) == "" {
		return fmt.Errorf("ai.aggregator_id is required")
	}
	if _, ok := a.AggregatorModel(); !ok {
		return fmt.Errorf("ai.aggregator_id %q does not match any model entry", a.AggregatorID)
	}
	if len(a.EnabledModels()) == 0 {
		return fmt.Errorf("ai.models requires at least one enabled non-aggregator model")
	}
	return nil
}

func (c *ConsensusConfig) validate() error {
	if c.Challenges < 1 {
		return fmt.Errorf("consensus.challenges must be >= 1")
	}
	if c.PriceWeight < 0 || c.PriceWeight > 1 {
		return fmt.Errorf("consensus.price_weight must be within [0,1]")
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("consensus.timeout_seconds must be positive")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if strings.TrimSpace(n.Telegram.BotToken) == "" {
			return fmt.Errorf("notify.telegram.bot_token is required when telegram is enabled")
		}
		if strings.TrimSpace(n.Telegram.ChatID) == "" {
			return fmt.Errorf("notify.telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}
