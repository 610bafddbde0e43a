package config

import "strings"

// Config 是 Concord 的主配置载体。
type Config struct {
	App       AppConfig       `toml:"app"`
	AI        AIConfig        `toml:"ai"`
	Consensus ConsensusConfig `toml:"consensus"`
	Embedding EmbeddingConfig `toml:"embedding"`
	NFTData   NFTDataConfig   `toml:"nftdata"`
	Feed      FeedConfig      `toml:"feed"`
	Prompt    PromptConfig    `toml:"prompt"`
	Store     StoreConfig     `toml:"store"`
	Notify    NotifyConfig    `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	LLMLog   string `toml:"llm_log_path"`
	LLMDump  bool   `toml:"llm_dump_payload"`
}

// ConsensusConfig 控制挑战轮与置信度加权的行为。
type ConsensusConfig struct {
	// Challenges 每次评估执行的挑战轮数。
	Challenges int `toml:"challenges"`
	// PriceWeight 置信度公式中价格稳定性的权重，其余部分归解释相似度。
	PriceWeight float64 `toml:"price_weight"`
	// TimeoutSeconds 单次模型调用的超时。
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// AIConfig 包含参与共识的模型与聚合模型设置。
type AIConfig struct {
	// AggregatorID 指定负责最终合成的模型条目 ID。
	AggregatorID string          `toml:"aggregator_id"`
	Models       []AIModelConfig `toml:"models"`
}

// AIModelConfig 代表一个参与评估的模型条目。
type AIModelConfig struct {
	ID          string            `toml:"id"`
	APIURL      string            `toml:"api_url"`
	APIKey      string            `toml:"api_key"`
	Model       string            `toml:"model"`
	MaxTokens   int               `toml:"max_tokens"`
	Temperature float64           `toml:"temperature"`
	Enabled     *bool             `toml:"enabled"`
	Headers     map[string]string `toml:"headers"`
}

// IsEnabled 未显式配置时默认启用。
func (m AIModelConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// EmbeddingConfig 描述文本向量服务（Gemini embedContent 兼容）。
type EmbeddingConfig struct {
	APIURL  string `toml:"api_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Enabled bool   `toml:"enabled"`
}

// NFTDataConfig 描述 NFT 元数据与销售历史数据源。
type NFTDataConfig struct {
	MoralisAPIURL   string `toml:"moralis_api_url"`
	MoralisAPIKey   string `toml:"moralis_api_key"`
	ReservoirAPIURL string `toml:"reservoir_api_url"`
	ReservoirAPIKey string `toml:"reservoir_api_key"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// FeedConfig 描述现货价格与行情 feed 数据源。
type FeedConfig struct {
	CoinGeckoURL   string `toml:"coingecko_url"`
	BinanceEnabled bool   `toml:"binance_enabled"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type PromptConfig struct {
	Dir          string `toml:"dir"`
	ChallengeSet string `toml:"challenge_set"`
}

type StoreConfig struct {
	ResultsPath    string `toml:"results_path"`
	TranscriptPath string `toml:"transcript_path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// EnabledModels 返回启用的模型条目（聚合模型除外）。
func (a AIConfig) EnabledModels() []AIModelConfig {
	out := make([]AIModelConfig, 0, len(a.Models))
	for _, m := range a.Models {
		if !m.IsEnabled() {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(m.ID), strings.TrimSpace(a.AggregatorID)) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// AggregatorModel 返回聚合模型条目。
func (a AIConfig) AggregatorModel() (AIModelConfig, bool) {
	want := strings.ToLower(strings.TrimSpace(a.AggregatorID))
	if want == "" {
		return AIModelConfig{}, false
	}
	for _, m := range a.Models {
		if strings.ToLower(strings.TrimSpace(m.ID)) == want {
			return m, true
		}
	}
	return AIModelConfig{}, false
}
