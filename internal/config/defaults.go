package config

// 默认值常量
const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppHTTPAddr     = ":8082"
	defaultAppLogPath      = "data/logs/concord.log"
	defaultAppLLMLogPath   = "data/logs/concord-llm.log"
	defaultChallenges      = 1
	defaultPriceWeight     = 0.5
	defaultCallTimeout     = 30
	defaultEmbeddingURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultEmbeddingModel  = "text-embedding-004"
	defaultMoralisAPIURL   = "https://deep-index.moralis.io/api/v2.2"
	defaultReservoirAPIURL = "https://api.reservoir.tools"
	defaultGatewayTimeout  = 15
	defaultCoinGeckoURL    = "https://api.coingecko.com/api/v3"
	defaultPromptDir       = "prompts"
	defaultChallengeSet    = "prompts/challenge_prompts.yaml"
	defaultResultsPath     = "data/db/appraisals.db"
	defaultTranscriptPath  = "data/db/transcripts.db"
)

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

func applyFieldDefaults(keys keySet, fields ...fieldDefault) {
	for _, f := range fields {
		if keys.has(f.key) {
			continue
		}
		if f.need == nil || f.need() {
			f.apply()
		}
	}
}

func stringFieldDefault(key string, target *string, value string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target == "" },
		apply: func() { *target = value },
	}
}

func intFieldDefault(key string, target *int, value int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = value },
	}
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Consensus.applyDefaults(keys)
	c.Embedding.applyDefaults(keys)
	c.NFTData.applyDefaults(keys)
	c.Feed.applyDefaults(keys)
	c.Prompt.applyDefaults(keys)
	c.Store.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.llm_log_path", &a.LLMLog, defaultAppLLMLogPath),
	)
}

func (c *ConsensusConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("consensus.challenges", &c.Challenges, defaultChallenges),
		intFieldDefault("consensus.timeout_seconds", &c.TimeoutSeconds, defaultCallTimeout),
		fieldDefault{
			key:   "consensus.price_weight",
			need:  func() bool { return c.PriceWeight <= 0 },
			apply: func() { c.PriceWeight = defaultPriceWeight },
		},
	)
}

func (e *EmbeddingConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("embedding.api_url", &e.APIURL, defaultEmbeddingURL),
		stringFieldDefault("embedding.model", &e.Model, defaultEmbeddingModel),
	)
}

func (n *NFTDataConfig) applyDefaults(keys keySet) {
	if n == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("nftdata.moralis_api_url", &n.MoralisAPIURL, defaultMoralisAPIURL),
		stringFieldDefault("nftdata.reservoir_api_url", &n.ReservoirAPIURL, defaultReservoirAPIURL),
		intFieldDefault("nftdata.timeout_seconds", &n.TimeoutSeconds, defaultGatewayTimeout),
	)
}

func (f *FeedConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("feed.coingecko_url", &f.CoinGeckoURL, defaultCoinGeckoURL),
		intFieldDefault("feed.timeout_seconds", &f.TimeoutSeconds, defaultGatewayTimeout),
	)
}

func (p *PromptConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("prompt.dir", &p.Dir, defaultPromptDir),
		stringFieldDefault("prompt.challenge_set", &p.ChallengeSet, defaultChallengeSet),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.results_path", &s.ResultsPath, defaultResultsPath),
		stringFieldDefault("store.transcript_path", &s.TranscriptPath, defaultTranscriptPath),
	)
}
