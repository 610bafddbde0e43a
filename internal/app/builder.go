package app

import (
	"context"
	"fmt"
	"time"

	cccfg "concord/internal/config"
	"concord/internal/consensus"
	"concord/internal/gateway/embedding"
	"concord/internal/gateway/feed"
	"concord/internal/gateway/nftdata"
	"concord/internal/gateway/provider"
	"concord/internal/logger"
	"concord/internal/market"
	"concord/internal/notifier"
	"concord/internal/prompt"
	"concord/internal/store"
	"concord/internal/store/resultstore"
	"concord/internal/store/transcript"
	apphttp "concord/internal/transport/http"
)

// AppBuilder 按依赖顺序装配应用组件，字段化的构造函数便于测试替换。
type AppBuilder struct {
	cfg *cccfg.Config

	providersFn func(cccfg.AIConfig, time.Duration) ([]provider.ModelProvider, provider.ModelProvider, error)
	promptsFn   func(cccfg.PromptConfig) (*prompt.Registry, error)
	httpFn      func(apphttp.Config) (*apphttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *cccfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:         cfg,
		providersFn: buildModelProviders,
		promptsFn:   buildPromptRegistry,
		httpFn:      apphttp.NewServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := b.cfg

	callTimeout := time.Duration(cfg.Consensus.TimeoutSeconds) * time.Second
	providers, aggregatorProvider, err := b.providersFn(cfg.AI, callTimeout)
	if err != nil {
		return nil, err
	}

	var embedder embedding.Provider
	if cfg.Embedding.Enabled {
		embedder = embedding.NewGeminiClient(cfg.Embedding.APIURL, cfg.Embedding.APIKey, cfg.Embedding.Model, callTimeout)
	}

	gatewayTimeout := time.Duration(cfg.NFTData.TimeoutSeconds) * time.Second
	nftClient := nftdata.NewClient(
		cfg.NFTData.MoralisAPIURL, cfg.NFTData.MoralisAPIKey,
		cfg.NFTData.ReservoirAPIURL, cfg.NFTData.ReservoirAPIKey,
		gatewayTimeout,
	)

	binanceFeed := feed.NewBinance()
	spotFeeds := []feed.SpotFeed{feed.NewCoinGecko(cfg.Feed.CoinGeckoURL, time.Duration(cfg.Feed.TimeoutSeconds)*time.Second)}
	if cfg.Feed.BinanceEnabled {
		spotFeeds = append(spotFeeds, binanceFeed)
	}
	spot := feed.NewChain(spotFeeds...)

	prompts, err := b.promptsFn(cfg.Prompt)
	if err != nil {
		return nil, fmt.Errorf("loading prompts failed: %w", err)
	}

	results, err := resultstore.NewStore(cfg.Store.ResultsPath)
	if err != nil {
		return nil, fmt.Errorf("opening result store failed: %w", err)
	}
	transcripts, err := transcript.NewStore(cfg.Store.TranscriptPath)
	if err != nil {
		results.Close()
		return nil, fmt.Errorf("opening transcript store failed: %w", err)
	}
	recorder := store.FanoutRecorder{results, transcripts}

	var runNotifier consensus.Notifier
	if cfg.Notify.Telegram.Enabled {
		runNotifier = notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
	}

	engine := consensus.NewEngine(
		consensus.EngineConfig{
			Challenges:  cfg.Consensus.Challenges,
			PriceWeight: cfg.Consensus.PriceWeight,
		},
		consensus.NewRounds(providers, cfg.Consensus.TimeoutSeconds),
		consensus.NewSimilarityScorer(embedder),
		consensus.NewAggregator(aggregatorProvider),
		prompts,
		nftClient,
		spot,
		recorder,
		runNotifier,
	)

	httpSrv, err := b.httpFn(apphttp.Config{
		Addr:        cfg.App.HTTPAddr,
		Engine:      engine,
		Runs:        results,
		Transcripts: transcripts,
		History:     market.NewHistoryService(binanceFeed),
	})
	if err != nil {
		results.Close()
		transcripts.Close()
		return nil, fmt.Errorf("building http server failed: %w", err)
	}

	app := &App{
		cfg:     cfg,
		httpSrv: httpSrv,
		closers: []func() error{transcripts.Close, results.Close},
		Summary: buildStartupSummary(cfg, len(providers), embedder != nil, runNotifier != nil),
	}
	return app, nil
}

func buildModelProviders(ai cccfg.AIConfig, timeout time.Duration) ([]provider.ModelProvider, provider.ModelProvider, error) {
	cfgs := make([]provider.ModelCfg, 0, len(ai.Models))
	for _, m := range ai.EnabledModels() {
		cfgs = append(cfgs, modelCfg(m))
	}
	providers := provider.BuildProvidersFromConfig(cfgs, timeout)
	if len(providers) == 0 {
		return nil, nil, fmt.Errorf("no enabled models configured")
	}

	agg, ok := ai.AggregatorModel()
	if !ok {
		return nil, nil, fmt.Errorf("aggregator model %q not found", ai.AggregatorID)
	}
	aggregator := provider.BuildProvider(modelCfg(agg), timeout)
	logger.Infof("[App] 模型装配完成: consensus=%d aggregator=%s", len(providers), agg.ID)
	return providers, aggregator, nil
}

func modelCfg(m cccfg.AIModelConfig) provider.ModelCfg {
	return provider.ModelCfg{
		ID:          m.ID,
		APIURL:      m.APIURL,
		APIKey:      m.APIKey,
		Model:       m.Model,
		Enabled:     m.IsEnabled(),
		Headers:     m.Headers,
		MaxTokens:   m.MaxTokens,
		Temperature: m.Temperature,
	}
}

func buildPromptRegistry(p cccfg.PromptConfig) (*prompt.Registry, error) {
	return prompt.NewRegistry(p.Dir, p.ChallengeSet)
}
