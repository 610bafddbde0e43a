package consensus

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"concord/internal/gateway/feed"
	"concord/internal/gateway/nftdata"
	"concord/internal/logger"
)

// 中文说明：
// 评估流水线驱动。流程：取 NFT 数据 → 准备回测上下文（弹出最新成交做真值）→
// 初始轮 → K 轮挑战 → 稳定性分析 → 加权聚合 → 附加 ETH 现货价 → 持久化与通知。
// 顶层 recover：任何 panic 或不可恢复错误都折叠为价格 0、置信度 0 的结构化结果。

// PromptSource 提供评估与挑战提示词。
type PromptSource interface {
	AppraisalSystem(targetDate string) string
	AppraisalUser(nftJSON string) string
	ChallengePrompts() []string
}

// TranscriptEntry 单次模型交互的落盘记录。
type TranscriptEntry struct {
	Round   int
	ModelID string
	RawText string
	Price   float64
	Err     string
}

// RunRecord 一次完整评估的持久化载体。
type RunRecord struct {
	ID              string
	ContractAddress string
	TokenID         string
	StartedAt       time.Time
	FinishedAt      time.Time
	Challenges      int
	Result          Result
	Transcript      []TranscriptEntry
}

// Recorder 持久化评估结果。失败只记日志，不影响返回。
type Recorder interface {
	RecordRun(ctx context.Context, run RunRecord) error
}

// Notifier 推送评估摘要。
type Notifier interface {
	NotifyRun(ctx context.Context, run RunRecord)
}

type EngineConfig struct {
	Challenges  int
	PriceWeight float64
}

type Engine struct {
	cfg        EngineConfig
	rounds     *Rounds
	scorer     *SimilarityScorer
	aggregator *Aggregator
	prompts    PromptSource
	nftSource  nftdata.Source
	spot       feed.SpotFeed
	recorder   Recorder
	notifier   Notifier
}

func NewEngine(cfg EngineConfig, rounds *Rounds, scorer *SimilarityScorer, aggregator *Aggregator, prompts PromptSource, nftSource nftdata.Source, spot feed.SpotFeed, recorder Recorder, notifier Notifier) *Engine {
	if cfg.Challenges < 1 {
		cfg.Challenges = 1
	}
	if cfg.PriceWeight <= 0 || cfg.PriceWeight > 1 {
		cfg.PriceWeight = 0.5
	}
	return &Engine{
		cfg:        cfg,
		rounds:     rounds,
		scorer:     scorer,
		aggregator: aggregator,
		prompts:    prompts,
		nftSource:  nftSource,
		spot:       spot,
		recorder:   recorder,
		notifier:   notifier,
	}
}

// Appraise 执行一次完整评估，总是返回结构化结果。
func (e *Engine) Appraise(ctx context.Context, req Request) (result Result) {
	runID := uuid.New().String()
	startedAt := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("[Engine] 评估 %s panic: %v", runID, rec)
			result = zeroResult(fmt.Sprintf("appraisal panic: %v", rec))
		}
	}()

	logger.Infof("[Engine] 开始评估 run=%s contract=%s token=%s", runID, req.ContractAddress, req.TokenID)

	nft, err := e.nftSource.Fetch(ctx, req.ContractAddress, req.TokenID)
	if err != nil {
		logger.Errorf("[Engine] 获取 NFT 数据失败: %v", err)
		return zeroResult(fmt.Sprintf("fetch nft data: %v", err))
	}

	bt := e.prepareBacktest(req, nft)
	targetDate := bt.TargetDate
	if targetDate == "" {
		targetDate = nftdata.TargetDateFromHistory(nft)
	}
	if targetDate == "" {
		targetDate = "the current date"
	}

	nftJSON, err := json.Marshal(nft)
	if err != nil {
		return zeroResult(fmt.Sprintf("encode nft data: %v", err))
	}
	system := e.prompts.AppraisalSystem(targetDate)
	user := e.prompts.AppraisalUser(string(nftJSON))

	challenges := req.Challenges
	if challenges < 1 {
		challenges = e.cfg.Challenges
	}

	initial := e.rounds.InitialRound(ctx, system, user)
	if len(initial) == 0 {
		return zeroResult("no enabled models produced a response")
	}

	transcript := collectTranscript(nil, initial)
	prior := initial
	for round := 1; round <= challenges; round++ {
		challengePrompt := e.rounds.PickChallenge(e.prompts.ChallengePrompts())
		logger.Infof("[Engine] 第 %d 轮挑战: %s", round, challengePrompt)
		prior = e.rounds.ChallengeRound(ctx, round, system, user, challengePrompt, prior)
		transcript = collectTranscript(transcript, prior)
	}

	records := AnalyzeResponses(ctx, e.scorer, initial, prior, e.cfg.PriceWeight)
	weights := NormalizeWeights(records)
	result = e.aggregator.Aggregate(ctx, records, weights, prior)

	e.applyBacktest(&result, bt)
	e.applySpotPrice(ctx, &result)

	run := RunRecord{
		ID:              runID,
		ContractAddress: req.ContractAddress,
		TokenID:         req.TokenID,
		StartedAt:       startedAt,
		FinishedAt:      time.Now(),
		Challenges:      challenges,
		Result:          result,
		Transcript:      transcript,
	}
	if e.recorder != nil {
		if err := e.recorder.RecordRun(ctx, run); err != nil {
			logger.Errorf("[Engine] 持久化评估结果失败: %v", err)
		}
	}
	if e.notifier != nil {
		e.notifier.NotifyRun(ctx, run)
	}

	logger.Infof("[Engine] 评估完成 run=%s price=%.2f stddev=%.2f", runID, result.Price, result.StandardDeviation)
	return result
}

func (e *Engine) prepareBacktest(req Request, nft *nftdata.NFTData) nftdata.BacktestContext {
	if req.ActualValue != nil {
		return nftdata.BacktestContext{
			Enabled:        true,
			ActualPriceUSD: *req.ActualValue,
			TargetDate:     req.DateToPredict,
		}
	}
	bt := nftdata.PrepareBacktest(nft)
	if req.DateToPredict != "" {
		bt.TargetDate = req.DateToPredict
	}
	return bt
}

func (e *Engine) applyBacktest(result *Result, bt nftdata.BacktestContext) {
	if !bt.Enabled || bt.ActualPriceUSD <= 0 {
		return
	}
	actual := bt.ActualPriceUSD
	accuracy := math.Max(0, 1-math.Abs(actual-result.Price)/actual)
	result.Accuracy = &accuracy
	result.ActualValue = &actual
	logger.Infof("[Engine] 回测: 预测=%.2f 真值=%.2f 准确率=%.2f%%", result.Price, actual, accuracy*100)
}

func (e *Engine) applySpotPrice(ctx context.Context, result *Result) {
	if e.spot == nil {
		return
	}
	price, err := e.spot.ETHPriceUSD(ctx)
	if err != nil {
		logger.Warnf("[Engine] 获取 ETH 现货价失败: %v", err)
		return
	}
	result.EthereumPriceUSD = &price
}

func collectTranscript(dst []TranscriptEntry, responses map[string]ModelResponse) []TranscriptEntry {
	for _, resp := range responses {
		dst = append(dst, TranscriptEntry{
			Round:   resp.Round,
			ModelID: resp.ModelID,
			RawText: resp.RawText,
			Price:   resp.PriceValue(),
			Err:     resp.Err,
		})
	}
	return dst
}

func zeroResult(errText string) Result {
	return Result{
		Price:           0,
		Text:            "",
		TotalConfidence: 0,
		Models:          map[string]ModelBreakdown{},
		Error:           errText,
	}
}
