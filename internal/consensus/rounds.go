package consensus

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"concord/internal/gateway/provider"
	"concord/internal/logger"
	"concord/internal/pkg/text"
)

// 中文说明：
// 轮次执行器。初始轮把评估提示词并发发给所有模型；挑战轮在初始对话后
// 追加一条带上一轮回答的质询消息。轮内并发（errgroup），轮间严格串行。
// 单个模型失败只记录错误文本，不会中止整轮。

const previewChars = 500

type Rounds struct {
	Providers      []provider.ModelProvider
	TimeoutSeconds int
}

func NewRounds(providers []provider.ModelProvider, timeoutSeconds int) *Rounds {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	return &Rounds{
		Providers:      providers,
		TimeoutSeconds: timeoutSeconds,
	}
}

// PickChallenge 从挑战提示词集合里随机挑一条。
// 同一个 Rounds 会被多个请求并发使用，这里必须用协程安全的随机源。
func (r *Rounds) PickChallenge(prompts []string) string {
	if len(prompts) == 0 {
		return ""
	}
	return prompts[rand.Intn(len(prompts))]
}

// InitialRound 并发收集所有模型的初始回答。
func (r *Rounds) InitialRound(ctx context.Context, system, user string) map[string]ModelResponse {
	return r.collect(ctx, 0, func(p provider.ModelProvider) provider.ChatPayload {
		return provider.ChatPayload{System: system, User: user}
	})
}

// ChallengeRound 并发发送挑战消息。每个模型看到的是同一条挑战提示词，
// 外加它自己上一轮的回答原文。
func (r *Rounds) ChallengeRound(ctx context.Context, round int, system, user, challengePrompt string, prior map[string]ModelResponse) map[string]ModelResponse {
	return r.collect(ctx, round, func(p provider.ModelProvider) provider.ChatPayload {
		prev := prior[p.ID()]
		return provider.ChatPayload{
			System:  system,
			History: []provider.Message{{Role: "user", Content: user}},
			User:    buildChallengeMessage(prev.RawText, challengePrompt),
		}
	})
}

func buildChallengeMessage(priorAnswer, challengePrompt string) string {
	return fmt.Sprintf(`Your previous price estimation analysis was %s.

%s

Remember to maintain the same JSON format with 'price' and 'explanation' fields.`, priorAnswer, challengePrompt)
}

func (r *Rounds) collect(ctx context.Context, round int, buildPayload func(provider.ModelProvider) provider.ChatPayload) map[string]ModelResponse {
	out := make(map[string]ModelResponse)
	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)

	for _, p := range r.Providers {
		if p == nil || !p.Enabled() {
			continue
		}
		prov := p
		eg.Go(func() error {
			resp := r.callOne(egCtx, prov, round, buildPayload(prov))
			mu.Lock()
			out[prov.ID()] = resp
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
	return out
}

func (r *Rounds) callOne(parent context.Context, p provider.ModelProvider, round int, payload provider.ChatPayload) (resp ModelResponse) {
	resp = ModelResponse{ModelID: p.ID(), Round: round}
	defer func() {
		if rec := recover(); rec != nil {
			resp.Err = fmt.Sprintf("panic: %v", rec)
			logger.Errorf("[Consensus] 模型 %s 调用 panic: %v", p.ID(), rec)
		}
	}()

	cctx := parent
	var cancel context.CancelFunc
	if r.TimeoutSeconds > 0 {
		cctx, cancel = context.WithTimeout(parent, time.Duration(r.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	purpose := "initial"
	if round > 0 {
		purpose = fmt.Sprintf("challenge-%d", round)
	}
	logger.Debugf("[Consensus] 调用模型 %s (%s)", p.ID(), purpose)
	logger.LogLLMRequest("consensus", p.ID(), purpose, payload.System, payload.User, "")

	raw, err := p.Call(cctx, payload)
	if err != nil {
		resp.Err = err.Error()
		logger.Warnf("[Consensus] 模型 %s 调用失败: %v", p.ID(), err)
		return resp
	}
	logger.LogLLMResponse("consensus", p.ID(), purpose, raw)

	resp.RawText = raw
	if price, expl, ok := ExtractPriceExplanation(raw); ok {
		resp.Price = price
		resp.Explanation = expl
		logger.Infof("[Consensus] %s %s: 提取价格=$%.2f 预览=%s", p.ID(), purpose, *price, text.Preview(raw, previewChars))
	} else {
		logger.Warnf("[Consensus] %s %s: 未提取到价格, 预览=%s", p.ID(), purpose, text.Preview(raw, previewChars))
	}
	return resp
}
