package app

import (
	"fmt"
	"strings"

	cccfg "concord/internal/config"
)

type StartupSummary struct {
	Env          string
	HTTPAddr     string
	ModelCount   int
	AggregatorID string
	Challenges   int
	PriceWeight  float64
	Embedding    bool
	Telegram     bool
	ResultsPath  string
}

func buildStartupSummary(cfg *cccfg.Config, modelCount int, embedding, telegram bool) *StartupSummary {
	return &StartupSummary{
		Env:          cfg.App.Env,
		HTTPAddr:     cfg.App.HTTPAddr,
		ModelCount:   modelCount,
		AggregatorID: cfg.AI.AggregatorID,
		Challenges:   cfg.Consensus.Challenges,
		PriceWeight:  cfg.Consensus.PriceWeight,
		Embedding:    embedding,
		Telegram:     telegram,
		ResultsPath:  cfg.Store.ResultsPath,
	}
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[运行环境 (RUNTIME)]")
	fmt.Printf("  环境: %s\n", s.Env)
	fmt.Printf("  监听地址: %s\n", s.HTTPAddr)
	fmt.Printf("  结果库: %s\n", s.ResultsPath)
	fmt.Println()

	fmt.Println("[共识配置 (CONSENSUS)]")
	fmt.Printf("  参与模型数: %d\n", s.ModelCount)
	fmt.Printf("  聚合模型: %s\n", s.AggregatorID)
	fmt.Printf("  挑战轮数: %d\n", s.Challenges)
	fmt.Printf("  价格稳定性权重: %.2f\n", s.PriceWeight)
	fmt.Printf("  向量相似度: %s\n", onOff(s.Embedding))
	fmt.Println()

	fmt.Println("[通知 (NOTIFY)]")
	fmt.Printf("  Telegram: %s\n", onOff(s.Telegram))
	fmt.Println(strings.Repeat("=", 80))
}

func onOff(b bool) string {
	if b {
		return "启用"
	}
	return "关闭"
}
