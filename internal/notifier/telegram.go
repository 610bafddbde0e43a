package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"concord/internal/consensus"
	"concord/internal/logger"
)

// 中文说明：
// Telegram 通知器：评估完成后把摘要推送至指定群/频道。

type Telegram struct {
	BotToken string
	ChatID   string
	Client   *http.Client
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{BotToken: botToken, ChatID: chatID, Client: &http.Client{Timeout: 15 * time.Second}}
}

// SendText 发送文本消息（带最多 3 次重试）
func (t *Telegram) SendText(text string) error {
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("Telegram 配置不完整")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.BotToken)

	payload := map[string]any{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, _ := json.Marshal(payload)

	var lastErr error
	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest("POST", url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.Client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d", resp.StatusCode)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	return lastErr
}

// NotifyRun 实现 consensus.Notifier，推送失败只记日志。
func (t *Telegram) NotifyRun(ctx context.Context, run consensus.RunRecord) {
	if t == nil {
		return
	}
	if err := t.SendText(formatRunSummary(run)); err != nil {
		logger.Warnf("[Notifier] Telegram 推送失败: %v", err)
	}
}

func formatRunSummary(run consensus.RunRecord) string {
	var b strings.Builder
	if run.Result.Error != "" {
		fmt.Fprintf(&b, "*NFT 评估失败* `%s:%s`\n", run.ContractAddress, run.TokenID)
		fmt.Fprintf(&b, "错误: %s\n", run.Result.Error)
		return b.String()
	}
	fmt.Fprintf(&b, "*NFT 评估完成* `%s:%s`\n", run.ContractAddress, run.TokenID)
	fmt.Fprintf(&b, "共识价格: $%.2f\n", run.Result.Price)
	fmt.Fprintf(&b, "标准差: $%.2f\n", run.Result.StandardDeviation)
	if run.Result.FinalConfidence != nil {
		fmt.Fprintf(&b, "最终置信度: %.2f\n", *run.Result.FinalConfidence)
	}
	if run.Result.Accuracy != nil && run.Result.ActualValue != nil {
		fmt.Fprintf(&b, "回测: 真值 $%.2f, 准确率 %.1f%%\n", *run.Result.ActualValue, *run.Result.Accuracy*100)
	}
	fmt.Fprintf(&b, "参与模型: %d, 耗时 %s", len(run.Result.Models), run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	return b.String()
}
