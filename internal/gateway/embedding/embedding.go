package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"concord/internal/logger"
)

// Provider 文本向量服务。
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// 中文说明：
// GeminiClient 调用 Google Generative Language 的 embedContent 接口
// （POST {base}/models/{model}:embedContent）。
type GeminiClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration

	httpc *http.Client
}

func NewGeminiClient(baseURL, apiKey, model string, timeout time.Duration) *GeminiClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GeminiClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		Timeout: timeout,
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embedding: empty text")
	}
	model := c.Model
	if model == "" {
		model = "text-embedding-004"
	}
	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", c.BaseURL, model, c.APIKey)

	body := map[string]any{
		"model": "models/" + model,
		"content": map[string]any{
			"parts": []map[string]string{{"text": text}},
		},
	}
	b, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("embedding: status=%d: %s", resp.StatusCode, msg)
	}

	values := gjson.GetBytes(raw, "embedding.values")
	if !values.IsArray() {
		return nil, fmt.Errorf("embedding: missing embedding.values in response")
	}
	arr := values.Array()
	out := make([]float64, 0, len(arr))
	for _, v := range arr {
		out = append(out, v.Float())
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("embedding: empty vector")
	}
	logger.Debugf("[Embedding] model=%s 向量维度=%d", model, len(out))
	return out, nil
}
