package provider

import "context"

// Message 对话消息（role: system/user/assistant）。
type Message struct {
	Role    string
	Content string
}

type ChatPayload struct {
	System string
	User   string
	// History：追问轮携带的历史对话（位于 System 之后、最终 User 之前）。
	History     []Message
	MaxTokens   int
	Temperature float64
}

type ModelProvider interface {
	ID() string
	Enabled() bool

	Call(ctx context.Context, payload ChatPayload) (string, error)
}
