package llm

import "context"

// Client 抽象大模型客户端，便于替换/Mock。
//
// Complete receives a role's fixed instructions, a bounded slice of prior
// turns and the new user prompt, and returns the generated text.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Prompt 表示发送给 LLM 的消息集合。
type Prompt struct {
	System  string
	User    string
	History []Turn
}

// Turn is one prior chat entry. Role is "user" or "assistant".
type Turn struct {
	Role    string
	Content string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Settings 提供给具体实现的基础配置。
type Settings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}
