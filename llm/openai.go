package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
// DeepSeek and local gateways are reached through Settings.BaseURL.
type OpenAIClient struct {
	provider string
	model    openai.ChatModel
	client   openai.Client
}

func NewOpenAIClient(s *Settings) (*OpenAIClient, error) {
	if s == nil {
		return nil, errors.New("llm settings are nil")
	}
	switch {
	case s.APIKey == "":
		return nil, fmt.Errorf("%s: api key missing; set llm.api_key or llm.api_key_env", s.Provider)
	case s.Model == "":
		return nil, fmt.Errorf("%s: llm.model is required", s.Provider)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		// Limited owns pacing; a failed call surfaces to the orchestrator as is
		option.WithMaxRetries(0),
	}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	return &OpenAIClient{
		provider: s.Provider,
		model:    openai.ChatModel(s.Model),
		client:   openai.NewClient(opts...),
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: chatMessages(prompt),
	})
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s chat completion: no choices returned", c.provider)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// chatMessages lays out system instructions, the bounded history and the new
// prompt in that order.
func chatMessages(p Prompt) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(p.History)+2)
	msgs = append(msgs, openai.SystemMessage(p.System))
	for _, t := range p.History {
		if t.Role == RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(t.Content))
			continue
		}
		msgs = append(msgs, openai.UserMessage(t.Content))
	}
	return append(msgs, openai.UserMessage(p.User))
}
