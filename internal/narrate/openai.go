package narrate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/covera-health/covera/internal/model"
)

// openAINarrator rewrites answers through the Chat Completions API.
type openAINarrator struct {
	client *openai.Client
	cfg    model.NarrateConfig
}

func newOpenAI(cfg model.NarrateConfig) (*openAINarrator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("narration API key is required")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &openAINarrator{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}, nil
}

func (n *openAINarrator) Narrate(ctx context.Context, question, answerText string, answerJSON map[string]interface{}) (string, error) {
	modelName := n.cfg.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}
	maxTokens := n.cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 500
	}
	timeout := time.Duration(n.cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You rephrase computed facility-coverage answers. You never add facts beyond the supplied data.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(question, answerText, answerJSON),
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("narration API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no narration response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
