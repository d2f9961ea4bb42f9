package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"finsight-backend/config"
)

type openAIGenerator struct {
	client *openai.Client
	cfg    config.LLMConfig
}

func NewOpenAIGenerator(cfg config.LLMConfig) *openAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	// retries are owned by RetryingClient
	opts = append(opts, option.WithMaxRetries(0))
	return &openAIGenerator{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}
}

func (o *openAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.F(openai.ChatModel(o.cfg.Model)),
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a financial analyst. Always answer with a single JSON object."),
			openai.UserMessage(prompt),
		}),
		Temperature: openai.F(o.cfg.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
