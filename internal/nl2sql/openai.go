package nl2sql

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/sqlscribe/sqlscribe/internal/config"
)

const openAIModel = "gpt-4o-mini"

// OpenAIGenerator talks to the Chat Completions API or any endpoint that
// speaks it.
type OpenAIGenerator struct {
	client openai.Client
	opts   callOptions
}

func NewOpenAIGenerator(cfg config.AIConfig) (*OpenAIGenerator, error) {
	if !cfg.APIKeyConfigured() {
		return nil, ErrMissingAPIKey
	}
	clientOpts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &OpenAIGenerator{
		client: openai.NewClient(clientOpts...),
		opts:   newCallOptions(cfg, openAIModel),
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, schemaContext, rawQuery string) (Result, error) {
	ctx, cancel := g.opts.withTimeout(ctx)
	defer cancel()

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.opts.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(BuildSystemPrompt(schemaContext)),
			openai.UserMessage(rawQuery),
		},
		MaxTokens:   openai.Int(int64(g.opts.maxTokens)),
		Temperature: openai.Float(g.opts.temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return Result{}, statusError(config.ProviderOpenAI, apiErr.StatusCode, err)
		}
		return Result{}, classify(config.ProviderOpenAI, err)
	}

	text := ""
	if len(completion.Choices) > 0 {
		text = completion.Choices[0].Message.Content
	}
	return finishResult(config.ProviderOpenAI, g.opts.model, text)
}
