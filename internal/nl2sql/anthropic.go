package nl2sql

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sqlscribe/sqlscribe/internal/config"
)

const anthropicModel = "claude-3-haiku-20240307"

// AnthropicGenerator calls the Messages API.
type AnthropicGenerator struct {
	client anthropic.Client
	opts   callOptions
}

func NewAnthropicGenerator(cfg config.AIConfig) (*AnthropicGenerator, error) {
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
	return &AnthropicGenerator{
		client: anthropic.NewClient(clientOpts...),
		opts:   newCallOptions(cfg, anthropicModel),
	}, nil
}

func (g *AnthropicGenerator) Generate(ctx context.Context, schemaContext, rawQuery string) (Result, error) {
	ctx, cancel := g.opts.withTimeout(ctx)
	defer cancel()

	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.opts.model),
		MaxTokens:   int64(g.opts.maxTokens),
		Temperature: anthropic.Float(g.opts.temperature),
		System:      []anthropic.TextBlockParam{{Text: BuildSystemPrompt(schemaContext)}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(rawQuery)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return Result{}, statusError(config.ProviderAnthropic, apiErr.StatusCode, err)
		}
		return Result{}, classify(config.ProviderAnthropic, err)
	}

	text := ""
	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	return finishResult(config.ProviderAnthropic, g.opts.model, text)
}
