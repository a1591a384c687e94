// Package nl2sql turns a natural-language question into SQL text by asking a
// hosted language model.
package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sqlscribe/sqlscribe/internal/config"
)

var ErrMissingAPIKey = errors.New("api key is not configured")

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Generator makes exactly one model call per Generate. Failures are returned
// as *Error.
type Generator interface {
	Generate(ctx context.Context, schemaContext, rawQuery string) (Result, error)
}

// New builds the generator for the configured provider.
func New(cfg config.AIConfig) (Generator, error) {
	if !cfg.APIKeyConfigured() {
		return nil, ErrMissingAPIKey
	}
	switch cfg.Provider {
	case config.ProviderAnthropic, "":
		return NewAnthropicGenerator(cfg)
	case config.ProviderOpenAI:
		return NewOpenAIGenerator(cfg)
	case config.ProviderGemini:
		return NewGeminiGenerator(cfg)
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

type callOptions struct {
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

func newCallOptions(cfg config.AIConfig, defaultModel string) callOptions {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return callOptions{
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		timeout:     cfg.Timeout,
	}
}

func (o callOptions) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.timeout)
}

func finishResult(provider, model, text string) (Result, error) {
	sql := strings.TrimSpace(text)
	if sql == "" {
		return Result{}, &Error{Kind: FailureUnknown, Provider: provider, Err: errors.New("model returned no text")}
	}
	return Result{SQL: sql, Provider: provider, Model: model}, nil
}
