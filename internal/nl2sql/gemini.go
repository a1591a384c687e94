package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/sqlscribe/sqlscribe/internal/config"
)

const geminiModel = "gemini-2.0-flash"

type GeminiGenerator struct {
	client *genai.Client
	opts   callOptions
}

func NewGeminiGenerator(cfg config.AIConfig) (*GeminiGenerator, error) {
	if !cfg.APIKeyConfigured() {
		return nil, ErrMissingAPIKey
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(baseURL, "/") + "/"}
	}
	// NewClient only validates configuration; no request is made here.
	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, opts: newCallOptions(cfg, geminiModel)}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, schemaContext, rawQuery string) (Result, error) {
	ctx, cancel := g.opts.withTimeout(ctx)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.opts.model,
		[]*genai.Content{genai.NewContentFromText(rawQuery, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(BuildSystemPrompt(schemaContext), ""),
			Temperature:       genai.Ptr(float32(g.opts.temperature)),
			MaxOutputTokens:   int32(g.opts.maxTokens),
		},
	)
	if err != nil {
		if status, ok := geminiStatus(err); ok {
			return Result{}, statusError(config.ProviderGemini, status, err)
		}
		return Result{}, classify(config.ProviderGemini, err)
	}
	return finishResult(config.ProviderGemini, g.opts.model, firstText(resp))
}

func geminiStatus(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}
