package nl2sql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sqlscribe/sqlscribe/internal/config"
)

func TestOpenAIGenerateReturnsTrimmedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload["model"] != openAIModel {
			t.Errorf("model = %v", payload["model"])
		}
		messages, _ := payload["messages"].([]any)
		if len(messages) != 2 {
			t.Errorf("messages = %v", payload["messages"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  SELECT COUNT(*) AS total_orders FROM orders;\n"}}]}`))
	}))
	defer server.Close()

	gen := newTestOpenAI(t, server.URL)
	result, err := gen.Generate(context.Background(), "schema", "How many orders?")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.SQL != "SELECT COUNT(*) AS total_orders FROM orders;" {
		t.Fatalf("SQL = %q", result.SQL)
	}
	if result.Provider != config.ProviderOpenAI {
		t.Fatalf("Provider = %q", result.Provider)
	}
}

func TestOpenAIGenerateMapsStatusWithoutRetry(t *testing.T) {
	cases := map[int]FailureKind{
		http.StatusUnauthorized:    FailureUnauthorized,
		http.StatusTooManyRequests: FailureRateLimited,
		http.StatusBadRequest:      FailureUnknown,
	}
	for status, want := range cases {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"error"}}`))
		}))
		_, err := newTestOpenAI(t, server.URL).Generate(context.Background(), "schema", "q")
		server.Close()

		if got := KindOf(err); got != want {
			t.Fatalf("status %d kind = %q, want %q (err=%v)", status, got, want, err)
		}
		if calls.Load() != 1 {
			t.Fatalf("status %d calls = %d, want 1", status, calls.Load())
		}
	}
}

func TestOpenAIGenerateUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestOpenAI(t, url).Generate(context.Background(), "schema", "q")
	if got := KindOf(err); got != FailureUnreachable {
		t.Fatalf("kind = %q, err = %v", got, err)
	}
}

func newTestOpenAI(t *testing.T, baseURL string) *OpenAIGenerator {
	t.Helper()
	gen, err := NewOpenAIGenerator(config.AIConfig{
		Provider:    config.ProviderOpenAI,
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Temperature: 0.2,
		MaxTokens:   1024,
	})
	if err != nil {
		t.Fatalf("NewOpenAIGenerator() error = %v", err)
	}
	return gen
}
