// Package sqlscribectl implements the operator CLI: it talks to a running
// server over HTTP and manages the cache backend directly.
package sqlscribectl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sqlscribe/sqlscribe/internal/config"
	"github.com/sqlscribe/sqlscribe/internal/sqlcache"
	"github.com/sqlscribe/sqlscribe/internal/sqlcache/backend"
)

// OpenStoreFunc opens the cache backend used by the cache subcommands.
type OpenStoreFunc func(ctx context.Context) (sqlcache.Store, func() error, error)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	OpenStore  OpenStoreFunc
	Stdout     io.Writer
	Stderr     io.Writer
}

// errSilent marks failures whose details were already written to stderr.
var errSilent = errors.New("command failed")

// Run executes args and returns the process exit code.
func Run(ctx context.Context, args []string, defaults Options) int {
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	root := NewRootCommand(defaults)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errSilent) {
			_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

func NewRootCommand(defaults Options) *cobra.Command {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	openStore := defaults.OpenStore
	if openStore == nil {
		openStore = openConfiguredStore
	}

	var baseURL string
	var timeout time.Duration

	root := &cobra.Command{
		Use:           "sqlscribectl",
		Short:         "Operate a SQLScribe server and its query cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:3000"), "SQLScribe API base URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", durationOr(defaults.Timeout, 90*time.Second), "HTTP timeout (e.g. 30s)")

	api := func() *apiClient {
		client := defaults.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: timeout}
		}
		return &apiClient{baseURL: strings.TrimRight(baseURL, "/"), client: client, stdout: stdout, stderr: stderr}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "health",
			Short: "GET /api/health",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return api().call(cmd.Context(), http.MethodGet, "/api/health", nil)
			},
		},
		&cobra.Command{
			Use:   "generate <question...>",
			Short: "POST /api/generate-sql with the question",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				payload, err := json.Marshal(map[string]string{"naturalLanguage": strings.Join(args, " ")})
				if err != nil {
					return err
				}
				return api().call(cmd.Context(), http.MethodPost, "/api/generate-sql", payload)
			},
		},
		newCacheCommand(openStore, stdout),
	)
	return root
}

func openConfiguredStore(ctx context.Context) (sqlcache.Store, func() error, error) {
	cfg, err := config.LoadFromEnv("sqlscribectl")
	if err != nil {
		return nil, nil, err
	}
	return backend.Open(ctx, cfg)
}

type apiClient struct {
	baseURL string
	client  *http.Client
	stdout  io.Writer
	stderr  io.Writer
}

func (c *apiClient) call(ctx context.Context, method, path string, payload []byte) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		_, _ = fmt.Fprintf(c.stderr, "http %d: %s\n", resp.StatusCode, strings.TrimSpace(string(responseBody)))
		return errSilent
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(c.stdout, pretty)
		return nil
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(c.stdout, string(responseBody))
	}
	return nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
