package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

const (
	CacheBackendFile     = "file"
	CacheBackendS3       = "s3"
	CacheBackendPostgres = "postgres"
	CacheBackendSQLite   = "sqlite"
	CacheBackendDuckDB   = "duckdb"
	CacheBackendValkey   = "valkey"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	AI            AIConfig
	Schema        SchemaConfig
	Cache         CacheConfig
	ObjectStore   ObjectStoreConfig
	Valkey        ValkeyConfig
	UI            UIConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type AIConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// APIKeyConfigured reports whether a credential for the model provider is present.
func (c AIConfig) APIKeyConfigured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

type SchemaConfig struct {
	File string
}

type CacheConfig struct {
	Backend         string
	Path            string
	DSN             string
	Table           string
	ObjectKey       string
	ObjectFormat    string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ValkeyConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

type UIConfig struct {
	StaticDir string
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

// LoadFromEnv reads an optional .env file from the working directory and then
// the process environment. Variables already set in the environment win.
func LoadFromEnv(serviceName string) (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	return Load(serviceName, os.LookupEnv)
}

func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("SQLSCRIBE_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid SQLSCRIBE_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if raw, ok := lookup("PORT"); ok && strings.TrimSpace(raw) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT: %q", raw)
		}
		cfg.HTTP.Address = ":" + strconv.Itoa(port)
	}

	if err := applyString(lookup, "SQLSCRIBE_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLSCRIBE_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLSCRIBE_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLSCRIBE_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_AI_PROVIDER", &cfg.AI.Provider); err != nil {
		return Config{}, err
	}
	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)
	if !isValidProvider(cfg.AI.Provider) {
		return Config{}, fmt.Errorf("invalid SQLSCRIBE_AI_PROVIDER: %q", cfg.AI.Provider)
	}
	cfg.AI.Model = defaultModel(cfg.AI.Provider)
	if err := applyString(lookup, "SQLSCRIBE_AI_BASE_URL", &cfg.AI.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, ProviderKeyEnv(cfg.AI.Provider), &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if raw, ok := lookup("SQLSCRIBE_AI_API_KEY"); ok && strings.TrimSpace(raw) != "" {
		cfg.AI.APIKey = strings.TrimSpace(raw)
	}
	if err := applyString(lookup, "SQLSCRIBE_AI_MODEL", &cfg.AI.Model); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "SQLSCRIBE_AI_TEMPERATURE", &cfg.AI.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SQLSCRIBE_AI_MAX_TOKENS", &cfg.AI.MaxTokens); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLSCRIBE_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_SCHEMA_FILE", &cfg.Schema.File); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_CACHE_BACKEND", &cfg.Cache.Backend); err != nil {
		return Config{}, err
	}
	cfg.Cache.Backend = strings.ToLower(cfg.Cache.Backend)
	if !isValidCacheBackend(cfg.Cache.Backend) {
		return Config{}, fmt.Errorf("invalid SQLSCRIBE_CACHE_BACKEND: %q", cfg.Cache.Backend)
	}
	if err := applyString(lookup, "SQLSCRIBE_CACHE_PATH", &cfg.Cache.Path); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_CACHE_DSN", &cfg.Cache.DSN); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_CACHE_TABLE", &cfg.Cache.Table); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_CACHE_OBJECT_KEY", &cfg.Cache.ObjectKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_CACHE_OBJECT_FORMAT", &cfg.Cache.ObjectFormat); err != nil {
		return Config{}, err
	}
	cfg.Cache.ObjectFormat = strings.ToLower(cfg.Cache.ObjectFormat)
	if cfg.Cache.ObjectFormat != "json" && cfg.Cache.ObjectFormat != "parquet" {
		return Config{}, fmt.Errorf("invalid SQLSCRIBE_CACHE_OBJECT_FORMAT: %q", cfg.Cache.ObjectFormat)
	}
	if err := applyInt(lookup, "SQLSCRIBE_CACHE_MAX_OPEN_CONNS", &cfg.Cache.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SQLSCRIBE_CACHE_MAX_IDLE_CONNS", &cfg.Cache.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLSCRIBE_CACHE_CONN_MAX_IDLE_TIME", &cfg.Cache.ConnMaxIdleTime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLSCRIBE_CACHE_CONN_MAX_LIFETIME", &cfg.Cache.ConnMaxLifetime); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_OBJECTSTORE_REGION", &cfg.ObjectStore.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SQLSCRIBE_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SQLSCRIBE_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_VALKEY_ADDR", &cfg.Valkey.Address); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_VALKEY_PASSWORD", &cfg.Valkey.Password); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SQLSCRIBE_VALKEY_DB", &cfg.Valkey.DB); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_VALKEY_KEY_PREFIX", &cfg.Valkey.KeyPrefix); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLSCRIBE_UI_STATIC_DIR", &cfg.UI.StaticDir); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SQLSCRIBE_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "SQLSCRIBE_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.AI.MaxTokens <= 0 {
		return Config{}, fmt.Errorf("SQLSCRIBE_AI_MAX_TOKENS must be > 0")
	}
	if cfg.AI.Temperature < 0 || cfg.AI.Temperature > 2 {
		return Config{}, fmt.Errorf("SQLSCRIBE_AI_TEMPERATURE must be within [0, 2]")
	}
	switch cfg.Cache.Backend {
	case CacheBackendFile:
		if cfg.Cache.Path == "" {
			return Config{}, fmt.Errorf("SQLSCRIBE_CACHE_PATH is required for the file cache backend")
		}
	case CacheBackendPostgres, CacheBackendSQLite, CacheBackendDuckDB:
		if cfg.Cache.DSN == "" {
			return Config{}, fmt.Errorf("SQLSCRIBE_CACHE_DSN is required for the %s cache backend", cfg.Cache.Backend)
		}
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "sqlscribe-api"},
		HTTP: HTTPConfig{
			Address:      ":3000",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		AI: AIConfig{
			Provider:    ProviderAnthropic,
			Model:       defaultModel(ProviderAnthropic),
			Temperature: 0.2,
			MaxTokens:   1024,
			Timeout:     60 * time.Second,
		},
		Cache: CacheConfig{
			Backend:         CacheBackendFile,
			Path:            "data/query_cache.json",
			Table:           "query_cache",
			ObjectKey:       "cache/query_cache.json",
			ObjectFormat:    "json",
			MaxOpenConns:    5,
			MaxIdleConns:    5,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "sqlscribe",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		Valkey: ValkeyConfig{
			Address:   "localhost:6379",
			KeyPrefix: "sqlscribe",
		},
		UI: UIConfig{
			StaticDir: "public",
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  false,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":13000"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Observability.LogJSON = true
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderGemini:
		return "gemini-2.0-flash"
	default:
		return "claude-3-haiku-20240307"
	}
}

// ProviderKeyEnv names the conventional credential variable of each provider.
func ProviderKeyEnv(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return "ANTHROPIC_API_KEY"
	}
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func isValidProvider(provider string) bool {
	switch provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini:
		return true
	default:
		return false
	}
}

func isValidCacheBackend(backend string) bool {
	switch backend {
	case CacheBackendFile, CacheBackendS3, CacheBackendPostgres, CacheBackendSQLite, CacheBackendDuckDB, CacheBackendValkey:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
