package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sqlscribe/sqlscribe/internal/config"
	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
	"github.com/sqlscribe/sqlscribe/internal/observability"
	"github.com/sqlscribe/sqlscribe/internal/querykey"
	"github.com/sqlscribe/sqlscribe/internal/sqlcache"
)

const (
	maxQueryRunes    = 1000
	maxBodyBytes     = 64 << 10
	msgInvalidQuery  = "Please provide a valid natural language query"
	msgEmptyQuery    = "Query cannot be empty"
	msgQueryTooLong  = "Query is too long (max 1000 characters)"
	msgInvalidAPIKey = "Invalid API key. Please check your API key configuration"
	msgRateLimited   = "Rate limit exceeded. Please try again in a moment"
	msgUnreachable   = "Model provider is unreachable and this query has not been cached yet. Please try again once you are online."
	msgGenerateFail  = "Failed to generate SQL. Please try again."
)

type generateRequest struct {
	NaturalLanguage any `json:"naturalLanguage"`
}

type generateResponse struct {
	Success bool   `json:"success"`
	SQL     string `json:"sql"`
	Cached  bool   `json:"cached"`
}

func handleGenerateSQL(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req generateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		observability.IncrementRejectedRequest("invalid_json")
		writeError(w, http.StatusBadRequest, msgInvalidQuery)
		return
	}
	rawQuery, err := validateQuery(req.NaturalLanguage)
	if err != nil {
		observability.IncrementRejectedRequest("validation")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := querykey.Normalize(rawQuery)
	mapping := deps.Cache.Load(ctx)
	if sql, ok := sqlcache.Lookup(mapping, key); ok {
		observability.ObserveCacheLookup(true, len(mapping))
		writeJSON(w, http.StatusOK, generateResponse{Success: true, SQL: sql, Cached: true})
		return
	}
	observability.ObserveCacheLookup(false, len(mapping))

	if deps.Generator == nil {
		observability.IncrementRejectedRequest("missing_api_key")
		writeError(w, http.StatusInternalServerError, missingAPIKeyMessage(cfg.AI.Provider))
		return
	}

	started := time.Now()
	result, err := deps.Generator.Generate(ctx, deps.SchemaContext, rawQuery)
	if err != nil {
		kind := nl2sql.KindOf(err)
		observability.ObserveGeneration(cfg.AI.Provider, string(kind), time.Since(started))
		if deps.Logger != nil {
			deps.Logger.ErrorContext(ctx, "sql generation failed",
				slog.String("trace_id", observability.TraceIDFromContext(ctx)),
				slog.String("query", rawQuery),
				slog.String("cache_key", key),
				slog.String("failure_kind", string(kind)),
				slog.String("provider", cfg.AI.Provider),
				slog.Any("error", err),
			)
		}
		writeGenerationFailure(w, kind)
		return
	}
	observability.ObserveGeneration(cfg.AI.Provider, "success", time.Since(started))

	// Persist even if the client has already gone away.
	deps.Cache.Record(context.WithoutCancel(ctx), key, result.SQL)
	writeJSON(w, http.StatusOK, generateResponse{Success: true, SQL: result.SQL, Cached: false})
}

func validateQuery(value any) (string, error) {
	err := validation.Validate(value,
		validation.Required.Error(msgInvalidQuery),
		validation.By(isString),
		validation.By(notBlank),
		validation.RuneLength(0, maxQueryRunes).Error(msgQueryTooLong),
	)
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

func isString(value any) error {
	if _, ok := value.(string); !ok {
		return errors.New(msgInvalidQuery)
	}
	return nil
}

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New(msgEmptyQuery)
	}
	return nil
}

func missingAPIKeyMessage(provider string) string {
	return fmt.Sprintf("API key not configured. Please set SQLSCRIBE_AI_API_KEY (or %s) in .env file", config.ProviderKeyEnv(provider))
}

func writeGenerationFailure(w http.ResponseWriter, kind nl2sql.FailureKind) {
	switch kind {
	case nl2sql.FailureUnauthorized:
		writeError(w, http.StatusInternalServerError, msgInvalidAPIKey)
	case nl2sql.FailureRateLimited:
		writeError(w, http.StatusTooManyRequests, msgRateLimited)
	case nl2sql.FailureUnreachable:
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Success: false, Error: msgUnreachable, Offline: true})
	default:
		writeError(w, http.StatusInternalServerError, msgGenerateFail)
	}
}
