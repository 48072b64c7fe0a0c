// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

// Package ai wraps the Anthropic API for the three model calls Terascout
// makes: query extraction at scout creation, change analysis on each poll
// cycle, and semantic deduplication of candidate events.
//
// Every model response is treated as arbitrary untrusted text: the first
// balanced JSON object is extracted and shape-validated, and on any parse
// failure the documented safe default applies (no event, not a duplicate).
// Model text never reaches persistent storage without passing through that
// validation.
package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/terascout/internal/config"
	"github.com/tomtom215/terascout/internal/logging"
	"github.com/tomtom215/terascout/internal/metrics"
	"github.com/tomtom215/terascout/internal/models"
)

// errAPIKeyRequired is returned when no API key is configured.
var errAPIKeyRequired = errors.New("API key required")

// Extraction is the result of query extraction at scout creation.
type Extraction struct {
	SearchPhrase    string            `json:"searchPhrase"`
	TimeSensitivity models.TimeWindow `json:"timeSensitivity"`
}

// Analysis is the change analyzer's verdict on a snapshot pair.
type Analysis struct {
	IsEvent    bool             `json:"isEvent"`
	TLDR       string           `json:"tldr"`
	Summary    string           `json:"summary"`
	Highlights []string         `json:"highlights"`
	Articles   []models.Article `json:"articles"`
	IsBreaking bool             `json:"isBreaking"`
}

// Client wraps the Anthropic API with retry and a circuit breaker. A tripped
// breaker fails calls fast; callers fall back to their safe defaults rather
// than stalling the poll cycle.
type Client struct {
	client         anthropic.Client
	model          anthropic.Model
	maxTokens      int64
	maxRetries     int
	initialBackoff time.Duration
	breaker        *gobreaker.CircuitBreaker[string]
}

// NewClient creates an AI client. Env var ANTHROPIC_API_KEY takes precedence
// over the configured key.
func NewClient(cfg config.AIConfig) (*Client, error) {
	apiKey := cfg.APIKey
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or ai.api_key", errAPIKeyRequired)
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = 3
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "anthropic",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
		},
	})

	return &Client{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:          anthropic.Model(cfg.Model),
		maxTokens:      maxTokens,
		maxRetries:     retries,
		initialBackoff: time.Second,
		breaker:        breaker,
	}, nil
}

// ExtractQuery derives a 2-7 word search phrase and a time window from the
// raw user query. Callers fall back to the truncated raw query with a 7-day
// window on error.
func (c *Client) ExtractQuery(ctx context.Context, rawQuery string) (Extraction, error) {
	prompt, err := renderTemplate(extractTmpl, map[string]interface{}{"Query": rawQuery})
	if err != nil {
		return Extraction{}, err
	}

	response, err := c.run(ctx, prompt)
	if err != nil {
		return Extraction{}, err
	}

	var ext Extraction
	if err := ExtractJSON(response, &ext); err != nil {
		return Extraction{}, err
	}
	ext.SearchPhrase = strings.TrimSpace(ext.SearchPhrase)
	if ext.SearchPhrase == "" {
		return Extraction{}, fmt.Errorf("%w: empty search phrase", ErrNoJSON)
	}
	if !ext.TimeSensitivity.Valid() {
		ext.TimeSensitivity = models.Window7D
	}
	return ext, nil
}

// AnalyzeChange asks the model whether new meaningful content appeared
// between two snapshots of the same source. Malformed model output is the
// documented safe default: no event.
func (c *Client) AnalyzeChange(ctx context.Context, query, oldText, newText string) (Analysis, error) {
	prompt, err := renderTemplate(analyzeTmpl, map[string]interface{}{
		"Query":   query,
		"OldText": oldText,
		"NewText": newText,
	})
	if err != nil {
		return Analysis{}, err
	}

	response, err := c.run(ctx, prompt)
	if err != nil {
		return Analysis{}, err
	}

	var analysis Analysis
	if err := ExtractJSON(response, &analysis); err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Msg("Malformed analyzer output, treating as no event")
		return Analysis{}, nil
	}
	sanitizeAnalysis(&analysis)
	return analysis, nil
}

// CheckDuplicate asks whether the candidate summary restates one of the
// recent event summaries. Malformed output is the documented safe default:
// not a duplicate (prefer false-positive notifications over silent drops).
func (c *Client) CheckDuplicate(ctx context.Context, summary string, recent []string) (bool, error) {
	if len(recent) == 0 {
		return false, nil
	}
	prompt, err := renderTemplate(dedupeTmpl, map[string]interface{}{
		"Summary": summary,
		"Recent":  recent,
	})
	if err != nil {
		return false, err
	}

	response, err := c.run(ctx, prompt)
	if err != nil {
		return false, err
	}

	var verdict struct {
		IsDuplicate bool `json:"isDuplicate"`
	}
	if err := ExtractJSON(response, &verdict); err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Msg("Malformed dedup output, treating as not duplicate")
		return false, nil
	}
	return verdict.IsDuplicate, nil
}

// run executes one prompt through the breaker with exponential-backoff retry.
func (c *Client) run(ctx context.Context, prompt string) (string, error) {
	return c.breaker.Execute(func() (string, error) {
		return c.callWithRetry(ctx, prompt)
	})
}

func (c *Client) callWithRetry(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.initialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		start := time.Now()
		message, err := c.client.Messages.New(ctx, params)
		metrics.AICallDuration.Observe(time.Since(start).Seconds())

		if err == nil {
			metrics.AICallsTotal.WithLabelValues("ok").Inc()
			if len(message.Content) == 0 {
				return "", fmt.Errorf("unexpected response format: no content blocks")
			}
			content := message.Content[0]
			if content.Type != "text" {
				return "", fmt.Errorf("unexpected response format: not a text block (type=%s)", content.Type)
			}
			return content.Text, nil
		}

		metrics.AICallsTotal.WithLabelValues("error").Inc()
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("model call failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// sanitizeAnalysis enforces the event field bounds before anything derived
// from model text can reach the store.
func sanitizeAnalysis(a *Analysis) {
	a.TLDR = clampWords(strings.TrimSpace(a.TLDR), 15)
	a.Summary = strings.TrimSpace(a.Summary)
	if len(a.Highlights) > 5 {
		a.Highlights = a.Highlights[:5]
	}
	for i, h := range a.Highlights {
		a.Highlights[i] = strings.TrimSpace(h)
	}
	if a.IsEvent && a.Summary == "" {
		// An event without a summary cannot be deduplicated or reported.
		a.IsEvent = false
	}
}

// clampWords truncates s to at most n whitespace-separated words.
func clampWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}

func renderTemplate(tmpl *template.Template, data interface{}) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}
