// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

// Package fetch retrieves source pages and reduces them to comparable plain
// text for the scout engine.
//
// The fetcher presents an honest User-Agent, follows redirects, and caps the
// extracted visible text at a configured byte limit. HTTP 429 responses are
// retried respecting Retry-After (capped at 60s, at most 3 extra attempts);
// other transient failures are retried on a constant-interval schedule.
// Outbound request rate is bounded per host.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/tomtom215/terascout/internal/config"
	"github.com/tomtom215/terascout/internal/logging"
	"github.com/tomtom215/terascout/internal/metrics"
)

const (
	maxRetryAfter    = 60 * time.Second
	max429Attempts   = 3
	maxResponseBytes = 2 << 20 // read cap before extraction
)

// Result is one successful fetch: extracted text and its content hash.
type Result struct {
	Text        string `json:"text"`
	ContentHash string `json:"contentHash"`
}

// Fetcher retrieves a URL and extracts its visible text.
type Fetcher struct {
	client       *http.Client
	cfg          config.FetchConfig
	limiterMu    sync.Mutex
	hostLimiters map[string]*rate.Limiter
}

// NewFetcher creates a fetcher from config.
func NewFetcher(cfg config.FetchConfig) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			// Redirects are followed with the default policy (10 hops).
		},
		cfg:          cfg,
		hostLimiters: make(map[string]*rate.Limiter),
	}
}

// Fetch retrieves the URL and returns its extracted text and SHA-256 hash.
// Transient failures are retried per the configured policy; permanent
// failure is reported to the caller, which skips the source for the cycle.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	if err := f.waitHost(ctx, rawURL); err != nil {
		return Result{}, err
	}

	var result Result
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(f.cfg.RetryDelay), uint64(f.cfg.Retries)),
		ctx,
	)
	err := backoff.Retry(func() error {
		var attemptErr error
		result, attemptErr = f.fetchOnce(ctx, rawURL)
		return attemptErr
	}, policy)
	if err != nil {
		metrics.FetchesTotal.WithLabelValues("error").Inc()
		return Result{}, err
	}
	metrics.FetchesTotal.WithLabelValues("ok").Inc()
	return result, nil
}

// fetchOnce performs a single logical fetch, internally retrying 429s while
// honoring Retry-After.
func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (Result, error) {
	for attempt := 0; ; attempt++ {
		resp, err := f.do(ctx, rawURL)
		if err != nil {
			return Result{}, err
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < max429Attempts {
			wait := retryAfter(resp)
			io.Copy(io.Discard, resp.Body) //nolint:errcheck
			resp.Body.Close()
			logger := logging.Ctx(ctx)
			logger.Debug().Str("url", rawURL).Dur("wait", wait).Msg("Rate limited by source, backing off")
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return Result{}, ctx.Err()
			}
		}

		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, resp.Body) //nolint:errcheck
			return Result{}, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
		}

		text, err := ExtractText(io.LimitReader(resp.Body, maxResponseBytes), f.cfg.MaxTextBytes)
		if err != nil {
			return Result{}, fmt.Errorf("extract %s: %w", rawURL, err)
		}
		return Result{Text: text, ContentHash: HashText(text)}, nil
	}
}

func (f *Fetcher) do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		// A malformed URL will never succeed; stop the retry loop.
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	return resp, nil
}

// waitHost applies the per-host outbound rate limit.
func (f *Fetcher) waitHost(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	f.limiterMu.Lock()
	limiter, ok := f.hostLimiters[parsed.Host]
	if !ok {
		rps := f.cfg.RequestsPerSecond
		if rps <= 0 {
			rps = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
		f.hostLimiters[parsed.Host] = limiter
	}
	f.limiterMu.Unlock()

	return limiter.Wait(ctx)
}

// retryAfter parses the Retry-After header, defaulting to 5s and capping at
// maxRetryAfter.
func retryAfter(resp *http.Response) time.Duration {
	wait := 5 * time.Second
	if header := resp.Header.Get("Retry-After"); header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		} else if at, err := http.ParseTime(header); err == nil {
			wait = time.Until(at)
		}
	}
	if wait > maxRetryAfter {
		wait = maxRetryAfter
	}
	if wait <= 0 {
		wait = time.Second
	}
	return wait
}

// HashText returns the SHA-256 hex digest of the extracted text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
