// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

// Package engine implements the durable per-scout polling loop.
//
// One Engine drives one scout from creation to termination. Each cycle is a
// sequence of named, idempotent steps whose outcomes are checkpointed in the
// state store (see runStep); a process restart replays completed steps from
// their checkpoints and resumes mid-cycle without repeating side effects.
// The long sleep between cycles is durable the same way: the wake deadline
// is persisted before the wait starts.
//
// Engines are mutually isolated. Within one engine, steps execute strictly
// sequentially; the only external cancellation is scout deletion, observed
// at the next step boundary via context cancellation.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tomtom215/terascout/internal/ai"
	"github.com/tomtom215/terascout/internal/config"
	"github.com/tomtom215/terascout/internal/fetch"
	"github.com/tomtom215/terascout/internal/logging"
	"github.com/tomtom215/terascout/internal/metrics"
	"github.com/tomtom215/terascout/internal/models"
	"github.com/tomtom215/terascout/internal/notify"
	"github.com/tomtom215/terascout/internal/store"
)

// Fetcher retrieves a source URL and returns its extracted text and hash.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (fetch.Result, error)
}

// Analyzer is the language-model surface the engine depends on.
type Analyzer interface {
	AnalyzeChange(ctx context.Context, query, oldText, newText string) (ai.Analysis, error)
	CheckDuplicate(ctx context.Context, summary string, recent []string) (bool, error)
}

// Mailer dispatches notification emails.
type Mailer interface {
	Send(ctx context.Context, msg notify.Message) error
}

// Engine is the durable polling loop for a single scout.
type Engine struct {
	scoutID  string
	st       *store.ScoutStore
	cfg      config.ScoutConfig
	fetcher  Fetcher
	analyzer Analyzer
	mailer   Mailer

	// now is replaceable in tests.
	now func() time.Time
}

// New creates an engine bound to the given scout's state store view.
func New(st *store.ScoutStore, cfg config.ScoutConfig, fetcher Fetcher, analyzer Analyzer, mailer Mailer) *Engine {
	return &Engine{
		scoutID:  st.ScoutID(),
		st:       st,
		cfg:      cfg,
		fetcher:  fetcher,
		analyzer: analyzer,
		mailer:   mailer,
		now:      time.Now,
	}
}

// fetchOutcome is the checkpointed result of a fetch step. A permanent fetch
// failure is a settled outcome (OK=false), not a step error: the source is
// skipped for the cycle and the prior snapshot is left unchanged.
type fetchOutcome struct {
	OK          bool   `json:"ok"`
	Text        string `json:"text,omitempty"`
	ContentHash string `json:"contentHash,omitempty"`
}

// recordOutcome is the checkpointed result of the record-event step.
type recordOutcome struct {
	Inserted bool   `json:"inserted"`
	EventID  string `json:"eventId"`
}

// Run executes the polling loop until the scout expires, the cycle cap is
// reached, or ctx is canceled (deletion or shutdown). Transient cycle
// failures are retried with backoff; completed steps replay from their
// checkpoints, so a retried cycle never repeats a side effect.
func (e *Engine) Run(ctx context.Context) error {
	ctx = logging.ContextWithScoutID(ctx, e.scoutID)
	logger := logging.Ctx(ctx)
	logger.Info().Int("max_cycles", e.cfg.MaxCycles).Dur("poll_interval", e.cfg.PollInterval).Msg("Engine started")

	for cycle := 0; cycle < e.cfg.MaxCycles; cycle++ {
		done, err := e.runCycleWithRetry(ctx, cycle)
		if err != nil {
			return err
		}
		if done {
			logger := logging.Ctx(ctx)
			logger.Info().Int("cycle", cycle).Msg("Engine finished: scout expired")
			return nil
		}
	}

	logger = logging.Ctx(ctx)
	logger.Info().Msg("Engine finished: cycle cap reached")
	return nil
}

// runCycleWithRetry retries a cycle on transient failure. Step checkpoints
// make the retry resume exactly where the failure happened.
func (e *Engine) runCycleWithRetry(ctx context.Context, cycle int) (done bool, err error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Second
	policy.MaxInterval = 5 * time.Minute
	policy.MaxElapsedTime = 0 // retry until canceled

	err = backoff.Retry(func() error {
		var cycleErr error
		done, cycleErr = e.runCycle(ctx, cycle)
		if cycleErr != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			metrics.CyclesTotal.WithLabelValues("error").Inc()
			logger := logging.Ctx(ctx)
			logger.Warn().Err(cycleErr).Int("cycle", cycle).Msg("Cycle failed, will resume")
		}
		return cycleErr
	}, backoff.WithContext(policy, ctx))
	return done, err
}

// runCycle executes one poll cycle. It returns done=true when the scout's
// expiration has been observed and no further cycles may run.
func (e *Engine) runCycle(ctx context.Context, cycle int) (done bool, err error) {
	cfg, err := runStep(ctx, e.st, stepName("load-config", cycle), func(context.Context) (*models.Scout, error) {
		return e.st.GetConfig()
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Deleted underneath us; terminate quietly.
			return true, nil
		}
		return false, err
	}

	// Once now >= expiresAt, no snapshot, event, or email may be produced in
	// this cycle or any later one.
	if cfg.Expired(e.now()) {
		metrics.CyclesTotal.WithLabelValues("expired").Inc()
		return true, nil
	}

	emailCount, err := runStep(ctx, e.st, stepName("email-count", cycle), func(context.Context) (models.EmailCount, error) {
		return e.st.GetEmailCount()
	})
	if err != nil {
		return false, err
	}
	canEmail := emailCount.Count < e.cfg.MaxEmailsPerScoutPerDay

	for _, source := range cfg.Sources {
		if err := e.runSource(ctx, cycle, cfg, source, canEmail); err != nil {
			return false, err
		}
	}

	if err := sleepStep(ctx, e.st, stepName("wait", cycle), e.cfg.PollInterval, e.now); err != nil {
		return false, err
	}

	metrics.CyclesTotal.WithLabelValues("ok").Inc()
	return false, nil
}

// runSource processes one source within a cycle.
func (e *Engine) runSource(ctx context.Context, cycle int, cfg *models.Scout, source models.Source, canEmail bool) error {
	label := source.Label

	fetched, err := runStep(ctx, e.st, sourceStepName("fetch", cycle, label), func(ctx context.Context) (fetchOutcome, error) {
		result, fetchErr := e.fetcher.Fetch(ctx, source.URL)
		if fetchErr != nil {
			// Permanent fetch failure: skip the source this cycle.
			logger := logging.Ctx(ctx)
			logger.Warn().Err(fetchErr).Str("source", label).Msg("Source fetch failed, skipping for this cycle")
			return fetchOutcome{OK: false}, nil
		}
		return fetchOutcome{OK: true, Text: result.Text, ContentHash: result.ContentHash}, nil
	})
	if err != nil {
		return err
	}
	if !fetched.OK {
		return nil
	}

	prev, err := runStep(ctx, e.st, sourceStepName("snapshot", cycle, label), func(context.Context) (*models.Snapshot, error) {
		return e.st.GetSnapshot(source.URL)
	})
	if err != nil {
		return err
	}
	isBaseline := prev.Baseline()

	if _, err := runStep(ctx, e.st, sourceStepName("save-snapshot", cycle, label), func(context.Context) (struct{}, error) {
		return struct{}{}, e.st.PutSnapshot(source.URL, fetched.ContentHash, fetched.Text)
	}); err != nil {
		return err
	}

	// The baseline cycle establishes the snapshot and never fires an event,
	// regardless of what an analyzer might say.
	if isBaseline {
		logger := logging.Ctx(ctx)
		logger.Debug().Str("source", label).Msg("Baseline snapshot established")
		return nil
	}

	// The hash comparison is advisory only: equal-hash pages still go to the
	// analyzer, which reliably answers isEvent=false for them.
	analysis, err := runStep(ctx, e.st, sourceStepName("analyze", cycle, label), func(ctx context.Context) (ai.Analysis, error) {
		return e.analyzer.AnalyzeChange(ctx, cfg.Query,
			truncate(prev.Text, e.cfg.MaxAITextLength),
			truncate(fetched.Text, e.cfg.MaxAITextLength))
	})
	if err != nil {
		return err
	}
	if !analysis.IsEvent {
		return nil
	}

	isDup, err := runStep(ctx, e.st, sourceStepName("dedupe", cycle, label), func(ctx context.Context) (bool, error) {
		recent, listErr := e.recentSummaries()
		if listErr != nil {
			return false, listErr
		}
		dup, dupErr := e.analyzer.CheckDuplicate(ctx, analysis.Summary, recent)
		if dupErr != nil {
			// Prefer a false-positive notification over a silent drop.
			logger := logging.Ctx(ctx)
			logger.Warn().Err(dupErr).Str("source", label).Msg("Dedup call failed, treating as not duplicate")
			return false, nil
		}
		return dup, nil
	})
	if err != nil {
		return err
	}
	if isDup {
		logger := logging.Ctx(ctx)
		logger.Info().Str("source", label).Str("summary", analysis.Summary).Msg("Duplicate event suppressed")
		return nil
	}

	eventID, err := runStep(ctx, e.st, sourceStepName("hash-event", cycle, label), func(context.Context) (string, error) {
		return EventID(source.URL, prev.ContentHash, fetched.ContentHash), nil
	})
	if err != nil {
		return err
	}

	recorded, err := runStep(ctx, e.st, sourceStepName("record-event", cycle, label), func(context.Context) (recordOutcome, error) {
		event := &models.Event{
			EventID:     eventID,
			SourceURL:   source.URL,
			SourceLabel: source.Label,
			TLDR:        analysis.TLDR,
			Summary:     analysis.Summary,
			Highlights:  analysis.Highlights,
			Articles:    analysis.Articles,
			IsBreaking:  analysis.IsBreaking,
			DetectedAt:  e.now().UTC(),
			Notified:    false,
		}
		inserted, recordErr := e.st.RecordEvent(event)
		if recordErr != nil {
			return recordOutcome{}, recordErr
		}
		if inserted {
			metrics.EventsRecordedTotal.Inc()
		}
		return recordOutcome{Inserted: inserted, EventID: eventID}, nil
	})
	if err != nil {
		return err
	}

	if !recorded.Inserted {
		return nil
	}
	if !canEmail {
		// The event stays in the log with notified=false; no future retry.
		metrics.EmailsSuppressedTotal.Inc()
		logger := logging.Ctx(ctx)
		logger.Info().Str("event_id", eventID).Msg("Daily email cap reached, event recorded without notification")
		return nil
	}

	// Send and counter increment share one step so send-without-count or
	// count-without-send is not observable across restarts.
	_, err = runStep(ctx, e.st, sourceStepName("email", cycle, label), func(ctx context.Context) (struct{}, error) {
		event := &models.Event{
			EventID:     eventID,
			SourceURL:   source.URL,
			SourceLabel: source.Label,
			TLDR:        analysis.TLDR,
			Summary:     analysis.Summary,
			Highlights:  analysis.Highlights,
			Articles:    analysis.Articles,
			IsBreaking:  analysis.IsBreaking,
		}
		msg, renderErr := notify.RenderEvent(cfg.Email, cfg.Query, event)
		if renderErr != nil {
			return struct{}{}, renderErr
		}
		if sendErr := e.mailer.Send(ctx, msg); sendErr != nil {
			return struct{}{}, sendErr
		}
		if _, countErr := e.st.IncrementEmailCount(); countErr != nil {
			return struct{}{}, countErr
		}
		return struct{}{}, e.st.MarkEventNotified(eventID)
	})
	return err
}

// recentSummaries returns the summaries of the most recent events, newest
// first, bounded by the configured dedup lookback.
func (e *Engine) recentSummaries() ([]string, error) {
	events, err := e.st.ListEvents()
	if err != nil {
		return nil, err
	}
	limit := e.cfg.DedupeLookback
	if limit > len(events) {
		limit = len(events)
	}
	summaries := make([]string, 0, limit)
	for _, event := range events[:limit] {
		summaries = append(summaries, event.Summary)
	}
	return summaries, nil
}

// EventID derives the content-addressed idempotency key for a transition:
// SHA-256 hex of "sourceUrl|oldHash|newHash".
func EventID(sourceURL, oldHash, newHash string) string {
	sum := sha256.Sum256([]byte(sourceURL + "|" + oldHash + "|" + newHash))
	return hex.EncodeToString(sum[:])
}

func stepName(kind string, cycle int) string {
	return fmt.Sprintf("%s-%d", kind, cycle)
}

func sourceStepName(kind string, cycle int, label string) string {
	return fmt.Sprintf("%s-%d-%s", kind, cycle, label)
}

func truncate(s string, n int) string {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
