// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

// Package models defines the persistent and wire-level data structures for
// Terascout: the scout configuration, per-source snapshots, detected events,
// and the daily email counter.
package models

import "time"

// SourceStrategy identifies how a source is monitored for change.
type SourceStrategy string

// StrategyHTMLDiff compares the extracted visible text of successive fetches.
// It is currently the only strategy.
const StrategyHTMLDiff SourceStrategy = "html_diff"

// TimeWindow classifies the time sensitivity of a query, used to scope the
// synthesized search URL.
type TimeWindow string

// Recognized time windows. WindowNone omits the when: token entirely.
const (
	Window1D   TimeWindow = "1d"
	Window7D   TimeWindow = "7d"
	Window30D  TimeWindow = "30d"
	WindowNone TimeWindow = "none"
)

// Valid reports whether w is one of the recognized windows.
func (w TimeWindow) Valid() bool {
	switch w {
	case Window1D, Window7D, Window30D, WindowNone:
		return true
	}
	return false
}

// Source is a single polling target, materialized at scout creation.
// The URL is deliberately a search URL (dynamic content), not a fixed
// article URL.
type Source struct {
	URL      string         `json:"url"`
	Label    string         `json:"label"`
	Strategy SourceStrategy `json:"strategy"`
}

// Scout is one user-initiated monitoring request: one query, one email
// destination, one source. Immutable after creation except for expiration.
type Scout struct {
	ScoutID   string    `json:"scoutId"`
	Query     string    `json:"query"`
	Email     string    `json:"email"`
	Sources   []Source  `json:"sources"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the scout has passed its hard-stop deadline.
// A zero ExpiresAt means no deadline is set.
func (s *Scout) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Snapshot records the most recent fetched state of a source. It is
// overwritten on every successful poll cycle. An empty ContentHash marks the
// baseline cycle, which never generates an event.
type Snapshot struct {
	URL         string    `json:"url"`
	ContentHash string    `json:"contentHash"`
	Text        string    `json:"text"`
	CheckedAt   time.Time `json:"checkedAt"`
}

// Baseline reports whether this snapshot marks the baseline cycle.
// Both "no prior snapshot" (nil) and "prior snapshot with empty hash"
// count as baseline; the distinction is preserved for schema migration.
func (s *Snapshot) Baseline() bool {
	return s == nil || s.ContentHash == ""
}

// Article is a single story reference extracted by the change analyzer.
type Article struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Event is one detected meaningful transition on a source, uniquely keyed by
// SHA-256(sourceUrl | oldHash | newHash). The enrichment fields (TLDR,
// Highlights, Articles, IsBreaking) may be absent in rows persisted by older
// schema versions; their zero values are the documented empty defaults.
type Event struct {
	EventID     string    `json:"eventId"`
	SourceURL   string    `json:"sourceUrl"`
	SourceLabel string    `json:"sourceLabel"`
	TLDR        string    `json:"tldr,omitempty"`
	Summary     string    `json:"summary"`
	Highlights  []string  `json:"highlights,omitempty"`
	Articles    []Article `json:"articles,omitempty"`
	IsBreaking  bool      `json:"isBreaking,omitempty"`
	DetectedAt  time.Time `json:"detectedAt"`
	Notified    bool      `json:"notified"`
}

// EmailCount is the per-scout per-UTC-day notification counter. Only the
// current day's row is retained; the count is monotonically non-decreasing
// within the day.
type EmailCount struct {
	DateKey string `json:"dateKey"` // YYYY-MM-DD, UTC
	Count   int    `json:"count"`
}

// DateKey formats t as the UTC YYYY-MM-DD key used by the email counter.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
