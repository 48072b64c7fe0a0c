// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/terascout/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(Options{MaxSnapshotTextLength: 100})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return st
}

func testScout(id string) *models.Scout {
	return &models.Scout{
		ScoutID: id,
		Query:   "next spacex launch",
		Email:   "user@example.com",
		Sources: []models.Source{{
			URL:      "https://news.google.com/search?q=spacex",
			Label:    "google-news",
			Strategy: models.StrategyHTMLDiff,
		}},
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(72 * time.Hour),
	}
}

func TestConfigRoundTrip(t *testing.T) {
	st := newTestStore(t)
	sc := st.For("scout-a")

	if _, err := sc.GetConfig(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetConfig before install: got %v, want ErrNotFound", err)
	}

	want := testScout("scout-a")
	if err := sc.PutConfig(want); err != nil {
		t.Fatalf("PutConfig: %v", err)
	}

	got, err := sc.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if got.ScoutID != want.ScoutID || got.Query != want.Query || got.Email != want.Email {
		t.Errorf("config mismatch: got %+v, want %+v", got, want)
	}
	if len(got.Sources) != 1 || got.Sources[0].URL != want.Sources[0].URL {
		t.Errorf("sources mismatch: got %+v", got.Sources)
	}
}

func TestPutConfigRegistersScout(t *testing.T) {
	st := newTestStore(t)

	for _, id := range []string{"scout-a", "scout-b"} {
		if err := st.For(id).PutConfig(testScout(id)); err != nil {
			t.Fatalf("PutConfig(%s): %v", id, err)
		}
	}

	ids, err := st.ListScoutIDs()
	if err != nil {
		t.Fatalf("ListScoutIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ListScoutIDs: got %v, want 2 ids", ids)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	st := newTestStore(t)
	sc := st.For("scout-a")
	url := "https://news.google.com/search?q=spacex"

	snap, err := sc.GetSnapshot(url)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap != nil {
		t.Fatalf("GetSnapshot before put: got %+v, want nil", snap)
	}
	if !snap.Baseline() {
		t.Error("nil snapshot should count as baseline")
	}

	if err := sc.PutSnapshot(url, "hash-1", "page text"); err != nil {
		t.Fatalf("PutSnapshot: %v", err)
	}
	snap, err = sc.GetSnapshot(url)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap == nil || snap.ContentHash != "hash-1" || snap.Text != "page text" {
		t.Errorf("snapshot mismatch: got %+v", snap)
	}
	if snap.Baseline() {
		t.Error("snapshot with hash should not be baseline")
	}
	if snap.CheckedAt.IsZero() {
		t.Error("CheckedAt not stamped")
	}
}

func TestPutSnapshotTruncatesText(t *testing.T) {
	st := newTestStore(t) // max 100
	sc := st.For("scout-a")
	url := "https://example.com"

	if err := sc.PutSnapshot(url, "h", strings.Repeat("x", 500)); err != nil {
		t.Fatalf("PutSnapshot: %v", err)
	}
	snap, err := sc.GetSnapshot(url)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if len(snap.Text) != 100 {
		t.Errorf("snapshot text length: got %d, want 100", len(snap.Text))
	}
}

func TestRecordEventIdempotent(t *testing.T) {
	st := newTestStore(t)
	sc := st.For("scout-a")

	event := &models.Event{
		EventID:    "event-1",
		SourceURL:  "https://example.com",
		Summary:    "first summary",
		DetectedAt: time.Now().UTC(),
	}
	inserted, err := sc.RecordEvent(event)
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if !inserted {
		t.Fatal("first RecordEvent: inserted=false, want true")
	}

	// A replay with different content must not overwrite the stored row.
	replay := &models.Event{EventID: "event-1", Summary: "different summary"}
	inserted, err = sc.RecordEvent(replay)
	if err != nil {
		t.Fatalf("RecordEvent replay: %v", err)
	}
	if inserted {
		t.Fatal("replayed RecordEvent: inserted=true, want false")
	}

	events, err := sc.ListEvents()
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || events[0].Summary != "first summary" {
		t.Errorf("event log: got %+v, want single original event", events)
	}
}

func TestMarkEventNotified(t *testing.T) {
	st := newTestStore(t)
	sc := st.For("scout-a")

	if _, err := sc.RecordEvent(&models.Event{EventID: "event-1", Summary: "s"}); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if err := sc.MarkEventNotified("event-1"); err != nil {
		t.Fatalf("MarkEventNotified: %v", err)
	}
	// Unknown IDs are a no-op, not an error.
	if err := sc.MarkEventNotified("missing"); err != nil {
		t.Fatalf("MarkEventNotified(missing): %v", err)
	}

	events, err := sc.ListEvents()
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if !events[0].Notified {
		t.Error("event not marked notified")
	}
}

func TestListEventsNewestFirst(t *testing.T) {
	st := newTestStore(t)
	sc := st.For("scout-a")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"event-a", "event-b", "event-c"} {
		event := &models.Event{EventID: id, Summary: id, DetectedAt: base.Add(time.Duration(i) * time.Hour)}
		if _, err := sc.RecordEvent(event); err != nil {
			t.Fatalf("RecordEvent(%s): %v", id, err)
		}
	}

	events, err := sc.ListEvents()
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("ListEvents: got %d events, want 3", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].DetectedAt.After(events[i-1].DetectedAt) {
			t.Errorf("events out of order at %d: %v after %v", i, events[i].DetectedAt, events[i-1].DetectedAt)
		}
	}
}

func TestEmailCounter(t *testing.T) {
	st := newTestStore(t)
	sc := st.For("scout-a")

	count, err := sc.GetEmailCount()
	if err != nil {
		t.Fatalf("GetEmailCount: %v", err)
	}
	if count.Count != 0 {
		t.Fatalf("initial count: got %d, want 0", count.Count)
	}
	if count.DateKey != models.DateKey(time.Now()) {
		t.Errorf("date key: got %q, want today", count.DateKey)
	}

	for want := 1; want <= 3; want++ {
		got, err := sc.IncrementEmailCount()
		if err != nil {
			t.Fatalf("IncrementEmailCount: %v", err)
		}
		if got != want {
			t.Errorf("IncrementEmailCount: got %d, want %d", got, want)
		}
	}

	count, err = sc.GetEmailCount()
	if err != nil {
		t.Fatalf("GetEmailCount: %v", err)
	}
	if count.Count != 3 {
		t.Errorf("final count: got %d, want 3", count.Count)
	}
}

func TestCountersAreScoutScoped(t *testing.T) {
	st := newTestStore(t)

	if _, err := st.For("scout-a").IncrementEmailCount(); err != nil {
		t.Fatalf("IncrementEmailCount: %v", err)
	}
	count, err := st.For("scout-b").GetEmailCount()
	if err != nil {
		t.Fatalf("GetEmailCount: %v", err)
	}
	if count.Count != 0 {
		t.Errorf("scout-b count: got %d, want 0", count.Count)
	}
}

func TestStepCheckpoints(t *testing.T) {
	st := newTestStore(t)
	sc := st.For("scout-a")

	if _, found, err := sc.GetStep("fetch-0-google-news"); err != nil || found {
		t.Fatalf("GetStep before put: found=%v err=%v", found, err)
	}

	outcome, _ := json.Marshal(map[string]string{"contentHash": "abc"})
	if err := sc.PutStep("fetch-0-google-news", outcome); err != nil {
		t.Fatalf("PutStep: %v", err)
	}

	raw, found, err := sc.GetStep("fetch-0-google-news")
	if err != nil {
		t.Fatalf("GetStep: %v", err)
	}
	if !found {
		t.Fatal("GetStep: checkpoint not found after PutStep")
	}
	var decoded map[string]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode checkpoint: %v", err)
	}
	if decoded["contentHash"] != "abc" {
		t.Errorf("checkpoint content: got %v", decoded)
	}
}

func TestWipeRemovesEverything(t *testing.T) {
	st := newTestStore(t)
	sc := st.For("scout-a")

	if err := sc.PutConfig(testScout("scout-a")); err != nil {
		t.Fatalf("PutConfig: %v", err)
	}
	if err := sc.PutSnapshot("https://example.com", "h", "text"); err != nil {
		t.Fatalf("PutSnapshot: %v", err)
	}
	if _, err := sc.RecordEvent(&models.Event{EventID: "e1", Summary: "s"}); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if _, err := sc.IncrementEmailCount(); err != nil {
		t.Fatalf("IncrementEmailCount: %v", err)
	}
	if err := sc.PutStep("wait-0", []byte(`"2026-08-26T00:00:00Z"`)); err != nil {
		t.Fatalf("PutStep: %v", err)
	}

	if err := sc.Wipe(); err != nil {
		t.Fatalf("Wipe: %v", err)
	}

	if _, err := sc.GetConfig(); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetConfig after wipe: got %v, want ErrNotFound", err)
	}
	if snap, _ := sc.GetSnapshot("https://example.com"); snap != nil {
		t.Errorf("snapshot survived wipe: %+v", snap)
	}
	if events, _ := sc.ListEvents(); len(events) != 0 {
		t.Errorf("events survived wipe: %+v", events)
	}
	if count, _ := sc.GetEmailCount(); count.Count != 0 {
		t.Errorf("counter survived wipe: %d", count.Count)
	}
	if _, found, _ := sc.GetStep("wait-0"); found {
		t.Error("step checkpoint survived wipe")
	}
	if ids, _ := st.ListScoutIDs(); len(ids) != 0 {
		t.Errorf("registry survived wipe: %v", ids)
	}
}

func TestWipeDoesNotTouchOtherScouts(t *testing.T) {
	st := newTestStore(t)

	for _, id := range []string{"scout-a", "scout-b"} {
		if err := st.For(id).PutConfig(testScout(id)); err != nil {
			t.Fatalf("PutConfig(%s): %v", id, err)
		}
	}
	if err := st.For("scout-a").Wipe(); err != nil {
		t.Fatalf("Wipe: %v", err)
	}

	if _, err := st.For("scout-b").GetConfig(); err != nil {
		t.Errorf("scout-b config after wiping scout-a: %v", err)
	}
}
