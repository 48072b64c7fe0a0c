// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package models

import (
	"testing"
	"time"
)

func TestScoutExpired(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{name: "future deadline", expiresAt: now.Add(time.Hour), want: false},
		{name: "past deadline", expiresAt: now.Add(-time.Hour), want: true},
		{name: "exactly at deadline", expiresAt: now, want: true},
		{name: "no deadline", expiresAt: time.Time{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Scout{ExpiresAt: tt.expiresAt}
			if got := s.Expired(now); got != tt.want {
				t.Errorf("Expired: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapshotBaseline(t *testing.T) {
	var nilSnap *Snapshot
	if !nilSnap.Baseline() {
		t.Error("nil snapshot should be baseline")
	}
	if !(&Snapshot{}).Baseline() {
		t.Error("empty-hash snapshot should be baseline")
	}
	if (&Snapshot{ContentHash: "h"}).Baseline() {
		t.Error("hashed snapshot should not be baseline")
	}
}

func TestTimeWindowValid(t *testing.T) {
	for _, w := range []TimeWindow{Window1D, Window7D, Window30D, WindowNone} {
		if !w.Valid() {
			t.Errorf("%s should be valid", w)
		}
	}
	for _, w := range []TimeWindow{"", "2w", "1D"} {
		if w.Valid() {
			t.Errorf("%q should be invalid", w)
		}
	}
}

func TestDateKey(t *testing.T) {
	// Late evening in a western timezone is already the next UTC day.
	loc := time.FixedZone("PST", -8*3600)
	local := time.Date(2026, 8, 25, 22, 30, 0, 0, loc)
	if got := DateKey(local); got != "2026-08-26" {
		t.Errorf("DateKey: got %q, want 2026-08-26", got)
	}
}
