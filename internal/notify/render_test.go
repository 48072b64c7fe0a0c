// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package notify

import (
	"strings"
	"testing"

	"github.com/tomtom215/terascout/internal/models"
)

func TestRenderEvent(t *testing.T) {
	event := &models.Event{
		EventID:     "e1",
		SourceURL:   "https://news.google.com/search?q=spacex",
		SourceLabel: "google-news",
		TLDR:        "Launch rescheduled to Thursday",
		Summary:     "The launch window moved.",
		Highlights:  []string{"new window opens 14:00 UTC"},
		Articles: []models.Article{
			{Title: "Launch slips a day", URL: "https://example.com/a1"},
		},
	}

	msg, err := RenderEvent("user@example.com", "next spacex launch", event)
	if err != nil {
		t.Fatalf("RenderEvent: %v", err)
	}
	if msg.To != "user@example.com" {
		t.Errorf("To: got %q", msg.To)
	}
	if msg.Subject != "Launch rescheduled to Thursday" {
		t.Errorf("Subject: got %q", msg.Subject)
	}
	for _, want := range []string{"Launch rescheduled", "The launch window moved.", "new window opens", "https://example.com/a1"} {
		if !strings.Contains(msg.BodyHTML, want) {
			t.Errorf("HTML body missing %q", want)
		}
	}
	if !strings.Contains(msg.BodyText, "The launch window moved.") {
		t.Errorf("text body missing summary: %q", msg.BodyText)
	}
}

func TestRenderEventBreakingSubject(t *testing.T) {
	msg, err := RenderEvent("user@example.com", "q", &models.Event{
		TLDR:       "Engine anomaly reported",
		Summary:    "s",
		IsBreaking: true,
	})
	if err != nil {
		t.Fatalf("RenderEvent: %v", err)
	}
	if msg.Subject != "[Breaking] Engine anomaly reported" {
		t.Errorf("Subject: got %q", msg.Subject)
	}
	if !strings.Contains(msg.BodyHTML, "BREAKING") {
		t.Error("HTML body missing breaking banner")
	}
}

func TestRenderEventSubjectFallback(t *testing.T) {
	msg, err := RenderEvent("user@example.com", "next spacex launch", &models.Event{Summary: "s"})
	if err != nil {
		t.Fatalf("RenderEvent: %v", err)
	}
	if msg.Subject != "New development: next spacex launch" {
		t.Errorf("Subject: got %q", msg.Subject)
	}
}

func TestRenderEventEscapesModelText(t *testing.T) {
	msg, err := RenderEvent("user@example.com", "q", &models.Event{
		TLDR:    `<script>alert("x")</script>`,
		Summary: "safe",
	})
	if err != nil {
		t.Fatalf("RenderEvent: %v", err)
	}
	if strings.Contains(msg.BodyHTML, "<script>") {
		t.Error("model text not escaped in HTML body")
	}
}
