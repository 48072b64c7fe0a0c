// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/terascout/internal/config"
)

func testMailer() *SMTPMailer {
	return NewSMTPMailer(config.SMTPConfig{
		Host:       "smtp.example.com",
		Port:       587,
		From:       "scout@example.com",
		FromName:   "Terascout",
		Timeout:    time.Second,
		Retries:    1,
		RetryDelay: time.Millisecond,
	})
}

func TestSendRejectsInvalidRecipient(t *testing.T) {
	err := testMailer().Send(context.Background(), Message{To: "not-an-address", Subject: "s", BodyText: "b"})
	if err == nil {
		t.Fatal("Send accepted recipient without @")
	}
}

func TestSendRequiresConfiguredHost(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{})
	if err := m.Send(context.Background(), Message{To: "user@example.com"}); err == nil {
		t.Fatal("Send succeeded with no SMTP host")
	}
}

func TestBuildMessageMultipart(t *testing.T) {
	raw := testMailer().buildMessage(Message{
		To:       "user@example.com",
		Subject:  "Launch rescheduled",
		BodyHTML: "<p>html body</p>",
		BodyText: "text body",
	})

	for _, want := range []string{
		"From: Terascout <scout@example.com>",
		"To: user@example.com",
		"Subject: Launch rescheduled",
		"Content-Type: multipart/alternative",
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Type: text/html; charset=UTF-8",
		"text body",
		"<p>html body</p>",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestBuildMessageSingleParts(t *testing.T) {
	m := testMailer()

	htmlOnly := m.buildMessage(Message{To: "u@example.com", Subject: "s", BodyHTML: "<p>x</p>"})
	if strings.Contains(htmlOnly, "multipart") {
		t.Error("html-only message used multipart")
	}
	textOnly := m.buildMessage(Message{To: "u@example.com", Subject: "s", BodyText: "x"})
	if !strings.Contains(textOnly, "Content-Type: text/plain") {
		t.Error("text-only message missing plain content type")
	}
}

func TestSanitizeHeaderStripsCRLF(t *testing.T) {
	got := sanitizeHeader("subject\r\nBcc: attacker@example.com")
	if strings.ContainsAny(got, "\r\n") {
		t.Errorf("header still contains CR/LF: %q", got)
	}
}
