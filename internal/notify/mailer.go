// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

// Package notify delivers event notification emails via SMTP.
//
// Send retries transient failures with exponential backoff; the engine
// co-locates the send with the email-counter increment inside one
// checkpointed step, so a restart can never observe send-without-count or
// count-without-send.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tomtom215/terascout/internal/config"
	"github.com/tomtom215/terascout/internal/logging"
	"github.com/tomtom215/terascout/internal/metrics"
)

// Message is one outbound email.
type Message struct {
	To       string
	Subject  string
	BodyHTML string
	BodyText string
}

// SMTPMailer sends email through a configured SMTP relay.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

// NewSMTPMailer creates a mailer from config.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers the message, retrying transient failures with exponential
// backoff starting at the configured delay. It returns an error only after
// all attempts are exhausted.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	if !strings.Contains(msg.To, "@") {
		return backoff.Permanent(fmt.Errorf("invalid recipient %q", msg.To))
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.cfg.RetryDelay
	policy.RandomizationFactor = 0

	retries := uint64(m.cfg.Retries)
	if retries == 0 {
		retries = 3
	}

	err := backoff.Retry(func() error {
		return m.sendOnce(ctx, msg)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx))
	if err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}

	metrics.EmailsSentTotal.Inc()
	logger := logging.Ctx(ctx)
	logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("Notification email sent")
	return nil
}

// sendOnce performs a single SMTP conversation.
func (m *SMTPMailer) sendOnce(ctx context.Context, msg Message) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	dialer := &net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }() //nolint:errcheck // Best effort cleanup

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }() //nolint:errcheck // Best effort cleanup

	if m.cfg.StartTLS {
		tlsConfig := &tls.Config{
			ServerName: m.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("start TLS: %w", err)
		}
	}

	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			// Bad credentials will not improve with retries.
			return backoff.Permanent(fmt.Errorf("SMTP authentication failed: %w", err))
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("start message: %w", err)
	}
	if _, err := writer.Write([]byte(m.buildMessage(msg))); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	// Quit failures after a completed DATA are harmless.
	_ = client.Quit() //nolint:errcheck
	return nil
}

// buildMessage constructs the RFC 5322 message with headers.
func (m *SMTPMailer) buildMessage(msg Message) string {
	var sb strings.Builder

	fromName := m.cfg.FromName
	if fromName == "" {
		fromName = "Terascout"
	}

	sb.WriteString(fmt.Sprintf("From: %s <%s>\r\n", fromName, m.cfg.From))
	sb.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", sanitizeHeader(msg.Subject)))
	sb.WriteString("MIME-Version: 1.0\r\n")

	hasHTML := msg.BodyHTML != ""
	hasText := msg.BodyText != ""

	switch {
	case hasHTML && hasText:
		boundary := fmt.Sprintf("boundary_%d", time.Now().UnixNano())
		sb.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary))

		sb.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		sb.WriteString(msg.BodyText)
		sb.WriteString("\r\n")

		sb.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		sb.WriteString(msg.BodyHTML)
		sb.WriteString("\r\n")

		sb.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	case hasHTML:
		sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		sb.WriteString(msg.BodyHTML)
	default:
		sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		sb.WriteString(msg.BodyText)
	}

	return sb.String()
}

// sanitizeHeader strips CR/LF so model-derived text cannot inject headers.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
