// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Context keys for logging.
type contextKey string

const (
	// requestIDKey is the context key for HTTP request IDs.
	requestIDKey contextKey = "request_id"

	// scoutIDKey is the context key for the scout bound to the current operation.
	scoutIDKey contextKey = "scout_id"
)

// GenerateRequestID creates a new unique request ID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithRequestID returns a new context with the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithScoutID returns a new context carrying the scout identifier.
// Engine goroutines attach their scout ID once so every log line produced
// inside the cycle can be correlated back to the scout.
func ContextWithScoutID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, scoutIDKey, id)
}

// ScoutIDFromContext retrieves the scout ID from context.
// Returns empty string if not present.
func ScoutIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(scoutIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns a logger enriched with identifiers found in the context.
//
//	logging.Ctx(ctx).Info().Msg("Cycle completed")
func Ctx(ctx context.Context) zerolog.Logger {
	logger := Logger()
	c := logger.With()
	if id := RequestIDFromContext(ctx); id != "" {
		c = c.Str("request_id", id)
	}
	if id := ScoutIDFromContext(ctx); id != "" {
		c = c.Str("scout_id", id)
	}
	return c.Logger()
}
