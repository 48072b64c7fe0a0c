// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package models

// CreateScoutRequest is the body of POST /api/scouts.
//
// ExpiresAt is an optional ISO-8601 timestamp; when present it must lie in
// the future and within the configured maximum lifetime.
type CreateScoutRequest struct {
	Query     string `json:"query" validate:"required,max=500"`
	Email     string `json:"email" validate:"required,contains=@"`
	ExpiresAt string `json:"expiresAt,omitempty" validate:"omitempty"`
}

// CreateScoutResponse is returned with status 201 on successful creation.
type CreateScoutResponse struct {
	ScoutID string `json:"scoutId"`
}

// ScoutDetailResponse is the body of GET /api/scouts/{id}.
type ScoutDetailResponse struct {
	Config *Scout  `json:"config"`
	Events []Event `json:"events"`
}

// DeleteScoutResponse is the body of DELETE /api/scouts/{id}.
// Delete is idempotent and never errors.
type DeleteScoutResponse struct {
	OK      bool   `json:"ok"`
	ScoutID string `json:"scoutId"`
}

// ErrorResponse is the JSON error envelope for 4xx/5xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Scouts  int    `json:"scouts"`
}
