// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

// Package api exposes the scout control plane over HTTP: create, inspect,
// and delete scouts, plus health and Prometheus endpoints. The data plane
// (polling, analysis, notification) runs in the engine package; handlers only
// touch the store and the engine manager.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/terascout/internal/ai"
	"github.com/tomtom215/terascout/internal/config"
	"github.com/tomtom215/terascout/internal/logging"
	"github.com/tomtom215/terascout/internal/models"
	"github.com/tomtom215/terascout/internal/store"
	"github.com/tomtom215/terascout/internal/validation"
)

// QueryExtractor turns a free-form query into a search phrase and window.
type QueryExtractor interface {
	ExtractQuery(ctx context.Context, query string) (ai.Extraction, error)
}

// ScoutRunner is the engine-manager surface the handlers need.
type ScoutRunner interface {
	Spawn(scoutID string)
	Terminate(scoutID string)
}

// Handlers carries the dependencies for all API endpoints.
type Handlers struct {
	store     *store.Store
	runner    ScoutRunner
	extractor QueryExtractor
	cfg       config.ScoutConfig
	version   string

	now func() time.Time
}

// NewHandlers wires the API handler set.
func NewHandlers(st *store.Store, runner ScoutRunner, extractor QueryExtractor, cfg config.ScoutConfig, version string) *Handlers {
	return &Handlers{
		store:     st,
		runner:    runner,
		extractor: extractor,
		cfg:       cfg,
		version:   version,
		now:       time.Now,
	}
}

// fallbackPhraseLength bounds the search phrase when extraction fails and the
// raw query is used verbatim.
const fallbackPhraseLength = 100

// CreateScout handles POST /api/scouts: validates the request, synthesizes
// the search source, persists the scout config, and starts its engine.
func (h *Handlers) CreateScout(w http.ResponseWriter, r *http.Request) {
	var req models.CreateScoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := h.now().UTC()
	expiresAt, err := h.resolveExpiry(req.ExpiresAt, now)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Query extraction is best-effort: on failure the raw query, truncated,
	// becomes the search phrase with the default window.
	extraction, err := h.extractor.ExtractQuery(r.Context(), req.Query)
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Warn().Err(err).Msg("Query extraction failed, falling back to raw query")
		phrase := req.Query
		if len(phrase) > fallbackPhraseLength {
			phrase = phrase[:fallbackPhraseLength]
		}
		extraction = ai.Extraction{SearchPhrase: phrase, TimeSensitivity: models.Window7D}
	}

	scout := &models.Scout{
		ScoutID:   uuid.NewString(),
		Query:     req.Query,
		Email:     req.Email,
		Sources:   []models.Source{BuildSource(extraction.SearchPhrase, extraction.TimeSensitivity)},
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := h.store.For(scout.ScoutID).PutConfig(scout); err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("Failed to persist scout config")
		respondError(w, http.StatusInternalServerError, "failed to create scout")
		return
	}
	h.runner.Spawn(scout.ScoutID)

	logger := logging.Ctx(r.Context())
	logger.Info().
		Str("scout_id", scout.ScoutID).
		Str("search_phrase", extraction.SearchPhrase).
		Str("window", string(extraction.TimeSensitivity)).
		Time("expires_at", expiresAt).
		Msg("Scout created")
	respondJSON(w, http.StatusCreated, models.CreateScoutResponse{ScoutID: scout.ScoutID})
}

// resolveExpiry validates a client-supplied RFC3339 expiration or applies the
// default lifetime.
func (h *Handlers) resolveExpiry(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now.Add(h.cfg.DefaultLifetime()), nil
	}
	expiresAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("expiresAt must be an RFC3339 timestamp")
	}
	expiresAt = expiresAt.UTC()
	if !expiresAt.After(now) {
		return time.Time{}, errors.New("expiresAt must be in the future")
	}
	if expiresAt.After(now.Add(h.cfg.MaxLifetime())) {
		return time.Time{}, errors.New("expiresAt exceeds the maximum scout lifetime")
	}
	return expiresAt, nil
}

// GetScout handles GET /api/scouts/{scoutID}: returns the stored config and
// the full event log, newest first.
func (h *Handlers) GetScout(w http.ResponseWriter, r *http.Request) {
	scoutID := chi.URLParam(r, "scoutID")
	st := h.store.For(scoutID)

	cfg, err := st.GetConfig()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "scout not found")
			return
		}
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Str("scout_id", scoutID).Msg("Failed to load scout config")
		respondError(w, http.StatusInternalServerError, "failed to load scout")
		return
	}

	events, err := st.ListEvents()
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Str("scout_id", scoutID).Msg("Failed to list events")
		respondError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	respondJSON(w, http.StatusOK, models.ScoutDetailResponse{Config: cfg, Events: events})
}

// DeleteScout handles DELETE /api/scouts/{scoutID}: stops the engine, wipes
// all stored state, and responds 200 whether or not the scout existed.
func (h *Handlers) DeleteScout(w http.ResponseWriter, r *http.Request) {
	scoutID := chi.URLParam(r, "scoutID")

	// Stop the engine before wiping so no step writes land after the wipe.
	h.runner.Terminate(scoutID)
	if err := h.store.For(scoutID).Wipe(); err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Str("scout_id", scoutID).Msg("Failed to wipe scout state")
		respondError(w, http.StatusInternalServerError, "failed to delete scout")
		return
	}

	logger := logging.Ctx(r.Context())
	logger.Info().Str("scout_id", scoutID).Msg("Scout deleted")
	respondJSON(w, http.StatusOK, models.DeleteScoutResponse{OK: true, ScoutID: scoutID})
}

// Health handles GET /api/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.ListScoutIDs()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	respondJSON(w, http.StatusOK, models.HealthResponse{
		Status:  "ok",
		Version: h.version,
		Scouts:  len(ids),
	})
}
