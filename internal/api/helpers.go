// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package api

import (
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/terascout/internal/logging"
	"github.com/tomtom215/terascout/internal/models"
)

// respondJSON writes v as a JSON response body with the given status.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := logging.Logger()
		logger.Error().Err(err).Msg("Failed to encode response body")
	}
}

// respondError writes the flat {"error": message} body used by all API
// error responses.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Error: message})
}

// decodeJSON decodes a request body into v with a size cap of 1 MiB.
func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v)
}
