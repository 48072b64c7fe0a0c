// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package api

import (
	"net/url"

	"github.com/tomtom215/terascout/internal/models"
)

const newsSearchBase = "https://news.google.com/search"

// BuildSource materializes the single polling source for a scout from the
// extracted search phrase and time window. The window rides inside the query
// string as a "when:" token; WindowNone omits it.
func BuildSource(phrase string, window models.TimeWindow) models.Source {
	q := phrase
	if window != models.WindowNone && window.Valid() {
		q = phrase + " when:" + string(window)
	}
	return models.Source{
		URL:      newsSearchBase + "?q=" + url.QueryEscape(q),
		Label:    "google-news",
		Strategy: models.StrategyHTMLDiff,
	}
}
