// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package fetch

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// ExtractText reduces an HTML document to its visible text, capped at
// maxBytes. Script, style, and other non-content elements are dropped and
// whitespace runs are collapsed so that cosmetic re-renders of the same page
// produce identical text.
func ExtractText(r io.Reader, maxBytes int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript, svg, iframe, head").Remove()

	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}
	text = collapseWhitespace(text)

	if maxBytes > 0 && len(text) > maxBytes {
		text = truncateUTF8(text, maxBytes)
	}
	return text, nil
}

// collapseWhitespace replaces every whitespace run with a single space.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
