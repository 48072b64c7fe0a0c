// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package ai

import (
	"errors"

	"github.com/goccy/go-json"
)

// ErrNoJSON is returned when a model response contains no balanced JSON object.
var ErrNoJSON = errors.New("no JSON object in model response")

// ExtractJSON locates the first balanced {...} substring in a model response
// and unmarshals it into out. Model output is untrusted input: it may wrap
// the object in prose, code fences, or trailing commentary, or contain no
// object at all.
func ExtractJSON(response string, out interface{}) error {
	raw, err := firstJSONObject(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return errors.Join(ErrNoJSON, err)
	}
	return nil
}

// firstJSONObject scans for the first balanced top-level JSON object,
// tracking string and escape state so braces inside strings don't count.
func firstJSONObject(s string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], nil
				}
			}
		}
	}
	return "", ErrNoJSON
}
