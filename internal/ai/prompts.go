// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package ai

import "text/template"

// extractPromptTemplate turns a raw user query into a short search phrase and
// a time-sensitivity window.
const extractPromptTemplate = `You turn a user's monitoring request into a news search.

User request: {{printf "%q" .Query}}

Respond with a single JSON object and nothing else:
{
  "searchPhrase": "<2-7 word search phrase capturing the subject>",
  "timeSensitivity": "<one of: 1d, 7d, 30d, none>"
}

Pick "1d" for breaking/urgent topics, "7d" for current events, "30d" for slow
developments, "none" for evergreen subjects.`

// analyzePromptTemplate compares two snapshots of a search-results page and
// decides whether substantively new content appeared.
const analyzePromptTemplate = `You monitor a news search page for a user interested in:
{{printf "%q" .Query}}

PREVIOUS page text:
---
{{.OldText}}
---

CURRENT page text:
---
{{.NewText}}
---

Decide whether the CURRENT text contains a substantively new story relevant to
the user's interest that was absent from the PREVIOUS text. Page re-renders,
reordered listings, timestamps, and ads are not new content.

Respond with a single JSON object and nothing else:
{
  "isEvent": <true|false>,
  "tldr": "<at most 15 words, empty if no event>",
  "summary": "<2-4 sentences, empty if no event>",
  "highlights": ["<up to 5 short strings>"],
  "articles": [{"title": "...", "url": "...", "snippet": "...", "imageUrl": "..."}],
  "isBreaking": <true|false>
}`

// dedupePromptTemplate asks whether a candidate summary restates a recent event.
const dedupePromptTemplate = `A monitoring service detected a possible news event:

CANDIDATE: {{printf "%q" .Summary}}

Recently reported events:
{{range $i, $s := .Recent}}{{$i}}. {{$s}}
{{end}}
Is the candidate substantially the same story as any recently reported event?
Paraphrases and follow-up phrasings of the same underlying story count as the
same story.

Respond with a single JSON object and nothing else:
{"isDuplicate": <true|false>}`

var (
	extractTmpl = template.Must(template.New("extract").Parse(extractPromptTemplate))
	analyzeTmpl = template.Must(template.New("analyze").Parse(analyzePromptTemplate))
	dedupeTmpl  = template.Must(template.New("dedupe").Parse(dedupePromptTemplate))
)
