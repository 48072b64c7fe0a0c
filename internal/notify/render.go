// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package notify

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/tomtom215/terascout/internal/models"
)

// eventHTMLTemplate renders one detected event as the notification body.
// html/template escaping keeps model-derived text inert in the mail client.
const eventHTMLTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  {{if .Event.IsBreaking}}<p style="color: #c0392b; font-weight: bold;">BREAKING</p>{{end}}
  <h2>{{.Event.TLDR}}</h2>
  <p>{{.Event.Summary}}</p>
  {{if .Event.Highlights}}
  <ul>
    {{range .Event.Highlights}}<li>{{.}}</li>{{end}}
  </ul>
  {{end}}
  {{range .Event.Articles}}
  <p><a href="{{.URL}}">{{.Title}}</a>{{if .Snippet}}<br>{{.Snippet}}{{end}}</p>
  {{end}}
  <hr>
  <p style="color: #888; font-size: 12px;">
    Terascout is watching "{{.Query}}" for you.
    Source: <a href="{{.Event.SourceURL}}">{{.Event.SourceLabel}}</a>
  </p>
</body>
</html>`

var eventTmpl = template.Must(template.New("event").Parse(eventHTMLTemplate))

// RenderEvent builds the notification message for a detected event.
func RenderEvent(to, query string, event *models.Event) (Message, error) {
	var html strings.Builder
	err := eventTmpl.Execute(&html, map[string]interface{}{
		"Event": event,
		"Query": query,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render event email: %w", err)
	}

	subject := event.TLDR
	if subject == "" {
		subject = "New development: " + query
	}
	if event.IsBreaking {
		subject = "[Breaking] " + subject
	}

	var text strings.Builder
	text.WriteString(event.TLDR)
	text.WriteString("\n\n")
	text.WriteString(event.Summary)
	for _, h := range event.Highlights {
		text.WriteString("\n- ")
		text.WriteString(h)
	}
	for _, a := range event.Articles {
		text.WriteString("\n\n")
		text.WriteString(a.Title)
		text.WriteString("\n")
		text.WriteString(a.URL)
	}

	return Message{
		To:       to,
		Subject:  subject,
		BodyHTML: html.String(),
		BodyText: text.String(),
	}, nil
}
