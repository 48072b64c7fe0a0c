// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package fetch

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "plain body text",
			html: `<html><body><p>SpaceX launch scheduled</p></body></html>`,
			want: "SpaceX launch scheduled",
		},
		{
			name: "script and style removed",
			html: `<html><head><title>t</title></head><body><script>var x = 1;</script><style>.a{}</style><p>visible</p></body></html>`,
			want: "visible",
		},
		{
			name: "whitespace collapsed",
			html: "<html><body><div>first</div>\n\n\t  <div>second</div></body></html>",
			want: "first second",
		},
		{
			name: "noscript and iframe removed",
			html: `<body><noscript>enable js</noscript><iframe src="x"></iframe><span>content</span></body>`,
			want: "content",
		},
		{
			name: "empty document",
			html: ``,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractText(strings.NewReader(tt.html), 0)
			if err != nil {
				t.Fatalf("ExtractText: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractText: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractTextCapsLength(t *testing.T) {
	html := "<body><p>" + strings.Repeat("word ", 100) + "</p></body>"
	got, err := ExtractText(strings.NewReader(html), 50)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if len(got) > 50 {
		t.Errorf("text length: got %d, want <= 50", len(got))
	}
}

func TestTruncateUTF8PreservesRunes(t *testing.T) {
	s := strings.Repeat("é", 10) // 2 bytes per rune
	got := truncateUTF8(s, 5)
	if !utf8.ValidString(got) {
		t.Errorf("truncateUTF8 split a rune: %q", got)
	}
	if len(got) != 4 {
		t.Errorf("truncated length: got %d, want 4", len(got))
	}
}

func TestCosmeticRerenderIsStable(t *testing.T) {
	a := "<html><body>  <p>same   content</p>\n</body></html>"
	b := "<html><body><p>same content</p></body></html>"

	textA, err := ExtractText(strings.NewReader(a), 0)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	textB, err := ExtractText(strings.NewReader(b), 0)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if HashText(textA) != HashText(textB) {
		t.Errorf("cosmetic re-render changed hash: %q vs %q", textA, textB)
	}
}
