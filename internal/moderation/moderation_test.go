package moderation

import (
	"reflect"
	"strings"
	"testing"
)

func TestFilter_Screen(t *testing.T) {
	f := NewFilter([]string{"Spam", ""})

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "clean", text: "How do I use row locks?", want: nil},
		{name: "empty", text: "", want: nil},
		{name: "punctuation and case", text: "Well, DARN! that is crap.", want: []string{"crap", "darn"}},
		{name: "duplicates collapse", text: "darn darn darn", want: []string{"darn"}},
		{name: "extra words", text: "buy spam now", want: []string{"spam"}},
		{name: "substring is not a match", text: "Scrappy code", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Screen(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Screen() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer()

	tests := []struct {
		name        string
		src         string
		contains    []string
		notContains []string
	}{
		{name: "markdown", src: "**bold** and `code`", contains: []string{"<strong>bold</strong>", "<code>code</code>"}},
		{name: "script stripped", src: "hi <script>alert(1)</script>", notContains: []string{"<script"}},
		{name: "links open safely", src: "[x](https://example.com)", contains: []string{`target="_blank"`, "noreferrer"}},
		{name: "gfm table", src: "| a |\n|---|\n| b |", contains: []string{"<table>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Render(tt.src)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Render() = %q, want it to contain %q", got, s)
				}
			}
			for _, s := range tt.notContains {
				if strings.Contains(got, s) {
					t.Errorf("Render() = %q, should not contain %q", got, s)
				}
			}
		})
	}
}
