// Package moderation screens user content and renders it for display.
package moderation

import (
	"sort"
	"strings"
	"unicode"
)

// defaultWords is extended per deployment with moderation_extra_words.
var defaultWords = []string{
	"damn", "darn", "crap", "shit", "fuck", "bitch", "bastard", "asshole", "dick", "piss",
}

// Filter flags content containing listed words
type Filter struct {
	words map[string]struct{}
}

// NewFilter creates a filter from the default list plus extra words
func NewFilter(extra []string) *Filter {
	f := &Filter{words: make(map[string]struct{}, len(defaultWords)+len(extra))}
	for _, w := range append(append([]string{}, defaultWords...), extra...) {
		if w = normalize(w); w != "" {
			f.words[w] = struct{}{}
		}
	}
	return f
}

// Screen returns the sorted, distinct listed words found in text
func (f *Filter) Screen(text string) []string {
	found := make(map[string]struct{})
	for _, field := range strings.Fields(text) {
		word := normalize(field)
		if _, ok := f.words[word]; ok {
			found[word] = struct{}{}
		}
	}
	if len(found) == 0 {
		return nil
	}

	out := make([]string, 0, len(found))
	for w := range found {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// normalize lowercases and strips everything but letters and digits
func normalize(word string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, word)
}
