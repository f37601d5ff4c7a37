// Package match decides whether recognized text should trigger the match key.
package match

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// Decision is the outcome for one recognized text.
type Decision struct {
	// Act reports whether the match key should be pressed.
	Act bool
	// Matched is the first target word found in the text, or "".
	Matched string
}

// Matcher holds compiled whole-word, case-insensitive patterns for a target list.
// A word boundary is any position not flanked by a Unicode letter, digit or
// underscore, so "café" does not contain the word "caf".
type Matcher struct {
	words    []string
	patterns []*regexp2.Regexp
}

// New compiles words. Blank entries are ignored.
func New(words []string) *Matcher {
	m := &Matcher{}
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		m.words = append(m.words, w)
		m.patterns = append(m.patterns, regexp2.MustCompile(`(?<!\w)`+regexp2.Escape(w)+`(?!\w)`, regexp2.IgnoreCase))
	}
	return m
}

// Words returns the normalized target list.
func (m *Matcher) Words() []string {
	return append([]string(nil), m.words...)
}

// Find returns the first target word that occurs in text as a whole word.
func (m *Matcher) Find(text string) (string, bool) {
	for i, p := range m.patterns {
		// Only a match timeout can fail here and none is configured.
		if ok, err := p.MatchString(text); err == nil && ok {
			return m.words[i], true
		}
	}
	return "", false
}

// Decide applies the polarity: normally act when a target is present, in
// reverse mode act when none is.
func (m *Matcher) Decide(text string, reverse bool) Decision {
	word, found := m.Find(text)
	return Decision{Act: found != reverse, Matched: word}
}

// Decide is a convenience for one-off decisions.
func Decide(text string, targets []string, reverse bool) Decision {
	return New(targets).Decide(text, reverse)
}
