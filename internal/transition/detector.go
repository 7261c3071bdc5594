// Package transition decides from interviewer output whether the model considers the
// current section finished.
package transition

import (
	"strings"
)

// DefaultToken is the sentinel the interviewer prompt asks the model to emit when it wants
// to move to the next section.
const DefaultToken = "[[NEXT_SECTION]]"

// Source says which signal fired.
type Source string

const (
	SourceNone   Source = ""
	SourceToken  Source = "token"
	SourcePhrase Source = "phrase"
)

// Signal is the outcome of a detection.
type Signal struct {
	Source Source
	Phrase string
}

// Fired reports whether any signal was detected.
func (s Signal) Fired() bool {
	return s.Source != SourceNone
}

// Detector matches a sentinel token first and falls back to a list of phrases.
type Detector struct {
	token         string
	phrases       []string
	phraseEnabled bool
}

// Option configures a Detector.
type Option func(*Detector)

// WithToken overrides the sentinel token. An empty token disables token detection.
func WithToken(token string) Option {
	return func(d *Detector) {
		d.token = strings.TrimSpace(token)
	}
}

// WithPhrases replaces the phrase list.
func WithPhrases(phrases []string) Option {
	return func(d *Detector) {
		d.phrases = normalizeAll(phrases)
	}
}

// WithoutPhraseFallback turns off phrase matching so only the token counts.
func WithoutPhraseFallback() Option {
	return func(d *Detector) {
		d.phraseEnabled = false
	}
}

// NewDetector creates a detector with the default token and phrases.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		token:         DefaultToken,
		phrases:       normalizeAll(DefaultPhrases),
		phraseEnabled: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Token returns the sentinel token, or "" when disabled.
func (d *Detector) Token() string {
	return d.token
}

// Detect inspects assistant text. The token wins over phrases.
func (d *Detector) Detect(text string) Signal {
	if d.token != "" && strings.Contains(text, d.token) {
		return Signal{Source: SourceToken}
	}
	if !d.phraseEnabled {
		return Signal{}
	}
	if phrase, ok := d.matchPhrase(text); ok {
		return Signal{Source: SourcePhrase, Phrase: phrase}
	}
	return Signal{}
}

// DetectTransitionPhrases reports whether text contains one of the configured phrases,
// ignoring case and the punctuation characters . , ! ?
func (d *Detector) DetectTransitionPhrases(text string) bool {
	_, ok := d.matchPhrase(text)
	return ok
}

func (d *Detector) matchPhrase(text string) (string, bool) {
	normalized := Normalize(text)
	if normalized == "" {
		return "", false
	}
	for _, phrase := range d.phrases {
		if phrase != "" && strings.Contains(normalized, phrase) {
			return phrase, true
		}
	}
	return "", false
}

// Strip removes the sentinel token from text shown to the candidate.
func (d *Detector) Strip(text string) string {
	if d.token == "" {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(strings.ReplaceAll(text, d.token, ""))
}

var punctuation = strings.NewReplacer(
	".", "",
	",", "",
	"!", "",
	"?", "",
	"’", "'",
	"‘", "'",
)

// Normalize strips . , ! ? , folds curly apostrophes, trims and lowercases.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(punctuation.Replace(text)))
}

func normalizeAll(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if n := Normalize(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}
