// Package sanitize cleans user supplied review text before it is stored.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultProfanity is the word list used when none is configured.
var DefaultProfanity = []string{
	"asshole", "bastard", "bitch", "bullshit", "crap", "damn", "dick", "fuck", "fucking", "shit",
}

var whitespace = regexp.MustCompile(`[ \t\r\f\v]+`)

// maxPasses bounds the strip/unescape loop for deeply entity-encoded input.
const maxPasses = 16

// Options configures a Sanitizer.
type Options struct {
	ProfanityFilter bool
	Words           []string
}

// Sanitizer strips markup and optionally masks profanity. Clean is total and
// idempotent.
type Sanitizer struct {
	policy    *bluemonday.Policy
	profanity *regexp.Regexp
}

// New builds a Sanitizer. With ProfanityFilter set and no Words,
// DefaultProfanity is used.
func New(opts Options) *Sanitizer {
	s := &Sanitizer{policy: bluemonday.StrictPolicy()}

	if opts.ProfanityFilter {
		words := opts.Words
		if len(words) == 0 {
			words = DefaultProfanity
		}
		quoted := make([]string, 0, len(words))
		for _, w := range words {
			if w = strings.TrimSpace(w); w != "" {
				quoted = append(quoted, regexp.QuoteMeta(w))
			}
		}
		if len(quoted) > 0 {
			s.profanity = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
		}
	}
	return s
}

// Clean removes every HTML element (dropping script and style bodies),
// collapses runs of horizontal whitespace, trims the result and masks listed
// words with asterisks. The result is plain text: entities are decoded, so
// "Tom & Jerry" is stored as typed.
func (s *Sanitizer) Clean(text string) string {
	if text == "" {
		return ""
	}

	out := s.strip(text)
	out = whitespace.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)

	if s.profanity != nil {
		out = s.profanity.ReplaceAllStringFunc(out, func(m string) string {
			return strings.Repeat("*", utf8.RuneCountInString(m))
		})
	}
	return out
}

// strip removes markup and decodes entities until nothing changes, so markup
// hidden behind entities ("&lt;b&gt;") is removed rather than revealed.
func (s *Sanitizer) strip(text string) string {
	out := text
	for range maxPasses {
		next := html.UnescapeString(s.policy.Sanitize(out))
		if next == out {
			break
		}
		out = next
	}
	return out
}
