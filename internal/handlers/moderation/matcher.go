package moderation

import (
	"github.com/cloudflare/ahocorasick"

	"github.com/iamwavecut/swearbot/internal/utils/text"
)

// Matcher reports whether any of a fixed set of patterns occurs in a text.
// Patterns and input are both squashed (see text.Squash), so matching is
// case-insensitive and ignores whitespace. A Matcher is immutable after
// NewMatcher and safe for concurrent use.
type Matcher struct {
	automaton *ahocorasick.Matcher
	patterns  int
}

// NewMatcher compiles patterns into one Aho-Corasick automaton. Patterns that
// squash to an empty string are ignored, duplicates are kept once.
func NewMatcher(patterns []string) *Matcher {
	seen := make(map[string]struct{}, len(patterns))
	dictionary := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		squashed := text.Squash(pattern)
		if squashed == "" {
			continue
		}
		if _, ok := seen[squashed]; ok {
			continue
		}
		seen[squashed] = struct{}{}
		dictionary = append(dictionary, squashed)
	}

	m := &Matcher{patterns: len(dictionary)}
	if m.patterns > 0 {
		m.automaton = ahocorasick.NewStringMatcher(dictionary)
	}
	return m
}

// Len returns the number of compiled patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return m.patterns
}

// Match reports whether content contains at least one pattern.
func (m *Matcher) Match(content string) bool {
	if m == nil || m.automaton == nil {
		return false
	}
	squashed := text.Squash(content)
	if squashed == "" {
		return false
	}
	return len(m.automaton.MatchThreadSafe([]byte(squashed))) > 0
}
