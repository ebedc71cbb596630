package text

import (
	"strings"
	"sync"
	"unicode"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// chains holds reusable squash transformers. A chain keeps state between
// calls, so each one is used by a single goroutine at a time and reset
// before use.
var chains = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKD,
			runes.Remove(runes.In(unicode.Mn)),
			runes.Remove(runes.Predicate(unicode.IsSpace)),
			norm.NFC,
			cases.Fold(),
		)
	},
}

// Squash reduces content to the form used for pattern matching: compatibility
// decomposed, combining marks and all whitespace removed, recomposed and case
// folded. "D Á M N" and "damn" squash to the same string.
func Squash(content string) string {
	if content == "" {
		return ""
	}
	squash := chains.Get().(transform.Transformer)
	defer chains.Put(squash)

	squash.Reset()
	out, _, err := transform.String(squash, content)
	if err != nil {
		log.WithField("error", err.Error()).Warn("text squash failed, falling back to plain folding")
		return strings.ToLower(StripSpaces(content))
	}
	return out
}

// StripSpaces removes every whitespace rune from content.
func StripSpaces(content string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, content)
}
