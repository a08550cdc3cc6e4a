// Package search implements the collision detector: it correlates
// concurrently issued queries across users and raises collision events,
// while only ever showing third parties an anonymized hint of what is
// being searched.
package search

import (
	"fmt"
	"strings"
)

// neutralGlyph is the hint for queries too short to mask meaningfully.
const neutralGlyph = "✨"

// maxMaskLen caps how many masking characters a single-word hint carries.
const maxMaskLen = 5

// AnonymizeQuery derives the lossy hint broadcast as search activity. The
// hint is never reversible to the full query:
//
//	queries under 5 characters  -> a neutral glyph
//	single words                -> first character plus masking characters
//	multi-word queries          -> word count and the first word
func AnonymizeQuery(query string) string {
	runes := []rune(query)
	if len(runes) < 5 {
		return neutralGlyph
	}

	words := strings.Fields(query)
	if len(words) == 1 {
		mask := len(runes) - 1
		if mask > maxMaskLen {
			mask = maxMaskLen
		}
		return string(runes[0]) + strings.Repeat("*", mask)
	}

	return fmt.Sprintf("%d words about %s...", len(words), words[0])
}
