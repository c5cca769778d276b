package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"planthealth/pkg/domain"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Filter returns the entries whose plant or symptom tags contain any
// whitespace-delimited keyword of filter as a case- and
// accent-insensitive substring. Result order follows the input listing.
//
// An all-whitespace filter splits into a single empty keyword that
// substring-matches every entry; callers wanting "no filter" semantics
// must guard before calling.
func Filter(filter string, entries []domain.BlogEntry) []domain.BlogEntry {
	keywords := strings.Fields(strings.TrimSpace(filter))
	if len(keywords) == 0 {
		keywords = []string{""}
	}
	for i, kw := range keywords {
		keywords[i] = fold(kw)
	}

	matched := make([]domain.BlogEntry, 0, len(entries))
	for _, entry := range entries {
		if entryMatches(entry, keywords) {
			matched = append(matched, entry)
		}
	}
	return matched
}

func entryMatches(entry domain.BlogEntry, keywords []string) bool {
	for _, kw := range keywords {
		for _, tag := range entry.Plants {
			if strings.Contains(fold(tag), kw) {
				return true
			}
		}
		for _, tag := range entry.Symptoms {
			if strings.Contains(fold(tag), kw) {
				return true
			}
		}
	}
	return false
}

// fold lowercases and strips combining diacritical marks.
func fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}
