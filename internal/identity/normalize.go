// Package identity provides the name-based identity matching used when
// merging players across games. Matching by normalized display name is a
// best-effort heuristic: two different people sharing a name will collide,
// which is accepted.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize folds a display name into its identity key: diacritics removed,
// lowercased, surrounding whitespace trimmed and inner runs collapsed to a
// single space. "Émile " and " emile" normalize to the same key.
func Normalize(name string) string {
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Match reports whether two display names resolve to the same identity.
func Match(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
