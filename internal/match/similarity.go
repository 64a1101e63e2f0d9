package match

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Distance is the Levenshtein edit distance between a and b, counting
// single-rune insertions, deletions and substitutions at cost 1.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Similarity returns 1 - distance/max(len) over the normalized forms of a and
// b, in [0,1]. Identical normalized forms, including two empty ones, score 1.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1.0
	}

	maxLen := max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb))
	return 1.0 - float64(Distance(na, nb))/float64(maxLen)
}
