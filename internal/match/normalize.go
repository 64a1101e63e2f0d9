// Package match ranks customer records against a free-text company name and
// detects which submitted contact fields differ from a stored record.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalTokens are legal-entity words dropped during name normalization.
var legalTokens = map[string]bool{
	"ltd":          true,
	"limited":      true,
	"inc":          true,
	"incorporated": true,
	"pvt":          true,
	"private":      true,
	"llc":          true,
	"corp":         true,
	"corporation":  true,
	"co":           true,
	"company":      true,
	"pte":          true,
	"tbk":          true,
	"pt":           true,
}

// legalPairs are two-word legal forms, first word -> second word.
var legalPairs = map[string]string{
	"sdn": "bhd",
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	symbolRe     = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// Normalize canonicalizes a company name for comparison:
//  1. Lower-cases, folds diacritics and collapses whitespace
//  2. Drops legal-entity words (ltd, inc, pt, "sdn bhd", ...), with or
//     without a trailing period, anywhere after the first word that has
//     a letter or digit
//  3. Strips everything that is not a letter, digit or space
//
// The steps repeat until the output is stable, so Normalize is idempotent.
// The result is for comparison only, never for display or storage.
func Normalize(name string) string {
	out := normalizeOnce(name)
	for {
		next := normalizeOnce(out)
		if next == out {
			return out
		}
		out = next
	}
}

func normalizeOnce(name string) string {
	s := strings.ToLower(foldDiacritics(name))
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	kept := make([]string, 0, len(words))
	leading := true
	for i := 0; i < len(words); i++ {
		core := tokenCore(words[i])
		if leading {
			// The first word with a letter or digit is the name itself.
			kept = append(kept, words[i])
			leading = core == ""
			continue
		}
		if legalTokens[core] {
			continue
		}
		if second, ok := legalPairs[core]; ok && i+1 < len(words) && tokenCore(words[i+1]) == second {
			i++
			continue
		}
		kept = append(kept, words[i])
	}

	s = symbolRe.ReplaceAllString(strings.Join(kept, " "), "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// tokenCore strips surrounding punctuation so "corp.", "(ltd)" and "inc,"
// compare as their bare word.
func tokenCore(word string) string {
	return strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// foldDiacritics maps "é" to "e", "ü" to "u" and so on. Input that cannot be
// transformed is returned unchanged. Transformers carry state, so each call
// builds its own chain.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
