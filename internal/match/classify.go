package match

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/intake-match/internal/customer"
)

// Type names the rule that produced a match, in precedence order.
type Type string

// Match types.
const (
	TypeExact      Type = "exact"
	TypeStartsWith Type = "startsWith"
	TypeContains   Type = "contains"
	TypeFuzzy      Type = "fuzzy"
)

// Confidence is a coarse bucketing of a score for presentation.
type Confidence string

// Confidence tiers.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Scoring constants.
const (
	ExactScore       = 100
	StartsWithBase   = 90
	ContainsBase     = 75
	ContainsStep     = 2
	FuzzyScale       = 70
	EmailDomainBonus = 15

	HighConfidenceScore   = 90
	MediumConfidenceScore = 70

	DefaultFuzzyThreshold  = 0.6
	DefaultAutoAcceptScore = 90
)

// similarityEpsilon absorbs float error at the fuzzy threshold so a ratio
// computed as exactly 0.6 is never rejected.
const similarityEpsilon = 1e-9

// Result is one ranked candidate. It is recomputed per search and never
// persisted.
type Result struct {
	Customer   customer.Record `json:"customer"`
	Score      int             `json:"score"`
	Type       Type            `json:"match_type"`
	Confidence Confidence      `json:"confidence"`
}

// Groups partitions results for presentation.
type Groups struct {
	Exact   []Result `json:"exact"`
	Partial []Result `json:"partial"`
	Fuzzy   []Result `json:"fuzzy"`
}

// Options holds the tunable thresholds. The zero value is not useful; start
// from DefaultOptions.
type Options struct {
	// FuzzyThreshold is the minimum similarity for a fuzzy match; candidates
	// below it are dropped.
	FuzzyThreshold float64 `json:"fuzzy_threshold"`
	// AutoAcceptScore is the minimum score FindBestMatch accepts.
	AutoAcceptScore int `json:"auto_accept_score"`
}

// DefaultOptions are the thresholds used by the package-level functions.
var DefaultOptions = Options{
	FuzzyThreshold:  DefaultFuzzyThreshold,
	AutoAcceptScore: DefaultAutoAcceptScore,
}

// ConfidenceFor maps a score to its tier: >=90 high, >=70 medium, else low.
func ConfidenceFor(score int) Confidence {
	switch {
	case score >= HighConfidenceScore:
		return ConfidenceHigh
	case score >= MediumConfidenceScore:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Classify ranks candidates against term using DefaultOptions.
func Classify(term string, candidates []customer.Record) []Result {
	return DefaultOptions.Classify(term, candidates)
}

// FindBestMatch returns the top result when it scores at least 90.
func FindBestMatch(term string, candidates []customer.Record) (Result, bool) {
	return DefaultOptions.FindBestMatch(term, candidates)
}

// Classify scores every candidate against term and returns the matches sorted
// by descending score. Equal scores keep their input order. A term that is
// blank after normalization, or an empty pool, yields no results.
func (o Options) Classify(term string, candidates []customer.Record) []Result {
	normTerm := Normalize(term)
	if normTerm == "" || len(candidates) == 0 {
		return nil
	}

	needle := strings.ToLower(strings.TrimSpace(term))
	termDomain := ""
	if strings.Contains(term, "@") {
		termDomain = emailDomain(term)
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		typ, score, ok := o.score(term, normTerm, needle, c.CompanyName)
		if !ok {
			continue
		}
		if termDomain != "" && emailDomain(c.Email) == termDomain {
			score += EmailDomainBonus
		}
		score = clampScore(score)
		results = append(results, Result{
			Customer:   c,
			Score:      score,
			Type:       typ,
			Confidence: ConfidenceFor(score),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// score applies the precedence rules to one candidate name. ok is false when
// the candidate falls below the fuzzy threshold.
func (o Options) score(term, normTerm, needle, name string) (Type, int, bool) {
	if Normalize(name) == normTerm {
		return TypeExact, ExactScore, true
	}

	hay := strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(hay, needle) {
		extra := utf8.RuneCountInString(hay) - utf8.RuneCountInString(needle)
		return TypeStartsWith, StartsWithBase - extra, true
	}
	if idx := strings.Index(hay, needle); idx >= 0 {
		pos := utf8.RuneCountInString(hay[:idx])
		return TypeContains, ContainsBase - ContainsStep*pos, true
	}

	score, ok := o.fuzzyScore(Similarity(term, name))
	return TypeFuzzy, score, ok
}

// fuzzyScore converts a similarity ratio into a fuzzy score, or reports the
// candidate as excluded.
func (o Options) fuzzyScore(sim float64) (int, bool) {
	if sim+similarityEpsilon < o.FuzzyThreshold {
		return 0, false
	}
	return int(math.Round(sim * FuzzyScale)), true
}

// FindBestMatch classifies and returns the top result if it reaches
// AutoAcceptScore.
func (o Options) FindBestMatch(term string, candidates []customer.Record) (Result, bool) {
	return o.BestOf(o.Classify(term, candidates))
}

// BestOf returns the first of already-ranked results when it reaches
// AutoAcceptScore.
func (o Options) BestOf(results []Result) (Result, bool) {
	if len(results) == 0 || results[0].Score < o.AutoAcceptScore {
		return Result{}, false
	}
	return results[0], true
}

// GroupByType buckets results into exact, partial (startsWith and contains)
// and fuzzy, keeping their relative order.
func GroupByType(results []Result) Groups {
	var g Groups
	for _, r := range results {
		switch r.Type {
		case TypeExact:
			g.Exact = append(g.Exact, r)
		case TypeStartsWith, TypeContains:
			g.Partial = append(g.Partial, r)
		case TypeFuzzy:
			g.Fuzzy = append(g.Fuzzy, r)
		}
	}
	return g
}

// emailDomain returns the lower-cased text after the last "@", or "" when
// there is none.
func emailDomain(s string) string {
	i := strings.LastIndex(s, "@")
	if i < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s[i+1:]))
}

func clampScore(score int) int {
	return min(max(score, 0), 100)
}
