package figures

import (
	"path"
	"strings"
)

type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyExact
	StrategyNormalizedSubstring
	StrategyReverseSubstring
	StrategyWordOverlap
)

func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyNormalizedSubstring:
		return "normalized_substring"
	case StrategyReverseSubstring:
		return "reverse_substring"
	case StrategyWordOverlap:
		return "word_overlap"
	default:
		return "none"
	}
}

type MatchRequest struct {
	RequestedName string
}

type MatchResult struct {
	Matched   bool
	Candidate Candidate
	Strategy  Strategy
}

type stage struct {
	strategy Strategy
	match    func(q query, c Candidate) bool
}

// Cheapest and most precise first. Word overlap may over-match, so it stays last.
var cascade = []stage{
	{StrategyExact, matchExact},
	{StrategyNormalizedSubstring, matchNormalizedSubstring},
	{StrategyReverseSubstring, matchReverseSubstring},
	{StrategyWordOverlap, matchWordOverlap},
}

type query struct {
	full    string
	stem    string
	compact string
	tokens  []string
}

func newQuery(requested string) query {
	full := strings.ToLower(strings.TrimSpace(requested))
	stem := full
	if ext := path.Ext(full); imageExtensions[ext] {
		stem = strings.TrimSuffix(full, ext)
	}
	stem = strings.TrimSpace(stem)
	return query{
		full:    full,
		stem:    stem,
		compact: compact(stem),
		tokens:  wordTokens(stem),
	}
}

// Resolve runs the matching cascade and returns the first candidate, in
// index order, of the first stage that matches anything.
func Resolve(req MatchRequest, idx Index) MatchResult {
	q := newQuery(req.RequestedName)
	if q.stem == "" || len(idx.candidates) == 0 {
		return MatchResult{}
	}
	for _, st := range cascade {
		for _, c := range idx.candidates {
			if st.match(q, c) {
				return MatchResult{Matched: true, Candidate: c, Strategy: st.strategy}
			}
		}
	}
	return MatchResult{}
}

func matchExact(q query, c Candidate) bool {
	if q.full == c.NormalizedName {
		return true
	}
	return q.full == strings.ToLower(path.Base(strings.TrimSpace(c.RawName)))
}

func matchNormalizedSubstring(q query, c Candidate) bool {
	if q.compact == "" || c.Compact == "" {
		return false
	}
	return strings.Contains(c.Compact, q.compact) || strings.Contains(q.compact, c.Compact)
}

func matchReverseSubstring(q query, c Candidate) bool {
	return strings.Contains(c.NormalizedName, q.stem)
}

func matchWordOverlap(q query, c Candidate) bool {
	if len(q.tokens) == 0 {
		return false
	}
	for _, tok := range q.tokens {
		if !strings.Contains(c.NormalizedName, tok) {
			return false
		}
	}
	return true
}

func wordTokens(stem string) []string {
	parts := strings.FieldsFunc(stem, func(r rune) bool {
		switch r {
		case '_', '-', ' ', '\t':
			return true
		}
		return false
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len([]rune(p)) > 2 {
			out = append(out, p)
		}
	}
	return out
}
