package search

import (
	"strings"

	"github.com/maryam-tariqq/DSA-Project/internal/textproc"
	apperrors "github.com/maryam-tariqq/DSA-Project/pkg/errors"
)

// Mode selects how multi-term queries combine.
type Mode int

const (
	// ModeAny matches documents containing at least one query term.
	ModeAny Mode = iota
	// ModeAll matches documents containing every query term.
	ModeAll
)

func (m Mode) String() string {
	if m == ModeAll {
		return "all"
	}
	return "any"
}

// ParseMode maps the wire-level mode parameter. The empty string means
// the default disjunctive mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "or":
		return ModeAny, nil
	case "all", "and":
		return ModeAll, nil
	default:
		return ModeAny, apperrors.Newf(apperrors.ErrInvalidInput, 400, "unknown query mode %q", s)
	}
}

// Plan is a parsed query: normalized include terms, normalized exclude
// terms, and the effective mode.
type Plan struct {
	Terms    []string
	Exclude  []string
	Mode     Mode
	RawQuery string
}

// Parse normalizes the query into a Plan. Inline AND/OR operators
// override the requested mode; NOT marks the following word as an
// exclusion. Words that normalize to nothing (stop words, punctuation)
// are dropped, as are duplicate terms.
func Parse(query string, mode Mode) *Plan {
	plan := &Plan{
		Terms:    make([]string, 0),
		Exclude:  make([]string, 0),
		Mode:     mode,
		RawQuery: query,
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	seen := make(map[string]struct{})
	excludeNext := false
	for _, word := range strings.Fields(query) {
		switch strings.ToUpper(word) {
		case "AND":
			plan.Mode = ModeAll
			continue
		case "OR":
			plan.Mode = ModeAny
			continue
		case "NOT":
			excludeNext = true
			continue
		}
		terms := textproc.NormalizeQuery(word)
		if len(terms) == 0 {
			excludeNext = false
			continue
		}
		for _, term := range terms {
			if excludeNext {
				plan.Exclude = append(plan.Exclude, term)
				continue
			}
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			plan.Terms = append(plan.Terms, term)
		}
		excludeNext = false
	}
	return plan
}
