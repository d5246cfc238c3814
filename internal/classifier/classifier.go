package classifier

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dshills/scopeiq/pkg/types"
)

// ErrOverlap is returned when a term appears in both keyword sets
var ErrOverlap = errors.New("keyword sets overlap")

// DefaultGenericTerms are general construction knowledge: codes, standards
// bodies, safety practice and material names
var DefaultGenericTerms = []string{
	"building code", "code requirement", "fire code", "electrical code", "plumbing code", "mechanical code",
	"ibc", "irc", "nfpa", "nec", "osha", "ada", "astm", "ansi", "aci", "aisc", "ashrae", "ul listed",
	"fire rating", "fire rated", "fire separation", "egress", "occupancy", "seismic", "wind load", "dead load", "live load",
	"scaffold", "scaffolding", "fall protection", "guardrail", "ppe", "lockout", "confined space", "hazard", "safety",
	"concrete", "rebar", "steel", "lumber", "drywall", "gypsum", "masonry", "insulation", "asphalt", "grout", "mortar",
	"requirement", "regulation", "standard", "compliance", "best practice", "minimum", "typical", "tolerance",
}

// DefaultProjectTerms are things only a specific job can answer
var DefaultProjectTerms = []string{
	"schedule", "permit", "contractor", "subcontractor", "budget", "milestone", "change order", "rfi",
	"submittal", "invoice", "payment", "pay application", "cost", "estimate", "bid", "deadline", "delay",
	"punch list", "daily log", "site visit", "inspection date", "owner", "architect", "phase",
	"this project", "our project", "the project", "drawing", "sheet", "addendum", "closeout",
}

// Classifier is a lexical query classifier over two disjoint keyword sets.
// It is safe for concurrent use.
type Classifier struct {
	generic []term
	project []term
}

type term struct {
	text    string
	pattern *regexp.Regexp
}

// New builds a classifier. Terms are case-insensitive. It fails when a term
// is blank or appears in both sets.
func New(genericTerms, projectTerms []string) (*Classifier, error) {
	generic, err := compileTerms(genericTerms)
	if err != nil {
		return nil, fmt.Errorf("generic terms: %w", err)
	}
	project, err := compileTerms(projectTerms)
	if err != nil {
		return nil, fmt.Errorf("project terms: %w", err)
	}

	seen := make(map[string]bool, len(generic))
	for _, t := range generic {
		seen[t.text] = true
	}
	for _, t := range project {
		if seen[t.text] {
			return nil, fmt.Errorf("%w: %q", ErrOverlap, t.text)
		}
	}

	return &Classifier{generic: generic, project: project}, nil
}

// Default returns a classifier over the built-in construction vocabulary
func Default() *Classifier {
	c, err := New(DefaultGenericTerms, DefaultProjectTerms)
	if err != nil {
		panic(fmt.Sprintf("built-in keyword sets are invalid: %v", err))
	}
	return c
}

// Classify reports which keyword sets the query hits. A query hitting both
// sets or neither is ambiguous.
func (c *Classifier) Classify(query string) types.QueryIntent {
	genericHits := match(c.generic, query)
	projectHits := match(c.project, query)

	return types.QueryIntent{
		IsGeneric:         len(genericHits) > 0 && len(projectHits) == 0,
		IsProjectSpecific: len(projectHits) > 0 && len(genericHits) == 0,
		GenericTerms:      genericHits,
		ProjectTerms:      projectHits,
	}
}

// Terms returns the normalised keyword sets
func (c *Classifier) Terms() (generic, project []string) {
	for _, t := range c.generic {
		generic = append(generic, t.text)
	}
	for _, t := range c.project {
		project = append(project, t.text)
	}
	return generic, project
}

func match(terms []term, query string) []string {
	var hits []string
	for _, t := range terms {
		if t.pattern.MatchString(query) {
			hits = append(hits, t.text)
		}
	}
	sort.Strings(hits)
	return hits
}

func compileTerms(raw []string) ([]term, error) {
	seen := make(map[string]bool, len(raw))
	terms := make([]term, 0, len(raw))
	for _, r := range raw {
		text := strings.Join(strings.Fields(strings.ToLower(r)), " ")
		if text == "" {
			return nil, errors.New("blank term")
		}
		if seen[text] {
			continue
		}
		seen[text] = true

		words := strings.Split(text, " ")
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		// whole words, phrase words separated by spaces or hyphens, simple plurals
		expr := `(?i)\b` + strings.Join(words, `[\s-]+`) + `(?:s|es)?\b`
		pattern, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("term %q: %w", r, err)
		}
		terms = append(terms, term{text: text, pattern: pattern})
	}
	return terms, nil
}
