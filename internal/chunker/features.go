package chunker

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var digitPattern = regexp.MustCompile(`\d`)

// measurementPatterns match dimension notations found in drawings and specs
var measurementPatterns = []*regexp.Regexp{
	// 12'-6", 3'-0", 10' - 4 1/2"
	regexp.MustCompile(`\d+\s*'\s*-?\s*\d+(?:\s+\d+/\d+)?\s*"`),
	// 12', 36", 3 1/2"
	regexp.MustCompile(`\d+(?:\s+\d+/\d+)?\s*['"]`),
	// 3.5 ft, 200 mm, 4,000 psi, 16 ga
	regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)*\s*(?:mm|cm|m|meters?|ft|feet|foot|inch|inches|yd|yards?|sf|sq\.?\s?ft|lf|psi|psf|ksi|lbs?|kg|mils?|ga|gauge)\b`),
	// 3-0x7-0 door sizes (feet-inches shorthand)
	regexp.MustCompile(`\b\d{1,2}-\d{1,2}\s*[xX×]\s*\d{1,2}-\d{1,2}\b`),
	// 24 x 36, 2x4
	regexp.MustCompile(`\b\d+(?:\.\d+)?\s*[xX×]\s*\d+(?:\.\d+)?\b`),
}

var (
	scheduleVocabulary = regexp.MustCompile(`(?i)\b(?:doors?|windows?|frames?|hardware|schedules?)\b`)

	specificationLanguage = regexp.MustCompile(`(?i)\b(?:shall|must be|must not|specifications?|specified|submittals?|astm|ansi|in accordance with)\b|\b\d{2} \d{2} \d{2}\b`)

	titleMarkers = regexp.MustCompile(`(?im)^\s*(?:sheet\s*(?:no\.?|number|title)?\s*[:#]|title\s*:|drawing\s*(?:no\.?|number|title)?\s*[:#]|project\s*(?:name|no\.?|number)?\s*:|sheet\s+[a-z]{1,2}-?\d{1,3}(?:\.\d+)?\b)`)

	multiSpace = regexp.MustCompile(` {2,}`)
)

// domainTerms is the construction vocabulary recorded in MatchedTerms
var domainTerms = []string{
	"addendum", "anchor", "beam", "ceiling", "change order", "clearance",
	"column", "concrete", "detail", "dimension", "door", "drywall", "egress",
	"electrical", "elevation", "finish", "fire rating", "footing", "foundation",
	"frame", "glazing", "gypsum", "hardware", "hvac", "insulation", "joist",
	"masonry", "mechanical", "plumbing", "rebar", "rfi", "roof", "schedule",
	"sheet", "slab", "specification", "steel", "stud", "submittal", "wall",
	"window",
}

var domainTermPatterns = compileTerms(domainTerms)

func compileTerms(terms []string) map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(terms))
	for _, term := range terms {
		// allow simple plurals ("doors", "schedules")
		out[term] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `(?:s|es)?\b`)
	}
	return out
}

// HasNumbers reports whether text contains any digit
func HasNumbers(text string) bool {
	return digitPattern.MatchString(text)
}

// HasMeasurements reports whether text contains a dimension notation
func HasMeasurements(text string) bool {
	for _, p := range measurementPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// MatchTerms returns the sorted, de-duplicated domain terms present in text
func MatchTerms(text string) []string {
	var found []string
	for term, p := range domainTermPatterns {
		if p.MatchString(text) {
			found = append(found, term)
		}
	}
	sort.Strings(found)
	return found
}

// looksTabular detects delimiter-aligned columns over at least two lines
func looksTabular(section string) bool {
	lines := nonEmptyLines(section)
	if len(lines) < 2 {
		return false
	}

	cols, aligned := 0, 0
	for _, line := range lines {
		n := columnCount(line)
		if n < 2 {
			continue
		}
		if cols == 0 {
			cols = n
		}
		if n == cols {
			aligned++
		}
	}

	return aligned >= 2 && aligned*2 >= len(lines)
}

func columnCount(line string) int {
	line = strings.TrimSpace(line)
	switch {
	case strings.Contains(line, "|"):
		return len(strings.Split(strings.Trim(line, "|"), "|"))
	case strings.Contains(line, "\t"):
		return len(strings.Split(line, "\t"))
	default:
		return len(multiSpace.Split(line, -1))
	}
}

// looksLikeHeader is true for all-caps text or sections carrying title/sheet markers
func looksLikeHeader(section string) bool {
	if titleMarkers.MatchString(section) {
		return true
	}

	letters, upper := 0, 0
	for _, r := range section {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters >= 3 && upper == letters
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
