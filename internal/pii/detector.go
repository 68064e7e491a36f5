// Package pii detects and redacts personally identifiable information
// in free text. The detector is a fixed set of independent regex
// patterns; it holds no state and is safe for concurrent use.
package pii

import (
	"fmt"
	"regexp"
	"sort"
)

// MatchType identifies the category of detected PII.
type MatchType string

const (
	MatchPhone      MatchType = "phone"
	MatchSSN        MatchType = "ssn"
	MatchCreditCard MatchType = "credit_card"
	MatchEmail      MatchType = "email"
	MatchGovID      MatchType = "gov_id"
)

// Match is a single occurrence of PII in text. Start and End are
// half-open byte offsets into the source string.
type Match struct {
	Type  MatchType
	Value string
	Start int
	End   int
}

// Detection patterns. Order matters only for tie-breaking at equal
// offsets; matches are reported sorted by Start.
var (
	// Phone numbers: optional +country code, common US groupings.
	phoneRe = regexp.MustCompile(`(\+?\d{1,3}[-. ]?)?\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}\b`)

	// US Social Security numbers.
	ssnRe = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)

	// Credit cards: four groups of four, separator optional.
	ccRe = regexp.MustCompile(`\b(?:\d{4}[-. ]?){3}\d{4}\b`)

	// Email addresses.
	emailRe = regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`)

	// Government-ID-like tokens: one or two letters then 6-9 digits
	// (passport and driver's-license shapes).
	govIDRe = regexp.MustCompile(`\b[A-Z]{1,2}\d{6,9}\b`)
)

// patterns pairs each regex with its type. Each Detect call re-runs
// every pattern with a fresh cursor; nothing is cached between calls.
var patterns = []struct {
	typ MatchType
	re  *regexp.Regexp
}{
	{MatchSSN, ssnRe},
	{MatchCreditCard, ccRe},
	{MatchPhone, phoneRe},
	{MatchEmail, emailRe},
	{MatchGovID, govIDRe},
}

// Detect finds all PII matches in text, sorted ascending by Start.
// Empty input yields an empty result.
func Detect(text string) []Match {
	if text == "" {
		return nil
	}

	var matches []Match
	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			matches = append(matches, Match{
				Type:  p.typ,
				Value: text[loc[0]:loc[1]],
				Start: loc[0],
				End:   loc[1],
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End > matches[j].End
	})

	return matches
}

// Contains reports whether text holds any detectable PII.
func Contains(text string) bool {
	return len(Detect(text)) > 0
}

// Redact replaces every detected match with a [REDACTED:<type>] marker.
// Matches are consumed in start order; a match overlapping an already
// consumed region is skipped rather than double-substituted. All
// non-matched text is preserved verbatim and in order.
func Redact(text string) string {
	matches := Detect(text)
	if len(matches) == 0 {
		return text
	}

	var out []byte
	cursor := 0
	for _, m := range matches {
		if m.Start < cursor {
			continue
		}
		out = append(out, text[cursor:m.Start]...)
		out = append(out, fmt.Sprintf("[REDACTED:%s]", m.Type)...)
		cursor = m.End
	}
	out = append(out, text[cursor:]...)

	return string(out)
}
