package audit

import (
	"regexp"
	"strings"
)

// PatternType names a style-agnostic citation signal.
type PatternType string

const (
	PatternNormalized       PatternType = "NORMALIZED"
	PatternNumericBracket   PatternType = "NUMERIC_BRACKET"
	PatternAuthorYear       PatternType = "AUTHOR_YEAR"
	PatternAuthorPage       PatternType = "AUTHOR_PAGE"
	PatternEtAlNoPeriod     PatternType = "et_al_no_period"
	PatternEtAlWithPeriod   PatternType = "et_al_with_period"
	PatternAmpersandInParen PatternType = "AMPERSAND_IN_PAREN"
	PatternAndInParen       PatternType = "AND_IN_PAREN"
)

type detector struct {
	kind PatternType
	re   *regexp.Regexp
	// accept filters a match by the text that follows it.
	accept func(rest string) bool
}

var detectors = []detector{
	{kind: PatternNumericBracket, re: regexp.MustCompile(`\[\s*\d+(?:[\s,-]+\d+)*\s*\]`)},
	{kind: PatternAuthorYear, re: regexp.MustCompile(`\((?:[^)]+,?\s+)+(?:19|20)\d{2}[a-z]?\)`)},
	{kind: PatternAuthorPage, re: regexp.MustCompile(`\((?:[A-Z][a-zA-Z\s.']+(?:,\s+)?)\d+(?:-\d+)?\)`)},
	{kind: PatternEtAlNoPeriod, re: regexp.MustCompile(`\bet\s+al`), accept: func(rest string) bool {
		return !strings.HasPrefix(rest, ".")
	}},
	{kind: PatternEtAlWithPeriod, re: regexp.MustCompile(`\bet\s+al\.`)},
	{kind: PatternAmpersandInParen, re: regexp.MustCompile(`\([^)]*[A-Z][a-z]+\s+&\s+[A-Z][a-z]+[^)]*\)`)},
	{kind: PatternAndInParen, re: regexp.MustCompile(`\([^)]*[A-Z][a-z]+\s+and\s+[A-Z][a-z]+[^)]*\)`)},
}

// rawMatch is a detector hit as byte offsets into the scanned text.
type rawMatch struct {
	kind       PatternType
	start, end int
	context    string
}

// detect runs every detector over text in a fixed order.
func detect(text string) []rawMatch {
	var out []rawMatch
	for _, d := range detectors {
		for _, loc := range d.re.FindAllStringIndex(text, -1) {
			if d.accept != nil && !d.accept(text[loc[1]:]) {
				continue
			}
			out = append(out, rawMatch{
				kind:    d.kind,
				start:   loc[0],
				end:     loc[1],
				context: sentenceAround(text, loc[0], loc[1]),
			})
		}
	}
	return out
}

// sentenceAround returns the sentence containing text[start:end]. A sentence
// begins after the last terminator that is followed by whitespace and ends at
// the first terminator after the match.
func sentenceAround(text string, start, end int) string {
	from := 0
	if i := strings.LastIndexAny(text[:start], ".!?"); i >= 0 && i+1 < start && isSpace(text[i+1]) {
		from = i + 1
	}
	to := len(text)
	if i := strings.IndexAny(text[end:], ".!?"); i >= 0 {
		to = end + i + 1
	}
	return strings.TrimSpace(text[from:to])
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
