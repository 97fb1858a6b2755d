// Package normalize canonicalizes job posting text for comparison. Every
// function is pure: identical input yields identical output, independent of
// call order, and empty input normalizes to the empty value rather than an
// error.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RemoteSentinel is the canonical location for remote-friendly postings.
const RemoteSentinel = "Remote"

var (
	titleCaser = cases.Title(language.English)

	whitespaceRe  = regexp.MustCompile(`\s+`)
	punctuationRe = regexp.MustCompile(`[^\w\s\-/()&]`)
	remoteRe      = regexp.MustCompile(`(?i)\b(remote|work from home|wfh)\b`)
	stateSuffixRe = regexp.MustCompile(`,\s*[A-Z]{2}\b`)
)

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Title canonicalizes a job title: title case, abbreviation expansion with
// word-boundary matching (so "Sr" never re-matches inside "Senior"),
// punctuation stripped except "- / ( ) &", whitespace collapsed.
func Title(raw string) string {
	s := collapse(raw)
	if s == "" {
		return ""
	}
	s = titleCaser.String(s)
	for _, exp := range titleExpansions {
		s = exp.re.ReplaceAllString(s, exp.full)
	}
	s = collapse(s)
	s = punctuationRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "/", " / ")
	return collapse(s)
}

// Location canonicalizes a location string. Any remote indicator wins and
// yields RemoteSentinel. A recognized city synonym standing alone expands to
// its "City, State" form; otherwise synonyms and trailing state
// abbreviations are expanded in place and the input is returned
// whitespace-collapsed.
func Location(raw string) string {
	s := collapse(raw)
	if s == "" {
		return ""
	}
	if remoteRe.MatchString(s) {
		return RemoteSentinel
	}
	lower := strings.ToLower(s)
	for _, syn := range citySynonyms {
		if lower == syn.abbrev {
			return syn.city + ", " + syn.state
		}
	}
	for _, syn := range citySynonyms {
		s = syn.re.ReplaceAllString(s, syn.city)
	}
	s = stateSuffixRe.ReplaceAllStringFunc(s, func(m string) string {
		abbrev := strings.TrimSpace(strings.TrimPrefix(m, ","))
		if full, ok := stateNames[abbrev]; ok {
			return ", " + full
		}
		return m
	})
	return collapse(s)
}

// KeyTerms extracts the meaningful tokens of a title: normalized, lowered,
// length >= 3, with seniority indicators and stop words removed.
func KeyTerms(title string) map[string]struct{} {
	s := strings.ToLower(Title(title))
	for _, lvl := range seniorityLevels {
		s = lvl.re.ReplaceAllString(s, "")
	}
	terms := make(map[string]struct{})
	for _, word := range strings.Fields(s) {
		if len(word) < 3 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		terms[word] = struct{}{}
	}
	return terms
}

// Seniority extracts the seniority rank of a title, longest indicator first.
// ok is false when the title carries no recognizable level.
func Seniority(title string) (level int, ok bool) {
	s := strings.ToLower(Title(title))
	for _, lvl := range seniorityLevels {
		if lvl.re.MatchString(s) {
			return lvl.level, true
		}
	}
	return 0, false
}

// Company canonicalizes a company name by dropping legal suffixes and title
// casing the remainder.
func Company(raw string) string {
	s := collapse(raw)
	if s == "" {
		return ""
	}
	for _, suffix := range companySuffixes {
		s = suffix.ReplaceAllString(s, "")
	}
	return titleCaser.String(collapse(s))
}
