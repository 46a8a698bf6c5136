package llm

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	yearsOnlyRe   = regexp.MustCompile(`(?i)^\d+\s*\+?\s*(years?|yrs?)(\s+of\s+experience)?\.?$`)
	hostPrefixRe  = regexp.MustCompile(`(?i)^(https?://|www\.)|\.(com|io|in|net|org)$`)
	labelJunkRe   = regexp.MustCompile("^[\"'`*\\s]+|[\"'`*\\s]+$")
	digitRe       = regexp.MustCompile(`\d`)
	companyAboutRe = regexp.MustCompile(`(?m)(?:^|\n)\s*About\s+([A-Z][A-Za-z0-9&.' -]{1,60})`)
	companyColonRe = regexp.MustCompile(`(?i)\bCompany\s*:\s*([A-Za-z0-9&.' -]{2,60})`)
	companyAtRe    = regexp.MustCompile(`\bat\s+([A-Z][A-Za-z0-9&.' -]{1,60})\s*\|`)
)

// companyBoilerplate disqualifies common footer and chrome strings from
// being treated as company names.
var companyBoilerplate = []string{
	"linkedin", "unsubscribe", "job alert", "privacy policy",
	"all rights reserved", "careers page", "the company", "us",
}

// contactBoilerplate disqualifies role words the model sometimes returns in
// place of people.
var contactBoilerplate = []string{
	"hiring manager", "recruiter", "talent acquisition", "hr team",
	"human resources", "hiring team", "the team", "careers team",
}

// CleanLabel trims whitespace, wrapping quotes, markdown emphasis, and
// trailing punctuation from a human-readable label.
func CleanLabel(s string) string {
	s = labelJunkRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ".,;:")
	return s
}

// LikelyRole filters extraction noise out of role titles: single opaque
// tokens, years-of-experience fragments, hostnames, and oversized strings.
func LikelyRole(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 120 {
		return false
	}
	if yearsOnlyRe.MatchString(s) {
		return false
	}
	if hostPrefixRe.MatchString(s) {
		return false
	}
	words := strings.Fields(s)
	if len(words) == 1 && len(words[0]) > 24 {
		return false
	}
	return true
}

// LikelyCompany applies the company plausibility test: 2-80 chars, at most
// 8 words, contains letters, and is not boilerplate.
func LikelyCompany(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 2 || len(s) > 80 {
		return false
	}
	if len(strings.Fields(s)) > 8 {
		return false
	}
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return false
	}
	lower := strings.ToLower(s)
	for _, junk := range companyBoilerplate {
		if lower == junk {
			return false
		}
	}
	return true
}

// CompanyFromJD scans JD text for "About X", "Company: X" and "at X |"
// shapes and returns the first plausible company name, or "".
func CompanyFromJD(jdText string) string {
	for _, re := range []*regexp.Regexp{companyAboutRe, companyColonRe, companyAtRe} {
		if m := re.FindStringSubmatch(jdText); m != nil {
			candidate := CleanLabel(m[1])
			if LikelyCompany(candidate) {
				return candidate
			}
		}
	}
	return ""
}

// SanitizeContacts drops implausible contact names (too short, digits,
// lowercase single tokens, role boilerplate), dedupes case-insensitively,
// and caps the list at 5.
func SanitizeContacts(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, 5)
	for _, raw := range names {
		name := CleanLabel(raw)
		if len(name) < 3 {
			continue
		}
		if digitRe.MatchString(name) {
			continue
		}
		words := strings.Fields(name)
		if len(words) == 1 && !startsUpper(words[0]) {
			continue
		}
		lower := strings.ToLower(name)
		if isContactBoilerplate(lower) {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, name)
		if len(out) == 5 {
			break
		}
	}
	return out
}

func isContactBoilerplate(lower string) bool {
	for _, junk := range contactBoilerplate {
		if lower == junk {
			return true
		}
	}
	return false
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
