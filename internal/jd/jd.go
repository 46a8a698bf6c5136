// Package jd turns raw page or email content into a cleaned job-description
// body and grades how trustworthy that body is. The window extractor, the
// low-quality heuristic, and the per-source usability policy live here; the
// HTTP fetch itself lives in internal/fetch.
package jd

import (
	"strings"

	"github.com/jobops/jobops-api/internal/models"
)

const (
	// MaxJDChars caps jd_text_clean in storage.
	MaxJDChars = 12000
	// MinConfidentChars is the floor below which fetched text is never
	// graded, only fallback-checked.
	MinConfidentChars = 260
	// EmailFallbackMinChars is the default usable floor for email-derived
	// JDs. Sources with a lower policy floor (inbound messaging) use theirs.
	EmailFallbackMinChars = 180
	// LowQualityMinChars is the boilerplate length floor.
	LowQualityMinChars = 220
	// ManualJDMinChars is the floor enforced on operator-supplied JD text.
	ManualJDMinChars = 200
)

// startAnchors mark where a JD body begins inside surrounding page chrome.
var startAnchors = []string{
	"description:",
	"role overview",
	"job description",
	"key responsibilities",
	"responsibilities:",
}

// endAnchors mark trailing chrome after the JD body.
var endAnchors = []string{
	"\napply",
	"\nsave",
	"similar jobs",
	"report this job",
	"copyright",
	"unsubscribe",
}

// ExtractWindow slices text down to the JD body: start at the earliest
// start anchor (when any is present), cut before the earliest end anchor
// after it, collapse whitespace, and cap the length.
func ExtractWindow(text string) string {
	if text == "" {
		return ""
	}
	// Anchors are ASCII; lowering ASCII-only keeps byte offsets aligned
	// with the original text.
	lower := lowerASCII(text)

	start := -1
	for _, a := range startAnchors {
		if i := strings.Index(lower, a); i >= 0 && (start < 0 || i < start) {
			start = i
		}
	}
	if start > 0 {
		text = text[start:]
		lower = lower[start:]
	}

	// End anchors are searched past the first line so an anchor word in the
	// heading does not zero the window.
	from := strings.IndexByte(lower, '\n')
	if from < 0 {
		from = 0
	}
	end := -1
	for _, a := range endAnchors {
		if i := strings.Index(lower[from:], a); i >= 0 {
			if pos := from + i; end < 0 || pos < end {
				end = pos
			}
		}
	}
	if end > 0 {
		text = text[:end]
	}

	out := CollapseText(text)
	return models.TruncateChars(out, MaxJDChars)
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}

// LowQuality reports whether cleaned text is consent-wall or shell
// boilerplate rather than a posting, with a machine-readable reason.
func LowQuality(text string, sourceDomain models.SourceDomain) (bool, string) {
	if len(text) < LowQualityMinChars {
		return true, "too_short"
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "linkedin respects your privacy") {
		return true, "linkedin_privacy_shell"
	}
	if strings.Contains(lower, "enable javascript") {
		return true, "javascript_wall"
	}
	mentions := strings.Count(lower, "cookie") + strings.Count(lower, "privacy")
	if mentions >= 6 {
		return true, "cookie_privacy_boilerplate"
	}
	if sourceDomain == models.SourceLinkedIn && mentions >= 3 {
		return true, "cookie_privacy_boilerplate"
	}
	return false, ""
}

// Grade computes JD confidence from length tiers and structural anchors.
func Grade(text string) models.JDConfidence {
	score := 0
	switch n := len(text); {
	case n >= 1200:
		score += 3
	case n >= 600:
		score += 2
	case n >= MinConfidentChars:
		score++
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "responsibilit") {
		score++
	}
	if strings.Contains(lower, "qualification") || strings.Contains(lower, "requirement") {
		score++
	}
	if strings.Contains(lower, "nice to have") || strings.Contains(lower, "nice-to-have") || strings.Contains(lower, "good to have") {
		score++
	}
	switch {
	case score >= 5:
		return models.JDConfidenceHigh
	case score >= 3:
		return models.JDConfidenceMedium
	default:
		return models.JDConfidenceLow
	}
}

// Policy is the per-source usability contract for resolved JDs.
type Policy struct {
	Label                  string
	MinChars               int
	RequireFetchedHighConf bool
	AllowLowConfEmail      bool
}

// PolicyFor resolves the policy for a source domain, with the inbound
// messaging channel acting as its own pseudo-source.
func PolicyFor(sourceDomain models.SourceDomain, channel string) Policy {
	if channel == models.ChannelWhatsAppVonage {
		return Policy{Label: models.ChannelWhatsAppVonage, MinChars: 120, AllowLowConfEmail: true}
	}
	switch sourceDomain {
	case models.SourceLinkedIn:
		return Policy{Label: string(models.SourceLinkedIn), MinChars: 280, RequireFetchedHighConf: true}
	case models.SourceIIMJobs:
		return Policy{Label: string(models.SourceIIMJobs), MinChars: 220}
	case models.SourceNaukri:
		return Policy{Label: string(models.SourceNaukri), MinChars: 220}
	default:
		return Policy{Label: string(models.SourceOther), MinChars: 220}
	}
}

// EmailFloor is the minimum usable length for an email-derived JD under this
// policy. Policies with a floor below the default (inbound messaging) keep
// their lower floor.
func (p Policy) EmailFloor() int {
	if p.MinChars < EmailFallbackMinChars {
		return p.MinChars
	}
	return EmailFallbackMinChars
}

// NeedsManual decides whether a resolved JD is too weak to score under p.
// Returns the reason when manual intervention is needed.
func NeedsManual(p Policy, source models.JDSource, confidence models.JDConfidence, textLen int) (bool, string) {
	switch source {
	case models.JDSourceFetched:
		if textLen < p.MinChars {
			return true, "below_min_chars"
		}
		if p.RequireFetchedHighConf && confidence != models.JDConfidenceHigh {
			return true, "fetched_confidence_below_policy"
		}
		return false, ""
	case models.JDSourceEmail:
		if textLen < p.EmailFloor() {
			return true, "email_below_floor"
		}
		if confidence == models.JDConfidenceLow && !p.AllowLowConfEmail {
			return true, "low_confidence_email"
		}
		return false, ""
	case models.JDSourceManual:
		if textLen < ManualJDMinChars {
			return true, "manual_below_floor"
		}
		return false, ""
	default:
		return true, "no_jd"
	}
}
