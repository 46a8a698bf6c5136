// Package evidence deterministically matches extracted job requirements
// against a resume profile and the JD itself. No model calls: every row is
// reproducible from its inputs.
package evidence

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jobops/jobops-api/internal/models"
)

const (
	confidenceSummary = 95
	confidenceBullets = 88
	confidenceJD      = 70

	snippetWindow = 110
	snippetMax    = 220

	noMatchNotes = "No deterministic match in resume summary, bullets, or JD text"
)

// wordBoundaryOK decides whether a requirement can be wrapped in \b safely.
// Anything with punctuation (c++, node.js, a/b testing) gets a literal scan
// instead, since \b misfires next to non-word runes.
var wordBoundaryOK = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_ ]*[A-Za-z0-9_]$`)

// Requirement is one deduped (type, text) pair pulled from a job.
type Requirement struct {
	Type models.RequirementType
	Text string
}

// Requirements flattens a job's keyword groups plus its structural
// constraints into the deduped requirement list. Dedupe key is
// (type, lowercase(text)), first occurrence wins.
func Requirements(job *models.Job) []Requirement {
	var reqs []Requirement
	add := func(t models.RequirementType, texts []string) {
		for _, txt := range texts {
			txt = strings.TrimSpace(txt)
			if txt == "" {
				continue
			}
			reqs = append(reqs, Requirement{Type: t, Text: txt})
		}
	}
	add(models.RequirementMust, job.MustKeywords)
	add(models.RequirementNice, job.NiceKeywords)
	add(models.RequirementReject, job.RejectKeywords)
	add(models.RequirementConstraint, constraintTexts(job))

	seen := make(map[string]struct{}, len(reqs))
	out := make([]Requirement, 0, len(reqs))
	for _, r := range reqs {
		key := string(r.Type) + "|" + strings.ToLower(r.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// constraintTexts renders the structural extracted fields (location, work
// mode, seniority, experience band) as matchable requirement strings.
func constraintTexts(job *models.Job) []string {
	var out []string
	if job.Location != "" {
		out = append(out, job.Location)
	}
	if job.WorkMode != "" {
		out = append(out, job.WorkMode)
	}
	if job.Seniority != "" {
		out = append(out, job.Seniority)
	}
	switch {
	case job.ExperienceYearsMin != nil && job.ExperienceYearsMax != nil:
		out = append(out, fmt.Sprintf("%d-%d years experience", *job.ExperienceYearsMin, *job.ExperienceYearsMax))
	case job.ExperienceYearsMin != nil:
		out = append(out, fmt.Sprintf("%d+ years experience", *job.ExperienceYearsMin))
	case job.ExperienceYearsMax != nil:
		out = append(out, fmt.Sprintf("up to %d years experience", *job.ExperienceYearsMax))
	}
	return out
}

// Build produces one evidence row per requirement, searching resume summary,
// then each resume bullet, then the JD. The first corpus that matches wins
// and sets the confidence for the row; unmatched rows keep confidence 0 and
// source "none".
func Build(jobKey string, job *models.Job, profile models.ProfileData, jdText string) []models.Evidence {
	reqs := Requirements(job)
	bullets := profile.Bullets()
	now := models.NowMS()

	rows := make([]models.Evidence, 0, len(reqs))
	for _, req := range reqs {
		row := models.Evidence{
			JobKey:          jobKey,
			RequirementType: req.Type,
			RequirementText: req.Text,
			EvidenceSource:  models.EvidenceFromNone,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if snip, ok := FindIn(profile.Summary, req.Text); ok {
			row.Matched = true
			row.EvidenceSource = models.EvidenceFromSummary
			row.EvidenceText = snip
			row.ConfidenceScore = confidenceSummary
		} else if snip, ok := findInAny(bullets, req.Text); ok {
			row.Matched = true
			row.EvidenceSource = models.EvidenceFromBullets
			row.EvidenceText = snip
			row.ConfidenceScore = confidenceBullets
		} else if snip, ok := FindIn(jdText, req.Text); ok {
			row.Matched = true
			row.EvidenceSource = models.EvidenceFromJD
			row.EvidenceText = snip
			row.ConfidenceScore = confidenceJD
		} else {
			row.Notes = noMatchNotes
		}
		rows = append(rows, row)
	}
	return rows
}

// FindIn locates needle in text and returns a windowed snippet. Pass one:
// case-insensitive regex (word-boundary wrapped when the needle is plain
// words, literal otherwise). Pass two: whitespace-normalized lowercase
// substring scan, which rescues compound tokens split across lines.
func FindIn(text, needle string) (string, bool) {
	needle = strings.TrimSpace(needle)
	if text == "" || needle == "" {
		return "", false
	}

	pattern := regexp.QuoteMeta(needle)
	if wordBoundaryOK.MatchString(needle) {
		pattern = `\b` + pattern + `\b`
	}
	re, err := regexp.Compile(`(?i)` + pattern)
	if err == nil {
		if loc := re.FindStringIndex(text); loc != nil {
			return snippet(text, loc[0], loc[1]), true
		}
	}

	// Substring retry rescues compound tokens whose interior whitespace
	// differs from the corpus. Single tokens keep strict word-boundary
	// semantics ("sql" must not match "mysql").
	normNeedle := normalizeWS(needle)
	if !strings.Contains(normNeedle, " ") {
		return "", false
	}
	normText := normalizeWS(text)
	if i := strings.Index(normText, normNeedle); i >= 0 {
		return snippet(normText, i, i+len(normNeedle)), true
	}
	return "", false
}

func findInAny(corpora []string, needle string) (string, bool) {
	for _, c := range corpora {
		if snip, ok := FindIn(c, needle); ok {
			return snip, true
		}
	}
	return "", false
}

func normalizeWS(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// snippet cuts a ±snippetWindow byte window around [start,end), collapses
// whitespace, and marks elided edges with ellipses. Result stays under
// snippetMax bytes.
func snippet(text string, start, end int) string {
	lo := start - snippetWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + snippetWindow
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}

	var b strings.Builder
	if lo > 0 {
		b.WriteString("…")
	}
	b.WriteString(strings.Join(strings.Fields(text[lo:hi]), " "))
	if hi < len(text) {
		b.WriteString("…")
	}
	out := b.String()
	if len(out) > snippetMax {
		out = models.TruncateChars(out, snippetMax-len("…")) + "…"
	}
	return out
}
