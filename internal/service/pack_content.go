package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jobops/jobops-api/internal/evidence"
	"github.com/jobops/jobops-api/internal/llm"
	"github.com/jobops/jobops-api/internal/match"
	"github.com/jobops/jobops-api/internal/models"
)

// Pack content invariants. The LLM polish pass may reword freely; these are
// re-applied afterwards so the stored pack always satisfies them.
const (
	summaryMinChars = 180
	summaryMaxChars = 250
	summaryHardCap  = 320

	minBullets     = 3
	maxBullets     = 6
	maxBulletsHard = 4

	bulletLead = "Delivered measurable impact"
	needPhrase = "aligns directly with your need for"
)

var bannedPhraseRe = regexp.MustCompile(`(?i)\s*\b(?:a |the )?(?:perfect fit|best candidate|guarantee[ds]?|no doubt)\b`)

// Deterministic filler sentences used to pad a summary built from a thin
// profile up to summaryMinChars. Appended in order until the floor is met.
var summaryFillers = []string{
	"Known for pairing data with clear stakeholder communication.",
	"Comfortable owning ambiguous problems from discovery through delivery.",
	"Works closely with engineering and design to ship against measurable goals.",
	"Brings a habit of writing things down and closing the loop.",
}

// selectFocus returns the keywords the pack is tailored around: the caller's
// selection when given, otherwise the job's must keywords. Order is kept,
// duplicates and blanks dropped.
func selectFocus(selected, musts []string) []string {
	src := selected
	if len(src) == 0 {
		src = musts
	}
	seen := make(map[string]struct{}, len(src))
	out := make([]string, 0, len(src))
	for _, kw := range src {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// strongestMust picks the must keyword the summary opens with: the first one
// evidenced by the profile summary, then by an experience bullet, then the
// first must at all. Empty when the job has no musts.
func strongestMust(job *models.Job, profile models.ProfileData) string {
	if len(job.MustKeywords) == 0 {
		return ""
	}
	for _, must := range job.MustKeywords {
		if _, ok := evidence.FindIn(profile.Summary, must); ok {
			return must
		}
	}
	bullets := profile.Bullets()
	for _, must := range job.MustKeywords {
		for _, b := range bullets {
			if _, ok := evidence.FindIn(b, must); ok {
				return must
			}
		}
	}
	return job.MustKeywords[0]
}

// buildPackContent assembles the deterministic draft that polish starts from.
func buildPackContent(job *models.Job, profile models.ProfileData, focus []string, onePage models.OnePageMode) llm.PackContent {
	strongest := strongestMust(job, profile)
	capBullets := maxBullets
	if onePage == models.OnePageHard {
		capBullets = maxBulletsHard
	}
	return llm.PackContent{
		Summary:     enforceSummary(profile.Summary, strongest, job, profile),
		Bullets:     buildBullets(profile, focus, capBullets),
		CoverLetter: buildCoverLetter(job, profile, focus),
	}
}

// enforcePackContent re-applies every content post-condition. Run after polish
// and after manual edits so stored packs are uniform regardless of how the
// text was produced.
func enforcePackContent(content llm.PackContent, job *models.Job, profile models.ProfileData, focus []string, onePage models.OnePageMode) llm.PackContent {
	strongest := strongestMust(job, profile)
	capBullets := maxBullets
	if onePage == models.OnePageHard {
		capBullets = maxBulletsHard
	}
	return llm.PackContent{
		Summary:     enforceSummary(content.Summary, strongest, job, profile),
		Bullets:     enforceBullets(content.Bullets, focus, capBullets),
		CoverLetter: enforceCoverLetter(content.CoverLetter, job, focus),
	}
}

// applyOnePageCaps trims hand-edited content that exceeds the hard one-page
// limits. Soft mode leaves the content alone; the readiness gate warns instead.
func applyOnePageCaps(content llm.PackContent, onePage models.OnePageMode) llm.PackContent {
	if onePage != models.OnePageHard {
		return content
	}
	if len(content.Summary) > summaryHardCap {
		content.Summary = truncateAtWord(content.Summary, summaryHardCap, summaryMinChars)
	}
	if len(content.Bullets) > maxBulletsHard {
		content.Bullets = content.Bullets[:maxBulletsHard]
	}
	return content
}

// enforceSummary makes the summary open with the strongest matched must and
// land inside [summaryMinChars, summaryMaxChars].
func enforceSummary(s, strongest string, job *models.Job, profile models.ProfileData) string {
	s = strings.TrimSpace(strings.Join(strings.Fields(s), " "))
	if s == "" {
		s = "Hands-on operator with a record of shipping outcomes that move the numbers."
	}
	if strongest != "" && !strings.HasPrefix(strings.ToLower(s), strings.ToLower(strongest)) {
		s = capitalizeFirst(strongest) + ": " + s
	}
	s = padSummary(s, job, profile)
	if len(s) > summaryMaxChars {
		s = truncateAtWord(s, summaryMaxChars, summaryMinChars)
	}
	return s
}

// padSummary appends profile-grounded sentences until the floor is met. The
// filler pool alone clears the floor from an empty base, so this terminates
// without looping.
func padSummary(s string, job *models.Job, profile models.ProfileData) string {
	if len(s) >= summaryMinChars {
		return s
	}
	var extras []string
	if job.RoleTitle != "" {
		extras = append(extras, fmt.Sprintf("Focused on %s work.", job.RoleTitle))
	}
	if len(profile.Skills) > 0 {
		n := len(profile.Skills)
		if n > 3 {
			n = 3
		}
		extras = append(extras, fmt.Sprintf("Skilled in %s.", strings.Join(profile.Skills[:n], ", ")))
	}
	extras = append(extras, summaryFillers...)
	for _, extra := range extras {
		if len(s) >= summaryMinChars {
			break
		}
		s = strings.TrimSpace(s)
		if s != "" && !strings.HasSuffix(s, ".") {
			s += "."
		}
		s += " " + extra
	}
	return strings.TrimSpace(s)
}

// truncateAtWord cuts s to at most max bytes at a word boundary, falling back
// to a hard cut when the boundary would land below floor.
func truncateAtWord(s string, max, floor int) string {
	if len(s) <= max {
		return s
	}
	cut := strings.LastIndex(s[:max], " ")
	if cut < floor {
		cut = max - 1
	}
	return strings.TrimRight(s[:cut], " ,;:.") + "."
}

// buildBullets produces one achievement bullet per focus keyword, grounded in
// the profile bullet that mentions it, then tops up to minBullets.
func buildBullets(profile models.ProfileData, focus []string, capBullets int) []string {
	source := profile.Bullets()
	used := make(map[int]struct{}, len(source))
	var out []string
	for _, kw := range focus {
		if len(out) >= capBullets {
			break
		}
		idx := -1
		for i, pb := range source {
			if _, taken := used[i]; taken {
				continue
			}
			if match.KeywordHit(pb, kw) {
				idx = i
				break
			}
		}
		if idx >= 0 {
			used[idx] = struct{}{}
			out = append(out, focusBullet(source[idx], kw))
		}
	}
	for len(out) < minBullets {
		kw := ""
		if len(focus) > 0 {
			kw = focus[len(out)%len(focus)]
		}
		out = append(out, syntheticBullet(kw))
	}
	return out
}

// focusBullet rewrites a profile bullet under the required lead phrase.
func focusBullet(src, kw string) string {
	line := bulletLead + ": " + lowercaseFirst(strings.TrimRight(strings.TrimSpace(src), "."))
	if kw != "" && !match.KeywordHit(line, kw) {
		line += " (" + kw + ")"
	}
	return line
}

// syntheticBullet covers a focus keyword no profile bullet mentions.
func syntheticBullet(kw string) string {
	if kw == "" {
		return bulletLead + " across planning, delivery, and iteration in recent roles"
	}
	return bulletLead + " through hands-on " + kw + " work in recent roles"
}

// enforceBullets normalizes polished bullets back onto the post-conditions:
// lead phrase, one focus keyword each, count in range.
func enforceBullets(bullets, focus []string, capBullets int) []string {
	var out []string
	for _, b := range bullets {
		b = strings.TrimSpace(strings.Join(strings.Fields(b), " "))
		if b == "" {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(b), strings.ToLower(bulletLead)) {
			b = bulletLead + ": " + lowercaseFirst(strings.TrimRight(b, "."))
		}
		if len(focus) > 0 && len(match.Hits(b, focus)) == 0 {
			b += " (" + focus[len(out)%len(focus)] + ")"
		}
		out = append(out, b)
		if len(out) >= capBullets {
			break
		}
	}
	for len(out) < minBullets {
		kw := ""
		if len(focus) > 0 {
			kw = focus[len(out)%len(focus)]
		}
		out = append(out, syntheticBullet(kw))
	}
	return out
}

// buildCoverLetter writes a short grounded letter. The needPhrase sentence is
// the load-bearing part; scrubBanned keeps the tone honest.
func buildCoverLetter(job *models.Job, profile models.ProfileData, focus []string) string {
	company := job.Company
	if company == "" {
		company = "your team"
	}
	role := job.RoleTitle
	if role == "" {
		role = "this role"
	}
	kw := coverKeyword(job, focus)

	var paras []string
	paras = append(paras, fmt.Sprintf("Dear %s hiring team,", company))
	paras = append(paras, fmt.Sprintf(
		"I am writing about the %s opening. My experience %s %s, and I have shipped comparable work end to end.",
		role, needPhrase, kw))
	if ground := firstSentence(profile.Summary); ground != "" {
		paras = append(paras, ground)
	} else if bullets := profile.Bullets(); len(bullets) > 0 {
		paras = append(paras, "Most recently: "+lowercaseFirst(strings.TrimRight(bullets[0], "."))+".")
	}
	paras = append(paras, "I would welcome the chance to walk through the specifics. Thank you for your time.")
	if profile.Basics.Name != "" {
		paras = append(paras, profile.Basics.Name)
	}
	return scrubBanned(strings.Join(paras, "\n\n"))
}

// enforceCoverLetter guarantees the needPhrase sentence survives polish and
// edits, and strips banned phrases.
func enforceCoverLetter(letter string, job *models.Job, focus []string) string {
	letter = strings.TrimSpace(letter)
	if letter == "" {
		var empty models.ProfileData
		return buildCoverLetter(job, empty, focus)
	}
	letter = scrubBanned(letter)
	if !strings.Contains(strings.ToLower(letter), needPhrase) {
		kw := coverKeyword(job, focus)
		letter += fmt.Sprintf("\n\nMy experience %s %s.", needPhrase, kw)
	}
	return letter
}

// coverKeyword picks the keyword the letter names: first focus keyword, then
// the first job must, then the role title itself.
func coverKeyword(job *models.Job, focus []string) string {
	if len(focus) > 0 {
		return focus[0]
	}
	if len(job.MustKeywords) > 0 {
		return job.MustKeywords[0]
	}
	if job.RoleTitle != "" {
		return job.RoleTitle
	}
	return "this role"
}

// scrubBanned removes overclaiming phrases and tidies the spacing left behind.
func scrubBanned(s string) string {
	s = bannedPhraseRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " ,", ",")
	s = strings.ReplaceAll(s, " .", ".")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if i := strings.IndexAny(s, ".!?"); i >= 0 {
		return s[:i+1]
	}
	return s + "."
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func lowercaseFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	// Keep likely acronyms (SQL, API) intact.
	if next, _ := utf8.DecodeRuneInString(s[size:]); unicode.IsUpper(next) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
