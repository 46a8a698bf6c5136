package service

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/jobops/jobops-api/internal/match"
	"github.com/jobops/jobops-api/internal/models"
)

// niceDefaultPct stands in for nice coverage when the job carries no nice
// keywords, so a musts-only JD can still reach a full ATS score.
const niceDefaultPct = 60.0

// computeATS scores keyword coverage of the assembled pack text. In
// selected_only mode the focus keywords are the musts and nices are ignored.
func computeATS(pack *models.Pack, job *models.Job) models.ATSResult {
	content := pack.Summary + "\n" + strings.Join(pack.Bullets, "\n") + "\n" + pack.CoverLetter

	musts := job.MustKeywords
	nices := job.NiceKeywords
	if pack.ATSMode == models.ATSModeSelectedOnly {
		musts = pack.FocusKeywords
		nices = nil
	}

	matchedMust, missingMust := match.Coverage(content, musts)
	totalMust := len(matchedMust) + len(missingMust)
	mustPct := match.CoveragePct(len(matchedMust), totalMust)

	nicePct := niceDefaultPct
	var missingNice []string
	niceDefaulted := true
	if matchedNice, missNice := match.Coverage(content, nices); len(matchedNice)+len(missNice) > 0 {
		nicePct = match.CoveragePct(len(matchedNice), len(matchedNice)+len(missNice))
		missingNice = missNice
		niceDefaulted = false
	}

	notes := []string{fmt.Sprintf("must coverage %d/%d", len(matchedMust), totalMust)}
	if pack.ATSMode == models.ATSModeSelectedOnly {
		notes = append(notes, "selected_only mode: focus keywords scored as musts")
	}
	if niceDefaulted {
		notes = append(notes, fmt.Sprintf("no nice keywords; nice coverage defaulted to %.0f%%", niceDefaultPct))
	}

	return models.ATSResult{
		Score:           int(math.Round(0.7*mustPct + 0.3*nicePct)),
		MustCoveragePct: mustPct,
		NiceCoveragePct: nicePct,
		MatchedMust:     matchedMust,
		MissingKeywords: append(missingMust, missingNice...),
		Notes:           notes,
	}
}

var pmRoleRe = regexp.MustCompile(`(?i)\b(?:(?:product|program|project)\s+manager|product\s+(?:owner|lead)|head\s+of\s+product|[ts]?pm)\b`)

// pmBuckets are the five pm_v1 rubric dimensions, each scored as keyword
// coverage of the pack text.
var pmBuckets = []struct {
	name     string
	keywords []string
}{
	{"Product strategy", []string{"strategy", "roadmap", "vision", "prioritization", "okr"}},
	{"Execution and delivery", []string{"delivery", "launch", "shipped", "agile", "go-to-market"}},
	{"Data and experimentation", []string{"sql", "analytics", "a/b testing", "experimentation", "metrics"}},
	{"Stakeholder leadership", []string{"stakeholder", "cross-functional", "leadership", "alignment", "communication"}},
	{"Customer insight", []string{"customer", "user research", "discovery", "feedback", "interviews"}},
}

// attachRubrics scores the pack against the selected rubric profile and sets
// it on both the authoritative target_rubric key and the legacy pm_rubric key.
func attachRubrics(ats *models.ATSResult, pack *models.Pack, job *models.Job, target *models.Target) {
	content := pack.Summary + "\n" + strings.Join(pack.Bullets, "\n") + "\n" + pack.CoverLetter
	var rubric *models.Rubric
	switch rubricProfileFor(job, target) {
	case models.RubricPMV1:
		rubric = pmRubric(content)
	default:
		rubric = genericRubric(content, job, target, ats)
	}
	ats.TargetRubric = rubric
	ats.PMRubric = rubric
}

// rubricProfileFor resolves auto to pm_v1 when the role title reads like a
// product role, else to target_generic_v1. An explicit target setting wins.
func rubricProfileFor(job *models.Job, target *models.Target) models.RubricProfile {
	profile := models.RubricAuto
	if target != nil && target.RubricProfile != "" {
		profile = target.RubricProfile
	}
	if profile != models.RubricAuto {
		return profile
	}
	if pmRoleRe.MatchString(job.RoleTitle) {
		return models.RubricPMV1
	}
	return models.RubricTargetGeneric
}

func pmRubric(content string) *models.Rubric {
	dims := make([]models.RubricDimension, 0, len(pmBuckets))
	total := 0
	for _, bucket := range pmBuckets {
		hits := match.Hits(content, bucket.keywords)
		score := int(math.Round(match.CoveragePct(len(hits), len(bucket.keywords))))
		dims = append(dims, models.RubricDimension{
			Name:   bucket.name,
			Score:  score,
			Detail: strings.Join(hits, ", "),
		})
		total += score
	}
	return &models.Rubric{
		Profile:    models.RubricPMV1,
		Dimensions: dims,
		Overall:    total / len(pmBuckets),
	}
}

func genericRubric(content string, job *models.Job, target *models.Target, ats *models.ATSResult) *models.Rubric {
	dims := []models.RubricDimension{
		{Name: "Must coverage", Score: int(math.Round(ats.MustCoveragePct))},
		{Name: "Nice coverage", Score: int(math.Round(ats.NiceCoveragePct))},
		roleLanguageFit(content, job, target),
		seniorityLocationFit(job, target),
	}
	total := 0
	for _, d := range dims {
		total += d.Score
	}
	return &models.Rubric{
		Profile:    models.RubricTargetGeneric,
		Dimensions: dims,
		Overall:    total / len(dims),
	}
}

// roleLanguageFit measures how much of the role's vocabulary the pack speaks:
// the share of role-title tokens (target primary role when set) present in
// the pack text.
func roleLanguageFit(content string, job *models.Job, target *models.Target) models.RubricDimension {
	role := job.RoleTitle
	if target != nil && target.PrimaryRole != "" {
		role = target.PrimaryRole
	}
	roleTokens := match.Tokenize(role)
	contentTokens := match.TokenSet(content)
	found := 0
	seen := make(map[string]struct{}, len(roleTokens))
	total := 0
	for _, tok := range roleTokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		total++
		if _, ok := contentTokens[tok]; ok {
			found++
		}
	}
	return models.RubricDimension{
		Name:   "Role language fit",
		Score:  int(math.Round(match.CoveragePct(found, total))),
		Detail: fmt.Sprintf("%d/%d role tokens present", found, total),
	}
}

// seniorityLocationFit checks the job's seniority and location against the
// target's preferences. An absent preference counts as satisfied; an absent
// target scores neutral.
func seniorityLocationFit(job *models.Job, target *models.Target) models.RubricDimension {
	dim := models.RubricDimension{Name: "Seniority and location fit"}
	if target == nil {
		dim.Score = 50
		dim.Detail = "no target bound"
		return dim
	}
	score := 0
	var details []string
	if target.SeniorityPref == "" || strings.Contains(strings.ToLower(job.Seniority), strings.ToLower(target.SeniorityPref)) {
		score += 50
	} else {
		details = append(details, fmt.Sprintf("seniority %q vs preferred %q", job.Seniority, target.SeniorityPref))
	}
	if target.LocationPref == "" || locationMatches(job, target.LocationPref) {
		score += 50
	} else {
		details = append(details, fmt.Sprintf("location %q vs preferred %q", job.Location, target.LocationPref))
	}
	dim.Score = score
	dim.Detail = strings.Join(details, "; ")
	return dim
}

func locationMatches(job *models.Job, pref string) bool {
	pref = strings.ToLower(pref)
	if strings.Contains(strings.ToLower(job.Location), pref) {
		return true
	}
	// A remote job satisfies any location preference.
	return strings.EqualFold(job.WorkMode, "remote")
}
