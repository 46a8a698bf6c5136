package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jobops/jobops-api/internal/models"
)

const scoreSystemPrompt = `You score one job posting against a list of search targets.
Respond with exactly one JSON object and nothing else (no prose, no markdown fences):
{"primary_target_id":string,"score_must":number,"score_nice":number,"final_score":number,"reject_triggered":boolean,"reject_reasons":[string],"reason_top_matches":string,"potential_contacts":[string]}
Rules: primary_target_id is the id of the best-matching target from the provided list.
score_must is the percentage (0-100) of that target's must keywords the job satisfies; score_nice likewise for nice keywords.
final_score (0-100) weighs must coverage most, then nice coverage, then role/seniority/location fit.
Set reject_triggered true only when the job hits a target reject keyword or an explicit disqualifier, and name each hit in reject_reasons.
reason_top_matches is 1-3 sentences naming the strongest concrete matches.
potential_contacts lists real people named in the posting (never generic roles such as "Hiring Manager"); use [] when none.`

// ScoreResult is the validated output of one scoring call.
type ScoreResult struct {
	PrimaryTargetID   string   `json:"primary_target_id,omitempty"`
	ScoreMust         int      `json:"score_must"`
	ScoreNice         int      `json:"score_nice"`
	FinalScore        int      `json:"final_score"`
	RejectTriggered   bool     `json:"reject_triggered"`
	RejectReasons     []string `json:"reject_reasons,omitempty"`
	ReasonTopMatches  string   `json:"reason_top_matches,omitempty"`
	PotentialContacts []string `json:"potential_contacts"`

	Usage Usage `json:"-"`
}

type scorePayload struct {
	PrimaryTargetID   string             `json:"primary_target_id"`
	ScoreMust         models.FlexInt     `json:"score_must"`
	ScoreNice         models.FlexInt     `json:"score_nice"`
	FinalScore        models.FlexInt     `json:"final_score"`
	RejectTriggered   bool               `json:"reject_triggered"`
	RejectReasons     models.FlexStrings `json:"reject_reasons"`
	ReasonTopMatches  string             `json:"reason_top_matches"`
	PotentialContacts models.FlexStrings `json:"potential_contacts"`
}

// scoreJobView and scoreTargetView pin the prompt payload to the fields the
// scorer needs, independent of how the full models evolve.
type scoreJobView struct {
	JobKey       string   `json:"job_key"`
	Source       string   `json:"source"`
	Company      string   `json:"company,omitempty"`
	RoleTitle    string   `json:"role_title,omitempty"`
	Location     string   `json:"location,omitempty"`
	WorkMode     string   `json:"work_mode,omitempty"`
	Seniority    string   `json:"seniority,omitempty"`
	MustKeywords []string `json:"must_keywords,omitempty"`
	NiceKeywords []string `json:"nice_keywords,omitempty"`
	Skills       []string `json:"skills,omitempty"`
	JDText       string   `json:"jd_text"`
}

type scoreTargetView struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	PrimaryRole    string   `json:"primary_role"`
	SeniorityPref  string   `json:"seniority_pref,omitempty"`
	LocationPref   string   `json:"location_pref,omitempty"`
	MustKeywords   []string `json:"must_keywords"`
	NiceKeywords   []string `json:"nice_keywords"`
	RejectKeywords []string `json:"reject_keywords"`
}

// ScoreJob scores job against targets and returns the validated result.
func (c *Client) ScoreJob(ctx context.Context, job *models.Job, targets []models.Target) (*ScoreResult, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no active targets to score against")
	}

	jv := scoreJobView{
		JobKey:       job.JobKey,
		Source:       string(job.SourceDomain),
		Company:      job.Company,
		RoleTitle:    job.RoleTitle,
		Location:     job.Location,
		WorkMode:     job.WorkMode,
		Seniority:    job.Seniority,
		MustKeywords: job.MustKeywords,
		NiceKeywords: job.NiceKeywords,
		Skills:       job.Skills,
		JDText:       models.TruncateChars(job.JDTextClean, maxPromptChars),
	}
	tvs := make([]scoreTargetView, 0, len(targets))
	for _, t := range targets {
		tvs = append(tvs, scoreTargetView{
			ID:             t.ID,
			Name:           t.Name,
			PrimaryRole:    t.PrimaryRole,
			SeniorityPref:  t.SeniorityPref,
			LocationPref:   t.LocationPref,
			MustKeywords:   t.MustKeywords,
			NiceKeywords:   t.NiceKeywords,
			RejectKeywords: t.RejectKeywords,
		})
	}
	user, err := json.Marshal(struct {
		Job     scoreJobView      `json:"job"`
		Targets []scoreTargetView `json:"targets"`
	}{jv, tvs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode scoring payload: %w", err)
	}

	raw, usage, err := c.complete(ctx, scoreSystemPrompt, string(user), c.scoreMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("score call failed: %w", err)
	}
	obj, err := ParseFirstJSON(raw)
	if err != nil {
		return nil, err
	}
	var payload scorePayload
	if err := json.Unmarshal(obj, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModelJSON, err)
	}
	res := validateScore(payload, targets)
	res.Usage = usage
	return res, nil
}

// validateScore clamps scores, drops a primary_target_id that is not in the
// provided target set, and sanitizes contacts.
func validateScore(p scorePayload, targets []models.Target) *ScoreResult {
	known := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		known[t.ID] = struct{}{}
	}
	res := &ScoreResult{
		ScoreMust:         clampScore(p.ScoreMust.Int()),
		ScoreNice:         clampScore(p.ScoreNice.Int()),
		FinalScore:        clampScore(p.FinalScore.Int()),
		RejectTriggered:   p.RejectTriggered,
		RejectReasons:     models.NormalizeStringSet(p.RejectReasons.Strings()),
		ReasonTopMatches:  CleanLabel(p.ReasonTopMatches),
		PotentialContacts: SanitizeContacts(p.PotentialContacts.Strings()),
	}
	if _, ok := known[p.PrimaryTargetID]; ok {
		res.PrimaryTargetID = p.PrimaryTargetID
	}
	return res
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
