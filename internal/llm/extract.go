package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/normalize"
)

// maxPromptChars bounds the JD text sent to the model. Stored JDs are
// already capped at resolve time; this is the wire-side ceiling.
const maxPromptChars = 12000

const extractSystemPrompt = `You extract structured hiring fields from a raw job description.
Respond with exactly one JSON object and nothing else (no prose, no markdown fences):
{"company":string|null,"role_title":string|null,"location":string|null,"work_mode":"Onsite"|"Hybrid"|"Remote"|null,"seniority":string|null,"experience_years_min":number|null,"experience_years_max":number|null,"must_keywords":[string],"nice_keywords":[string],"reject_keywords":[string],"skills":[string]}
must_keywords are hard requirements stated by the posting, nice_keywords are preferred extras, reject_keywords are explicit disqualifiers. Keep keywords short (1-3 words, lowercase). Use null for fields the posting does not state; never guess.`

// Extracted holds the sanitized structured fields pulled from a JD.
type Extracted struct {
	Company            string   `json:"company,omitempty"`
	RoleTitle          string   `json:"role_title,omitempty"`
	Location           string   `json:"location,omitempty"`
	WorkMode           string   `json:"work_mode,omitempty"`
	Seniority          string   `json:"seniority,omitempty"`
	ExperienceYearsMin *int     `json:"experience_years_min,omitempty"`
	ExperienceYearsMax *int     `json:"experience_years_max,omitempty"`
	MustKeywords       []string `json:"must_keywords"`
	NiceKeywords       []string `json:"nice_keywords"`
	RejectKeywords     []string `json:"reject_keywords"`
	Skills             []string `json:"skills"`

	Usage Usage `json:"-"`
}

// extractPayload is the wire shape. Flex types absorb the model returning
// CSV strings for lists or quoted numbers for years.
type extractPayload struct {
	Company            string             `json:"company"`
	RoleTitle          string             `json:"role_title"`
	Location           string             `json:"location"`
	WorkMode           string             `json:"work_mode"`
	Seniority          string             `json:"seniority"`
	ExperienceYearsMin *models.FlexInt    `json:"experience_years_min"`
	ExperienceYearsMax *models.FlexInt    `json:"experience_years_max"`
	MustKeywords       models.FlexStrings `json:"must_keywords"`
	NiceKeywords       models.FlexStrings `json:"nice_keywords"`
	RejectKeywords     models.FlexStrings `json:"reject_keywords"`
	Skills             models.FlexStrings `json:"skills"`
}

// ExtractJD runs the pinned extraction prompt over jdText and sanitizes the
// result. jobURL feeds the role-from-slug fallback when the model returns
// noise for role_title.
func (c *Client) ExtractJD(ctx context.Context, jdText, jobURL string) (*Extracted, error) {
	return c.ExtractJDMax(ctx, jdText, jobURL, 0)
}

// ExtractJDMax is ExtractJD with a one-off output-token cap for callers that
// budget per call. maxTokens outside [128,700] keeps the configured cap.
func (c *Client) ExtractJDMax(ctx context.Context, jdText, jobURL string, maxTokens int) (*Extracted, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}
	limit := c.extractMaxTokens
	if maxTokens >= 128 && maxTokens <= 700 {
		limit = int64(maxTokens)
	}
	user := "Job description:\n\n" + models.TruncateChars(jdText, maxPromptChars)
	raw, usage, err := c.complete(ctx, extractSystemPrompt, user, limit)
	if err != nil {
		return nil, fmt.Errorf("extract call failed: %w", err)
	}
	obj, err := ParseFirstJSON(raw)
	if err != nil {
		return nil, err
	}
	var payload extractPayload
	if err := json.Unmarshal(obj, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModelJSON, err)
	}
	ex := sanitizeExtracted(payload, jdText, jobURL)
	ex.Usage = usage
	return ex, nil
}

// sanitizeExtracted applies the plausibility filters and fallbacks to a raw
// model payload. Split out from ExtractJD so it is testable offline.
func sanitizeExtracted(p extractPayload, jdText, jobURL string) *Extracted {
	ex := &Extracted{
		Company:        CleanLabel(p.Company),
		RoleTitle:      CleanLabel(p.RoleTitle),
		Location:       CleanLabel(p.Location),
		Seniority:      CleanLabel(p.Seniority),
		WorkMode:       normalizeWorkMode(p.WorkMode),
		MustKeywords:   models.NormalizeStringSet(p.MustKeywords.Strings()),
		NiceKeywords:   models.NormalizeStringSet(p.NiceKeywords.Strings()),
		RejectKeywords: models.NormalizeStringSet(p.RejectKeywords.Strings()),
		Skills:         models.NormalizeStringSet(p.Skills.Strings()),
	}
	if ex.RoleTitle != "" && !LikelyRole(ex.RoleTitle) {
		ex.RoleTitle = ""
	}
	if ex.RoleTitle == "" {
		ex.RoleTitle = normalize.RoleFromSlug(jobURL)
	}
	if ex.Company != "" && !LikelyCompany(ex.Company) {
		ex.Company = ""
	}
	if ex.Company == "" {
		ex.Company = CompanyFromJD(jdText)
	}
	if p.ExperienceYearsMin != nil {
		v := p.ExperienceYearsMin.Int()
		ex.ExperienceYearsMin = &v
	}
	if p.ExperienceYearsMax != nil {
		v := p.ExperienceYearsMax.Int()
		ex.ExperienceYearsMax = &v
	}
	return ex
}

func normalizeWorkMode(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "onsite", "on-site", "on site", "in office", "office":
		return "Onsite"
	case "hybrid":
		return "Hybrid"
	case "remote", "wfh", "work from home", "fully remote":
		return "Remote"
	}
	return ""
}
