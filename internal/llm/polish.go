package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jobops/jobops-api/internal/models"
)

const polishSystemPrompt = `You polish draft job-application materials for tone and flow.
Respond with exactly one JSON object and nothing else:
{"summary":string,"bullets":[string],"cover_letter":string}
Rules: keep every fact and metric from the draft; never invent experience.
Keep the keyword each bullet was built around. Keep roughly the same lengths.
Never use the phrases "perfect fit", "best candidate", "guarantee" or "no doubt".`

// PackContent is the polishable body of an application pack.
type PackContent struct {
	Summary     string   `json:"summary"`
	Bullets     []string `json:"bullets"`
	CoverLetter string   `json:"cover_letter"`
}

type polishPayload struct {
	Summary     string             `json:"summary"`
	Bullets     models.FlexStrings `json:"bullets"`
	CoverLetter string             `json:"cover_letter"`
}

// PolishPack rewrites draft pack content for tone. Callers treat any error
// as "use the draft as-is"; deterministic post-conditions are re-applied
// after polish either way.
func (c *Client) PolishPack(ctx context.Context, content PackContent, job *models.Job, focus []string) (*PackContent, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}
	user, err := json.Marshal(struct {
		Role    string      `json:"role_title,omitempty"`
		Company string      `json:"company,omitempty"`
		Focus   []string    `json:"focus_keywords,omitempty"`
		Draft   PackContent `json:"draft"`
	}{job.RoleTitle, job.Company, focus, content})
	if err != nil {
		return nil, fmt.Errorf("failed to encode polish payload: %w", err)
	}

	raw, _, err := c.complete(ctx, polishSystemPrompt, string(user), c.scoreMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("polish call failed: %w", err)
	}
	obj, err := ParseFirstJSON(raw)
	if err != nil {
		return nil, err
	}
	var payload polishPayload
	if err := json.Unmarshal(obj, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModelJSON, err)
	}

	out := PackContent{
		Summary:     strings.TrimSpace(payload.Summary),
		Bullets:     payload.Bullets.Strings(),
		CoverLetter: strings.TrimSpace(payload.CoverLetter),
	}
	// A polish that drops content is worse than no polish.
	if out.Summary == "" {
		out.Summary = content.Summary
	}
	if len(out.Bullets) != len(content.Bullets) {
		out.Bullets = content.Bullets
	}
	if out.CoverLetter == "" {
		out.CoverLetter = content.CoverLetter
	}
	return &out, nil
}
