package service

import (
	"strings"
	"testing"

	"github.com/jobops/jobops-api/internal/llm"
	"github.com/jobops/jobops-api/internal/match"
	"github.com/jobops/jobops-api/internal/models"
)

func packTestJob() *models.Job {
	return &models.Job{
		JobKey:       "linkedin:3847291038",
		JobURL:       "https://www.linkedin.com/jobs/view/3847291038/",
		RoleTitle:    "Senior Product Manager",
		Company:      "Brightpath",
		JDTextClean:  strings.Repeat("Own the roadmap, run experiments, work with sql. ", 10),
		JDSource:     models.JDSourceFetched,
		MustKeywords: []string{"roadmap", "sql", "stakeholder management"},
		NiceKeywords: []string{"a/b testing"},
	}
}

func packTestProfile() models.ProfileData {
	return models.ProfileData{
		Basics: models.ProfileBasics{
			Name:     "Priya Sharma",
			Email:    "priya@example.com",
			Location: "Bengaluru",
		},
		Summary: "Shipped roadmap resets for two product lines across EMEA markets.",
		Experience: []models.ExperienceItem{
			{
				Company: "Acme",
				Role:    "Product Manager",
				Bullets: []string{
					"Led roadmap planning for 3 squads over 6 quarters",
					"Built sql dashboards for funnel analysis",
					"Ran stakeholder management reviews with 4 directors",
				},
			},
		},
		Skills: []string{"roadmap", "sql", "discovery"},
	}
}

func TestBuildPackContent_PostConditions(t *testing.T) {
	job := packTestJob()
	profile := packTestProfile()
	focus := selectFocus(nil, job.MustKeywords)

	content := buildPackContent(job, profile, focus, models.OnePageSoft)

	if n := len(content.Summary); n < summaryMinChars || n > summaryMaxChars {
		t.Errorf("summary length = %d, want [%d, %d]", n, summaryMinChars, summaryMaxChars)
	}
	if !strings.HasPrefix(strings.ToLower(content.Summary), "roadmap") {
		t.Errorf("summary should open with the strongest must, got %q", content.Summary)
	}
	if n := len(content.Bullets); n < minBullets || n > maxBullets {
		t.Errorf("bullet count = %d, want [%d, %d]", n, minBullets, maxBullets)
	}
	for i, b := range content.Bullets {
		if !strings.HasPrefix(strings.ToLower(b), strings.ToLower(bulletLead)) {
			t.Errorf("bullet %d missing lead phrase: %q", i, b)
		}
		if len(match.Hits(b, focus)) == 0 {
			t.Errorf("bullet %d has no focus keyword: %q", i, b)
		}
	}
	if !strings.Contains(strings.ToLower(content.CoverLetter), needPhrase) {
		t.Errorf("cover letter missing %q:\n%s", needPhrase, content.CoverLetter)
	}
	if !strings.Contains(content.CoverLetter, "Dear Brightpath hiring team") {
		t.Errorf("cover letter missing salutation:\n%s", content.CoverLetter)
	}
	if bannedPhraseRe.MatchString(content.CoverLetter) {
		t.Errorf("cover letter contains a banned phrase:\n%s", content.CoverLetter)
	}
}

func TestBuildPackContent_ThinProfileStillMeetsFloors(t *testing.T) {
	job := packTestJob()
	var empty models.ProfileData

	content := buildPackContent(job, empty, selectFocus(nil, job.MustKeywords), models.OnePageSoft)

	if n := len(content.Summary); n < summaryMinChars {
		t.Errorf("summary length = %d, want >= %d even from an empty profile", n, summaryMinChars)
	}
	if n := len(content.Bullets); n < minBullets {
		t.Errorf("bullet count = %d, want >= %d via synthetic top-up", n, minBullets)
	}
}

func TestEnforceSummary(t *testing.T) {
	job := packTestJob()
	profile := packTestProfile()

	t.Run("prefixes strongest must", func(t *testing.T) {
		got := enforceSummary("Generic intro that never names the keyword at all.", "sql", job, profile)
		if !strings.HasPrefix(strings.ToLower(got), "sql") {
			t.Errorf("got %q, want sql prefix", got)
		}
	})

	t.Run("pads short input to the floor", func(t *testing.T) {
		got := enforceSummary("Tiny.", "", job, profile)
		if len(got) < summaryMinChars {
			t.Errorf("length = %d, want >= %d", len(got), summaryMinChars)
		}
	})

	t.Run("caps long input at a word boundary", func(t *testing.T) {
		long := "roadmap " + strings.Repeat("delivered outcomes across many teams ", 20)
		got := enforceSummary(long, "roadmap", job, profile)
		if len(got) > summaryMaxChars {
			t.Errorf("length = %d, want <= %d", len(got), summaryMaxChars)
		}
		if !strings.HasSuffix(got, ".") {
			t.Errorf("truncated summary should end with a period, got %q", got)
		}
	})

	t.Run("collapses whitespace", func(t *testing.T) {
		got := enforceSummary("roadmap   work\n\nacross   teams", "roadmap", job, profile)
		if strings.Contains(got, "  ") || strings.Contains(got, "\n") {
			t.Errorf("whitespace not collapsed: %q", got)
		}
	})
}

func TestEnforceBullets(t *testing.T) {
	focus := []string{"roadmap", "sql"}

	t.Run("adds lead and focus keyword", func(t *testing.T) {
		got := enforceBullets([]string{"Cut churn by 12% in two quarters"}, focus, maxBullets)
		if !strings.HasPrefix(got[0], bulletLead) {
			t.Errorf("lead missing: %q", got[0])
		}
		if len(match.Hits(got[0], focus)) == 0 {
			t.Errorf("focus keyword missing: %q", got[0])
		}
	})

	t.Run("keeps compliant bullets as-is", func(t *testing.T) {
		in := bulletLead + ": shipped the roadmap reset for two product lines"
		got := enforceBullets([]string{in}, focus, maxBullets)
		if got[0] != in {
			t.Errorf("compliant bullet rewritten:\n got %q\nwant %q", got[0], in)
		}
	})

	t.Run("tops up to the minimum", func(t *testing.T) {
		got := enforceBullets(nil, focus, maxBullets)
		if len(got) != minBullets {
			t.Errorf("count = %d, want %d", len(got), minBullets)
		}
	})

	t.Run("caps at the maximum", func(t *testing.T) {
		var in []string
		for i := 0; i < 10; i++ {
			in = append(in, "Did roadmap thing number "+strings.Repeat("x", i+1))
		}
		got := enforceBullets(in, focus, maxBullets)
		if len(got) != maxBullets {
			t.Errorf("count = %d, want %d", len(got), maxBullets)
		}
	})
}

func TestApplyOnePageCaps(t *testing.T) {
	content := llm.PackContent{
		Summary: strings.Repeat("word ", 100), // 500 chars
		Bullets: []string{"b1", "b2", "b3", "b4", "b5", "b6"},
	}

	hard := applyOnePageCaps(content, models.OnePageHard)
	if len(hard.Summary) > summaryHardCap {
		t.Errorf("hard summary length = %d, want <= %d", len(hard.Summary), summaryHardCap)
	}
	if len(hard.Bullets) != maxBulletsHard {
		t.Errorf("hard bullet count = %d, want %d", len(hard.Bullets), maxBulletsHard)
	}

	soft := applyOnePageCaps(content, models.OnePageSoft)
	if len(soft.Summary) != len(content.Summary) || len(soft.Bullets) != 6 {
		t.Error("soft mode must not trim content")
	}
}

func TestScrubBanned(t *testing.T) {
	in := "I am a perfect fit and the best candidate. I guarantee results, no doubt about it."
	got := scrubBanned(in)
	lower := strings.ToLower(got)
	for _, phrase := range []string{"perfect fit", "best candidate", "guarantee", "no doubt"} {
		if strings.Contains(lower, phrase) {
			t.Errorf("banned phrase %q survived: %q", phrase, got)
		}
	}
	if strings.Contains(got, "  ") || strings.Contains(got, " .") || strings.Contains(got, " ,") {
		t.Errorf("scrub left untidy spacing: %q", got)
	}
}

func TestSelectFocus(t *testing.T) {
	musts := []string{"roadmap", "sql"}

	if got := selectFocus([]string{"python", "Python", " ", "go"}, musts); len(got) != 2 || got[0] != "python" || got[1] != "go" {
		t.Errorf("selectFocus(selected) = %v, want [python go]", got)
	}
	if got := selectFocus(nil, musts); len(got) != 2 || got[0] != "roadmap" {
		t.Errorf("selectFocus(nil) = %v, want musts", got)
	}
	if got := selectFocus(nil, nil); len(got) != 0 {
		t.Errorf("selectFocus(nil, nil) = %v, want empty", got)
	}
}

func TestStrongestMust(t *testing.T) {
	profile := packTestProfile()

	t.Run("summary evidence wins", func(t *testing.T) {
		job := &models.Job{MustKeywords: []string{"sql", "roadmap"}}
		// Both are evidenced somewhere; "roadmap" is in the summary, "sql"
		// only in a bullet, so roadmap wins despite listing order.
		if got := strongestMust(job, profile); got != "roadmap" {
			t.Errorf("strongestMust = %q, want roadmap", got)
		}
	})

	t.Run("bullet evidence second", func(t *testing.T) {
		job := &models.Job{MustKeywords: []string{"kubernetes", "sql"}}
		if got := strongestMust(job, profile); got != "sql" {
			t.Errorf("strongestMust = %q, want sql", got)
		}
	})

	t.Run("falls back to first must", func(t *testing.T) {
		job := &models.Job{MustKeywords: []string{"kubernetes", "terraform"}}
		if got := strongestMust(job, profile); got != "kubernetes" {
			t.Errorf("strongestMust = %q, want kubernetes", got)
		}
	})

	t.Run("empty without musts", func(t *testing.T) {
		if got := strongestMust(&models.Job{}, profile); got != "" {
			t.Errorf("strongestMust = %q, want empty", got)
		}
	})
}

func TestEnforceCoverLetter(t *testing.T) {
	job := packTestJob()
	focus := []string{"roadmap"}

	t.Run("appends need phrase when missing", func(t *testing.T) {
		got := enforceCoverLetter("Short letter about my background.", job, focus)
		if !strings.Contains(strings.ToLower(got), needPhrase+" roadmap") {
			t.Errorf("need phrase not appended:\n%s", got)
		}
	})

	t.Run("keeps a compliant letter", func(t *testing.T) {
		in := "My experience aligns directly with your need for roadmap, as my record shows."
		if got := enforceCoverLetter(in, job, focus); got != in {
			t.Errorf("compliant letter rewritten:\n got %q\nwant %q", got, in)
		}
	})

	t.Run("rebuilds an empty letter", func(t *testing.T) {
		got := enforceCoverLetter("", job, focus)
		if !strings.Contains(strings.ToLower(got), needPhrase) {
			t.Errorf("rebuilt letter missing need phrase:\n%s", got)
		}
	})

	t.Run("scrubs banned phrases", func(t *testing.T) {
		got := enforceCoverLetter("I am the best candidate. My experience aligns directly with your need for roadmap.", job, focus)
		if strings.Contains(strings.ToLower(got), "best candidate") {
			t.Errorf("banned phrase survived:\n%s", got)
		}
	})
}

func TestTruncateAtWord(t *testing.T) {
	s := "alpha beta gamma delta epsilon"
	got := truncateAtWord(s, 17, 5)
	if len(got) > 18 { // boundary cut plus the closing period
		t.Errorf("length = %d, want <= 18 (%q)", len(got), got)
	}
	if strings.Contains(got, "gamm") && !strings.Contains(got, "gamma") {
		t.Errorf("cut mid-word: %q", got)
	}
	if short := truncateAtWord("abc", 10, 2); short != "abc" {
		t.Errorf("under-limit input changed: %q", short)
	}
}
