package repository

import (
	"context"
	"testing"

	"github.com/jobops/jobops-api/internal/models"
)

func TestScoringRunRepository_CreateAndLatest(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	if err := repos.Job.Upsert(ctx, testJob("linkedin:run1")); err != nil {
		t.Fatalf("Upsert() job error = %v", err)
	}

	first := &models.ScoringRun{
		JobKey:          "linkedin:run1",
		Source:          "linkedin",
		FinalStatus:     "REJECTED",
		HeuristicPassed: false,
		HeuristicReasons: []string{
			"reject keyword: staffing agency",
		},
		StageMetrics: map[string]models.StageMetric{
			"heuristic": {DurationMS: 2, Status: "rejected"},
		},
		TotalLatencyMS: 2,
		CreatedAt:      models.NowMS() - 1000,
	}
	if err := repos.ScoringRun.Create(ctx, first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first.ID == "" {
		t.Fatal("Create() did not assign an id")
	}

	score := 78
	second := &models.ScoringRun{
		JobKey:          "linkedin:run1",
		Source:          "linkedin",
		FinalStatus:     "SHORTLISTED",
		HeuristicPassed: true,
		StageMetrics: map[string]models.StageMetric{
			"heuristic": {DurationMS: 1, Status: "passed"},
			"ai_score":  {DurationMS: 850, Status: "ok"},
		},
		AIModel:        "claude-sonnet-4-20250514",
		AITokensIn:     1200,
		AITokensOut:    300,
		AITokensTotal:  1500,
		AILatencyMS:    850,
		TotalLatencyMS: 870,
		FinalScore:     &score,
	}
	if err := repos.ScoringRun.Create(ctx, second); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	latest, err := repos.ScoringRun.LatestByJobKey(ctx, "linkedin:run1")
	if err != nil {
		t.Fatalf("LatestByJobKey() error = %v", err)
	}
	if latest == nil {
		t.Fatal("LatestByJobKey() returned nil")
	}
	if latest.FinalStatus != "SHORTLISTED" {
		t.Errorf("FinalStatus = %s, want SHORTLISTED", latest.FinalStatus)
	}
	if latest.FinalScore == nil || *latest.FinalScore != 78 {
		t.Errorf("FinalScore = %v, want 78", latest.FinalScore)
	}
	if m, ok := latest.StageMetrics["ai_score"]; !ok || m.DurationMS != 850 {
		t.Errorf("StageMetrics = %+v", latest.StageMetrics)
	}

	runs, err := repos.ScoringRun.ListByJobKey(ctx, "linkedin:run1", 10)
	if err != nil {
		t.Fatalf("ListByJobKey() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].FinalStatus != "SHORTLISTED" || runs[1].FinalStatus != "REJECTED" {
		t.Errorf("run order = %s, %s", runs[0].FinalStatus, runs[1].FinalStatus)
	}
}

func TestScoringRunRepository_LatestMissing(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	latest, err := repos.ScoringRun.LatestByJobKey(ctx, "linkedin:none")
	if err != nil {
		t.Fatalf("LatestByJobKey() error = %v", err)
	}
	if latest != nil {
		t.Error("expected nil for job with no runs")
	}
}
