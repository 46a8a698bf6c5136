package repository

import (
	"context"
	"testing"

	"github.com/jobops/jobops-api/internal/models"
)

func insertEvidenceJob(t *testing.T, repos *Repositories, jobKey string, status models.JobStatus) {
	t.Helper()
	ctx := context.Background()
	job := testJob(jobKey)
	if err := repos.Job.Upsert(ctx, job); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if status != models.JobStatusNew {
		if err := repos.Job.SetStatus(ctx, jobKey, status, models.SystemStatusNone); err != nil {
			t.Fatalf("SetStatus() error = %v", err)
		}
	}
}

func TestEvidenceRepository_UpsertBatchKeepsIDs(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	insertEvidenceJob(t, repos, "linkedin:ev1", models.JobStatusNew)

	first := []models.Evidence{
		{
			JobKey:          "linkedin:ev1",
			RequirementType: models.RequirementMust,
			RequirementText: "roadmap ownership",
			Matched:         true,
			EvidenceSource:  models.EvidenceFromSummary,
			EvidenceText:    "owned roadmap",
			ConfidenceScore: 95,
		},
		{
			JobKey:          "linkedin:ev1",
			RequirementType: models.RequirementNice,
			RequirementText: "sql",
			Matched:         false,
			EvidenceSource:  models.EvidenceFromNone,
			Notes:           "No deterministic match in resume summary, bullets, or JD text",
		},
	}
	if err := repos.Evidence.UpsertBatch(ctx, first); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}
	if first[0].ID == "" || first[1].ID == "" {
		t.Fatal("UpsertBatch() did not assign ids")
	}

	rows, err := repos.Evidence.ListByJobKey(ctx, "linkedin:ev1")
	if err != nil {
		t.Fatalf("ListByJobKey() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	idByText := map[string]string{}
	for _, row := range rows {
		idByText[row.RequirementText] = row.ID
	}

	// Rebuild the same requirement with a new outcome. Row identity survives.
	second := []models.Evidence{
		{
			JobKey:          "linkedin:ev1",
			RequirementType: models.RequirementNice,
			RequirementText: "sql",
			Matched:         true,
			EvidenceSource:  models.EvidenceFromBullets,
			EvidenceText:    "ran sql analyses",
			ConfidenceScore: 88,
		},
	}
	if err := repos.Evidence.UpsertBatch(ctx, second); err != nil {
		t.Fatalf("UpsertBatch() rebuild error = %v", err)
	}

	rows, err = repos.Evidence.ListByJobKey(ctx, "linkedin:ev1")
	if err != nil {
		t.Fatalf("ListByJobKey() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows after rebuild, want 2", len(rows))
	}
	for _, row := range rows {
		if row.RequirementText != "sql" {
			continue
		}
		if row.ID != idByText["sql"] {
			t.Errorf("rebuild changed row id: %s -> %s", idByText["sql"], row.ID)
		}
		if !row.Matched || row.EvidenceSource != models.EvidenceFromBullets || row.ConfidenceScore != 88 {
			t.Errorf("rebuild did not update outcome: %+v", row)
		}
	}
}

func TestEvidenceRepository_MissedMusts(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	for i, key := range []string{"linkedin:m1", "linkedin:m2", "linkedin:m3"} {
		insertEvidenceJob(t, repos, key, models.JobStatusArchived)
		rows := []models.Evidence{
			{
				JobKey:          key,
				RequirementType: models.RequirementMust,
				RequirementText: "Kubernetes",
				Matched:         false,
				EvidenceSource:  models.EvidenceFromNone,
			},
		}
		// Only the first job also misses experimentation.
		if i == 0 {
			rows = append(rows, models.Evidence{
				JobKey:          key,
				RequirementType: models.RequirementMust,
				RequirementText: "experimentation",
				Matched:         false,
				EvidenceSource:  models.EvidenceFromNone,
			})
		}
		if err := repos.Evidence.UpsertBatch(ctx, rows); err != nil {
			t.Fatalf("UpsertBatch() error = %v", err)
		}
	}

	missed, err := repos.Evidence.MissedMusts(ctx, models.JobStatusArchived, 2, 10)
	if err != nil {
		t.Fatalf("MissedMusts() error = %v", err)
	}
	if len(missed) != 1 {
		t.Fatalf("missed = %+v, want only requirements missed >= 2 times", missed)
	}
	if missed[0].RequirementText != "kubernetes" || missed[0].MissedCount != 3 {
		t.Errorf("missed[0] = %+v, want kubernetes x3", missed[0])
	}
}
