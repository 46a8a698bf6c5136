package repository

import (
	"database/sql"
	"testing"

	"github.com/jobops/jobops-api/internal/database/migrations"
	"github.com/jobops/jobops-api/internal/models"
	_ "github.com/tursodatabase/go-libsql"
)

// setupTestDB creates an in-memory SQLite database for testing.
// It runs migrations and returns a database connection that will be cleaned up
// when the test completes.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// setupTestRepos creates all repositories using a test database.
func setupTestRepos(t *testing.T) *Repositories {
	t.Helper()
	db := setupTestDB(t)
	return NewRepositories(db)
}

// testJob returns a minimal ingestable job keyed by jobKey.
func testJob(jobKey string) *models.Job {
	now := models.NowMS()
	return &models.Job{
		JobKey:       jobKey,
		JobURL:       "https://www.linkedin.com/jobs/view/" + jobKey,
		SourceDomain: models.SourceLinkedIn,
		Status:       models.JobStatusNew,
		JDSource:     models.JDSourceNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// testTarget returns an active target with a small keyword set.
func testTarget(name string) *models.Target {
	return &models.Target{
		Name:           name,
		PrimaryRole:    "Product Manager",
		MustKeywords:   []string{"roadmap", "stakeholder management"},
		NiceKeywords:   []string{"sql"},
		RejectKeywords: []string{"staffing agency"},
		Active:         true,
	}
}

// testProfile returns a small resume profile.
func testProfile(name string) *models.ResumeProfile {
	return &models.ResumeProfile{
		Name: name,
		Data: models.ProfileData{
			Basics:  models.ProfileBasics{Name: "Asha Rao", Email: "asha@example.com"},
			Summary: "Product manager who owned roadmap and stakeholder management across platform teams.",
			Experience: []models.ExperienceItem{
				{
					Company: "Acme",
					Role:    "Senior PM",
					Bullets: []string{"Shipped payments platform rewrite", "Ran a/b testing program across checkout"},
				},
			},
			Skills: []string{"SQL", "Experimentation"},
		},
		IsPrimary: true,
	}
}
