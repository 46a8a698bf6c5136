package repository

import (
	"context"
	"testing"
)

func TestProfileRepository_FirstProfileBecomesPrimary(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	profile := testProfile("default")
	profile.IsPrimary = false
	if err := repos.Profile.Upsert(ctx, profile); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repos.Profile.GetPrimary(ctx)
	if err != nil {
		t.Fatalf("GetPrimary() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetPrimary() returned nil; first profile must be primary")
	}
	if got.Name != "default" {
		t.Errorf("primary = %s, want default", got.Name)
	}
}

func TestProfileRepository_PrimaryHandover(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	first := testProfile("pm-focus")
	if err := repos.Profile.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	second := testProfile("data-focus")
	second.IsPrimary = true
	if err := repos.Profile.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	primary, err := repos.Profile.GetPrimary(ctx)
	if err != nil {
		t.Fatalf("GetPrimary() error = %v", err)
	}
	if primary == nil || primary.Name != "data-focus" {
		t.Fatalf("primary = %+v, want data-focus", primary)
	}

	profiles, err := repos.Profile.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	count := 0
	for _, p := range profiles {
		if p.IsPrimary {
			count++
		}
	}
	if count != 1 {
		t.Errorf("%d primary profiles, want exactly 1", count)
	}
}

func TestProfileRepository_UpsertByNameKeepsID(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	profile := testProfile("default")
	if err := repos.Profile.Upsert(ctx, profile); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	firstID := profile.ID

	update := testProfile("default")
	update.Data.Summary = "Updated summary with platform strategy."
	update.IsPrimary = false
	if err := repos.Profile.Upsert(ctx, update); err != nil {
		t.Fatalf("Upsert() update error = %v", err)
	}
	if update.ID != firstID {
		t.Errorf("Upsert() changed id: %s -> %s", firstID, update.ID)
	}

	got, err := repos.Profile.GetByID(ctx, firstID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Data.Summary != "Updated summary with platform strategy." {
		t.Errorf("Summary = %q, want updated", got.Data.Summary)
	}
	// Demoting via upsert is not possible; only another primary takes over.
	if !got.IsPrimary {
		t.Error("IsPrimary = false, want primary retained")
	}
}

func TestPreferenceRepository_SetAndGet(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	if err := repos.Job.Upsert(ctx, testJob("linkedin:pref1")); err != nil {
		t.Fatalf("Upsert() job error = %v", err)
	}
	profile := testProfile("alt")
	if err := repos.Profile.Upsert(ctx, profile); err != nil {
		t.Fatalf("Upsert() profile error = %v", err)
	}

	got, err := repos.Preference.Get(ctx, "linkedin:pref1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "" {
		t.Errorf("Get() = %q before set, want empty", got)
	}

	if err := repos.Preference.Set(ctx, "linkedin:pref1", profile.ID); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err = repos.Preference.Get(ctx, "linkedin:pref1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != profile.ID {
		t.Errorf("Get() = %q, want %q", got, profile.ID)
	}

	// Overwrite wins.
	other := testProfile("other")
	if err := repos.Profile.Upsert(ctx, other); err != nil {
		t.Fatalf("Upsert() profile error = %v", err)
	}
	if err := repos.Preference.Set(ctx, "linkedin:pref1", other.ID); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	got, _ = repos.Preference.Get(ctx, "linkedin:pref1")
	if got != other.ID {
		t.Errorf("Get() = %q after overwrite, want %q", got, other.ID)
	}
}
