package repository

import (
	"context"
	"testing"

	"github.com/jobops/jobops-api/internal/models"
)

func TestContactRepository_UpsertByNameIdempotent(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	if err := repos.Job.Upsert(ctx, testJob("linkedin:c1")); err != nil {
		t.Fatalf("Upsert() job error = %v", err)
	}

	contact := &models.Contact{
		JobKey: "linkedin:c1",
		Name:   "Priya Sharma",
		Title:  "Head of Product",
		Source: "scoring",
	}
	if err := repos.Contact.UpsertByName(ctx, contact); err != nil {
		t.Fatalf("UpsertByName() error = %v", err)
	}
	firstID := contact.ID

	// Re-scoring surfaces the same name again, now with a handle.
	again := &models.Contact{
		JobKey: "linkedin:c1",
		Name:   "Priya Sharma",
		Handle: "https://www.linkedin.com/in/priyasharma",
	}
	if err := repos.Contact.UpsertByName(ctx, again); err != nil {
		t.Fatalf("UpsertByName() repeat error = %v", err)
	}
	if again.ID != firstID {
		t.Errorf("repeat changed id: %s -> %s", firstID, again.ID)
	}

	contacts, err := repos.Contact.ListByJobKey(ctx, "linkedin:c1")
	if err != nil {
		t.Fatalf("ListByJobKey() error = %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("got %d contacts, want 1", len(contacts))
	}
	if contacts[0].Title != "Head of Product" {
		t.Errorf("Title = %q, want preserved", contacts[0].Title)
	}
	if contacts[0].Handle == "" {
		t.Error("Handle not merged in")
	}
}

func TestContactRepository_Touchpoints(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	if err := repos.Job.Upsert(ctx, testJob("linkedin:c2")); err != nil {
		t.Fatalf("Upsert() job error = %v", err)
	}
	contact := &models.Contact{JobKey: "linkedin:c2", Name: "Dev Patel"}
	if err := repos.Contact.UpsertByName(ctx, contact); err != nil {
		t.Fatalf("UpsertByName() error = %v", err)
	}

	tp := &models.Touchpoint{
		ContactID: contact.ID,
		JobKey:    "linkedin:c2",
		Channel:   models.TouchpointLinkedIn,
		Note:      "intro request drafted",
	}
	if err := repos.Contact.UpsertTouchpoint(ctx, tp); err != nil {
		t.Fatalf("UpsertTouchpoint() error = %v", err)
	}
	if tp.Status != models.TouchpointDraft {
		t.Errorf("Status = %s, want DRAFT default", tp.Status)
	}
	firstID := tp.ID

	// Same channel again moves status instead of duplicating.
	sent := &models.Touchpoint{
		ContactID: contact.ID,
		JobKey:    "linkedin:c2",
		Channel:   models.TouchpointLinkedIn,
		Status:    models.TouchpointSent,
	}
	if err := repos.Contact.UpsertTouchpoint(ctx, sent); err != nil {
		t.Fatalf("UpsertTouchpoint() repeat error = %v", err)
	}
	if sent.ID != firstID {
		t.Errorf("repeat changed id: %s -> %s", firstID, sent.ID)
	}

	tps, err := repos.Contact.ListTouchpoints(ctx, "linkedin:c2")
	if err != nil {
		t.Fatalf("ListTouchpoints() error = %v", err)
	}
	if len(tps) != 1 {
		t.Fatalf("got %d touchpoints, want 1", len(tps))
	}
	if tps[0].Status != models.TouchpointSent {
		t.Errorf("Status = %s, want SENT", tps[0].Status)
	}
	if tps[0].Note != "intro request drafted" {
		t.Errorf("Note = %q, want preserved", tps[0].Note)
	}

	// A different channel is a separate touchpoint.
	email := &models.Touchpoint{
		ContactID: contact.ID,
		JobKey:    "linkedin:c2",
		Channel:   models.TouchpointEmail,
	}
	if err := repos.Contact.UpsertTouchpoint(ctx, email); err != nil {
		t.Fatalf("UpsertTouchpoint() email error = %v", err)
	}
	tps, _ = repos.Contact.ListTouchpoints(ctx, "linkedin:c2")
	if len(tps) != 2 {
		t.Errorf("got %d touchpoints, want 2", len(tps))
	}
}
