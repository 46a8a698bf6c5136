package repository

import (
	"context"
	"testing"

	"github.com/jobops/jobops-api/internal/models"
)

func TestEventRepository_InsertAndList(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	inserted, err := repos.Event.Insert(ctx, &models.Event{
		Kind:   models.EventIngestFallback,
		JobKey: "linkedin:123",
		Detail: "email body used after blocked fetch",
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if !inserted {
		t.Error("Insert() = false, want true")
	}

	events, err := repos.Event.ListRecent(ctx, models.EventIngestFallback, 10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].JobKey != "linkedin:123" {
		t.Errorf("JobKey = %s", events[0].JobKey)
	}
	if events[0].ID == "" || events[0].CreatedAt == 0 {
		t.Errorf("event missing id or timestamp: %+v", events[0])
	}
}

func TestEventRepository_MessageIDDedupe(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	first, err := repos.Event.Insert(ctx, &models.Event{
		Kind:      "WEBHOOK_MESSAGE",
		MessageID: "wamid-abc-123",
		Detail:    "inbound url",
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if !first {
		t.Fatal("first Insert() = false, want true")
	}

	dup, err := repos.Event.Insert(ctx, &models.Event{
		Kind:      "WEBHOOK_MESSAGE",
		MessageID: "wamid-abc-123",
		Detail:    "replayed delivery",
	})
	if err != nil {
		t.Fatalf("Insert() duplicate error = %v", err)
	}
	if dup {
		t.Error("duplicate Insert() = true, want false")
	}

	has, err := repos.Event.HasMessageID(ctx, "wamid-abc-123")
	if err != nil {
		t.Fatalf("HasMessageID() error = %v", err)
	}
	if !has {
		t.Error("HasMessageID() = false after insert")
	}

	has, err = repos.Event.HasMessageID(ctx, "wamid-other")
	if err != nil {
		t.Fatalf("HasMessageID() error = %v", err)
	}
	if has {
		t.Error("HasMessageID() = true for unseen id")
	}

	// Events without a message id never collide with each other.
	for i := 0; i < 2; i++ {
		ok, err := repos.Event.Insert(ctx, &models.Event{Kind: "PLAIN"})
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if !ok {
			t.Error("Insert() without message id = false")
		}
	}
}
