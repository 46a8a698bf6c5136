package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jobops/jobops-api/internal/models"
)

func postRelay(t *testing.T, h *RelayWebhookHandler, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/ingest/webhook/relay", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleRelay(rec, req)
	return rec
}

func TestRelayAcceptsExplicitURLs(t *testing.T) {
	ingest := newFakeIngestor()
	h := NewRelayWebhookHandler(ingest, newWebhookTestEvents(newFakeEventRepo()), slog.Default())

	rec := postRelay(t, h, map[string]any{
		"urls":       []string{"https://example.com/jobs/1", "https://example.com/jobs/2"},
		"message_id": "relay-1",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	ack := decodeAck(t, rec)
	if !ack.Data.Accepted || ack.Data.URLs != 2 {
		t.Errorf("ack = %+v, want accepted with 2 urls", ack)
	}

	input := ingest.wait(t)
	if input.Channel != models.ChannelRelay {
		t.Errorf("Channel = %q, want %q", input.Channel, models.ChannelRelay)
	}
	if len(input.RawURLs) != 2 {
		t.Errorf("RawURLs = %v, want 2 urls", input.RawURLs)
	}
}

func TestRelayMinesURLsFromText(t *testing.T) {
	ingest := newFakeIngestor()
	h := NewRelayWebhookHandler(ingest, newWebhookTestEvents(newFakeEventRepo()), slog.Default())

	rec := postRelay(t, h, map[string]any{
		"text":    "forwarded: check https://jobs.lever.co/acme/123 before friday",
		"subject": "fwd: role",
		"from":    "recruiter@example.com",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	input := ingest.wait(t)
	if len(input.RawURLs) != 1 || input.RawURLs[0] != "https://jobs.lever.co/acme/123" {
		t.Errorf("RawURLs = %v, want the lever link", input.RawURLs)
	}
	if input.EmailSubject != "fwd: role" {
		t.Errorf("EmailSubject = %q, want %q", input.EmailSubject, "fwd: role")
	}
	if input.EmailFrom != "recruiter@example.com" {
		t.Errorf("EmailFrom = %q, want %q", input.EmailFrom, "recruiter@example.com")
	}
}

func TestRelayHonorsChannelOverride(t *testing.T) {
	ingest := newFakeIngestor()
	h := NewRelayWebhookHandler(ingest, newWebhookTestEvents(newFakeEventRepo()), slog.Default())

	rec := postRelay(t, h, map[string]any{
		"urls":    []string{"https://example.com/jobs/3"},
		"channel": "rss.custom",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	input := ingest.wait(t)
	if input.Channel != "rss.custom" {
		t.Errorf("Channel = %q, want %q", input.Channel, "rss.custom")
	}
}

func TestRelayDedupesOnMessageID(t *testing.T) {
	ingest := newFakeIngestor()
	h := NewRelayWebhookHandler(ingest, newWebhookTestEvents(newFakeEventRepo()), slog.Default())

	payload := map[string]any{
		"urls":       []string{"https://example.com/jobs/4"},
		"message_id": "relay-dup",
	}

	first := postRelay(t, h, payload)
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d, want %d", first.Code, http.StatusOK)
	}
	ingest.wait(t)

	second := postRelay(t, h, payload)
	ack := decodeAck(t, second)
	if !ack.Data.Deduped {
		t.Error("redelivery not marked deduped")
	}
	ingest.none(t)
}

func TestRelayNoLinks(t *testing.T) {
	ingest := newFakeIngestor()
	h := NewRelayWebhookHandler(ingest, newWebhookTestEvents(newFakeEventRepo()), slog.Default())

	rec := postRelay(t, h, map[string]any{"text": "nothing to see"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	ack := decodeAck(t, rec)
	if ack.Data.Accepted {
		t.Error("payload with no links marked accepted")
	}
	if ack.Data.Note != "no links found" {
		t.Errorf("Note = %q, want %q", ack.Data.Note, "no links found")
	}
	ingest.none(t)
}

func TestRelayInvalidPayload(t *testing.T) {
	ingest := newFakeIngestor()
	h := NewRelayWebhookHandler(ingest, newWebhookTestEvents(newFakeEventRepo()), slog.Default())

	req := httptest.NewRequest(http.MethodPost, "/ingest/webhook/relay", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	h.HandleRelay(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	ingest.none(t)
}
