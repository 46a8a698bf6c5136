package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/normalize"
	"github.com/jobops/jobops-api/internal/service"
)

// RelayWebhookHandler receives the generic URL relay: any automation that
// can POST svix-signed JSON can feed the pipeline. Signature verification
// happens in middleware.
type RelayWebhookHandler struct {
	ingest Ingestor
	events *service.EventService
	logger *slog.Logger
}

// NewRelayWebhookHandler creates the relay handler.
func NewRelayWebhookHandler(ingest Ingestor, events *service.EventService, logger *slog.Logger) *RelayWebhookHandler {
	return &RelayWebhookHandler{
		ingest: ingest,
		events: events,
		logger: logger.With("component", "relay-webhook"),
	}
}

// relayPayload is the relay contract: explicit URLs, or text to mine.
type relayPayload struct {
	URLs      []string `json:"urls,omitempty"`
	Text      string   `json:"text,omitempty"`
	Subject   string   `json:"subject,omitempty"`
	From      string   `json:"from,omitempty"`
	MessageID string   `json:"message_id,omitempty"`
	Channel   string   `json:"channel,omitempty"`
}

// HandleRelay ingests relayed URLs. Like the WhatsApp path it acks before
// ingestion completes so sender retry policies never double-deliver.
func (h *RelayWebhookHandler) HandleRelay(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError(http.StatusBadRequest, KindInvalidInput, "failed to read body"))
		return
	}
	var payload relayPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError(http.StatusBadRequest, KindInvalidInput, "invalid payload"))
		return
	}

	ack := &webhookAck{OK: true}

	if payload.MessageID != "" {
		stored, err := h.events.RecordMessage(r.Context(), models.EventWebhookMessage, "", "relay from "+payload.From, payload.MessageID)
		switch {
		case errors.Is(err, service.ErrSchemaDisabled):
		case err != nil:
			h.logger.Warn("failed to record relay message", "message_id", payload.MessageID, "error", err)
		case !stored:
			ack.Data.Deduped = true
			writeJSON(w, http.StatusOK, ack)
			return
		}
	}

	urls := payload.URLs
	if len(urls) == 0 && payload.Text != "" {
		urls = normalize.ExtractURLs(payload.Text)
	}
	ack.Data.URLs = len(urls)
	if len(urls) == 0 {
		ack.Data.Note = "no links found"
		writeJSON(w, http.StatusOK, ack)
		return
	}

	channel := payload.Channel
	if channel == "" {
		channel = models.ChannelRelay
	}

	bg := context.WithoutCancel(r.Context())
	go func() {
		result, err := h.ingest.Ingest(bg, service.IngestInput{
			RawURLs:      urls,
			EmailText:    payload.Text,
			EmailSubject: payload.Subject,
			EmailFrom:    payload.From,
			Channel:      channel,
		})
		if err != nil {
			h.logger.Error("relay ingest failed", "message_id", payload.MessageID, "error", err)
			return
		}
		h.logger.Info("relay ingest complete", "message_id", payload.MessageID, "total", result.Total)
	}()

	ack.Data.Accepted = true
	writeJSON(w, http.StatusOK, ack)
}
