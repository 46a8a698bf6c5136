package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/normalize"
	"github.com/jobops/jobops-api/internal/service"
)

// Ingestor is the slice of the ingest orchestrator webhooks use.
type Ingestor interface {
	Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error)
}

// WhatsAppWebhookHandler receives Vonage Messages inbound webhooks. The JWT
// on the request is verified by middleware before the handler runs.
type WhatsAppWebhookHandler struct {
	ingest  Ingestor
	media   MediaExtractor
	events  *service.EventService
	allowed []string
	logger  *slog.Logger
}

// NewWhatsAppWebhookHandler creates the Vonage inbound handler. allowedSenders
// is an optional allow-list of sender numbers; empty means any sender.
func NewWhatsAppWebhookHandler(ingest Ingestor, media MediaExtractor, events *service.EventService, allowedSenders []string, logger *slog.Logger) *WhatsAppWebhookHandler {
	return &WhatsAppWebhookHandler{
		ingest:  ingest,
		media:   media,
		events:  events,
		allowed: allowedSenders,
		logger:  logger.With("component", "whatsapp-webhook"),
	}
}

// vonageInbound is the Vonage Messages API inbound payload, reduced to the
// fields the pipeline uses.
type vonageInbound struct {
	MessageUUID string       `json:"message_uuid"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Channel     string       `json:"channel"`
	MessageType string       `json:"message_type"`
	Text        string       `json:"text,omitempty"`
	Image       *vonageMedia `json:"image,omitempty"`
	File        *vonageMedia `json:"file,omitempty"`
	Video       *vonageMedia `json:"video,omitempty"`
	Audio       *vonageMedia `json:"audio,omitempty"`
}

type vonageMedia struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// webhookAck is the success body webhooks return. The 200 goes out before
// ingestion finishes; Accepted only means the message entered the pipeline.
type webhookAck struct {
	OK   bool `json:"ok"`
	Data struct {
		Accepted bool   `json:"accepted"`
		Deduped  bool   `json:"deduped,omitempty"`
		URLs     int    `json:"urls"`
		Note     string `json:"note,omitempty"`
	} `json:"data"`
}

// HandleInbound processes one inbound WhatsApp message: allow-list, dedupe
// on message_uuid, link and media extraction, then fire-and-forget ingest.
func (h *WhatsAppWebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError(http.StatusBadRequest, KindInvalidInput, "failed to read body"))
		return
	}
	var msg vonageInbound
	if err := json.Unmarshal(body, &msg); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError(http.StatusBadRequest, KindInvalidInput, "invalid payload"))
		return
	}

	if !h.senderAllowed(msg.From) {
		h.events.Record(r.Context(), models.EventWebhookRejected, "", "whatsapp sender not allowed: "+msg.From)
		h.logger.Warn("rejected whatsapp message", "from", msg.From)
		writeJSON(w, http.StatusForbidden, apiError(http.StatusForbidden, KindForbidden, "sender not allowed"))
		return
	}

	ack := &webhookAck{OK: true}

	// RecordMessage is the dedupe gate: the events table drops duplicate
	// message ids on insert, so redelivered webhooks ack without reingesting.
	if msg.MessageUUID != "" {
		stored, err := h.events.RecordMessage(r.Context(), models.EventWebhookMessage, "", "whatsapp inbound from "+msg.From, msg.MessageUUID)
		switch {
		case errors.Is(err, service.ErrSchemaDisabled):
			// No events table means no dedupe; process every delivery.
		case err != nil:
			h.logger.Warn("failed to record inbound message", "message_uuid", msg.MessageUUID, "error", err)
		case !stored:
			ack.Data.Deduped = true
			writeJSON(w, http.StatusOK, ack)
			return
		}
	}

	text, urls := h.collect(r.Context(), &msg)
	ack.Data.URLs = len(urls)
	if len(urls) == 0 {
		ack.Data.Note = "no links found"
		writeJSON(w, http.StatusOK, ack)
		return
	}

	// Vonage retries aggressively on slow responses, so the ack goes out
	// now and ingestion continues in the background.
	bg := context.WithoutCancel(r.Context())
	go func() {
		result, err := h.ingest.Ingest(bg, service.IngestInput{
			RawURLs:   urls,
			EmailText: text,
			Channel:   models.ChannelWhatsAppVonage,
		})
		if err != nil {
			h.logger.Error("whatsapp ingest failed", "message_uuid", msg.MessageUUID, "error", err)
			return
		}
		h.logger.Info("whatsapp ingest complete", "message_uuid", msg.MessageUUID, "total", result.Total)
	}()

	ack.Data.Accepted = true
	writeJSON(w, http.StatusOK, ack)
}

// collect gathers message text, captions, and media-extracted content, and
// returns the combined text plus every job link found.
func (h *WhatsAppWebhookHandler) collect(ctx context.Context, msg *vonageInbound) (string, []string) {
	var parts []string
	if msg.Text != "" {
		parts = append(parts, msg.Text)
	}
	var urls []string
	for _, media := range []*vonageMedia{msg.Image, msg.File, msg.Video, msg.Audio} {
		if media == nil {
			continue
		}
		if media.Caption != "" {
			parts = append(parts, media.Caption)
		}
		if media.URL == "" {
			continue
		}
		content, err := h.media.Extract(ctx, media.URL)
		if err != nil {
			h.logger.Warn("media extraction failed", "url", media.URL, "error", err)
			continue
		}
		if content.Text != "" {
			parts = append(parts, content.Text)
		}
		urls = append(urls, content.URLs...)
	}
	text := strings.Join(parts, "\n")
	urls = append(urls, normalize.ExtractURLs(text)...)
	return text, urls
}

func (h *WhatsAppWebhookHandler) senderAllowed(from string) bool {
	if len(h.allowed) == 0 {
		return true
	}
	from = strings.TrimPrefix(strings.TrimSpace(from), "+")
	for _, allowed := range h.allowed {
		if from == strings.TrimPrefix(strings.TrimSpace(allowed), "+") {
			return true
		}
	}
	return false
}

// writeJSON writes a JSON body with the given status. Raw webhook handlers
// use it; huma handlers never do.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}
