package handlers

import (
	"context"

	"github.com/jobops/jobops-api/internal/normalize"
	"github.com/jobops/jobops-api/internal/service"
)

// IngestHandler serves manual batch ingestion.
type IngestHandler struct {
	ingest *service.IngestService
}

// NewIngestHandler creates an ingest handler.
func NewIngestHandler(ingest *service.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

// IngestInput is the manual ingest request. When raw_urls is empty the
// handler mines email_text for links, so a forwarded email body alone works.
type IngestInput struct {
	Body struct {
		RawURLs      []string `json:"raw_urls,omitempty" doc:"Job posting or shortlink URLs to ingest"`
		EmailText    string   `json:"email_text,omitempty" doc:"Plain-text email or message body, used as JD fallback for low-confidence fetches"`
		EmailHTML    string   `json:"email_html,omitempty" doc:"HTML email body, converted to markdown before use"`
		EmailSubject string   `json:"email_subject,omitempty" doc:"Email subject line"`
		EmailFrom    string   `json:"email_from,omitempty" doc:"Email sender"`
		Channel      string   `json:"channel,omitempty" doc:"Channel tag recorded on ingested jobs"`
	}
}

// IngestOutput carries the per-URL outcomes and per-source counters.
type IngestOutput struct {
	Body struct {
		OK   bool                  `json:"ok"`
		Data *service.IngestResult `json:"data"`
	}
}

// Ingest runs the pipeline over a batch of raw URLs.
func (h *IngestHandler) Ingest(ctx context.Context, input *IngestInput) (*IngestOutput, error) {
	urls := input.Body.RawURLs
	if len(urls) == 0 && input.Body.EmailText != "" {
		urls = normalize.ExtractURLs(input.Body.EmailText)
	}
	result, err := h.ingest.Ingest(ctx, service.IngestInput{
		RawURLs:      urls,
		EmailText:    input.Body.EmailText,
		EmailHTML:    input.Body.EmailHTML,
		EmailSubject: input.Body.EmailSubject,
		EmailFrom:    input.Body.EmailFrom,
		Channel:      input.Body.Channel,
	})
	if err != nil {
		return nil, serviceError(err)
	}
	out := &IngestOutput{}
	out.Body.OK = true
	out.Body.Data = result
	return out, nil
}
