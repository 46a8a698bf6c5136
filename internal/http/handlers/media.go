package handlers

import (
	"context"

	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/service"
)

// MediaContent is what a media attachment contributed to an inbound message:
// extracted text (captions, OCR, transcripts) and any job links found in it.
type MediaContent struct {
	Text string
	URLs []string
}

// MediaExtractor pulls text and links out of an inbound media attachment.
// Implementations download the media themselves; only the URL crosses this
// boundary.
type MediaExtractor interface {
	Extract(ctx context.Context, mediaURL string) (MediaContent, error)
}

// SkipMediaExtractor is the default extractor. It never downloads anything;
// it records a MEDIA_SKIPPED event so skipped attachments stay auditable.
type SkipMediaExtractor struct {
	events *service.EventService
}

// NewSkipMediaExtractor creates the default no-op extractor.
func NewSkipMediaExtractor(events *service.EventService) *SkipMediaExtractor {
	return &SkipMediaExtractor{events: events}
}

// Extract records the skip and returns empty content.
func (e *SkipMediaExtractor) Extract(ctx context.Context, mediaURL string) (MediaContent, error) {
	if e.events != nil {
		e.events.Record(ctx, models.EventMediaSkipped, "", "media extraction disabled: "+mediaURL)
	}
	return MediaContent{}, nil
}
