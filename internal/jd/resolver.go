package jd

import (
	"context"
	"log/slog"
	"time"

	"github.com/jobops/jobops-api/internal/fetch"
	"github.com/jobops/jobops-api/internal/models"
)

// PolicyStrictLinkedIn names the fetch-skip policy for LinkedIn URLs. Their
// job pages serve consent shells to non-browser clients, so fetching only
// burns the timeout.
const PolicyStrictLinkedIn = "strict_linkedin"

// PageFetcher retrieves one page. Satisfied by *fetch.Fetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (fetch.Result, error)
	Timeout() time.Duration
}

// Resolved is the outcome of JD resolution for one job URL.
type Resolved struct {
	Text       string
	Source     models.JDSource
	Status     models.FetchStatus
	Confidence models.JDConfidence
	Debug      models.FetchDebug
}

// Usable reports whether resolution produced JD text worth storing.
func (r Resolved) Usable() bool {
	return r.Text != "" && r.Status == models.FetchStatusOK
}

// Resolver turns a job URL plus optional inbound email content into a
// cleaned JD body. Fetch failures and consent walls fall back to the email
// content; anything still unusable comes back empty with debug populated.
type Resolver struct {
	fetcher PageFetcher
	logger  *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(fetcher PageFetcher, logger *slog.Logger) *Resolver {
	return &Resolver{fetcher: fetcher, logger: logger}
}

// Resolve runs the fetch-then-fallback ladder for one job URL.
func (r *Resolver) Resolve(ctx context.Context, jobURL string, source models.SourceDomain, channel string, email EmailContext) Resolved {
	policy := PolicyFor(source, channel)
	debug := models.FetchDebug{Policy: policy.Label}

	var (
		prior  models.FetchStatus
		reason string
	)

	if source == models.SourceLinkedIn {
		debug.Policy = PolicyStrictLinkedIn
		prior = models.FetchStatusBlocked
		reason = "linkedin_fetch_skipped"
	} else {
		var text string
		text, prior, reason = r.fetchPass(ctx, jobURL, source, &debug)
		if prior == "" {
			conf := Grade(text)
			debug.Confidence = conf
			debug.TextLength = len(text)
			return Resolved{
				Text:       text,
				Source:     models.JDSourceFetched,
				Status:     models.FetchStatusOK,
				Confidence: conf,
				Debug:      debug,
			}
		}
	}

	debug.PriorStatus = prior
	debug.FallbackReason = reason

	if !email.Empty() {
		text := FromEmail(email)
		if len(text) >= policy.EmailFloor() {
			conf := Grade(text)
			debug.Confidence = conf
			debug.TextLength = len(text)
			if r.logger != nil {
				r.logger.Info("jd resolved from email fallback",
					"url", jobURL,
					"prior_status", prior,
					"text_length", len(text),
				)
			}
			return Resolved{
				Text:       text,
				Source:     models.JDSourceEmail,
				Status:     models.FetchStatusOK,
				Confidence: conf,
				Debug:      debug,
			}
		}
		if len(text) > 0 {
			debug.TextLength = len(text)
			if reason == "" || reason == "linkedin_fetch_skipped" {
				debug.FallbackReason = "email_below_floor"
			}
		}
	}

	return Resolved{
		Source: models.JDSourceNone,
		Status: prior,
		Debug:  debug,
	}
}

// fetchPass runs the HTTP attempt and quality gates. A usable page returns
// its cleaned text with empty status; anything else returns the failure
// status and a machine-readable reason.
func (r *Resolver) fetchPass(ctx context.Context, jobURL string, source models.SourceDomain, debug *models.FetchDebug) (string, models.FetchStatus, string) {
	result, err := r.fetcher.Fetch(ctx, jobURL)
	debug.HTTPStatus = result.StatusCode
	if err != nil {
		if result.TimedOut {
			debug.TimeoutMS = r.fetcher.Timeout().Milliseconds()
			return "", models.FetchStatusFailed, "fetch_timeout"
		}
		return "", models.FetchStatusFailed, "fetch_error"
	}
	if result.Blocked {
		return "", models.FetchStatusBlocked, string(result.BlockSignal)
	}
	if result.StatusCode < 200 || result.StatusCode >= 300 {
		return "", models.FetchStatusFailed, "http_status"
	}

	text := ExtractWindow(HTMLToText(result.HTML))
	if low, why := LowQuality(text, source); low {
		return "", models.FetchStatusLowQuality, why
	}
	if len(text) < MinConfidentChars {
		return "", models.FetchStatusLowQuality, "below_confident_floor"
	}
	return text, "", ""
}
