// Package fetch retrieves job-posting pages over HTTP and classifies
// blocked or challenge responses so the resolver can fall back to email
// content instead of storing consent-wall boilerplate.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Result is one fetched page plus its block classification.
type Result struct {
	URL         string
	HTML        string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
	Blocked     bool
	BlockSignal SignalType
	TimedOut    bool
}

// Fetcher fetches single pages with a bounded timeout and a realistic
// user agent, following redirects.
type Fetcher struct {
	timeout   time.Duration
	userAgent string
	detector  *Detector
	logger    *slog.Logger
}

// New creates a Fetcher. The timeout bounds the whole request including
// redirects.
func New(timeout time.Duration, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 7 * time.Second
	}
	return &Fetcher{
		timeout:   timeout,
		userAgent: defaultUserAgent,
		detector:  NewDetector(),
		logger:    logger,
	}
}

// Timeout returns the configured per-request timeout.
func (f *Fetcher) Timeout() time.Duration {
	return f.timeout
}

// Fetch retrieves url. Network failures return an error with TimedOut set
// when the deadline was the cause; HTTP-level blocks return a Result with
// Blocked set and no error so callers can record the status.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Result, error) {
	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(f.timeout)

	var res Result
	var headers http.Header
	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		res = Result{
			URL:         r.Request.URL.String(),
			HTML:        string(r.Body),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			FetchedAt:   time.Now(),
		}
		if r.Headers != nil {
			headers = *r.Headers
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
		if r == nil {
			return
		}
		res.StatusCode = r.StatusCode
		res.FetchedAt = time.Now()
		if len(r.Body) > 0 {
			res.HTML = string(r.Body)
		}
		if r.Request != nil && r.Request.URL != nil {
			res.URL = r.Request.URL.String()
		}
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = err
	}

	if fetchErr != nil && res.StatusCode == 0 {
		// Pure transport failure. DNS, TLS, or timeout.
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.TimedOut = true
		} else if isTimeout(fetchErr) {
			res.TimedOut = true
		}
		return res, fetchErr
	}

	detection := f.detector.Detect(res.StatusCode, headers, []byte(res.HTML))
	if detection.Detected {
		res.Blocked = true
		res.BlockSignal = detection.Signal
		if f.logger != nil {
			f.logger.Info("fetch blocked",
				"url", url,
				"status", res.StatusCode,
				"signal", detection.Signal,
				"confidence", detection.Confidence,
			)
		}
	}
	return res, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
