package jd

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jobops/jobops-api/internal/fetch"
	"github.com/jobops/jobops-api/internal/models"
)

type stubFetcher struct {
	result fetch.Result
	err    error
	calls  int
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (fetch.Result, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubFetcher) Timeout() time.Duration { return 7 * time.Second }

func jobPageHTML() string {
	body := strings.Repeat("Drive discovery, delivery, and experimentation for the payments platform. ", 8)
	return `<html><body>
		<nav>Home | Jobs</nav>
		<h1>Senior Product Manager</h1>
		<div>Job Description</div>
		<p>Responsibilities: ` + body + `</p>
		<p>Requirements: 5+ years product management, SQL, stakeholder management.</p>
		<p>Nice to have: marketplace experience.</p>
		<footer>Copyright Acme Inc</footer>
	</body></html>`
}

func longEmailText() string {
	return "Hiring: Senior Product Manager at Acme. Responsibilities: own the roadmap, " +
		strings.Repeat("work with engineering and design to ship platform features. ", 6)
}

func TestResolveFetchedPage(t *testing.T) {
	fetcher := &stubFetcher{result: fetch.Result{StatusCode: 200, HTML: jobPageHTML()}}
	r := NewResolver(fetcher, nil)

	got := r.Resolve(context.Background(), "https://www.iimjobs.com/j/pm-123", models.SourceIIMJobs, "", EmailContext{})
	if got.Source != models.JDSourceFetched {
		t.Fatalf("Source = %s, want fetched (debug %+v)", got.Source, got.Debug)
	}
	if got.Status != models.FetchStatusOK {
		t.Errorf("Status = %s, want ok", got.Status)
	}
	if !strings.Contains(got.Text, "Responsibilities") {
		t.Errorf("Text lost the JD body: %q", got.Text)
	}
	if strings.Contains(got.Text, "Copyright") {
		t.Errorf("Text kept trailing chrome: %q", got.Text)
	}
	if got.Confidence == "" {
		t.Error("Confidence not graded")
	}
	if got.Debug.TextLength == 0 {
		t.Error("Debug.TextLength not set")
	}
}

func TestResolveLinkedInSkipsFetch(t *testing.T) {
	fetcher := &stubFetcher{result: fetch.Result{StatusCode: 200, HTML: jobPageHTML()}}
	r := NewResolver(fetcher, nil)

	got := r.Resolve(context.Background(), "https://www.linkedin.com/jobs/view/123", models.SourceLinkedIn, "", EmailContext{
		Subject: "Senior PM role",
		Text:    longEmailText(),
	})
	if fetcher.calls != 0 {
		t.Errorf("fetch called %d times for linkedin, want 0", fetcher.calls)
	}
	if got.Source != models.JDSourceEmail {
		t.Fatalf("Source = %s, want email", got.Source)
	}
	if got.Status != models.FetchStatusOK {
		t.Errorf("Status = %s, want ok", got.Status)
	}
	if got.Debug.Policy != PolicyStrictLinkedIn {
		t.Errorf("Debug.Policy = %s, want %s", got.Debug.Policy, PolicyStrictLinkedIn)
	}
	if got.Debug.PriorStatus != models.FetchStatusBlocked {
		t.Errorf("Debug.PriorStatus = %s, want blocked", got.Debug.PriorStatus)
	}
}

func TestResolveBlockedFallsBackToEmail(t *testing.T) {
	fetcher := &stubFetcher{result: fetch.Result{
		StatusCode:  403,
		Blocked:     true,
		BlockSignal: fetch.SignalAccessDenied,
	}}
	r := NewResolver(fetcher, nil)

	got := r.Resolve(context.Background(), "https://www.naukri.com/job-listings-pm", models.SourceNaukri, "", EmailContext{
		Text: longEmailText(),
	})
	if got.Source != models.JDSourceEmail {
		t.Fatalf("Source = %s, want email (debug %+v)", got.Source, got.Debug)
	}
	if got.Debug.PriorStatus != models.FetchStatusBlocked {
		t.Errorf("PriorStatus = %s, want blocked", got.Debug.PriorStatus)
	}
	if got.Debug.HTTPStatus != 403 {
		t.Errorf("HTTPStatus = %d, want 403", got.Debug.HTTPStatus)
	}
}

func TestResolveConsentWallNoFallback(t *testing.T) {
	wall := "<html><body>" + strings.Repeat("Please enable javascript to continue. ", 12) + "</body></html>"
	fetcher := &stubFetcher{result: fetch.Result{StatusCode: 200, HTML: wall}}
	r := NewResolver(fetcher, nil)

	got := r.Resolve(context.Background(), "https://example.com/job", models.SourceOther, "", EmailContext{})
	if got.Text != "" {
		t.Errorf("Text = %q, want empty", got.Text)
	}
	if got.Source != models.JDSourceNone {
		t.Errorf("Source = %s, want none", got.Source)
	}
	if got.Status != models.FetchStatusLowQuality {
		t.Errorf("Status = %s, want low_quality", got.Status)
	}
	if got.Debug.FallbackReason != "javascript_wall" {
		t.Errorf("FallbackReason = %s, want javascript_wall", got.Debug.FallbackReason)
	}
}

func TestResolveFetchTimeout(t *testing.T) {
	fetcher := &stubFetcher{
		result: fetch.Result{TimedOut: true},
		err:    errors.New("context deadline exceeded"),
	}
	r := NewResolver(fetcher, nil)

	got := r.Resolve(context.Background(), "https://example.com/job", models.SourceOther, "", EmailContext{})
	if got.Status != models.FetchStatusFailed {
		t.Errorf("Status = %s, want failed", got.Status)
	}
	if got.Debug.FallbackReason != "fetch_timeout" {
		t.Errorf("FallbackReason = %s, want fetch_timeout", got.Debug.FallbackReason)
	}
	if got.Debug.TimeoutMS != 7000 {
		t.Errorf("TimeoutMS = %d, want 7000", got.Debug.TimeoutMS)
	}
}

func TestResolveMessagingChannelFloor(t *testing.T) {
	fetcher := &stubFetcher{result: fetch.Result{StatusCode: 404}}
	r := NewResolver(fetcher, nil)

	// 140 chars of text: above the messaging floor, below the email default.
	short := strings.Repeat("Product role details here. ", 6)
	if len(short) < 120 || len(short) >= EmailFallbackMinChars {
		t.Fatalf("fixture length %d outside the window this test needs", len(short))
	}

	viaMessaging := r.Resolve(context.Background(), "https://example.com/job", models.SourceOther,
		models.ChannelWhatsAppVonage, EmailContext{Text: short})
	if viaMessaging.Source != models.JDSourceEmail {
		t.Errorf("messaging Source = %s, want email (floor 120)", viaMessaging.Source)
	}

	viaWeb := r.Resolve(context.Background(), "https://example.com/job", models.SourceOther, "", EmailContext{Text: short})
	if viaWeb.Source != models.JDSourceNone {
		t.Errorf("web Source = %s, want none (floor %d)", viaWeb.Source, EmailFallbackMinChars)
	}
}
