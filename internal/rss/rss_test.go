package rss

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const rssFeedBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Engineering Jobs</title>
    <item>
      <title>Senior Product Manager</title>
      <link>https://boards.example.com/jobs/senior-product-manager-8841</link>
    </item>
    <item>
      <title>Staff Engineer</title>
      <link>https://boards.example.com/jobs/staff-engineer-2210</link>
    </item>
    <item>
      <title>Duplicate Posting</title>
      <link>https://boards.example.com/jobs/senior-product-manager-8841</link>
    </item>
  </channel>
</rss>`

const atomFeedBody = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Product Openings</title>
  <entry>
    <title>Growth PM</title>
    <link rel="alternate" href="https://careers.finlay.example/openings/growth-pm"/>
    <link rel="self" href="https://careers.finlay.example/feed/entry/1"/>
  </entry>
  <entry>
    <title>Platform PM</title>
    <link href="https://careers.finlay.example/openings/platform-pm"/>
  </entry>
</feed>`

func TestPoll_CollectsRSSAndAtomLinks(t *testing.T) {
	rssSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFeedBody))
	}))
	defer rssSrv.Close()
	atomSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atomFeedBody))
	}))
	defer atomSrv.Close()

	p := New([]string{rssSrv.URL, atomSrv.URL}, 5*time.Second, slog.Default())
	res, err := p.Poll(context.Background(), "rss")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"https://boards.example.com/jobs/senior-product-manager-8841",
		"https://boards.example.com/jobs/staff-engineer-2210",
		"https://careers.finlay.example/openings/growth-pm",
		"https://careers.finlay.example/openings/platform-pm",
	}
	if len(res.RawURLs) != len(want) {
		t.Fatalf("len(RawURLs) = %d, want %d: %v", len(res.RawURLs), len(want), res.RawURLs)
	}
	for i, link := range want {
		if res.RawURLs[i] != link {
			t.Errorf("RawURLs[%d] = %q, want %q", i, res.RawURLs[i], link)
		}
	}
}

func TestPoll_SkipsFailingFeed(t *testing.T) {
	deadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer deadSrv.Close()
	liveSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(rssFeedBody))
	}))
	defer liveSrv.Close()

	p := New([]string{deadSrv.URL, liveSrv.URL}, 5*time.Second, slog.Default())
	res, err := p.Poll(context.Background(), "rss")
	if err != nil {
		t.Fatalf("a failing feed should be skipped, not fatal: %v", err)
	}
	if len(res.RawURLs) != 2 {
		t.Errorf("len(RawURLs) = %d, want 2 from the live feed: %v", len(res.RawURLs), res.RawURLs)
	}
}

func TestPoll_NoFeeds(t *testing.T) {
	p := New(nil, 0, slog.Default())
	res, err := p.Poll(context.Background(), "rss")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.RawURLs) != 0 {
		t.Errorf("RawURLs = %v, want none", res.RawURLs)
	}
}

func TestPoll_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFeedBody))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New([]string{srv.URL}, 5*time.Second, slog.Default())
	_, err := p.Poll(ctx, "rss")
	if err == nil {
		t.Fatal("expected the cancelled context to surface")
	}
}
