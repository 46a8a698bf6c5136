// Package rss polls configured RSS and Atom feeds for job-posting links.
package rss

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/jobops/jobops-api/internal/scheduler"
)

// Poller collects posting links from a set of feeds. A feed that fails to
// load is logged and skipped so one dead feed cannot block the rest.
type Poller struct {
	feeds   []string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a poller over the configured feed URLs.
func New(feeds []string, timeout time.Duration, logger *slog.Logger) *Poller {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Poller{
		feeds:   feeds,
		timeout: timeout,
		logger:  logger.With("component", "rss"),
	}
}

// Poll visits every configured feed and returns the posting links,
// deduplicated in first-seen order.
func (p *Poller) Poll(ctx context.Context, source string) (scheduler.PollResult, error) {
	seen := make(map[string]bool)
	var links []string
	add := func(link string) {
		link = strings.TrimSpace(link)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	}

	for _, feed := range p.feeds {
		if err := ctx.Err(); err != nil {
			return scheduler.PollResult{RawURLs: links}, err
		}
		if err := p.pollFeed(feed, add); err != nil {
			p.logger.Warn("feed poll failed", "feed", feed, "error", err)
		}
	}

	p.logger.Info("feed poll complete", "source", source, "feeds", len(p.feeds), "links", len(links))
	return scheduler.PollResult{RawURLs: links}, nil
}

func (p *Poller) pollFeed(feed string, add func(string)) error {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(p.timeout)

	// RSS 2.0 carries the link as element text, Atom as an href attribute.
	c.OnXML("//item/link", func(e *colly.XMLElement) {
		add(e.Text)
	})
	c.OnXML("//entry/link", func(e *colly.XMLElement) {
		if rel := e.Attr("rel"); rel != "" && rel != "alternate" {
			return
		}
		add(e.Attr("href"))
	})

	return c.Visit(feed)
}
