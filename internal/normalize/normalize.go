// Package normalize canonicalizes inbound job-posting URLs and derives the
// stable job_key used to dedupe jobs across channels.
//
// Raw URLs arrive wrapped in tracking redirects (mail gateways, search
// results) and in per-source shapes. Normalization unwraps redirects,
// classifies the source domain, recovers the source job id where the source
// exposes one, and emits a canonical URL plus a SHA1 job key that is stable
// across repeated ingestion of the same posting.
package normalize

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/jobops/jobops-api/internal/models"
)

// ErrInvalidURL is returned when the input cannot be parsed as an
// absolute http(s) URL at all.
var ErrInvalidURL = errors.New("invalid url")

// redirectParams are query keys that tracking gateways use to carry the real
// destination. Checked in order; first parseable URL wins.
var redirectParams = []string{
	"url", "u", "q", "redirect", "redirect_url", "redirectUrl",
	"target", "dest", "destination", "to", "r", "href", "next",
}

const maxUnwrapDepth = 4

var (
	linkedInViewRe = regexp.MustCompile(`/jobs/view/(?:[^/]*?-)?(\d{6,})`)
	trailingIDRe   = regexp.MustCompile(`-(\d+)$`)
	digitsOnlyRe   = regexp.MustCompile(`^\d+$`)
	urlInTextRe    = regexp.MustCompile(`https?://[^\s<>"']+`)
)

// Result is the outcome of normalizing one raw URL. Ignored=true marks a
// recognized non-job URL (search pages, inbox links); it is not an error.
type Result struct {
	Ignored      bool                `json:"ignored"`
	IgnoreReason string              `json:"ignore_reason,omitempty"`
	SourceDomain models.SourceDomain `json:"source_domain"`
	JobID        string              `json:"job_id,omitempty"`
	JobURL       string              `json:"job_url"`
	JobKey       string              `json:"job_key"`
}

// Normalize canonicalizes a raw job-posting URL.
func Normalize(raw string) (Result, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{}, fmt.Errorf("%w: empty input", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return Result{}, fmt.Errorf("%w: not an absolute http(s) url", ErrInvalidURL)
	}

	for i := 0; i < maxUnwrapDepth; i++ {
		inner, changed := unwrapRedirect(u)
		if !changed {
			break
		}
		u = inner
	}

	source := classifyHost(u.Host)
	switch source {
	case models.SourceLinkedIn:
		return normalizeLinkedIn(u)
	case models.SourceIIMJobs:
		return normalizeIIMJobs(u)
	case models.SourceNaukri:
		return normalizeNaukri(u)
	default:
		return normalizeOther(u)
	}
}

// JobKey derives the stable dedupe key. Postings with a recoverable source
// job id hash on (source, id) so slug and tracking variants collapse;
// everything else hashes on the stripped canonical URL.
func JobKey(source models.SourceDomain, jobID, strippedURL string) string {
	if jobID != "" {
		return sha1Hex(string(source) + "|" + jobID)
	}
	return sha1Hex("url|" + strippedURL)
}

// ExtractURLs pulls http(s) URLs out of free text (email bodies, feed
// summaries, message captions), deduped in first-seen order.
func ExtractURLs(text string) []string {
	matches := urlInTextRe.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?)]}>\"'")
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// RoleFromSlug guesses a role title from a job URL's path slug. Used as a
// last-resort fill when extraction returned no role. Returns "" when the
// path carries no usable slug.
func RoleFromSlug(jobURL string) string {
	u, err := url.Parse(jobURL)
	if err != nil {
		return ""
	}
	path := strings.TrimSuffix(u.Path, "/")
	path = strings.TrimSuffix(path, ".html")
	seg := path[strings.LastIndex(path, "/")+1:]
	if i := strings.Index(seg, "job-listings-"); i >= 0 {
		seg = seg[i+len("job-listings-"):]
	}
	seg = trailingIDRe.ReplaceAllString(seg, "")
	if seg == "" || digitsOnlyRe.MatchString(seg) {
		return ""
	}
	words := strings.Split(seg, "-")
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" || digitsOnlyRe.MatchString(w) {
			continue
		}
		parts = append(parts, strings.ToUpper(w[:1])+w[1:])
	}
	title := strings.Join(parts, " ")
	if len(title) < 3 {
		return ""
	}
	return title
}

func normalizeLinkedIn(u *url.URL) (Result, error) {
	id := u.Query().Get("currentJobId")
	if !digitsOnlyRe.MatchString(id) {
		id = ""
	}
	if id == "" {
		if m := linkedInViewRe.FindStringSubmatch(u.Path); m != nil {
			id = m[1]
		}
	}
	if id == "" {
		return Result{
			Ignored:      true,
			IgnoreReason: "linkedin url without a job id",
			SourceDomain: models.SourceLinkedIn,
		}, nil
	}
	jobURL := fmt.Sprintf("https://www.linkedin.com/jobs/view/%s/", id)
	return Result{
		SourceDomain: models.SourceLinkedIn,
		JobID:        id,
		JobURL:       jobURL,
		JobKey:       JobKey(models.SourceLinkedIn, id, jobURL),
	}, nil
}

func normalizeIIMJobs(u *url.URL) (Result, error) {
	path := strings.TrimSuffix(u.Path, "/")
	path = strings.TrimSuffix(path, ".html")
	if !strings.HasPrefix(path, "/j/") {
		return Result{
			Ignored:      true,
			IgnoreReason: "iimjobs url is not a job posting",
			SourceDomain: models.SourceIIMJobs,
		}, nil
	}
	var id string
	if m := trailingIDRe.FindStringSubmatch(path); m != nil {
		id = m[1]
	}
	jobURL := "https://" + strings.ToLower(u.Host) + path
	return Result{
		SourceDomain: models.SourceIIMJobs,
		JobID:        id,
		JobURL:       jobURL,
		JobKey:       JobKey(models.SourceIIMJobs, id, jobURL),
	}, nil
}

func normalizeNaukri(u *url.URL) (Result, error) {
	path := strings.TrimSuffix(u.Path, "/")
	if strings.Contains(path, "/mnjuser/inbox") {
		return Result{
			Ignored:      true,
			IgnoreReason: "naukri inbox url",
			SourceDomain: models.SourceNaukri,
		}, nil
	}
	if !strings.Contains(path, "/job-listings-") {
		return Result{
			Ignored:      true,
			IgnoreReason: "naukri url is not a job listing",
			SourceDomain: models.SourceNaukri,
		}, nil
	}
	var id string
	if m := trailingIDRe.FindStringSubmatch(path); m != nil {
		id = m[1]
	}
	jobURL := "https://" + strings.ToLower(u.Host) + path
	return Result{
		SourceDomain: models.SourceNaukri,
		JobID:        id,
		JobURL:       jobURL,
		JobKey:       JobKey(models.SourceNaukri, id, jobURL),
	}, nil
}

func normalizeOther(u *url.URL) (Result, error) {
	stripped := &url.URL{
		Scheme: u.Scheme,
		Host:   strings.ToLower(u.Host),
		Path:   strings.TrimSuffix(u.Path, "/"),
	}
	jobURL := stripped.String()
	return Result{
		SourceDomain: models.SourceOther,
		JobURL:       jobURL,
		JobKey:       JobKey(models.SourceOther, "", jobURL),
	}, nil
}

// unwrapRedirect peels one layer of tracking indirection. It handles
// destination-in-query gateways and the iimjobs postoffice /CL0/<encoded>/
// scheme, where the destination is percent-encoded (sometimes twice) as a
// path segment.
func unwrapRedirect(u *url.URL) (*url.URL, bool) {
	if strings.Contains(strings.ToLower(u.Host), "iimjobs") && strings.HasPrefix(u.Path, "/CL0/") {
		rest := strings.TrimPrefix(u.Path, "/CL0/")
		if u.RawPath != "" {
			rest = strings.TrimPrefix(u.RawPath, "/CL0/")
		}
		seg := rest
		if i := strings.Index(seg, "/"); i >= 0 {
			seg = seg[:i]
		}
		if dec := decodeUntilURL(seg); dec != "" {
			if inner, err := url.Parse(dec); err == nil && inner.Host != "" {
				return inner, true
			}
		}
	}

	q := u.Query()
	for _, p := range redirectParams {
		v := q.Get(p)
		if v == "" {
			continue
		}
		if dec := decodeUntilURL(v); dec != "" {
			v = dec
		}
		if !strings.HasPrefix(strings.ToLower(v), "http://") && !strings.HasPrefix(strings.ToLower(v), "https://") {
			continue
		}
		inner, err := url.Parse(v)
		if err != nil || inner.Host == "" {
			continue
		}
		return inner, true
	}
	return u, false
}

// decodeUntilURL percent-decodes s up to twice, returning the first decoding
// that starts with an http(s) scheme, or "" when none does.
func decodeUntilURL(s string) string {
	cur := s
	for i := 0; i < 2; i++ {
		low := strings.ToLower(cur)
		if strings.HasPrefix(low, "http://") || strings.HasPrefix(low, "https://") {
			return cur
		}
		dec, err := url.QueryUnescape(cur)
		if err != nil || dec == cur {
			return ""
		}
		cur = dec
	}
	low := strings.ToLower(cur)
	if strings.HasPrefix(low, "http://") || strings.HasPrefix(low, "https://") {
		return cur
	}
	return ""
}

func classifyHost(host string) models.SourceDomain {
	h := strings.ToLower(host)
	if i := strings.LastIndex(h, ":"); i >= 0 {
		h = h[:i]
	}
	switch {
	case h == "linkedin.com" || strings.HasSuffix(h, ".linkedin.com"):
		return models.SourceLinkedIn
	case h == "iimjobs.com" || strings.HasSuffix(h, ".iimjobs.com"):
		return models.SourceIIMJobs
	case h == "naukri.com" || strings.HasSuffix(h, ".naukri.com"):
		return models.SourceNaukri
	default:
		return models.SourceOther
	}
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
