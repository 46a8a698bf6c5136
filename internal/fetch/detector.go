package fetch

import (
	"net/http"
	"strings"
)

// SignalType identifies the kind of block detected on a fetched page.
type SignalType string

const (
	SignalNone         SignalType = ""
	SignalChallenge    SignalType = "challenge"
	SignalCaptcha      SignalType = "captcha"
	SignalAccessDenied SignalType = "access_denied"
	SignalRateLimited  SignalType = "rate_limited"
	SignalEmptyContent SignalType = "empty_content"
	SignalLoginWall    SignalType = "login_wall"
)

// Detection is the outcome of block analysis on one response.
type Detection struct {
	Detected    bool
	Signal      SignalType
	Confidence  int // 0-100
	Description string
}

// Detector analyzes job-board responses for signs that the request was
// served a challenge, consent wall, or login wall instead of the posting.
type Detector struct{}

// NewDetector creates a detector with default settings.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect analyzes a response for block signals. Status code wins over
// headers, headers over body patterns.
func (d *Detector) Detect(statusCode int, headers http.Header, body []byte) Detection {
	if res := d.checkStatusCode(statusCode); res.Detected {
		return res
	}
	if res := d.checkHeaders(headers); res.Detected {
		return res
	}
	return d.checkBody(body)
}

func (d *Detector) checkStatusCode(statusCode int) Detection {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return Detection{
			Detected:    true,
			Signal:      SignalAccessDenied,
			Confidence:  90,
			Description: "access denied - site is refusing automated requests",
		}
	case http.StatusTooManyRequests:
		return Detection{
			Detected:    true,
			Signal:      SignalRateLimited,
			Confidence:  95,
			Description: "rate limited by the job board",
		}
	case http.StatusServiceUnavailable:
		return Detection{
			Detected:    true,
			Signal:      SignalChallenge,
			Confidence:  70,
			Description: "service unavailable - likely an anti-bot challenge",
		}
	}
	return Detection{}
}

func (d *Detector) checkHeaders(headers http.Header) Detection {
	if headers == nil {
		return Detection{}
	}
	if headers.Get("cf-ray") != "" && headers.Get("cf-mitigated") == "challenge" {
		return Detection{
			Detected:    true,
			Signal:      SignalChallenge,
			Confidence:  95,
			Description: "challenge page served instead of content",
		}
	}
	return Detection{}
}

var (
	challengePatterns = []string{
		"cf-browser-verification",
		"challenge-platform",
		"_cf_chl",
		"checking your browser",
		"just a moment...",
		"attention required! | cloudflare",
	}

	captchaPatterns = []string{
		"g-recaptcha",
		"h-captcha",
		"data-sitekey",
		"cf-turnstile",
		"please verify you are human",
		"are you a robot",
	}

	loginWallPatterns = []string{
		"sign in to view this job",
		"join linkedin",
		"authwall",
		"login to continue",
		"sign in to continue",
	}

	accessDeniedPatterns = []string{
		"access denied",
		"request blocked",
		"bot detected",
		"automated access",
	}
)

func (d *Detector) checkBody(body []byte) Detection {
	if len(body) == 0 {
		return Detection{
			Detected:    true,
			Signal:      SignalEmptyContent,
			Confidence:  80,
			Description: "empty response body",
		}
	}
	lower := strings.ToLower(string(body))

	for _, p := range challengePatterns {
		if strings.Contains(lower, p) {
			return Detection{
				Detected:    true,
				Signal:      SignalChallenge,
				Confidence:  90,
				Description: "anti-bot challenge page detected",
			}
		}
	}
	for _, p := range captchaPatterns {
		if strings.Contains(lower, p) {
			return Detection{
				Detected:    true,
				Signal:      SignalCaptcha,
				Confidence:  85,
				Description: "captcha page detected",
			}
		}
	}
	for _, p := range loginWallPatterns {
		if strings.Contains(lower, p) {
			return Detection{
				Detected:    true,
				Signal:      SignalLoginWall,
				Confidence:  85,
				Description: "login wall served instead of the posting",
			}
		}
	}
	for _, p := range accessDeniedPatterns {
		if strings.Contains(lower, p) {
			return Detection{
				Detected:    true,
				Signal:      SignalAccessDenied,
				Confidence:  75,
				Description: "access denied page detected",
			}
		}
	}
	return Detection{}
}
