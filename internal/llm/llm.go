// Package llm wraps the Anthropic API behind the two narrow contracts the
// pipeline needs: structured JD extraction and job-vs-target scoring, plus
// an optional pack polish. All calls run at temperature 0 with bounded
// output tokens; callers treat failures as degraded mode, never fatal.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrUnavailable is returned when no API key is configured.
var ErrUnavailable = errors.New("llm backend not configured")

// ErrInvalidModelJSON is returned when the model output contains no
// parseable JSON object.
var ErrInvalidModelJSON = errors.New("model returned no parseable json object")

// Usage captures token and latency telemetry for one call.
type Usage struct {
	Model       string `json:"model"`
	TokensIn    int64  `json:"tokens_in"`
	TokensOut   int64  `json:"tokens_out"`
	TokensTotal int64  `json:"tokens_total"`
	LatencyMS   int64  `json:"latency_ms"`
}

// Config holds per-call knobs injected from the environment.
type Config struct {
	APIKey           string
	Model            string
	ExtractMaxTokens int
	ScoreMaxTokens   int
	Timeout          time.Duration
}

// Client is the shared Anthropic wrapper.
type Client struct {
	api              anthropic.Client
	model            string
	extractMaxTokens int64
	scoreMaxTokens   int64
	timeout          time.Duration
	logger           *slog.Logger
	available        bool
}

// New builds a Client. A missing API key yields a client whose calls return
// ErrUnavailable so the pipeline can degrade instead of crashing.
func New(cfg Config, logger *slog.Logger) *Client {
	c := &Client{
		model:            cfg.Model,
		extractMaxTokens: int64(cfg.ExtractMaxTokens),
		scoreMaxTokens:   int64(cfg.ScoreMaxTokens),
		timeout:          cfg.Timeout,
		logger:           logger,
		available:        cfg.APIKey != "",
	}
	if c.model == "" {
		c.model = "claude-sonnet-4-20250514"
	}
	if c.extractMaxTokens <= 0 {
		c.extractMaxTokens = 500
	}
	if c.scoreMaxTokens <= 0 {
		c.scoreMaxTokens = 900
	}
	if c.timeout <= 0 {
		c.timeout = 60 * time.Second
	}
	if c.available {
		c.api = anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	}
	return c
}

// Available reports whether the backend is configured.
func (c *Client) Available() bool {
	return c != nil && c.available
}

// Model returns the configured model id.
func (c *Client) Model() string {
	return c.model
}

// complete runs one deterministic message call and returns the concatenated
// text blocks.
func (c *Client) complete(ctx context.Context, system, user string, maxTokens int64) (string, Usage, error) {
	if !c.Available() {
		return "", Usage{}, ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(0),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	usage := Usage{Model: c.model, LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		return "", usage, fmt.Errorf("anthropic call failed: %w", err)
	}

	usage.TokensIn = resp.Usage.InputTokens
	usage.TokensOut = resp.Usage.OutputTokens
	usage.TokensTotal = usage.TokensIn + usage.TokensOut

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", usage, fmt.Errorf("anthropic returned no text content")
	}
	return sb.String(), usage, nil
}
