// Package config handles application configuration.
package config

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

// Clamp bounds for operator-tunable knobs. Values outside these ranges are
// pulled back to the nearest bound rather than rejected.
const (
	MinFetchTimeoutMS = 1500
	MaxFetchTimeoutMS = 15000
	MinScheduleMS     = 5000
	MaxScheduleMS     = 840000
	MinRecoverWorkers = 1
	MaxRecoverWorkers = 6
	MinExtractTokens  = 128
	MaxExtractTokens  = 700
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    int
	BaseURL string

	// Database
	DatabaseURL string

	// LLM
	AnthropicAPIKey     string
	AnthropicModel      string
	LLMExtractMaxTokens int
	LLMScoreMaxTokens   int
	LLMTimeout          time.Duration

	// JD resolution
	JDFetchTimeout      time.Duration // clamped [1.5s, 15s]
	LinkedInFetchPolicy string        // "strict_linkedin" skips direct fetches

	// Scoring
	MinJDChars         int
	MinTargetSignal    int
	ShortlistThreshold int
	ArchiveThreshold   int

	// Ingestion / recovery
	RecoverConcurrency int // clamped [1, 6]

	// Scheduler
	ScheduleMaxMS int // wall-clock budget per run, clamped [5s, 840s]
	ScheduleCron  string

	// Worker
	WorkerEnabled      bool
	WorkerPollInterval time.Duration

	// Application packs
	PackSummaryMinChars int
	PackMinBullets      int
	PackMinATS          int
	PackMinMustPct      int

	// Inbound webhooks
	WhatsAppJWTSecret      string
	WhatsAppAllowedSenders []string
	RelayWebhookSecret     string

	// RSS polling
	RSSFeeds []string

	// Encryption (contact handles at rest)
	EncryptionKey []byte // 32-byte key for AES-256-GCM; nil disables encryption

	// CORS
	CORSOrigins []string

	// Rate limiting
	RateLimitRPM int

	// Object storage (S3-compatible) for exported artifacts
	StorageEnabled   bool
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageRegion    string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		DatabaseURL: getEnv("DATABASE_URL", "file:jobops.db?_journal=WAL&_timeout=5000"),

		AnthropicAPIKey:     getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:      getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		LLMExtractMaxTokens: getEnvInt("LLM_EXTRACT_MAX_TOKENS", 500),
		LLMScoreMaxTokens:   getEnvInt("LLM_SCORE_MAX_TOKENS", 900),
		LLMTimeout:          getEnvDuration("LLM_TIMEOUT", 60*time.Second),

		LinkedInFetchPolicy: getEnv("LINKEDIN_FETCH_POLICY", "strict_linkedin"),

		MinJDChars:         getEnvInt("MIN_JD_CHARS", 120),
		MinTargetSignal:    getEnvInt("MIN_TARGET_SIGNAL", 8),
		ShortlistThreshold: getEnvInt("SCORE_THRESHOLD_SHORTLIST", 75),
		ArchiveThreshold:   getEnvInt("SCORE_THRESHOLD_ARCHIVE", 55),

		ScheduleCron: getEnvAllowEmpty("SCHEDULE_CRON", "*/15 * * * *"),

		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 30*time.Second),

		PackSummaryMinChars: getEnvInt("PACK_SUMMARY_MIN_CHARS", 120),
		PackMinBullets:      getEnvInt("PACK_MIN_BULLETS", 3),
		PackMinATS:          getEnvInt("PACK_MIN_ATS", 40),
		PackMinMustPct:      getEnvInt("PACK_MIN_MUST_PCT", 40),

		WhatsAppJWTSecret:      getEnv("WHATSAPP_JWT_SECRET", ""),
		WhatsAppAllowedSenders: getEnvSlice("WHATSAPP_ALLOWED_SENDERS", nil),
		RelayWebhookSecret:     getEnv("RELAY_WEBHOOK_SECRET", ""),

		RSSFeeds: getEnvSlice("RSS_FEEDS", nil),

		CORSOrigins:  getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitRPM: getEnvInt("RATE_LIMIT_RPM", 100),

		StorageEndpoint:  getEnv("AWS_ENDPOINT_URL_S3", ""),
		StorageAccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		StorageSecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		StorageBucket:    getEnvWithFallback("BUCKET_NAME", "STORAGE_BUCKET", ""),
		StorageRegion:    getEnv("AWS_REGION", "auto"),
	}

	// Bounded knobs: out-of-range values clamp instead of failing startup.
	cfg.JDFetchTimeout = time.Duration(clampInt(getEnvInt("JD_FETCH_TIMEOUT_MS", 7000), MinFetchTimeoutMS, MaxFetchTimeoutMS)) * time.Millisecond
	cfg.ScheduleMaxMS = clampInt(getEnvInt("SCHEDULE_MAX_MS", 45000), MinScheduleMS, MaxScheduleMS)
	cfg.RecoverConcurrency = clampInt(getEnvInt("RECOVER_CONCURRENCY", 3), MinRecoverWorkers, MaxRecoverWorkers)
	cfg.LLMExtractMaxTokens = clampInt(cfg.LLMExtractMaxTokens, MinExtractTokens, MaxExtractTokens)

	// Enable storage only when both bucket and endpoint are configured.
	cfg.StorageEnabled = cfg.StorageBucket != "" && cfg.StorageEndpoint != ""

	// At-rest encryption key: explicit base64 key wins, otherwise derive from
	// ENCRYPTION_SECRET via HKDF. Neither set means encryption is disabled.
	if encKeyStr := getEnv("ENCRYPTION_KEY", ""); encKeyStr != "" {
		decoded, err := base64.StdEncoding.DecodeString(encKeyStr)
		if err != nil || len(decoded) != 32 {
			return nil, fmt.Errorf("ENCRYPTION_KEY must be a base64-encoded 32-byte key")
		}
		cfg.EncryptionKey = decoded
	} else if secret := getEnv("ENCRYPTION_SECRET", ""); secret != "" {
		cfg.EncryptionKey = deriveEncryptionKey(secret)
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535")
	}
	if cfg.ShortlistThreshold <= cfg.ArchiveThreshold {
		return nil, fmt.Errorf("SCORE_THRESHOLD_SHORTLIST must exceed SCORE_THRESHOLD_ARCHIVE")
	}

	return cfg, nil
}

// AIAvailable returns true when an LLM binding is configured.
func (c *Config) AIAvailable() bool {
	return c.AnthropicAPIKey != ""
}

// StrictLinkedIn returns true when direct LinkedIn fetches are disabled.
func (c *Config) StrictLinkedIn() bool {
	return c.LinkedInFetchPolicy == "strict_linkedin"
}

// EncryptionEnabled returns true when an at-rest encryption key is configured.
func (c *Config) EncryptionEnabled() bool {
	return len(c.EncryptionKey) == 32
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty keeps an explicitly exported empty value instead of the
// default, so SCHEDULE_CRON="" disables scheduling.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return defaultValue
}

func getEnvWithFallback(primary, fallback, defaultValue string) string {
	if value := os.Getenv(primary); value != "" {
		return value
	}
	if value := os.Getenv(fallback); value != "" {
		return value
	}
	return defaultValue
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// deriveEncryptionKey creates a 32-byte AES-256 key from a secret string using HKDF.
// HKDF is appropriate for high-entropy secrets; low-entropy passwords would need
// a password hash such as Argon2 instead.
func deriveEncryptionKey(secret string) []byte {
	salt := []byte("jobops-api-encryption-key-v1")
	info := []byte("aes-256-gcm-encryption")

	hkdfReader := hkdf.New(sha256.New, []byte(secret), salt, info)

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		panic("hkdf: failed to derive key: " + err.Error())
	}

	return key
}
