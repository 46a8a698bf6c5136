package config

import (
	"os"
	"testing"
	"time"
)

// ========================================
// Helper Functions Tests
// ========================================

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_GET_ENV", "test_value")
	defer os.Unsetenv("TEST_GET_ENV")

	t.Run("existing env var", func(t *testing.T) {
		result := getEnv("TEST_GET_ENV", "default")
		if result != "test_value" {
			t.Errorf("getEnv() = %q, want %q", result, "test_value")
		}
	})

	t.Run("missing env var", func(t *testing.T) {
		result := getEnv("TEST_MISSING_VAR", "default_value")
		if result != "default_value" {
			t.Errorf("getEnv() = %q, want %q", result, "default_value")
		}
	})

	t.Run("empty env var", func(t *testing.T) {
		os.Setenv("TEST_EMPTY_VAR", "")
		defer os.Unsetenv("TEST_EMPTY_VAR")

		result := getEnv("TEST_EMPTY_VAR", "default")
		if result != "default" {
			t.Errorf("getEnv() = %q, want %q (empty should use default)", result, "default")
		}
	})
}

func TestGetEnvInt(t *testing.T) {
	t.Run("valid integer", func(t *testing.T) {
		os.Setenv("TEST_INT", "42")
		defer os.Unsetenv("TEST_INT")

		result := getEnvInt("TEST_INT", 0)
		if result != 42 {
			t.Errorf("getEnvInt() = %d, want 42", result)
		}
	})

	t.Run("invalid integer", func(t *testing.T) {
		os.Setenv("TEST_INT_INVALID", "not-a-number")
		defer os.Unsetenv("TEST_INT_INVALID")

		result := getEnvInt("TEST_INT_INVALID", 99)
		if result != 99 {
			t.Errorf("getEnvInt() = %d, want 99 (default)", result)
		}
	})

	t.Run("missing env var", func(t *testing.T) {
		result := getEnvInt("TEST_INT_MISSING", 100)
		if result != 100 {
			t.Errorf("getEnvInt() = %d, want 100 (default)", result)
		}
	})
}

func TestGetEnvSlice(t *testing.T) {
	t.Run("comma separated with spaces", func(t *testing.T) {
		os.Setenv("TEST_SLICE", "a, b ,c,,")
		defer os.Unsetenv("TEST_SLICE")

		result := getEnvSlice("TEST_SLICE", nil)
		want := []string{"a", "b", "c"}
		if len(result) != len(want) {
			t.Fatalf("getEnvSlice() = %v, want %v", result, want)
		}
		for i := range want {
			if result[i] != want[i] {
				t.Errorf("getEnvSlice()[%d] = %q, want %q", i, result[i], want[i])
			}
		}
	})

	t.Run("missing env var", func(t *testing.T) {
		result := getEnvSlice("TEST_SLICE_MISSING", []string{"x"})
		if len(result) != 1 || result[0] != "x" {
			t.Errorf("getEnvSlice() = %v, want [x]", result)
		}
	})
}

func TestClampInt(t *testing.T) {
	tests := []struct {
		name     string
		v        int
		min, max int
		want     int
	}{
		{"below min", 0, 1, 6, 1},
		{"above max", 99, 1, 6, 6},
		{"in range", 3, 1, 6, 3},
		{"at min", 1, 1, 6, 1},
		{"at max", 6, 1, 6, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampInt(tt.v, tt.min, tt.max)
			if got != tt.want {
				t.Errorf("clampInt(%d, %d, %d) = %d, want %d", tt.v, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

// ========================================
// Load Tests
// ========================================

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.JDFetchTimeout != 7*time.Second {
		t.Errorf("JDFetchTimeout = %v, want 7s", cfg.JDFetchTimeout)
	}
	if cfg.MinJDChars != 120 {
		t.Errorf("MinJDChars = %d, want 120", cfg.MinJDChars)
	}
	if cfg.MinTargetSignal != 8 {
		t.Errorf("MinTargetSignal = %d, want 8", cfg.MinTargetSignal)
	}
	if cfg.ShortlistThreshold != 75 {
		t.Errorf("ShortlistThreshold = %d, want 75", cfg.ShortlistThreshold)
	}
	if cfg.ArchiveThreshold != 55 {
		t.Errorf("ArchiveThreshold = %d, want 55", cfg.ArchiveThreshold)
	}
	if cfg.RecoverConcurrency != 3 {
		t.Errorf("RecoverConcurrency = %d, want 3", cfg.RecoverConcurrency)
	}
	if cfg.ScheduleMaxMS != 45000 {
		t.Errorf("ScheduleMaxMS = %d, want 45000", cfg.ScheduleMaxMS)
	}
	if cfg.ScheduleCron != "*/15 * * * *" {
		t.Errorf("ScheduleCron = %q, want every 15 minutes", cfg.ScheduleCron)
	}
	if !cfg.StrictLinkedIn() {
		t.Error("StrictLinkedIn() should default to true")
	}
	if cfg.AIAvailable() && os.Getenv("ANTHROPIC_API_KEY") == "" {
		t.Error("AIAvailable() should be false without ANTHROPIC_API_KEY")
	}
	if cfg.EncryptionEnabled() {
		t.Error("EncryptionEnabled() should be false without a configured secret")
	}
}

func TestLoad_ClampsBoundedKnobs(t *testing.T) {
	t.Setenv("JD_FETCH_TIMEOUT_MS", "100")
	t.Setenv("SCHEDULE_MAX_MS", "999999999")
	t.Setenv("RECOVER_CONCURRENCY", "40")
	t.Setenv("LLM_EXTRACT_MAX_TOKENS", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.JDFetchTimeout != 1500*time.Millisecond {
		t.Errorf("JDFetchTimeout = %v, want 1.5s (clamped)", cfg.JDFetchTimeout)
	}
	if cfg.ScheduleMaxMS != MaxScheduleMS {
		t.Errorf("ScheduleMaxMS = %d, want %d (clamped)", cfg.ScheduleMaxMS, MaxScheduleMS)
	}
	if cfg.RecoverConcurrency != MaxRecoverWorkers {
		t.Errorf("RecoverConcurrency = %d, want %d (clamped)", cfg.RecoverConcurrency, MaxRecoverWorkers)
	}
	if cfg.LLMExtractMaxTokens != MinExtractTokens {
		t.Errorf("LLMExtractMaxTokens = %d, want %d (clamped)", cfg.LLMExtractMaxTokens, MinExtractTokens)
	}
}

func TestLoad_EmptyCronDisablesSchedule(t *testing.T) {
	t.Setenv("SCHEDULE_CRON", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ScheduleCron != "" {
		t.Errorf("ScheduleCron = %q, want empty (disabled)", cfg.ScheduleCron)
	}
}

func TestLoad_EncryptionSecretDerivesKey(t *testing.T) {
	t.Setenv("ENCRYPTION_SECRET", "a-long-shared-secret-for-testing")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !cfg.EncryptionEnabled() {
		t.Fatal("EncryptionEnabled() = false, want true")
	}
	if len(cfg.EncryptionKey) != 32 {
		t.Errorf("EncryptionKey length = %d, want 32", len(cfg.EncryptionKey))
	}

	// Derivation must be deterministic.
	again := deriveEncryptionKey("a-long-shared-secret-for-testing")
	for i := range again {
		if cfg.EncryptionKey[i] != again[i] {
			t.Fatal("derived key is not deterministic")
		}
	}
}

func TestLoad_InvalidThresholds(t *testing.T) {
	t.Setenv("SCORE_THRESHOLD_SHORTLIST", "50")
	t.Setenv("SCORE_THRESHOLD_ARCHIVE", "60")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject shortlist threshold below archive threshold")
	}
}
