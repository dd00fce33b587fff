package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allVars = []string{
	"SERVICE_PRINCIPAL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_API_ENDPOINT", "TELEGRAM_POLL_TIMEOUT",
	"GEMINI_API_KEY", "GEMINI_MODEL", "STT_PROVIDER", "TRANSCRIPTION_TIMEOUT",
	"RETRY_ATTEMPTS", "RETRY_DELAY", "TYPING_INTERVAL",
	"FFMPEG_PATH", "MEDIA_MIN_OUTPUT_BYTES", "MAX_AUDIO_BYTES", "MAX_CONCURRENT_JOBS",
	"PROXY_ADDR", "KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_COMPLETED", "KAFKA_TOPIC_FAILED",
	"KAFKA_PRINCIPAL", "METRICS_ADDR", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv unsets every variable Load reads and points ENV_FILE at nothing.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range allVars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Service.Principal != "svc-voice-relay-bot" {
		t.Errorf("expected default principal 'svc-voice-relay-bot', got %s", cfg.Service.Principal)
	}
	if cfg.AI.Model != DefaultModel {
		t.Errorf("expected default model %s, got %s", DefaultModel, cfg.AI.Model)
	}
	if cfg.AI.Provider != "gemini" {
		t.Errorf("expected default provider 'gemini', got %s", cfg.AI.Provider)
	}
	if cfg.AI.Timeout != 60*time.Second {
		t.Errorf("expected default transcription timeout 60s, got %v", cfg.AI.Timeout)
	}
	if cfg.Retry.Attempts != 3 {
		t.Errorf("expected default retry attempts 3, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Delay != time.Second {
		t.Errorf("expected default retry delay 1s, got %v", cfg.Retry.Delay)
	}
	if cfg.Typing.Interval != 6*time.Second {
		t.Errorf("expected default typing interval 6s, got %v", cfg.Typing.Interval)
	}
	if cfg.Media.MinOutputBytes != 1024 {
		t.Errorf("expected default min output bytes 1024, got %d", cfg.Media.MinOutputBytes)
	}
	if cfg.Limits.MaxAudioBytes != 20*1024*1024 {
		t.Errorf("expected default max audio bytes 20MiB, got %d", cfg.Limits.MaxAudioBytes)
	}
	if cfg.Limits.MaxConcurrentJobs != 0 {
		t.Errorf("expected unbounded concurrency by default, got %d", cfg.Limits.MaxConcurrentJobs)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected kafka disabled by default")
	}
	if cfg.Observability.MetricsAddr != "" {
		t.Errorf("expected no metrics listener by default, got %q", cfg.Observability.MetricsAddr)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", " bot-token ")
	t.Setenv("GEMINI_API_KEY", "ai-key")
	t.Setenv("GEMINI_MODEL", "gemini-2.0-flash")
	t.Setenv("STT_PROVIDER", "MOCK")
	t.Setenv("RETRY_ATTEMPTS", "5")
	t.Setenv("RETRY_DELAY", "250ms")
	t.Setenv("TYPING_INTERVAL", "4s")
	t.Setenv("MAX_CONCURRENT_JOBS", "8")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("METRICS_ADDR", ":9100")

	cfg := Load()

	if cfg.Telegram.BotToken != "bot-token" {
		t.Errorf("expected trimmed bot token, got %q", cfg.Telegram.BotToken)
	}
	if cfg.AI.APIKey != "ai-key" {
		t.Errorf("expected ai key, got %q", cfg.AI.APIKey)
	}
	if cfg.AI.Model != "gemini-2.0-flash" {
		t.Errorf("expected custom model, got %s", cfg.AI.Model)
	}
	if cfg.AI.Provider != "mock" {
		t.Errorf("expected provider lowercased to 'mock', got %s", cfg.AI.Provider)
	}
	if cfg.Retry.Attempts != 5 || cfg.Retry.Delay != 250*time.Millisecond {
		t.Errorf("unexpected retry config: %+v", cfg.Retry)
	}
	if cfg.Typing.Interval != 4*time.Second {
		t.Errorf("expected typing interval 4s, got %v", cfg.Typing.Interval)
	}
	if cfg.Limits.MaxConcurrentJobs != 8 {
		t.Errorf("expected max concurrent jobs 8, got %d", cfg.Limits.MaxConcurrentJobs)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "k1:9092" || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.Observability.MetricsAddr != ":9100" {
		t.Errorf("expected metrics addr ':9100', got %s", cfg.Observability.MetricsAddr)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETRY_ATTEMPTS", "three")
	t.Setenv("RETRY_DELAY", "soon")
	t.Setenv("TRANSCRIPTION_TIMEOUT", "-")
	t.Setenv("MAX_AUDIO_BYTES", "big")
	t.Setenv("KAFKA_ENABLED", "maybe")

	cfg := Load()

	if cfg.Retry.Attempts != 3 {
		t.Errorf("expected default attempts on invalid input, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Delay != time.Second {
		t.Errorf("expected default delay on invalid input, got %v", cfg.Retry.Delay)
	}
	if cfg.AI.Timeout != 60*time.Second {
		t.Errorf("expected default timeout on invalid input, got %v", cfg.AI.Timeout)
	}
	if cfg.Limits.MaxAudioBytes != 20*1024*1024 {
		t.Errorf("expected default max audio bytes on invalid input, got %d", cfg.Limits.MaxAudioBytes)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected kafka disabled on invalid input")
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVICE_PRINCIPAL", "my-bot")

	cfg := Load()

	if cfg.Kafka.Principal != "my-bot" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("GEMINI_MODEL=from-file\nTELEGRAM_BOT_TOKEN=file-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", path)
	t.Cleanup(func() {
		os.Unsetenv("GEMINI_MODEL")
		os.Unsetenv("TELEGRAM_BOT_TOKEN")
	})

	cfg := Load()

	if cfg.AI.Model != "from-file" {
		t.Errorf("expected model from .env file, got %s", cfg.AI.Model)
	}
	if cfg.Telegram.BotToken != "file-token" {
		t.Errorf("expected token from .env file, got %s", cfg.Telegram.BotToken)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		apiKey   string
		provider string
		wantErr  bool
	}{
		{"all present", "t", "k", "gemini", false},
		{"missing token", "", "k", "gemini", true},
		{"missing api key", "t", "", "gemini", true},
		{"both missing", "", "", "gemini", true},
		{"mock needs no api key", "t", "", "mock", false},
		{"mock still needs token", "", "", "mock", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Configuration{
				Telegram: TelegramConfig{BotToken: tt.token},
				AI:       AIConfig{APIKey: tt.apiKey, Provider: tt.provider},
			}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMissing) {
				t.Errorf("expected ErrMissing, got %v", err)
			}
		})
	}
}

func TestLoad_MockProviderSkipsAPIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "t")
	t.Setenv("STT_PROVIDER", "MOCK")

	cfg := Load()

	if cfg.AI.Provider != "mock" {
		t.Fatalf("expected provider 'mock', got %s", cfg.AI.Provider)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected mock provider to validate without GEMINI_API_KEY, got %v", err)
	}

	t.Setenv("STT_PROVIDER", "gemini")
	if err := Load().Validate(); !errors.Is(err, ErrMissing) {
		t.Errorf("expected ErrMissing for gemini without GEMINI_API_KEY, got %v", err)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			t.Setenv(key, tt.envValue)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}
