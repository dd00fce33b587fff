// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissing is returned by Validate when a mandatory setting is absent.
var ErrMissing = errors.New("required configuration missing")

// DefaultModel is used when GEMINI_MODEL is not set.
const DefaultModel = "gemini-2.5-flash"

// Configuration holds all service settings, grouped by concern.
type Configuration struct {
	Service       ServiceConfig
	Telegram      TelegramConfig
	AI            AIConfig
	Retry         RetryConfig
	Typing        TypingConfig
	Media         MediaConfig
	Limits        LimitsConfig
	Network       NetworkConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Principal string
}

type TelegramConfig struct {
	BotToken    string
	APIEndpoint string
	PollTimeout time.Duration
}

type AIConfig struct {
	APIKey   string
	Model    string
	Provider string // gemini, mock
	Timeout  time.Duration
}

type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

type TypingConfig struct {
	Interval time.Duration
}

type MediaConfig struct {
	FFmpegPath     string
	MinOutputBytes int
}

type LimitsConfig struct {
	MaxAudioBytes     int64
	MaxConcurrentJobs int // 0 = unbounded
}

type NetworkConfig struct {
	ProxyAddr string // SOCKS5, empty = direct
}

type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	TopicCompleted string
	TopicFailed    string
	Principal      string
}

type ObservabilityConfig struct {
	MetricsAddr string // empty disables the HTTP listener
	LogLevel    string
	LogFormat   string
}

// Load reads an optional .env file and then the process environment.
// Values that fail to parse fall back to their defaults.
func Load() *Configuration {
	loadDotEnv(envOrDefault("ENV_FILE", ".env"))

	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-voice-relay-bot")

	return &Configuration{
		Service: ServiceConfig{
			Principal: principal,
		},
		Telegram: TelegramConfig{
			BotToken:    strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
			APIEndpoint: os.Getenv("TELEGRAM_API_ENDPOINT"),
			PollTimeout: envOrDefaultDuration("TELEGRAM_POLL_TIMEOUT", 30*time.Second),
		},
		AI: AIConfig{
			APIKey:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Model:    envOrDefault("GEMINI_MODEL", DefaultModel),
			Provider: strings.ToLower(envOrDefault("STT_PROVIDER", "gemini")),
			Timeout:  envOrDefaultDuration("TRANSCRIPTION_TIMEOUT", 60*time.Second),
		},
		Retry: RetryConfig{
			Attempts: envOrDefaultInt("RETRY_ATTEMPTS", 3),
			Delay:    envOrDefaultDuration("RETRY_DELAY", time.Second),
		},
		Typing: TypingConfig{
			Interval: envOrDefaultDuration("TYPING_INTERVAL", 6*time.Second),
		},
		Media: MediaConfig{
			FFmpegPath:     envOrDefault("FFMPEG_PATH", "ffmpeg"),
			MinOutputBytes: envOrDefaultInt("MEDIA_MIN_OUTPUT_BYTES", 1024),
		},
		Limits: LimitsConfig{
			MaxAudioBytes:     envOrDefaultInt64("MAX_AUDIO_BYTES", 20*1024*1024),
			MaxConcurrentJobs: envOrDefaultInt("MAX_CONCURRENT_JOBS", 0),
		},
		Network: NetworkConfig{
			ProxyAddr: os.Getenv("PROXY_ADDR"),
		},
		Kafka: KafkaConfig{
			Enabled:        envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:        envOrDefaultList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicCompleted: envOrDefault("KAFKA_TOPIC_COMPLETED", "voice.transcript.completed"),
			TopicFailed:    envOrDefault("KAFKA_TOPIC_FAILED", "voice.transcript.failed"),
			Principal:      envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			MetricsAddr: os.Getenv("METRICS_ADDR"),
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

// Validate checks the hard preconditions. TELEGRAM_BOT_TOKEN is always
// required. GEMINI_API_KEY is required unless STT_PROVIDER is "mock", which
// transcribes offline and never calls Gemini.
func (c *Configuration) Validate() error {
	var missing []string
	if c.Telegram.BotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.AI.APIKey == "" && c.AI.Provider != "mock" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

func loadDotEnv(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	// Variables already present in the environment win over the file.
	_ = godotenv.Load(path)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
