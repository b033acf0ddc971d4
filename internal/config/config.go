package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	DeviceID    string

	OTLPEndpoint string

	Gemini GeminiConfig
	Store  StoreConfig
	Redis  RedisConfig

	RateLimit RateLimitConfig

	EstimateCacheTTL time.Duration

	Scheduler   SchedulerConfig
	MetricsPush MetricsPushConfig
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type StoreConfig struct {
	Driver string
	Path   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled       bool
	EstimateRate  float64
	EstimateBurst int
	InFlightTTL   time.Duration
}

type SchedulerConfig struct {
	Enabled     bool
	RunInterval time.Duration
}

// MetricsPushConfig sends the device metrics to a collector when nothing scrapes /metrics.
type MetricsPushConfig struct {
	Exporter  string
	Endpoint  string
	AuthToken string
	Interval  time.Duration
}

func (c MetricsPushConfig) Enabled() bool {
	return strings.TrimSpace(c.Exporter) != "" && strings.TrimSpace(c.Endpoint) != ""
}

const (
	StoreDriverSQLite    = "sqlite"
	StoreDriverSQLiteCGO = "sqlite3"
	StoreDriverMemory    = "memory"
)

const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	apiKey := strings.TrimSpace(getenv("GOOGLE_API_KEY", ""))
	if apiKey == "" {
		apiKey = strings.TrimSpace(getenv("google_api_key", ""))
	}

	timeout := getenvDuration("ESTIMATOR_TIMEOUT", 30*time.Second)

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "snapcount"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		DeviceID:     strings.TrimSpace(getenv("DEVICE_ID", "local")),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		Gemini: GeminiConfig{
			APIKey:  apiKey,
			Model:   getenv("GEMINI_MODEL", "gemini-2.5-flash"),
			BaseURL: strings.TrimRight(getenv("GEMINI_BASE_URL", DefaultGeminiBaseURL), "/"),
			Timeout: timeout,
		},
		Store: StoreConfig{
			Driver: normalizeStoreDriver(getenv("STORE_DRIVER", StoreDriverSQLite)),
			Path:   getenv("STORE_PATH", "snapcount.db"),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			EstimateRate:  getenvFloat("ESTIMATE_RATE", 0.5),
			EstimateBurst: getenvInt("ESTIMATE_BURST", 5),
			InFlightTTL:   timeout + 5*time.Second,
		},
		EstimateCacheTTL: getenvDuration("ESTIMATE_CACHE_TTL", 10*time.Minute),
		Scheduler: SchedulerConfig{
			Enabled:     getenvBool("SCHEDULER_ENABLED", true),
			RunInterval: getenvDuration("SCHEDULER_INTERVAL", time.Minute),
		},
		MetricsPush: MetricsPushConfig{
			Exporter:  strings.ToLower(strings.TrimSpace(getenv("METRICS_PUSH_EXPORTER", ""))),
			Endpoint:  strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("METRICS_PUSH_TOKEN", "")),
			Interval:  getenvDuration("METRICS_PUSH_INTERVAL", 5*time.Minute),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func normalizeStoreDriver(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case StoreDriverSQLiteCGO, StoreDriverMemory:
		return value
	default:
		return StoreDriverSQLite
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

// getenvDuration accepts Go duration strings ("45s") or a bare number of seconds.
func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return def
}
