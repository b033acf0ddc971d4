package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/smallbiznis/snapcount/internal/config"
)

const (
	defaultSamplingRatio    = 0.1
	developmentSamplingRate = 1.0
)

// Config is the observability view of the app config, with the standard
// OTEL_* and LOG_* variables layered on top.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	DeviceID    string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	protocol := firstNonEmpty(
		os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"),
		os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"),
		"grpc",
	)
	out := Config{
		ServiceName:          firstNonEmpty(cfg.AppName, "snapcount"),
		Environment:          firstNonEmpty(os.Getenv("DEPLOYMENT_ENV"), cfg.Environment),
		Version:              firstNonEmpty(os.Getenv("SERVICE_VERSION"), cfg.AppVersion),
		DeviceID:             firstNonEmpty(cfg.DeviceID, "local"),
		LogLevel:             strings.ToLower(firstNonEmpty(os.Getenv("LOG_LEVEL"), "info")),
		LogFormat:            strings.ToLower(firstNonEmpty(os.Getenv("LOG_FORMAT"), "json")),
		OtelEnabled:          parseBool(os.Getenv("OTEL_ENABLED"), false),
		OtelExporterEndpoint: firstNonEmpty(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), cfg.OTLPEndpoint),
		OtelExporterProtocol: strings.ToLower(protocol),
	}

	// a single device produces little traffic; keep every trace while developing
	ratio := defaultSamplingRatio
	if isDevEnv(out.Environment) {
		ratio = developmentSamplingRate
	}
	out.OtelSamplingRatio = parseFloat(os.Getenv("OTEL_SAMPLING_RATIO"), ratio)
	return out
}

func (c Config) Debug() bool {
	return strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") || isDevEnv(c.Environment)
}

func isDevEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

func parseBool(raw string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func parseFloat(raw string, def float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return def
	}
	return parsed
}
