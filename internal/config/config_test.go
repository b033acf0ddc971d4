package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("google_api_key", "lower-key")
	t.Setenv("ESTIMATOR_TIMEOUT", "")
	t.Setenv("STORE_DRIVER", "POSTGRES")

	cfg := Load()

	assert.Equal(t, "lower-key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, 30*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, 35*time.Second, cfg.RateLimit.InFlightTTL)
}

func TestMetricsPushEnabled(t *testing.T) {
	t.Setenv("METRICS_PUSH_EXPORTER", "")
	t.Setenv("METRICS_PUSH_ENDPOINT", "")
	assert.False(t, Load().MetricsPush.Enabled())

	t.Setenv("METRICS_PUSH_EXPORTER", " Prometheus_Pushgateway ")
	t.Setenv("METRICS_PUSH_ENDPOINT", "http://gateway:9091")
	cfg := Load()
	assert.True(t, cfg.MetricsPush.Enabled())
	assert.Equal(t, "prometheus_pushgateway", cfg.MetricsPush.Exporter)
	assert.Equal(t, 5*time.Minute, cfg.MetricsPush.Interval)
}

func TestGetenvDurationAcceptsSeconds(t *testing.T) {
	t.Setenv("SNAPCOUNT_TEST_TIMEOUT", "12")
	assert.Equal(t, 12*time.Second, getenvDuration("SNAPCOUNT_TEST_TIMEOUT", time.Second))

	t.Setenv("SNAPCOUNT_TEST_TIMEOUT", "1500ms")
	assert.Equal(t, 1500*time.Millisecond, getenvDuration("SNAPCOUNT_TEST_TIMEOUT", time.Second))

	t.Setenv("SNAPCOUNT_TEST_TIMEOUT", "soon")
	assert.Equal(t, time.Second, getenvDuration("SNAPCOUNT_TEST_TIMEOUT", time.Second))
}

func TestIntakeConfigAccepts(t *testing.T) {
	cfg := DefaultIntakeConfig()

	assert.True(t, cfg.Accepts("image/jpeg"))
	assert.True(t, cfg.Accepts(" IMAGE/PNG "))
	assert.False(t, cfg.Accepts("image/gif"))
	assert.False(t, cfg.Accepts("application/pdf"))

	open := IntakeConfig{}
	assert.True(t, open.Accepts("image/gif"))
	assert.False(t, open.Accepts("text/plain"))
}

func TestValidateIntakeConfig(t *testing.T) {
	assert.NoError(t, validateIntakeConfig(DefaultIntakeConfig()))

	bad := DefaultIntakeConfig()
	bad.JPEGQuality = 0
	assert.Error(t, validateIntakeConfig(bad))

	bad = DefaultIntakeConfig()
	bad.MaxImageWidth = -1
	assert.Error(t, validateIntakeConfig(bad))
}

func TestIntakeConfigHolderNilFallsBackToDefaults(t *testing.T) {
	var holder *IntakeConfigHolder
	assert.Equal(t, DefaultIntakeConfig(), holder.Get())
}
