package scheduler

import (
	"time"

	"github.com/smallbiznis/snapcount/internal/config"
)

// Config controls scheduler intervals.
type Config struct {
	RunInterval         time.Duration
	JobTimeout          time.Duration
	MetricsPushInterval time.Duration
	EnabledJobs         []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:         time.Minute,
		JobTimeout:          30 * time.Second,
		MetricsPushInterval: 5 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:         cfg.Scheduler.RunInterval,
		MetricsPushInterval: cfg.MetricsPush.Interval,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.MetricsPushInterval <= 0 {
		c.MetricsPushInterval = defaults.MetricsPushInterval
	}
	return c
}
