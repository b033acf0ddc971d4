package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// IntakeConfig bounds what the image intake accepts before it reaches the estimator.
type IntakeConfig struct {
	AcceptedTypes []string `mapstructure:"acceptedTypes"`
	MaxImageBytes int64    `mapstructure:"maxImageBytes"`
	MaxImageWidth int      `mapstructure:"maxImageWidth"`
	JPEGQuality   int      `mapstructure:"jpegQuality"`
}

func DefaultIntakeConfig() IntakeConfig {
	return IntakeConfig{
		AcceptedTypes: []string{"image/jpeg", "image/png", "image/webp", "image/heic"},
		MaxImageBytes: 10 * 1024 * 1024,
		MaxImageWidth: 800,
		JPEGQuality:   80,
	}
}

// Accepts reports whether the declared MIME type is on the accepted list.
func (c IntakeConfig) Accepts(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if !strings.HasPrefix(mimeType, "image/") {
		return false
	}
	if len(c.AcceptedTypes) == 0 {
		return true
	}
	for _, accepted := range c.AcceptedTypes {
		if strings.EqualFold(strings.TrimSpace(accepted), mimeType) {
			return true
		}
	}
	return false
}

type IntakeConfigHolder struct {
	current atomic.Value // holds IntakeConfig
}

// NewStaticIntakeConfigHolder returns a holder that never reloads.
func NewStaticIntakeConfigHolder(cfg IntakeConfig) *IntakeConfigHolder {
	holder := &IntakeConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewIntakeConfigHolder(logger *zap.Logger) (*IntakeConfigHolder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("config.intake")
	v := viper.New()

	v.SetConfigName("intake")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/snapcount")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SNAPCOUNT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultIntakeConfig()
	v.SetDefault("intake.acceptedTypes", defaults.AcceptedTypes)
	v.SetDefault("intake.maxImageBytes", defaults.MaxImageBytes)
	v.SetDefault("intake.maxImageWidth", defaults.MaxImageWidth)
	v.SetDefault("intake.jpegQuality", defaults.JPEGQuality)

	found := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		found = false
	}

	var cfg IntakeConfig
	if err := v.UnmarshalKey("intake", &cfg); err != nil {
		return nil, err
	}
	if err := validateIntakeConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticIntakeConfigHolder(cfg)
	if !found {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated IntakeConfig
		if err := v.UnmarshalKey("intake", &updated); err != nil {
			logger.Warn("intake config reload failed", zap.Error(err))
			return
		}
		if err := validateIntakeConfig(updated); err != nil {
			logger.Warn("invalid intake config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		logger.Info("intake config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *IntakeConfigHolder) Get() IntakeConfig {
	if h == nil {
		return DefaultIntakeConfig()
	}
	cfg, ok := h.current.Load().(IntakeConfig)
	if !ok {
		return DefaultIntakeConfig()
	}
	return cfg
}

func validateIntakeConfig(cfg IntakeConfig) error {
	if cfg.MaxImageBytes <= 0 {
		return errors.New("intake.maxImageBytes must be positive")
	}
	if cfg.MaxImageWidth <= 0 {
		return errors.New("intake.maxImageWidth must be positive")
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return errors.New("intake.jpegQuality must be within 1..100")
	}
	return nil
}
