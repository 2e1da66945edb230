package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type ScraperConfig struct {
	BaseURL              string        `mapstructure:"base_url"`
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	JobTimeout           time.Duration `mapstructure:"job_timeout"`
	MaxRequestsPerSecond float64       `mapstructure:"max_requests_per_second"`
	// SourceFilters are passed verbatim to the scraper jobs of one source,
	// e.g. a borough for nyc.opendata.
	SourceFilters []SourceFilter `mapstructure:"source_filters"`
}

type SourceFilter struct {
	Source  string         `mapstructure:"source"`
	Filters map[string]any `mapstructure:"filters"`
}

func (config *ScraperConfig) validate() error {
	var errs []error

	if config.BaseURL == "" {
		errs = append(errs, fmt.Errorf("missing variable: scraper base_url"))
	}
	if config.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive"))
	}
	if config.MaxRequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("max_requests_per_second must be positive"))
	}
	for i, filter := range config.SourceFilters {
		if filter.Source == "" {
			errs = append(errs, fmt.Errorf("source_filters[%d]: missing source", i))
		}
	}

	return errors.Join(errs...)
}

func (config *ScraperConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"scraper.base_url":    "SCRAPER_SERVICE_URL",
		"scraper.job_timeout": "SCRAPER_JOB_TIMEOUT",
	})
}

type AIConfig struct {
	Enabled              bool    `mapstructure:"enabled"`
	Key                  string  `mapstructure:"key"`
	Model                string  `mapstructure:"model"`
	MaxRequestsPerMinute float64 `mapstructure:"max_requests_per_minute"`
	MaxRequestsPerDay    float64 `mapstructure:"max_requests_per_day"`
	MaxDraftsPerDigest   int     `mapstructure:"max_drafts_per_digest"`
	Signature            string  `mapstructure:"signature"`
}

func (config *AIConfig) validate() error {
	if !config.Enabled {
		return nil
	}

	var errs []error
	if config.Key == "" {
		errs = append(errs, fmt.Errorf("missing variable: ai key"))
	}
	if config.Model == "" {
		errs = append(errs, fmt.Errorf("missing variable: ai model"))
	}
	if config.MaxRequestsPerMinute <= 0 || config.MaxRequestsPerDay <= 0 {
		errs = append(errs, fmt.Errorf("ai rate limits must be positive"))
	}
	if config.MaxDraftsPerDigest < 0 {
		errs = append(errs, fmt.Errorf("invalid ai max_drafts_per_digest %d", config.MaxDraftsPerDigest))
	}
	return errors.Join(errs...)
}

func (config *AIConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"ai.enabled":   "AI_ENABLED",
		"ai.key":       "AI_KEY",
		"ai.model":     "AI_MODEL",
		"ai.signature": "AI_SIGNATURE",
	})
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

func (config *RedisConfig) validate() error {
	return nil
}

func (config *RedisConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"redis.url": "REDIS_URL",
	})
}

type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

func (config *MetricsConfig) validate() error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("invalid metrics port %d", config.Port)
	}
	return nil
}

func (config *MetricsConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"metrics.port": "METRICS_PORT",
	})
}
