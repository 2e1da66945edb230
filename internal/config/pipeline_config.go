package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type ScanConfig struct {
	Schedule             string        `mapstructure:"schedule"`
	MaxResultsPerSource  int           `mapstructure:"max_results_per_source"`
	MaxConcurrentSources int           `mapstructure:"max_concurrent_sources"`
	SourceTimeout        time.Duration `mapstructure:"source_timeout"`
	PersistAttempts      int           `mapstructure:"persist_attempts"`
	PersistRetryDelay    time.Duration `mapstructure:"persist_retry_delay"`
}

func (config *ScanConfig) validate() error {
	var errs []error

	if config.Schedule == "" {
		errs = append(errs, fmt.Errorf("missing variable: scan schedule"))
	}
	if config.MaxResultsPerSource <= 0 {
		errs = append(errs, fmt.Errorf("max_results_per_source must be positive"))
	}
	if config.MaxConcurrentSources <= 0 {
		errs = append(errs, fmt.Errorf("max_concurrent_sources must be positive"))
	}
	if config.SourceTimeout <= 0 {
		errs = append(errs, fmt.Errorf("source_timeout must be positive"))
	}
	if config.PersistAttempts <= 0 {
		errs = append(errs, fmt.Errorf("persist_attempts must be positive"))
	}

	return errors.Join(errs...)
}

func (config *ScanConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"scan.schedule":               "SCAN_SCHEDULE",
		"scan.max_results_per_source": "SCAN_MAX_RESULTS_PER_SOURCE",
		"scan.source_timeout":         "SCAN_SOURCE_TIMEOUT",
	})
}

type DedupConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	FuzzyCandidateLimit int     `mapstructure:"fuzzy_candidate_limit"`
	MaxCompareRunes     int     `mapstructure:"max_compare_runes"`
	MaxStoredRecords    int64   `mapstructure:"max_stored_records"`
	CapacityTrimScore   float64 `mapstructure:"capacity_trim_score"`
	MinRelevanceScore   float64 `mapstructure:"min_relevance_score"`
}

func (config *DedupConfig) validate() error {
	var errs []error

	if config.SimilarityThreshold <= 0 || config.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("similarity_threshold must be in (0, 1]"))
	}
	if config.FuzzyCandidateLimit <= 0 {
		errs = append(errs, fmt.Errorf("fuzzy_candidate_limit must be positive"))
	}
	if config.MaxStoredRecords <= 0 {
		errs = append(errs, fmt.Errorf("max_stored_records must be positive"))
	}
	if config.MinRelevanceScore < 0 || config.MinRelevanceScore > 1 {
		errs = append(errs, fmt.Errorf("min_relevance_score must be in [0, 1]"))
	}

	return errors.Join(errs...)
}

func (config *DedupConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"dedup.similarity_threshold": "DEDUP_SIMILARITY_THRESHOLD",
		"dedup.max_stored_records":   "DEDUP_MAX_STORED_RECORDS",
		"dedup.min_relevance_score":  "DEDUP_MIN_RELEVANCE_SCORE",
	})
}

type RetentionConfig struct {
	Schedule                  string  `mapstructure:"schedule"`
	TenderRetentionDays       int     `mapstructure:"tender_retention_days"`
	RelevanceThreshold        float64 `mapstructure:"relevance_threshold"`
	ScanRunRetentionDays      int     `mapstructure:"scan_run_retention_days"`
	NotificationRetentionDays int     `mapstructure:"notification_retention_days"`
}

func (config *RetentionConfig) validate() error {
	var errs []error

	if config.Schedule == "" {
		errs = append(errs, fmt.Errorf("missing variable: retention schedule"))
	}
	if config.TenderRetentionDays <= 0 {
		errs = append(errs, fmt.Errorf("tender_retention_days must be positive"))
	}
	if config.ScanRunRetentionDays <= 0 || config.NotificationRetentionDays <= 0 {
		errs = append(errs, fmt.Errorf("history retention days must be positive"))
	}

	return errors.Join(errs...)
}

func (config *RetentionConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"retention.schedule":              "RETENTION_SCHEDULE",
		"retention.tender_retention_days": "RETENTION_TENDER_DAYS",
	})
}
