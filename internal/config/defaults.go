package config

import (
	"time"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.log_level", string(LevelInfo))
	v.SetDefault("logger.app_name", "tender-monitor")
	v.SetDefault("logger.output_file", "./logs/errors.log")

	v.SetDefault("db.driver", string(DriverSqlite))

	v.SetDefault("scan.schedule", "0 8 * * *")
	v.SetDefault("scan.max_results_per_source", 50)
	v.SetDefault("scan.max_concurrent_sources", 3)
	v.SetDefault("scan.source_timeout", 10*time.Minute)
	v.SetDefault("scan.persist_attempts", 3)
	v.SetDefault("scan.persist_retry_delay", time.Minute)

	v.SetDefault("dedup.similarity_threshold", 0.8)
	v.SetDefault("dedup.fuzzy_candidate_limit", 50)
	v.SetDefault("dedup.max_compare_runes", 1000)
	v.SetDefault("dedup.max_stored_records", 10000)
	v.SetDefault("dedup.capacity_trim_score", 0.5)
	v.SetDefault("dedup.min_relevance_score", 0.3)

	v.SetDefault("retention.schedule", "0 2 * * *")
	v.SetDefault("retention.tender_retention_days", 90)
	v.SetDefault("retention.relevance_threshold", 0.7)
	v.SetDefault("retention.scan_run_retention_days", 30)
	v.SetDefault("retention.notification_retention_days", 60)

	v.SetDefault("scraper.poll_interval", 5*time.Second)
	v.SetDefault("scraper.max_requests_per_second", 5)

	v.SetDefault("smtp.port", 587)

	v.SetDefault("ai.model", "gemini-1.5-flash")
	v.SetDefault("ai.max_requests_per_minute", 15)
	v.SetDefault("ai.max_requests_per_day", 1500)
	v.SetDefault("ai.max_drafts_per_digest", 5)

	v.SetDefault("metrics.port", 8080)
}
