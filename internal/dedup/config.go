package dedup

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid dedup config")

type Config struct {
	// SimilarityThreshold is the weighted similarity above which a candidate
	// is treated as a fuzzy duplicate of a stored tender.
	SimilarityThreshold float64
	// FuzzyCandidateLimit bounds how many stored tenders are compared per candidate.
	FuzzyCandidateLimit int
	// MaxCompareRunes truncates fields before comparison.
	MaxCompareRunes int

	MaxStoredRecords  int64
	CapacityTrimScore float64

	RetentionDays             int
	RetentionScoreThreshold   float64
	ScanRunRetentionDays      int
	NotificationRetentionDays int
}

func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:       0.8,
		FuzzyCandidateLimit:       50,
		MaxCompareRunes:           1000,
		MaxStoredRecords:          10000,
		CapacityTrimScore:         0.5,
		RetentionDays:             90,
		RetentionScoreThreshold:   0.7,
		ScanRunRetentionDays:      30,
		NotificationRetentionDays: 60,
	}
}

func (c Config) Validate() error {
	var errs []error

	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("similarity threshold %v is outside (0, 1]", c.SimilarityThreshold))
	}
	if c.FuzzyCandidateLimit <= 0 {
		errs = append(errs, fmt.Errorf("fuzzy candidate limit must be positive, got %d", c.FuzzyCandidateLimit))
	}
	if c.MaxCompareRunes <= 0 {
		errs = append(errs, fmt.Errorf("max compare runes must be positive, got %d", c.MaxCompareRunes))
	}
	if c.MaxStoredRecords <= 0 {
		errs = append(errs, fmt.Errorf("max stored records must be positive, got %d", c.MaxStoredRecords))
	}
	for name, score := range map[string]float64{
		"capacity trim score":       c.CapacityTrimScore,
		"retention score threshold": c.RetentionScoreThreshold,
	} {
		if score < 0 || score > 1 {
			errs = append(errs, fmt.Errorf("%s %v is outside [0, 1]", name, score))
		}
	}
	if c.RetentionDays <= 0 || c.ScanRunRetentionDays <= 0 || c.NotificationRetentionDays <= 0 {
		errs = append(errs, errors.New("retention days must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
