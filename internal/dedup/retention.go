package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maxaizer/tender-monitor/internal/logger"
	"github.com/maxaizer/tender-monitor/internal/metrics"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type TenderRetentionStore interface {
	RemoveStale(ctx context.Context, createdBefore time.Time, belowScore float64) (int64, error)
}

type HistoryRetentionStore interface {
	RemoveOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type RetentionStores struct {
	Tenders       TenderRetentionStore
	ScanRuns      HistoryRetentionStore
	Notifications HistoryRetentionStore
}

type SweepResult struct {
	Tenders       int64
	ScanRuns      int64
	Notifications int64
}

// Sweeper deletes stale low-relevance tenders and old scan and notification
// history. Tenders at or above the retention threshold are kept forever.
type Sweeper struct {
	stores RetentionStores
	config Config
	cron   *cron.Cron
	now    func() time.Time
}

func NewSweeper(stores RetentionStores, config Config) (*Sweeper, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if stores.Tenders == nil {
		return nil, fmt.Errorf("%w: tender store is required", ErrInvalidConfig)
	}

	return &Sweeper{
		stores: stores,
		config: config,
		cron:   cron.New(),
		now:    time.Now,
	}, nil
}

// Start runs the sweep on the given cron schedule until Stop is called.
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("retention sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	log.Infof("retention sweeper started, schedule: %s, tenders kept for %d days below score %.2f",
		schedule, s.config.RetentionDays, s.config.RetentionScoreThreshold)
	return nil
}

func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var (
		result SweepResult
		errs   []error
	)
	now := s.now()

	removed, err := s.stores.Tenders.RemoveStale(ctx, daysBefore(now, s.config.RetentionDays), s.config.RetentionScoreThreshold)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to remove stale tenders: %w", err))
	}
	result.Tenders = removed

	if s.stores.ScanRuns != nil {
		removed, err = s.stores.ScanRuns.RemoveOlderThan(ctx, daysBefore(now, s.config.ScanRunRetentionDays))
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to remove old scan runs: %w", err))
		}
		result.ScanRuns = removed
	}

	if s.stores.Notifications != nil {
		removed, err = s.stores.Notifications.RemoveOlderThan(ctx, daysBefore(now, s.config.NotificationRetentionDays))
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to remove old notification logs: %w", err))
		}
		result.Notifications = removed
	}

	metrics.SweptRecordsCounter.WithLabelValues("tenders").Add(float64(result.Tenders))
	metrics.SweptRecordsCounter.WithLabelValues("scan_runs").Add(float64(result.ScanRuns))
	metrics.SweptRecordsCounter.WithLabelValues("notification_logs").Add(float64(result.Notifications))

	log.Infof("retention sweep at %v removed %d tenders, %d scan runs, %d notification logs",
		now.Format(time.RFC3339), result.Tenders, result.ScanRuns, result.Notifications)
	return result, errors.Join(errs...)
}

func daysBefore(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}
