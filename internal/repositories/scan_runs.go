package repositories

import (
	"context"
	"time"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"gorm.io/gorm"
)

type ScanRuns struct {
	db *gorm.DB
}

func NewScanRunsRepository(db *gorm.DB) *ScanRuns {
	return &ScanRuns{db: db}
}

func (repo *ScanRuns) Start(ctx context.Context, profile string, source entities.Source) (*entities.ScanRun, error) {
	run := &entities.ScanRun{
		Profile:   profile,
		Source:    source,
		Status:    entities.ScanRunning,
		StartedAt: time.Now(),
	}
	if err := repo.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (repo *ScanRuns) Finish(ctx context.Context, run *entities.ScanRun) error {
	finished := time.Now()
	run.FinishedAt = &finished
	return repo.db.WithContext(ctx).Model(&entities.ScanRun{}).Where("id = ?", run.ID).
		Updates(map[string]any{
			"status":        run.Status,
			"results_count": run.ResultsCount,
			"error":         run.Error,
			"finished_at":   finished,
		}).Error
}

func (repo *ScanRuns) Recent(ctx context.Context, limit int) ([]entities.ScanRun, error) {
	var runs []entities.ScanRun
	if err := repo.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (repo *ScanRuns) RemoveOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := repo.db.WithContext(ctx).Delete(&entities.ScanRun{}, "created_at < ?", before)
	return res.RowsAffected, res.Error
}
