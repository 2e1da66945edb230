package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Tenders struct {
	db *gorm.DB
}

func NewTendersRepository(db *gorm.DB) *Tenders {
	return &Tenders{db: db}
}

func (repo *Tenders) ExistsBySourceURL(ctx context.Context, url string) (bool, error) {
	return repo.exists(ctx, "source_url = ?", url)
}

func (repo *Tenders) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	return repo.exists(ctx, "external_id = ?", externalID)
}

func (repo *Tenders) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&entities.StoredTender{}).
		Where(query, args...).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "tender lookup")
	}
	return count > 0, nil
}

// FindFuzzyCandidates returns recent tenders of the same source whose title
// contains the token. It is a cheap prefilter for the similarity check.
func (repo *Tenders) FindFuzzyCandidates(ctx context.Context, source entities.Source, titleToken string,
	limit int) ([]entities.StoredTender, error) {

	var tenders []entities.StoredTender
	err := repo.db.WithContext(ctx).
		Where("source = ? AND title_folded LIKE ? ESCAPE '\\'", source, "%"+escapeLike(entities.FoldTitle(titleToken))+"%").
		Order("created_at DESC").
		Limit(limit).
		Find(&tenders).Error
	if err != nil {
		return nil, errors.Wrap(err, "similar tenders lookup")
	}
	return tenders, nil
}

func (repo *Tenders) InsertBatch(ctx context.Context, tenders []entities.StoredTender) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&tenders).Error
	})
}

func (repo *Tenders) MarkNotified(ctx context.Context, ids []string) error {
	return repo.db.WithContext(ctx).Model(&entities.StoredTender{}).
		Where("id IN ?", ids).
		Update("notified", true).Error
}

func (repo *Tenders) Query(ctx context.Context, filter entities.TenderFilter) ([]entities.StoredTender, error) {
	query := repo.db.WithContext(ctx).Model(&entities.StoredTender{})

	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.MinRelevance > 0 {
		query = query.Where("relevance_score >= ?", filter.MinRelevance)
	}
	if filter.Notified != nil {
		query = query.Where("notified = ?", *filter.Notified)
	}
	if filter.Profile != "" {
		query = query.Where("profile = ?", filter.Profile)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var tenders []entities.StoredTender
	if err := query.Order("relevance_score DESC").Order("created_at DESC").Find(&tenders).Error; err != nil {
		return nil, err
	}
	return tenders, nil
}

func (repo *Tenders) GetByID(ctx context.Context, id string) (*entities.StoredTender, error) {
	var tender entities.StoredTender
	if err := repo.db.WithContext(ctx).First(&tender, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tender, nil
}

func (repo *Tenders) Count(ctx context.Context) (int64, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&entities.StoredTender{}).Count(&count).Error
	return count, err
}

// TrimLowValue deletes up to limit of the oldest tenders scored below belowScore.
func (repo *Tenders) TrimLowValue(ctx context.Context, belowScore float64, limit int64) (int64, error) {
	db := repo.db.WithContext(ctx)
	oldest := db.Model(&entities.StoredTender{}).
		Select("id").
		Where("relevance_score < ?", belowScore).
		Order("created_at ASC").
		Limit(int(limit))

	res := db.Where("id IN (?)", oldest).Delete(&entities.StoredTender{})
	return res.RowsAffected, res.Error
}

func (repo *Tenders) RemoveStale(ctx context.Context, createdBefore time.Time, belowScore float64) (int64, error) {
	res := repo.db.WithContext(ctx).
		Delete(&entities.StoredTender{}, "created_at < ? AND relevance_score < ?", createdBefore, belowScore)
	return res.RowsAffected, res.Error
}

func (repo *Tenders) Statistics(ctx context.Context) (entities.TenderStatistics, error) {
	stats := entities.TenderStatistics{BySource: map[entities.Source]int64{}}
	db := repo.db.WithContext(ctx).Model(&entities.StoredTender{})

	var totals struct {
		Total    int64
		Notified int64
		Average  *float64
	}
	err := db.Select("COUNT(*) AS total, " +
		"COALESCE(SUM(CASE WHEN notified THEN 1 ELSE 0 END), 0) AS notified, " +
		"AVG(relevance_score) AS average").
		Scan(&totals).Error
	if err != nil {
		return stats, errors.Wrap(err, "tender totals")
	}

	var perSource []struct {
		Source entities.Source
		Count  int64
	}
	err = repo.db.WithContext(ctx).Model(&entities.StoredTender{}).
		Select("source, COUNT(*) AS count").
		Group("source").
		Scan(&perSource).Error
	if err != nil {
		return stats, errors.Wrap(err, "tenders per source")
	}

	stats.Total = totals.Total
	stats.Notified = totals.Notified
	stats.PendingNotifications = totals.Total - totals.Notified
	if totals.Average != nil {
		stats.AverageRelevanceScore = *totals.Average
	}
	for _, row := range perSource {
		stats.BySource[row.Source] = row.Count
	}
	return stats, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
