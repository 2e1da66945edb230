package dedup

import (
	"context"
	"fmt"
	"strings"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/maxaizer/tender-monitor/internal/logger"
	"github.com/maxaizer/tender-monitor/internal/metrics"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	defaultQueryLimit = 100
	pendingBatchLimit = 500
)

// Repository is the storage the deduplication service needs.
type Repository interface {
	ExistsBySourceURL(ctx context.Context, url string) (bool, error)
	ExistsByExternalID(ctx context.Context, externalID string) (bool, error)
	FindFuzzyCandidates(ctx context.Context, source entities.Source, titleToken string, limit int) ([]entities.StoredTender, error)
	InsertBatch(ctx context.Context, tenders []entities.StoredTender) error
	MarkNotified(ctx context.Context, ids []string) error
	Query(ctx context.Context, filter entities.TenderFilter) ([]entities.StoredTender, error)
	Count(ctx context.Context) (int64, error)
	TrimLowValue(ctx context.Context, belowScore float64, limit int64) (int64, error)
	Statistics(ctx context.Context) (entities.TenderStatistics, error)
}

type duplicateReason string

const (
	reasonSourceURL  duplicateReason = "source_url"
	reasonExternalID duplicateReason = "external_id"
	reasonSimilar    duplicateReason = "similar_content"
	reasonBatch      duplicateReason = "same_batch"
)

type Service struct {
	repo   Repository
	config Config
}

func NewService(repo Repository, config Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Service{repo: repo, config: config}, nil
}

func (s *Service) Config() Config {
	return s.config
}

// FilterNew returns the candidates that are neither stored already nor
// repeated earlier in the same batch. Malformed candidates are dropped.
func (s *Service) FilterNew(ctx context.Context, candidates []entities.Candidate) []entities.Candidate {
	fresh := make([]entities.Candidate, 0, len(candidates))
	seenURLs := map[string]bool{}
	seenIDs := map[string]bool{}

	for _, c := range candidates {
		if err := c.Validate(); err != nil {
			log.Warnf("dropping malformed candidate %q from %s: %v", c.Title, c.Source, err)
			continue
		}

		url, externalID := strings.TrimSpace(c.SourceURL), strings.TrimSpace(c.ExternalID)
		if (url != "" && seenURLs[url]) || (externalID != "" && seenIDs[externalID]) {
			s.countDuplicate(c, reasonBatch)
			continue
		}

		if reason, duplicate := s.findDuplicate(ctx, c); duplicate {
			s.countDuplicate(c, reason)
			continue
		}

		if url != "" {
			seenURLs[url] = true
		}
		if externalID != "" {
			seenIDs[externalID] = true
		}
		fresh = append(fresh, c)
	}

	return fresh
}

// findDuplicate runs the checks from cheapest to most expensive. A failing
// read only disables that check.
func (s *Service) findDuplicate(ctx context.Context, c entities.Candidate) (duplicateReason, bool) {
	if url := strings.TrimSpace(c.SourceURL); url != "" {
		exists, err := s.repo.ExistsBySourceURL(ctx, url)
		if err != nil {
			s.logReadError("source url lookup", c, err)
		} else if exists {
			return reasonSourceURL, true
		}
	}

	if externalID := strings.TrimSpace(c.ExternalID); externalID != "" {
		exists, err := s.repo.ExistsByExternalID(ctx, externalID)
		if err != nil {
			s.logReadError("external id lookup", c, err)
		} else if exists {
			return reasonExternalID, true
		}
	}

	token := firstToken(c.Title)
	if token == "" {
		return "", false
	}

	stored, err := s.repo.FindFuzzyCandidates(ctx, c.Source, token, s.config.FuzzyCandidateLimit)
	if err != nil {
		s.logReadError("similar tenders lookup", c, err)
		return "", false
	}

	for _, t := range stored {
		if score := similarity(c, t, s.config.MaxCompareRunes); score > s.config.SimilarityThreshold {
			log.Debugf("candidate %q is similar to stored tender %s (%.2f)", c.Title, t.ID, score)
			return reasonSimilar, true
		}
	}

	return "", false
}

func (s *Service) logReadError(step string, c entities.Candidate, err error) {
	log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
		Errorf("%s failed for %q, treating as new: %v", step, c.Title, err)
}

func (s *Service) countDuplicate(c entities.Candidate, reason duplicateReason) {
	log.Debugf("skipping duplicate %q from %s (%s)", c.Title, c.Source, reason)
	metrics.DuplicatesCounter.WithLabelValues(string(reason)).Inc()
}

// Persist stores the batch in one transaction and then flags it as notified.
// When the flag update fails the stored records are still returned, with
// Notified left false, and later picked up by PendingNotifications.
func (s *Service) Persist(ctx context.Context, candidates []entities.Candidate) ([]entities.StoredTender, error) {
	tenders := make([]entities.StoredTender, 0, len(candidates))
	for _, c := range candidates {
		if err := c.Validate(); err != nil {
			log.Warnf("not persisting malformed candidate %q: %v", c.Title, err)
			continue
		}
		tenders = append(tenders, entities.NewStoredTender(c))
	}

	if len(tenders) == 0 {
		return nil, nil
	}

	if err := s.repo.InsertBatch(ctx, tenders); err != nil {
		return nil, fmt.Errorf("failed to store %d tenders: %w", len(tenders), err)
	}
	metrics.StoredTendersCounter.Add(float64(len(tenders)))

	ids := lo.Map(tenders, func(t entities.StoredTender, _ int) string { return t.ID })
	if err := s.repo.MarkNotified(ctx, ids); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("stored %d tenders but failed to flag them as notified: %v", len(ids), err)
	} else {
		for i := range tenders {
			tenders[i].Notified = true
		}
	}

	s.trimToCapacity(ctx)
	return tenders, nil
}

// trimToCapacity drops the oldest low-value tenders once storage grows past
// the configured maximum.
func (s *Service) trimToCapacity(ctx context.Context) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to count stored tenders: %v", err)
		return
	}

	excess := count - s.config.MaxStoredRecords
	if excess <= 0 {
		return
	}

	removed, err := s.repo.TrimLowValue(ctx, s.config.CapacityTrimScore, excess)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to trim stored tenders: %v", err)
		return
	}
	metrics.SweptRecordsCounter.WithLabelValues("capacity").Add(float64(removed))
	log.Infof("stored tenders exceeded %d, removed %d low relevance records", s.config.MaxStoredRecords, removed)
}

func (s *Service) QueryStored(ctx context.Context, filter entities.TenderFilter) ([]entities.StoredTender, error) {
	if filter.Source != "" && !filter.Source.Valid() {
		return nil, fmt.Errorf("%w: %q", entities.ErrUnknownSource, filter.Source)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultQueryLimit
	}
	return s.repo.Query(ctx, filter)
}

func (s *Service) Statistics(ctx context.Context) (entities.TenderStatistics, error) {
	return s.repo.Statistics(ctx)
}

// PendingNotifications returns stored tenders of a profile that were never
// flagged as notified. An empty profile means all profiles.
func (s *Service) PendingNotifications(ctx context.Context, profile string) ([]entities.StoredTender, error) {
	notified := false
	return s.repo.Query(ctx, entities.TenderFilter{
		Notified: &notified,
		Profile:  profile,
		Limit:    pendingBatchLimit,
	})
}

func (s *Service) MarkNotified(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.repo.MarkNotified(ctx, ids)
}
