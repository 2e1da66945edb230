package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/maxaizer/tender-monitor/internal/events"
	"github.com/maxaizer/tender-monitor/internal/logger"
	"github.com/maxaizer/tender-monitor/internal/metrics"
	"github.com/maxaizer/tender-monitor/internal/sources"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrProfileNotFound    = errors.New("monitoring profile not found")
	ErrScanInProgress     = errors.New("scan already in progress for profile")
	ErrScraperUnavailable = errors.New("scraper service is unavailable")
)

type profileRepository interface {
	GetActive(ctx context.Context) ([]entities.MonitoringProfile, error)
	GetByName(ctx context.Context, name string) (*entities.MonitoringProfile, error)
}

type scanRunRepository interface {
	Start(ctx context.Context, profile string, source entities.Source) (*entities.ScanRun, error)
	Finish(ctx context.Context, run *entities.ScanRun) error
}

type tenderStore interface {
	FilterNew(ctx context.Context, candidates []entities.Candidate) []entities.Candidate
	Persist(ctx context.Context, candidates []entities.Candidate) ([]entities.StoredTender, error)
	PendingNotifications(ctx context.Context, profile string) ([]entities.StoredTender, error)
	MarkNotified(ctx context.Context, ids []string) error
}

type adapterRegistry interface {
	Get(source entities.Source) (sources.Adapter, error)
}

type relevanceRater interface {
	Rate(candidate *entities.Candidate, keywords []string)
	MatchedKeywords(title, description string, keywords []string) []string
}

type healthChecker interface {
	Health(ctx context.Context) error
}

// DefaultMinRelevanceScore is the score below which candidates are dropped before deduplication.
const DefaultMinRelevanceScore = 0.3

type ScannerConfig struct {
	MaxResultsPerSource  int
	MaxConcurrentSources int
	SourceTimeout        time.Duration
	PersistAttempts      int
	PersistRetryDelay    time.Duration
	MinRelevanceScore    float64
}

type Scanner struct {
	bus      EventBus.Bus
	profiles profileRepository
	runs     scanRunRepository
	store    tenderStore
	registry adapterRegistry
	rater    relevanceRater
	health   healthChecker
	config   ScannerConfig

	writeMu      sync.Mutex
	profileLocks sync.Map
}

func NewScanner(bus EventBus.Bus, profiles profileRepository, runs scanRunRepository, store tenderStore,
	registry adapterRegistry, rater relevanceRater, config ScannerConfig) (*Scanner, error) {

	if bus == nil || profiles == nil || store == nil || registry == nil || rater == nil {
		return nil, errors.New("scanner dependencies must not be nil")
	}
	if config.MaxConcurrentSources <= 0 || config.MaxResultsPerSource <= 0 || config.SourceTimeout <= 0 {
		return nil, fmt.Errorf("invalid scanner config %+v", config)
	}
	if config.MinRelevanceScore < 0 || config.MinRelevanceScore > 1 {
		return nil, fmt.Errorf("min relevance score %v is outside [0, 1]", config.MinRelevanceScore)
	}
	if config.PersistAttempts <= 0 {
		config.PersistAttempts = 1
	}

	return &Scanner{
		bus:      bus,
		profiles: profiles,
		runs:     runs,
		store:    store,
		registry: registry,
		rater:    rater,
		config:   config,
	}, nil
}

// WithHealthCheck makes every scan abort early when the checker fails.
func (s *Scanner) WithHealthCheck(checker healthChecker) *Scanner {
	s.health = checker
	return s
}

func (s *Scanner) ScanAll(ctx context.Context) (ScanReport, error) {
	report := ScanReport{StartedAt: time.Now()}

	if err := s.checkHealth(ctx); err != nil {
		return report, err
	}

	profiles, err := s.profiles.GetActive(ctx)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to get active profiles: %v", err)
		return report, err
	}

	for _, profile := range profiles {
		if ctx.Err() != nil {
			break
		}
		report.Profiles = append(report.Profiles, s.scanProfile(ctx, profile))
	}

	report.FinishedAt = time.Now()
	log.Infof("scan cycle finished: %d profiles, %d new tenders in %v",
		len(report.Profiles), report.Stored(), report.FinishedAt.Sub(report.StartedAt))
	return report, ctx.Err()
}

func (s *Scanner) ScanProfile(ctx context.Context, name string) (ProfileReport, error) {
	if err := s.checkHealth(ctx); err != nil {
		return ProfileReport{Profile: name}, err
	}

	profile, err := s.profiles.GetByName(ctx, name)
	if err != nil {
		return ProfileReport{Profile: name}, err
	}
	if profile == nil {
		return ProfileReport{Profile: name}, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}

	report := s.scanProfile(ctx, *profile)
	if report.Skipped {
		return report, fmt.Errorf("%w: %s", ErrScanInProgress, name)
	}
	return report, nil
}

func (s *Scanner) checkHealth(ctx context.Context) error {
	if s.health == nil {
		return nil
	}
	if err := s.health.Health(ctx); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeScraper).Errorf("scraper health check failed: %v", err)
		return fmt.Errorf("%w: %w", ErrScraperUnavailable, err)
	}
	return nil
}

func (s *Scanner) profileLock(name string) *sync.Mutex {
	lock, _ := s.profileLocks.LoadOrStore(name, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (s *Scanner) scanProfile(ctx context.Context, profile entities.MonitoringProfile) ProfileReport {
	report := ProfileReport{Profile: profile.Name}

	lock := s.profileLock(profile.Name)
	if !lock.TryLock() {
		log.Warnf("scan of profile %s is still running, skipping", profile.Name)
		report.Skipped = true
		return report
	}
	defer lock.Unlock()

	start := time.Now()
	defer func() {
		metrics.ScanDuration.Observe(time.Since(start).Seconds())
	}()

	candidates, results := s.fetchAll(ctx, profile)
	report.Sources = results

	relevant := s.filterRelevant(candidates, profile.Keywords)
	report.Fetched, report.Relevant = len(candidates), len(relevant)

	stored, pending, err := s.deduplicateAndStore(ctx, profile, relevant)
	report.Stored, report.Recovered = len(stored), len(pending)
	if err != nil {
		report.Err = err
	}

	s.publish(ctx, profile, stored, pending, len(results))

	log.Infof("profile %s: fetched %d, relevant %d, stored %d, recovered %d",
		profile.Name, report.Fetched, report.Relevant, report.Stored, report.Recovered)
	return report
}

func (s *Scanner) fetchAll(ctx context.Context, profile entities.MonitoringProfile) ([]entities.Candidate, []SourceResult) {
	var mu sync.Mutex
	var candidates []entities.Candidate
	results := make([]SourceResult, 0, len(profile.Sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrentSources)

	for _, source := range profile.Sources {
		g.Go(func() error {
			fetched, result := s.fetchSource(gctx, profile, source)

			mu.Lock()
			defer mu.Unlock()
			candidates = append(candidates, fetched...)
			results = append(results, result)
			return nil
		})
	}
	_ = g.Wait()

	return candidates, results
}

// fetchSource never fails the scan; a failed or timed out source yields no candidates.
func (s *Scanner) fetchSource(ctx context.Context, profile entities.MonitoringProfile,
	source entities.Source) ([]entities.Candidate, SourceResult) {

	result := SourceResult{Source: source, Status: entities.ScanFailed}

	adapter, err := s.registry.Get(source)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeSource).Errorf("profile %s: %v", profile.Name, err)
		result.Err = err
		return nil, result
	}

	run := s.startRun(ctx, profile.Name, source)

	sourceCtx, cancel := context.WithTimeout(ctx, s.config.SourceTimeout)
	defer cancel()

	start := time.Now()
	candidates, err := adapter.Fetch(sourceCtx, profile.Keywords, s.config.MaxResultsPerSource)
	metrics.ScanStepDuration.WithLabelValues("fetch").Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		result.Status = entities.ScanCompleted
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(sourceCtx.Err(), context.DeadlineExceeded):
		result.Status = entities.ScanTimedOut
	}

	if err != nil {
		result.Err = err
		candidates = nil
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeSource).
			Errorf("profile %s: source %s %s: %v", profile.Name, source, result.Status, err)
	}

	for i := range candidates {
		candidates[i].Profile = profile.Name
		if candidates[i].Source == "" {
			candidates[i].Source = source
		}
	}
	result.Fetched = len(candidates)
	metrics.FetchedCandidatesCounter.WithLabelValues(string(source)).Add(float64(len(candidates)))

	s.finishRun(run, result)
	return candidates, result
}

func (s *Scanner) startRun(ctx context.Context, profile string, source entities.Source) *entities.ScanRun {
	if s.runs == nil {
		return nil
	}
	run, err := s.runs.Start(ctx, profile, source)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to record scan run: %v", err)
		return nil
	}
	return run
}

func (s *Scanner) finishRun(run *entities.ScanRun, result SourceResult) {
	if run == nil {
		return
	}
	run.Status = result.Status
	run.ResultsCount = result.Fetched
	if result.Err != nil {
		run.Error = result.Err.Error()
	}
	// the source context may already be expired here
	if err := s.runs.Finish(context.Background(), run); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to finish scan run %d: %v", run.ID, err)
	}
}

// filterRelevant scores candidates the source did not score itself and drops
// the ones below the relevance floor.
func (s *Scanner) filterRelevant(candidates []entities.Candidate, keywords []string) []entities.Candidate {
	relevant := make([]entities.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.RelevanceScore <= 0 {
			s.rater.Rate(&c, keywords)
		} else if len(c.Keywords) == 0 {
			c.Keywords = s.rater.MatchedKeywords(c.Title, c.Description, keywords)
		}

		if c.RelevanceScore < s.config.MinRelevanceScore {
			metrics.RejectedCandidatesCounter.Inc()
			continue
		}
		relevant = append(relevant, c)
	}
	return relevant
}

// deduplicateAndStore runs under the process-wide writer lock. Besides the
// new records it returns older records of the profile that were never
// flagged as notified.
func (s *Scanner) deduplicateAndStore(ctx context.Context, profile entities.MonitoringProfile,
	candidates []entities.Candidate) ([]entities.StoredTender, []entities.StoredTender, error) {

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := time.Now()
	fresh := s.store.FilterNew(ctx, candidates)
	metrics.ScanStepDuration.WithLabelValues("deduplication").Observe(time.Since(start).Seconds())

	var stored []entities.StoredTender
	var err error
	if len(fresh) > 0 {
		stored, err = s.persist(ctx, fresh)
		if err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to persist %d tenders for profile %s: %v", len(fresh), profile.Name, err)
		}
	}

	pending, pendingErr := s.store.PendingNotifications(ctx, profile.Name)
	if pendingErr != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to load pending notifications for profile %s: %v", profile.Name, pendingErr)
	}

	storedIDs := lo.SliceToMap(stored, func(t entities.StoredTender) (string, bool) { return t.ID, true })
	pending = lo.Reject(pending, func(t entities.StoredTender, _ int) bool { return storedIDs[t.ID] })

	return stored, pending, err
}

func (s *Scanner) persist(ctx context.Context, candidates []entities.Candidate) ([]entities.StoredTender, error) {
	var stored []entities.StoredTender

	_, _, err := lo.AttemptWithDelay(s.config.PersistAttempts, 0, func(i int, _ time.Duration) error {
		if i > 0 {
			backoff := s.config.PersistRetryDelay << (i - 1)
			log.Warnf("retrying persist in %v (attempt %d)", backoff, i+1)
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
		}

		var err error
		stored, err = s.store.Persist(ctx, candidates)
		return err
	})

	return stored, err
}

func (s *Scanner) publish(ctx context.Context, profile entities.MonitoringProfile,
	stored, pending []entities.StoredTender, sourcesScanned int) {

	event := events.TendersFound{
		Profile:        profile,
		Tenders:        append(append([]entities.StoredTender{}, stored...), pending...),
		SourcesScanned: sourcesScanned,
	}
	if event.Empty() && !profile.SendEmptyReports {
		return
	}

	s.bus.Publish(events.TendersFoundTopic, event)

	unflagged := lo.FilterMap(event.Tenders, func(t entities.StoredTender, _ int) (string, bool) { return t.ID, !t.Notified })
	if len(unflagged) == 0 {
		return
	}
	if err := s.store.MarkNotified(ctx, unflagged); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to flag %d tenders as notified: %v", len(unflagged), err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
