package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/tender-monitor/internal/dedup"
	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/maxaizer/tender-monitor/internal/notify"
	"github.com/maxaizer/tender-monitor/internal/repositories"
	"github.com/maxaizer/tender-monitor/internal/scoring"
	"github.com/maxaizer/tender-monitor/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu      sync.Mutex
	digests []notify.Digest
}

func (n *recordingNotifier) Channel() entities.NotificationChannel { return entities.ChannelEmail }

func (n *recordingNotifier) Recipients(profile entities.MonitoringProfile) []string {
	return profile.Recipients
}

func (n *recordingNotifier) Notify(_ context.Context, digest notify.Digest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.digests = append(n.digests, digest)
	return nil
}

type pipeline struct {
	scanner       *Scanner
	notifier      *recordingNotifier
	tenders       *repositories.Tenders
	notifications *repositories.NotificationLogs
	scanRuns      *repositories.ScanRuns
}

func newPipeline(t *testing.T, adapters ...sources.Adapter) *pipeline {
	t.Helper()

	dbContext, err := repositories.NewDbContext(repositories.DriverSqlite, ":memory:")
	require.NoError(t, err)
	sqlDB, err := dbContext.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, dbContext.Migrate())
	t.Cleanup(func() { _ = dbContext.Close() })

	p := &pipeline{
		notifier:      &recordingNotifier{},
		tenders:       repositories.NewTendersRepository(dbContext.DB),
		notifications: repositories.NewNotificationLogsRepository(dbContext.DB),
		scanRuns:      repositories.NewScanRunsRepository(dbContext.DB),
	}

	profiles := repositories.NewProfilesRepository(dbContext.DB)
	profile := entities.NewMonitoringProfile("nyc-windows", []string{"window", "door"},
		[]entities.Source{entities.NYCOpenData, entities.SamGov}, []string{"sales@example.com"})
	require.NoError(t, profiles.Add(context.Background(), *profile))

	dedupService, err := dedup.NewService(p.tenders, dedup.DefaultConfig())
	require.NoError(t, err)

	registry, err := sources.NewRegistry(adapters...)
	require.NoError(t, err)

	bus := EventBus.New()
	require.NoError(t, notify.NewDispatcher(p.notifications, p.notifier).Subscribe(bus))

	config := testScannerConfig()
	config.MinRelevanceScore = DefaultMinRelevanceScore
	p.scanner, err = NewScanner(bus, repositories.NewCachedProfiles(profiles, time.Minute), p.scanRuns,
		dedupService, registry, scoring.NewDefaultScorer(), config)
	require.NoError(t, err)
	return p
}

func Test_Pipeline_RescanStoresAndNotifiesOnlyNewTenders(t *testing.T) {
	nycResults := []entities.Candidate{
		{
			ExternalID:  "nyc-1",
			Title:       "Window replacement at PS 123",
			Description: "Replace 120 aluminium windows in the main building",
			SourceURL:   "https://data.cityofnewyork.us/tenders/1",
			Location:    "Brooklyn, NY",
		},
		{
			Title:       "Door hardware upgrade",
			Description: "Supply and install fire rated doors",
			SourceURL:   "https://data.cityofnewyork.us/tenders/2",
		},
	}
	var samResults []entities.Candidate

	p := newPipeline(t,
		funcAdapter{source: entities.NYCOpenData, fetch: func(context.Context) ([]entities.Candidate, error) {
			return nycResults, nil
		}},
		funcAdapter{source: entities.SamGov, fetch: func(context.Context) ([]entities.Candidate, error) {
			return samResults, nil
		}},
	)
	ctx := context.Background()

	report, err := p.scanner.ScanAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Stored())

	// same tenders again, one re-listed under a new URL with a slightly edited text
	nycResults[1].SourceURL = "https://data.cityofnewyork.us/tenders/2-relisted"
	nycResults[1].Description = "Supply and install fire rated doors."
	samResults = []entities.Candidate{{
		Title:       "Storefront glazing for community center",
		Description: "Curtain wall and storefront work",
		SourceURL:   "https://sam.gov/opp/77",
	}}

	report, err = p.scanner.ScanAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stored())

	require.Len(t, p.notifier.digests, 2)
	assert.Len(t, p.notifier.digests[0].Tenders, 2)
	require.Len(t, p.notifier.digests[1].Tenders, 1)
	assert.Equal(t, "Storefront glazing for community center", p.notifier.digests[1].Tenders[0].Title)

	count, err := p.tenders.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	stats, err := p.tenders.Statistics(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.PendingNotifications)

	logs, err := p.notifications.GetByProfile(ctx, "nyc-windows", 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	runs, err := p.scanRuns.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 4)
	for _, run := range runs {
		assert.Equal(t, entities.ScanCompleted, run.Status)
	}
}
