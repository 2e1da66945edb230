package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/tender-monitor/internal/clients/gemini"
	"github.com/maxaizer/tender-monitor/internal/clients/scraper"
	"github.com/maxaizer/tender-monitor/internal/config"
	"github.com/maxaizer/tender-monitor/internal/dedup"
	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/maxaizer/tender-monitor/internal/events"
	"github.com/maxaizer/tender-monitor/internal/logger"
	"github.com/maxaizer/tender-monitor/internal/notify"
	"github.com/maxaizer/tender-monitor/internal/repositories"
	"github.com/maxaizer/tender-monitor/internal/scoring"
	"github.com/maxaizer/tender-monitor/internal/services"
	"github.com/maxaizer/tender-monitor/internal/sources"
	"github.com/maxaizer/tender-monitor/internal/tokens"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	profileCacheExpiration = 5 * time.Minute

	draftTemperature = 0.4
	draftMaxTokens   = 600
)

// oauthSources need a provider token in the token store before they can be scanned.
var oauthSources = []entities.Source{entities.AutodeskACC, entities.BuildingConnected}

type app struct {
	cfg            *config.Config
	db             *repositories.DbContext
	bus            EventBus.Bus
	profiles       *repositories.Profiles
	cachedProfiles *repositories.CachedProfiles
	tenders        *repositories.Tenders
	scanRuns       *repositories.ScanRuns
	notifications  *repositories.NotificationLogs
	dedup          *dedup.Service
	tokens         tokens.Store

	redisClient *redis.Client
	aiClient    *gemini.Client
}

// newApp loads the config, sets up logging and opens the database.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger.Setup(ctx, cfg.Logger)

	dbContext, err := repositories.NewDbContext(string(cfg.DB.Driver), cfg.DB.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("can't create db context: %w", err)
	}
	if err = dbContext.Migrate(); err != nil {
		_ = dbContext.Close()
		return nil, fmt.Errorf("can't migrate db context: %w", err)
	}

	a := &app{
		cfg:           cfg,
		db:            dbContext,
		bus:           EventBus.New(),
		profiles:      repositories.NewProfilesRepository(dbContext.DB),
		tenders:       repositories.NewTendersRepository(dbContext.DB),
		scanRuns:      repositories.NewScanRunsRepository(dbContext.DB),
		notifications: repositories.NewNotificationLogsRepository(dbContext.DB),
	}
	a.cachedProfiles = repositories.NewCachedProfiles(a.profiles, profileCacheExpiration)
	if err = a.bus.Subscribe(events.ProfileChangedTopic, func(events.ProfileChanged) {
		a.cachedProfiles.Invalidate()
	}); err != nil {
		a.close()
		return nil, err
	}

	a.dedup, err = dedup.NewService(a.tenders, dedupConfig(cfg))
	if err != nil {
		a.close()
		return nil, err
	}

	if a.tokens, err = a.tokenStore(ctx); err != nil {
		a.close()
		return nil, err
	}

	return a, nil
}

func (a *app) close() {
	if a.aiClient != nil {
		_ = a.aiClient.Close()
	}
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	if err := a.db.Close(); err != nil {
		log.Errorf("failed to close db: %v", err)
	}
	logger.Cleanup()
}

func dedupConfig(cfg *config.Config) dedup.Config {
	return dedup.Config{
		SimilarityThreshold:       cfg.Dedup.SimilarityThreshold,
		FuzzyCandidateLimit:       cfg.Dedup.FuzzyCandidateLimit,
		MaxCompareRunes:           cfg.Dedup.MaxCompareRunes,
		MaxStoredRecords:          cfg.Dedup.MaxStoredRecords,
		CapacityTrimScore:         cfg.Dedup.CapacityTrimScore,
		RetentionDays:             cfg.Retention.TenderRetentionDays,
		RetentionScoreThreshold:   cfg.Retention.RelevanceThreshold,
		ScanRunRetentionDays:      cfg.Retention.ScanRunRetentionDays,
		NotificationRetentionDays: cfg.Retention.NotificationRetentionDays,
	}
}

func scannerConfig(cfg *config.Config) services.ScannerConfig {
	return services.ScannerConfig{
		MaxResultsPerSource:  cfg.Scan.MaxResultsPerSource,
		MaxConcurrentSources: cfg.Scan.MaxConcurrentSources,
		SourceTimeout:        cfg.Scan.SourceTimeout,
		PersistAttempts:      cfg.Scan.PersistAttempts,
		PersistRetryDelay:    cfg.Scan.PersistRetryDelay,
		MinRelevanceScore:    cfg.Dedup.MinRelevanceScore,
	}
}

// tokenStore uses redis when configured and the application database otherwise,
// so tokens written by the CLI are visible to a running server.
func (a *app) tokenStore(ctx context.Context) (tokens.Store, error) {
	if a.cfg.Redis.URL == "" {
		return tokens.NewDbStore(a.db.DB), nil
	}

	client, err := tokens.NewRedisClient(ctx, a.cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	a.redisClient = client
	return tokens.NewRedisStore(client), nil
}

func (a *app) scraperClient() *scraper.Client {
	client := scraper.NewClient(a.cfg.Scraper.BaseURL)
	client.SetRateLimit(a.cfg.Scraper.MaxRequestsPerSecond)
	client.SetPollInterval(a.cfg.Scraper.PollInterval)
	return client
}

func (a *app) registry(client *scraper.Client) (*sources.Registry, error) {
	registry, err := sources.NewRegistry()
	if err != nil {
		return nil, err
	}

	filters, err := sourceFilters(a.cfg.Scraper.SourceFilters)
	if err != nil {
		return nil, err
	}

	for _, source := range entities.KnownSources() {
		if source == entities.Custom {
			continue
		}
		adapter := sources.NewRemoteAdapter(source, client, a.cfg.Scraper.JobTimeout)
		if f, ok := filters[source]; ok {
			adapter.WithFilters(f)
		}
		if slices.Contains(oauthSources, source) {
			adapter.WithTokens(a.tokens)
		}
		if source == entities.PoptavkyCz {
			adapter.WithPrecisionScorer(scoring.NewFenestrationScorer())
		}
		if err = registry.Register(adapter); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func sourceFilters(configured []config.SourceFilter) (map[entities.Source]map[string]any, error) {
	filters := make(map[entities.Source]map[string]any, len(configured))
	for _, f := range configured {
		source, err := entities.ParseSource(f.Source)
		if err != nil {
			return nil, fmt.Errorf("invalid scraper source filter: %w", err)
		}
		filters[source] = f.Filters
	}
	return filters, nil
}

func (a *app) scanner() (*services.Scanner, error) {
	client := a.scraperClient()
	registry, err := a.registry(client)
	if err != nil {
		return nil, err
	}

	scanner, err := services.NewScanner(a.bus, a.cachedProfiles, a.scanRuns, a.dedup, registry,
		scoring.NewDefaultScorer(), scannerConfig(a.cfg))
	if err != nil {
		return nil, err
	}
	return scanner.WithHealthCheck(client), nil
}

// subscribeNotifiers wires every configured channel to the TendersFound event.
func (a *app) subscribeNotifiers(ctx context.Context) error {
	var notifiers []notify.Notifier

	if a.cfg.SMTP.Enabled() {
		email, err := notify.NewEmailNotifier(a.cfg.SMTP)
		if err != nil {
			return err
		}
		notifiers = append(notifiers, email)
	}

	if a.cfg.Telegram.Enabled() {
		telegram, err := notify.NewTelegramNotifier(a.cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("can't create telegram notifier: %w", err)
		}
		notifiers = append(notifiers, telegram)
	}

	if len(notifiers) == 0 {
		log.Warn("neither smtp nor telegram is configured, digests will not be sent")
	}

	dispatcher := notify.NewDispatcher(a.notifications, notifiers...)

	if a.cfg.AI.Enabled {
		aiClient, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:            a.cfg.AI.Key,
			Model:             gemini.Model(a.cfg.AI.Model),
			Temperature:       draftTemperature,
			MaxOutputTokens:   draftMaxTokens,
			SystemInstruction: services.OutreachInstruction,
			RequestsPerMinute: a.cfg.AI.MaxRequestsPerMinute,
			RequestsPerDay:    a.cfg.AI.MaxRequestsPerDay,
		})
		if err != nil {
			return fmt.Errorf("can't create AI client: %w", err)
		}
		a.aiClient = aiClient

		dispatcher.WithDrafter(services.NewAIService(aiClient, a.cfg.AI.Signature), a.cfg.AI.MaxDraftsPerDigest)
	}

	return dispatcher.Subscribe(a.bus)
}

func (a *app) sweeper() (*dedup.Sweeper, error) {
	return dedup.NewSweeper(dedup.RetentionStores{
		Tenders:       a.tenders,
		ScanRuns:      a.scanRuns,
		Notifications: a.notifications,
	}, dedupConfig(a.cfg))
}
