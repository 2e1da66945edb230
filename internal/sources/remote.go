package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maxaizer/tender-monitor/internal/clients/scraper"
	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/maxaizer/tender-monitor/internal/tokens"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

var ErrNotAuthorized = errors.New("no valid access token")

type scrapeJobs interface {
	StartJob(ctx context.Context, request scraper.JobRequest) (scraper.Job, error)
	WaitForJob(ctx context.Context, jobID string, timeout time.Duration) (scraper.Job, error)
	JobResults(ctx context.Context, jobID string) ([]scraper.Tender, error)
}

// RemoteAdapter runs the scraper for one source as a job on the scraper
// service and converts its results.
type RemoteAdapter struct {
	source     entities.Source
	jobs       scrapeJobs
	jobTimeout time.Duration
	filters    map[string]any
	tokens     tokens.Store
	precision  precisionScorer
}

type precisionScorer interface {
	Score(title, description, keyword string) float64
	Accept(score float64) bool
}

func NewRemoteAdapter(source entities.Source, jobs scrapeJobs, jobTimeout time.Duration) *RemoteAdapter {
	return &RemoteAdapter{source: source, jobs: jobs, jobTimeout: jobTimeout}
}

func (a *RemoteAdapter) WithFilters(filters map[string]any) *RemoteAdapter {
	a.filters = filters
	return a
}

// WithTokens makes every job carry the source's access token, for providers
// whose API is behind OAuth.
func (a *RemoteAdapter) WithTokens(store tokens.Store) *RemoteAdapter {
	a.tokens = store
	return a
}

// WithPrecisionScorer rescores every result with the given scorer and drops
// the ones it does not accept. Meant for sources full of off-topic listings.
func (a *RemoteAdapter) WithPrecisionScorer(scorer precisionScorer) *RemoteAdapter {
	a.precision = scorer
	return a
}

func (a *RemoteAdapter) Source() entities.Source {
	return a.source
}

func (a *RemoteAdapter) Fetch(ctx context.Context, keywords []string, maxResults int) ([]entities.Candidate, error) {
	filters, err := a.jobFilters(ctx)
	if err != nil {
		return nil, err
	}

	job, err := a.jobs.StartJob(ctx, scraper.JobRequest{
		Source:     string(a.source),
		Keywords:   keywords,
		MaxResults: maxResults,
		Filters:    filters,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s scrape job: %w", a.source, err)
	}

	if _, err = a.jobs.WaitForJob(ctx, job.ID, a.jobTimeout); err != nil {
		return nil, err
	}

	tenders, err := a.jobs.JobResults(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s scrape results: %w", a.source, err)
	}

	candidates := lo.Map(tenders, func(t scraper.Tender, _ int) entities.Candidate {
		return a.toCandidate(t)
	})
	return a.applyPrecision(candidates, keywords), nil
}

// applyPrecision keeps a candidate when any keyword makes it acceptable, with
// the best of those scores.
func (a *RemoteAdapter) applyPrecision(candidates []entities.Candidate, keywords []string) []entities.Candidate {
	if a.precision == nil {
		return candidates
	}
	if len(keywords) == 0 {
		keywords = []string{""}
	}

	accepted := make([]entities.Candidate, 0, len(candidates))
	for _, c := range candidates {
		best := 0.0
		for _, keyword := range keywords {
			best = max(best, a.precision.Score(c.Title, c.Description, keyword))
		}
		if !a.precision.Accept(best) {
			continue
		}
		c.RelevanceScore = best
		accepted = append(accepted, c)
	}

	if rejected := len(candidates) - len(accepted); rejected > 0 {
		log.Debugf("%s: precision scorer rejected %d of %d results", a.source, rejected, len(candidates))
	}
	return accepted
}

func (a *RemoteAdapter) jobFilters(ctx context.Context) (map[string]any, error) {
	if a.tokens == nil {
		return a.filters, nil
	}

	token, found, err := a.tokens.Get(ctx, string(a.source))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s token: %w", a.source, err)
	}
	if !found {
		return nil, fmt.Errorf("%w for %s", ErrNotAuthorized, a.source)
	}

	filters := make(map[string]any, len(a.filters)+1)
	for k, v := range a.filters {
		filters[k] = v
	}
	filters["access_token"] = token.AccessToken
	return filters, nil
}

func (a *RemoteAdapter) toCandidate(t scraper.Tender) entities.Candidate {
	source := entities.Source(t.Source)
	if source == "" {
		source = a.source
	}

	candidate := entities.Candidate{
		ExternalID:       strings.TrimSpace(t.TenderID),
		Title:            strings.TrimSpace(t.Title),
		Description:      t.Description,
		Source:           source,
		SourceURL:        strings.TrimSpace(t.SourceURL),
		PostingDate:      t.PostingDate.Ptr(),
		ResponseDeadline: t.ResponseDeadline.Ptr(),
		EstimatedValue:   t.EstimatedValue,
		Location:         t.Location,
		NAICSCodes:       t.NAICSCodes,
		Keywords:         t.KeywordsFound,
		ContactInfo:      stringifyValues(t.ContactInfo),
		ExtractedData:    t.ExtractedData,
	}
	if t.RelevanceScore != nil {
		candidate.RelevanceScore = *t.RelevanceScore
	}
	if len(t.Requirements) > 0 {
		if candidate.ExtractedData == nil {
			candidate.ExtractedData = map[string]any{}
		}
		candidate.ExtractedData["requirements"] = t.Requirements
	}
	return candidate
}

func stringifyValues(values map[string]any) map[string]string {
	if len(values) == 0 {
		return nil
	}
	return lo.MapValues(values, func(value any, _ string) string {
		if value == nil {
			return ""
		}
		return fmt.Sprint(value)
	})
}
