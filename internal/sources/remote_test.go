package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maxaizer/tender-monitor/internal/clients/scraper"
	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/maxaizer/tender-monitor/internal/scoring"
	"github.com/maxaizer/tender-monitor/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockJobs struct {
	mock.Mock
}

func (m *mockJobs) StartJob(ctx context.Context, request scraper.JobRequest) (scraper.Job, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(scraper.Job), args.Error(1)
}

func (m *mockJobs) WaitForJob(ctx context.Context, jobID string, timeout time.Duration) (scraper.Job, error) {
	args := m.Called(ctx, jobID, timeout)
	return args.Get(0).(scraper.Job), args.Error(1)
}

func (m *mockJobs) JobResults(ctx context.Context, jobID string) ([]scraper.Tender, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).([]scraper.Tender), args.Error(1)
}

func Test_RemoteAdapter_FetchConvertsResults(t *testing.T) {
	posted := time.Date(2024, 5, 2, 9, 15, 0, 0, time.UTC)
	score, value := 0.9, 385000.0

	jobs := &mockJobs{}
	jobs.On("StartJob", mock.Anything, scraper.JobRequest{
		Source:     "nyc.opendata",
		Keywords:   []string{"window"},
		MaxResults: 25,
		Filters:    map[string]any{"borough": "BROOKLYN"},
	}).Return(scraper.Job{ID: "job-1", Status: scraper.StatusPending}, nil)
	jobs.On("WaitForJob", mock.Anything, "job-1", 10*time.Minute).
		Return(scraper.Job{ID: "job-1", Status: scraper.StatusCompleted}, nil)
	jobs.On("JobResults", mock.Anything, "job-1").Return([]scraper.Tender{
		{
			TenderID:       " B008 ",
			Title:          " Window replacement ",
			SourceURL:      "https://data.cityofnewyork.us/B008",
			PostingDate:    &scraper.Time{Time: posted},
			EstimatedValue: &value,
			RelevanceScore: &score,
			ContactInfo:    map[string]any{"phone": "718-555-0142", "units": float64(12), "fax": nil},
			Requirements:   []string{"licensed installer"},
		},
	}, nil)

	adapter := NewRemoteAdapter(entities.NYCOpenData, jobs, 10*time.Minute).
		WithFilters(map[string]any{"borough": "BROOKLYN"})

	candidates, err := adapter.Fetch(context.Background(), []string{"window"}, 25)

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	c := candidates[0]
	assert.Equal(t, "B008", c.ExternalID)
	assert.Equal(t, "Window replacement", c.Title)
	assert.Equal(t, entities.NYCOpenData, c.Source)
	assert.Equal(t, posted, *c.PostingDate)
	assert.Nil(t, c.ResponseDeadline)
	assert.Equal(t, 0.9, c.RelevanceScore)
	assert.Equal(t, map[string]string{"phone": "718-555-0142", "units": "12", "fax": ""}, c.ContactInfo)
	assert.Equal(t, []string{"licensed installer"}, c.ExtractedData["requirements"])
	assert.NoError(t, c.Validate())
}

func Test_RemoteAdapter_FailedJob(t *testing.T) {
	jobs := &mockJobs{}
	jobs.On("StartJob", mock.Anything, mock.Anything).Return(scraper.Job{ID: "job-2"}, nil)
	jobs.On("WaitForJob", mock.Anything, "job-2", time.Minute).
		Return(scraper.Job{ID: "job-2", Status: scraper.StatusFailed}, scraper.ErrJobFailed)

	_, err := NewRemoteAdapter(entities.SamGov, jobs, time.Minute).Fetch(context.Background(), []string{"door"}, 10)

	assert.True(t, errors.Is(err, scraper.ErrJobFailed))
	jobs.AssertNotCalled(t, "JobResults", mock.Anything, mock.Anything)
}

func Test_RemoteAdapter_PassesAccessToken(t *testing.T) {
	store := tokens.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), string(entities.AutodeskACC), tokens.Token{
		AccessToken: "acc-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	jobs := &mockJobs{}
	jobs.On("StartJob", mock.Anything, mock.MatchedBy(func(r scraper.JobRequest) bool {
		return r.Filters["access_token"] == "acc-token" && r.Filters["project"] == "p-1"
	})).Return(scraper.Job{ID: "job-3"}, nil)
	jobs.On("WaitForJob", mock.Anything, "job-3", time.Minute).Return(scraper.Job{Status: scraper.StatusCompleted}, nil)
	jobs.On("JobResults", mock.Anything, "job-3").Return([]scraper.Tender{}, nil)

	filters := map[string]any{"project": "p-1"}
	adapter := NewRemoteAdapter(entities.AutodeskACC, jobs, time.Minute).WithFilters(filters).WithTokens(store)

	candidates, err := adapter.Fetch(context.Background(), []string{"curtain wall"}, 10)

	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.NotContains(t, filters, "access_token")
	jobs.AssertExpectations(t)
}

func Test_RemoteAdapter_MissingTokenFailsBeforeStartingJob(t *testing.T) {
	jobs := &mockJobs{}
	adapter := NewRemoteAdapter(entities.BuildingConnected, jobs, time.Minute).WithTokens(tokens.NewMemoryStore())

	_, err := adapter.Fetch(context.Background(), []string{"glazing"}, 10)

	assert.ErrorIs(t, err, ErrNotAuthorized)
	jobs.AssertNotCalled(t, "StartJob", mock.Anything, mock.Anything)
}

func Test_RemoteAdapter_PrecisionScorerDropsOffTopicResults(t *testing.T) {
	jobs := &mockJobs{}
	jobs.On("StartJob", mock.Anything, mock.Anything).Return(scraper.Job{ID: "job-7"}, nil)
	jobs.On("WaitForJob", mock.Anything, "job-7", time.Minute).Return(scraper.Job{ID: "job-7", Status: scraper.StatusCompleted}, nil)
	jobs.On("JobResults", mock.Anything, "job-7").Return([]scraper.Tender{
		{Title: "Výměna oken ve škole", SourceURL: "https://poptavky.cz/1"},
		{Title: "Mytí oken a úklid kanceláří", SourceURL: "https://poptavky.cz/2"},
	}, nil)

	adapter := NewRemoteAdapter(entities.PoptavkyCz, jobs, time.Minute).
		WithPrecisionScorer(scoring.NewFenestrationScorer())

	candidates, err := adapter.Fetch(context.Background(), []string{"okna", "dveře"}, 10)
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, "https://poptavky.cz/1", candidates[0].SourceURL)
	assert.GreaterOrEqual(t, candidates[0].RelevanceScore, scoring.DefaultAcceptThreshold)
}
