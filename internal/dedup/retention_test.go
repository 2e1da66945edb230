package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/maxaizer/tender-monitor/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockHistoryStore struct {
	mock.Mock
}

func (m *mockHistoryStore) RemoveOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type mockTenderStore struct {
	mock.Mock
}

func (m *mockTenderStore) RemoveStale(ctx context.Context, createdBefore time.Time, belowScore float64) (int64, error) {
	args := m.Called(ctx, createdBefore, belowScore)
	return args.Get(0).(int64), args.Error(1)
}

func Test_Sweep_UsesConfiguredCutoffs(t *testing.T) {
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	tenders, runs, logs := &mockTenderStore{}, &mockHistoryStore{}, &mockHistoryStore{}
	tenders.On("RemoveStale", mock.Anything, now.AddDate(0, 0, -90), 0.7).Return(int64(4), nil)
	runs.On("RemoveOlderThan", mock.Anything, now.AddDate(0, 0, -30)).Return(int64(2), nil)
	logs.On("RemoveOlderThan", mock.Anything, now.AddDate(0, 0, -60)).Return(int64(1), nil)

	sweeper, err := NewSweeper(RetentionStores{Tenders: tenders, ScanRuns: runs, Notifications: logs}, DefaultConfig())
	require.NoError(t, err)
	sweeper.now = func() time.Time { return now }

	result, err := sweeper.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SweepResult{Tenders: 4, ScanRuns: 2, Notifications: 1}, result)
	tenders.AssertExpectations(t)
	runs.AssertExpectations(t)
	logs.AssertExpectations(t)
}

func Test_Sweep_ContinuesAfterFailure(t *testing.T) {
	tenders, runs := &mockTenderStore{}, &mockHistoryStore{}
	tenders.On("RemoveStale", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("locked"))
	runs.On("RemoveOlderThan", mock.Anything, mock.Anything).Return(int64(3), nil)

	sweeper, err := NewSweeper(RetentionStores{Tenders: tenders, ScanRuns: runs}, DefaultConfig())
	require.NoError(t, err)

	result, err := sweeper.Sweep(context.Background())

	assert.Error(t, err)
	assert.Equal(t, int64(3), result.ScanRuns)
}

func Test_Sweep_KeepsRelevantTendersForever(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()

	stored, err := service.Persist(ctx, []entities.Candidate{
		withScore(candidate("Old low", "https://sam.gov/1"), 0.4),
		withScore(candidate("Old relevant", "https://sam.gov/2"), 0.7),
		withScore(candidate("Another low", "https://sam.gov/3"), 0.4),
	})
	require.NoError(t, err)

	sweeper, err := NewSweeper(RetentionStores{Tenders: repo}, service.Config())
	require.NoError(t, err)
	// shift the clock instead of backdating rows
	sweeper.now = func() time.Time { return time.Now().AddDate(0, 0, 91) }

	result, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Tenders)

	left, err := service.QueryStored(ctx, entities.TenderFilter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, stored[1].ID, left[0].ID)
}

func Test_Sweeper_RejectsBadSchedule(t *testing.T) {
	_, repo := newTestService(t)
	sweeper, err := NewSweeper(RetentionStores{Tenders: repo}, DefaultConfig())
	require.NoError(t, err)

	assert.Error(t, sweeper.Start("every day"))

	require.NoError(t, sweeper.Start("0 2 * * *"))
	sweeper.Stop()
}

func Test_NewSweeper_RequiresTenderStore(t *testing.T) {
	_, err := NewSweeper(RetentionStores{}, DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func withScore(c entities.Candidate, score float64) entities.Candidate {
	c.RelevanceScore = score
	return c
}

var _ TenderRetentionStore = (*repositories.Tenders)(nil)
var _ HistoryRetentionStore = (*repositories.ScanRuns)(nil)
var _ HistoryRetentionStore = (*repositories.NotificationLogs)(nil)
var _ Repository = (*repositories.Tenders)(nil)
