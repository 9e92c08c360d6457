package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fieldservice/internal/dto"
	"fieldservice/internal/entities"
	apperrors "fieldservice/pkg/errors"
)

type fakeReportRepo struct {
	stats        []entities.EngineerStat
	counts       []entities.StatusCount
	lastPeriod   entities.StatsPeriod
	lastEngineer *uint64
	funnelCalls  int
	onCount      func()
}

func (r *fakeReportRepo) CountCompleted(_ context.Context, period entities.StatsPeriod, engineerID *uint64) ([]entities.EngineerStat, error) {
	r.lastPeriod = period
	r.lastEngineer = engineerID
	if engineerID == nil {
		return r.stats, nil
	}
	for _, s := range r.stats {
		if s.EngineerID == *engineerID {
			return []entities.EngineerStat{s}, nil
		}
	}
	return []entities.EngineerStat{}, nil
}

func (r *fakeReportRepo) CountByStatus(_ context.Context, period entities.StatsPeriod) ([]entities.StatusCount, error) {
	r.lastPeriod = period
	r.funnelCalls++
	counts := r.counts
	if r.onCount != nil {
		r.onCount()
	}
	return counts, nil
}

func newReportEnv() (*fakeReportRepo, *memCache, *ReportService) {
	repo := &fakeReportRepo{
		stats: []entities.EngineerStat{
			{EngineerID: engineerID, EngineerName: "Иван Инженеров", Completed: 7},
			{EngineerID: engineer2ID, EngineerName: "Пётр Монтёров", Completed: 2},
		},
		counts: []entities.StatusCount{
			{StatusID: 1, StatusName: "Создана", Count: 4},
			{StatusID: 4, StatusName: "Выполнена", Count: 9},
		},
	}
	cache := newMemCache()
	svc := NewReportService(repo, cache, 10*time.Minute, zap.NewNop()).(*ReportService)
	svc.location = time.UTC
	return repo, cache, svc
}

func TestEngineerStats(t *testing.T) {
	ctx := context.Background()
	repo, _, svc := newReportEnv()

	stats, period, err := svc.EngineerStats(ctx, operator, dto.EngineerStatsDTO{DateFrom: "2024-05-01", DateTo: "2024-05-31"})
	require.NoError(t, err)
	assert.Len(t, stats, 2)
	assert.Nil(t, repo.lastEngineer)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), period.From)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), period.To)

	other := int64(engineer2ID)
	stats, _, err = svc.EngineerStats(ctx, engineer, dto.EngineerStatsDTO{DateFrom: "2024-05-01", DateTo: "2024-05-01", EngineerID: &other})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, engineerID, stats[0].EngineerID)

	_, _, err = svc.EngineerStats(ctx, manager, dto.EngineerStatsDTO{DateFrom: "2024-05-10", DateTo: "2024-05-01"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, _, err = svc.EngineerStats(ctx, manager, dto.EngineerStatsDTO{DateFrom: "01.05.2024", DateTo: "2024-05-01"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	missing := int64(999)
	_, _, err = svc.EngineerStats(ctx, manager, dto.EngineerStatsDTO{DateFrom: "2024-05-01", DateTo: "2024-05-02", EngineerID: &missing})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMonthlyFunnel_Cached(t *testing.T) {
	ctx := context.Background()
	repo, cache, svc := newReportEnv()

	_, err := svc.MonthlyFunnel(ctx, engineer, 2024, time.May)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	first, err := svc.MonthlyFunnel(ctx, manager, 2024, time.May)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), repo.lastPeriod.From)
	assert.True(t, cache.has("stats:funnel:2024-05:v0"))

	second, err := svc.MonthlyFunnel(ctx, operator, 2024, time.May)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.funnelCalls)

	_, err = svc.MonthlyFunnel(ctx, manager, 2024, time.Month(13))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

// Изменение, закоммиченное во время чтения воронки, не должно оставить в кеше старые цифры.
func TestMonthlyFunnel_LateWriteGoesToOldVersion(t *testing.T) {
	ctx := context.Background()
	repo, cache, svc := newReportEnv()

	repo.onCount = func() {
		_, _ = cache.Incr(ctx, FunnelVersionKey(2024, time.May))
	}
	stale, err := svc.MonthlyFunnel(ctx, manager, 2024, time.May)
	require.NoError(t, err)
	assert.True(t, cache.has("stats:funnel:2024-05:v0"))

	repo.onCount = nil
	repo.counts = []entities.StatusCount{{StatusID: 4, StatusName: "Выполнена", Count: 10}}
	fresh, err := svc.MonthlyFunnel(ctx, manager, 2024, time.May)
	require.NoError(t, err)
	assert.NotEqual(t, stale, fresh)
	assert.Equal(t, 2, repo.funnelCalls)
	assert.True(t, cache.has("stats:funnel:2024-05:v1"))
}

func TestMonthlyFunnel_CacheDownSkipsCaching(t *testing.T) {
	ctx := context.Background()
	repo, cache, svc := newReportEnv()
	cache.failGet = context.DeadlineExceeded

	_, err := svc.MonthlyFunnel(ctx, manager, 2024, time.May)
	require.NoError(t, err)
	_, err = svc.MonthlyFunnel(ctx, manager, 2024, time.May)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.funnelCalls)
	assert.False(t, cache.has("stats:funnel:2024-05:v0"))
}
