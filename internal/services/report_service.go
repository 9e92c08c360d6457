package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"fieldservice/internal/authz"
	"fieldservice/internal/dto"
	"fieldservice/internal/entities"
	"fieldservice/internal/repositories"
	"fieldservice/pkg/constants"
	apperrors "fieldservice/pkg/errors"
	"fieldservice/pkg/types"
	"fieldservice/pkg/utils"
)

type ReportServiceInterface interface {
	EngineerStats(ctx context.Context, actor types.Actor, payload dto.EngineerStatsDTO) ([]entities.EngineerStat, entities.StatsPeriod, error)
	MonthlyFunnel(ctx context.Context, actor types.Actor, year int, month time.Month) ([]entities.StatusCount, error)
}

type ReportService struct {
	*BaseService
	repo     repositories.ReportRepositoryInterface
	cacheTTL time.Duration
	location *time.Location
}

func NewReportService(
	repo repositories.ReportRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	cacheTTL time.Duration,
	logger *zap.Logger,
) ReportServiceInterface {
	return &ReportService{
		BaseService: NewBaseService(cache, logger),
		repo:        repo,
		cacheTTL:    cacheTTL,
		location:    time.Local,
	}
}

// StatsPeriodFromDates превращает включительный диапазон дней в полуинтервал [from, to+1 день).
func StatsPeriodFromDates(dateFrom, dateTo string, loc *time.Location) (entities.StatsPeriod, error) {
	from, err := utils.ParseDate(dateFrom, loc)
	if err != nil {
		return entities.StatsPeriod{}, apperrors.NewValidation("%s", err.Error())
	}
	to, err := utils.ParseDate(dateTo, loc)
	if err != nil {
		return entities.StatsPeriod{}, apperrors.NewValidation("%s", err.Error())
	}
	if to.Before(from) {
		return entities.StatsPeriod{}, apperrors.NewValidation("дата окончания раньше даты начала")
	}
	_, end := utils.DayBounds(to)
	return entities.StatsPeriod{From: from, To: end}, nil
}

func (s *ReportService) EngineerStats(ctx context.Context, actor types.Actor, payload dto.EngineerStatsDTO) ([]entities.EngineerStat, entities.StatsPeriod, error) {
	if err := authz.Require(actor, authz.StatsView); err != nil {
		return nil, entities.StatsPeriod{}, err
	}
	period, err := StatsPeriodFromDates(payload.DateFrom, payload.DateTo, s.location)
	if err != nil {
		return nil, entities.StatsPeriod{}, err
	}

	var requested *uint64
	if payload.EngineerID != nil {
		if *payload.EngineerID <= 0 {
			return nil, entities.StatsPeriod{}, apperrors.NewValidation("неверный идентификатор инженера")
		}
		id := uint64(*payload.EngineerID)
		requested = &id
	}
	target := authz.ScopeEngineer(actor, authz.StatsViewAll, requested)

	stats, err := s.repo.CountCompleted(ctx, period, target)
	if err != nil {
		s.logger.Error("Не удалось посчитать статистику инженеров", zap.Error(err))
		return nil, entities.StatsPeriod{}, err
	}
	if target != nil && len(stats) == 0 {
		return nil, entities.StatsPeriod{}, apperrors.NewNotFound("инженер не найден")
	}
	return stats, period, nil
}

func FunnelVersionKey(year int, month time.Month) string {
	return fmt.Sprintf(constants.CacheKeyFunnelVersion, year, int(month))
}

func FunnelCacheKey(year int, month time.Month, version int64) string {
	return fmt.Sprintf(constants.CacheKeyMonthlyFunnel, year, int(month), version)
}

// funnelVersion читает текущую версию воронки месяца. false - кеш недоступен, кешировать нельзя.
func (s *ReportService) funnelVersion(ctx context.Context, year int, month time.Month) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	raw, err := s.cache.Get(ctx, FunnelVersionKey(year, month))
	if errors.Is(err, repositories.ErrCacheMiss) {
		return 0, true
	}
	if err != nil {
		s.logger.Warn("Не удалось прочитать версию воронки", zap.Error(err))
		return 0, false
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.logger.Warn("Повреждённая версия воронки", zap.String("value", raw), zap.Error(err))
		return 0, false
	}
	return version, true
}

func (s *ReportService) MonthlyFunnel(ctx context.Context, actor types.Actor, year int, month time.Month) ([]entities.StatusCount, error) {
	if err := authz.Require(actor, authz.FunnelView); err != nil {
		return nil, err
	}
	if month < time.January || month > time.December || year < 2000 || year > 9999 {
		return nil, apperrors.NewValidation("неверный месяц %04d-%02d", year, int(month))
	}

	// Версия читается до запроса к базе: если изменение закоммитится позже,
	// слушатель поднимет версию и запись ниже уйдёт в устаревший ключ.
	version, cacheable := s.funnelVersion(ctx, year, month)
	key := FunnelCacheKey(year, month, version)
	var cached []entities.StatusCount
	if cacheable && s.CacheGet(ctx, key, &cached) {
		return cached, nil
	}

	from, to := utils.MonthBounds(year, month, s.location)
	counts, err := s.repo.CountByStatus(ctx, entities.StatsPeriod{From: from, To: to})
	if err != nil {
		s.logger.Error("Не удалось построить воронку", zap.String("month", key), zap.Error(err))
		return nil, err
	}
	if cacheable {
		s.CacheSet(ctx, key, counts, s.cacheTTL)
	}
	return counts, nil
}
