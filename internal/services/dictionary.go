package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fieldservice/internal/entities"
	"fieldservice/internal/repositories"
	"fieldservice/pkg/constants"
)

type DictionaryServiceInterface interface {
	Statuses(ctx context.Context) ([]entities.Status, error)
	Roles(ctx context.Context) ([]entities.Role, error)
	// StatusNames никогда не возвращает ошибку: при сбое - пустая карта.
	StatusNames(ctx context.Context) map[int64]string
}

type DictionaryService struct {
	*BaseService
	repo     repositories.DictionaryRepositoryInterface
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewDictionaryService(
	repo repositories.DictionaryRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	cacheTTL time.Duration,
	logger *zap.Logger,
) DictionaryServiceInterface {
	return &DictionaryService{
		BaseService: NewBaseService(cache, logger),
		repo:        repo,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

func (s *DictionaryService) Statuses(ctx context.Context) ([]entities.Status, error) {
	var cached []entities.Status
	if s.CacheGet(ctx, constants.CacheKeyStatusDictionary, &cached) && len(cached) > 0 {
		return cached, nil
	}

	statuses, err := s.repo.FindAllStatuses(ctx)
	if err != nil {
		return nil, err
	}
	s.CacheSet(ctx, constants.CacheKeyStatusDictionary, statuses, s.cacheTTL)
	return statuses, nil
}

func (s *DictionaryService) Roles(ctx context.Context) ([]entities.Role, error) {
	return s.repo.FindAllRoles(ctx)
}

func (s *DictionaryService) StatusNames(ctx context.Context) map[int64]string {
	names := make(map[int64]string, 5)
	statuses, err := s.Statuses(ctx)
	if err != nil {
		s.logger.Warn("Справочник статусов недоступен, в историю пойдут коды", zap.Error(err))
		return names
	}
	for _, st := range statuses {
		names[st.ID] = st.Name
	}
	return names
}
