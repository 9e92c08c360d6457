package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"fieldservice/internal/repositories"
)

// BaseService - общие помощники для работы с кешем.
type BaseService struct {
	cache  repositories.CacheRepositoryInterface
	logger *zap.Logger
}

func NewBaseService(cache repositories.CacheRepositoryInterface, logger *zap.Logger) *BaseService {
	return &BaseService{cache: cache, logger: logger}
}

// CacheGet читает JSON из кеша в dest. false - промах или ошибка (ошибка логируется).
func (s *BaseService) CacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repositories.ErrCacheMiss) {
			s.logger.Warn("Ошибка чтения кеша", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(cached), dest); err != nil {
		s.logger.Warn("Повреждённое значение в кеше", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *BaseService) CacheSet(ctx context.Context, key string, data interface{}, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	serialized, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("Не удалось сериализовать данные для кеша", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, serialized, ttl); err != nil {
		s.logger.Warn("Ошибка записи в кеш", zap.String("key", key), zap.Error(err))
	}
}
