package listeners

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fieldservice/internal/events"
	"fieldservice/internal/repositories"
	"fieldservice/internal/services"
	"fieldservice/pkg/eventbus"
)

// StatsCacheListener сбрасывает закешированную статистику после изменений заявок.
type StatsCacheListener struct {
	cache    repositories.CacheRepositoryInterface
	location *time.Location
	logger   *zap.Logger
}

func NewStatsCacheListener(cache repositories.CacheRepositoryInterface, logger *zap.Logger) *StatsCacheListener {
	return &StatsCacheListener{
		cache:    cache,
		location: time.Local,
		logger:   logger,
	}
}

func (l *StatsCacheListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.RequestChangedEventName, l.handleRequestChanged)
	bus.Subscribe(events.BalanceChangedEventName, l.handleBalanceChanged)
	l.logger.Info("StatsCacheListener подписан на события заявок и баланса")
}

func (l *StatsCacheListener) handleRequestChanged(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.RequestChangedEvent)
	if !ok || e.CreationDate.IsZero() {
		return nil
	}
	created := e.CreationDate.In(l.location)
	key := services.FunnelVersionKey(created.Year(), created.Month())
	version, err := l.cache.Incr(ctx, key)
	if err != nil {
		return err
	}
	l.logger.Debug("Версия воронки поднята", zap.String("key", key), zap.Int64("version", version), zap.Uint64("requestID", e.RequestID))
	return nil
}

func (l *StatsCacheListener) handleBalanceChanged(_ context.Context, event eventbus.Event) error {
	e, ok := event.(events.BalanceChangedEvent)
	if !ok {
		return nil
	}
	l.logger.Info("Баланс инженера изменён",
		zap.Uint64("engineerID", e.EngineerID),
		zap.Uint64("adminID", e.AdminID),
		zap.String("old", e.OldSum),
		zap.String("new", e.NewSum),
	)
	return nil
}
