package listeners

import (
	"context"

	"go.uber.org/zap"

	"fieldservice/internal/events"
	"fieldservice/pkg/eventbus"
	"fieldservice/pkg/websocket"
)

// Notifier доставляет сообщение пользователю; возвращает число получивших соединений.
type Notifier interface {
	SendToUser(userID uint64, messageType string, payload interface{}) (int, error)
}

// NotificationListener сообщает участникам заявки о её изменении.
type NotificationListener struct {
	notifier Notifier
	logger   *zap.Logger
}

func NewNotificationListener(notifier Notifier, logger *zap.Logger) *NotificationListener {
	return &NotificationListener{notifier: notifier, logger: logger}
}

func (l *NotificationListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.RequestChangedEventName, l.handleRequestChanged)
	l.logger.Info("NotificationListener подписан на событие 'request.changed'")
}

func (l *NotificationListener) handleRequestChanged(_ context.Context, event eventbus.Event) error {
	e, ok := event.(events.RequestChangedEvent)
	if !ok {
		return nil
	}
	payload := websocket.RequestChangedPayload{
		RequestID:     e.RequestID,
		StatusID:      e.StatusID,
		ChangedBy:     e.ActorID,
		ChangedFields: e.ChangedFields,
		Created:       len(e.ChangedFields) == 0,
	}
	for _, userID := range e.Participants() {
		n, err := l.notifier.SendToUser(userID, websocket.TypeRequestChanged, payload)
		if err != nil {
			return err
		}
		l.logger.Debug("Уведомление об изменении заявки",
			zap.Uint64("requestID", e.RequestID),
			zap.Uint64("userID", userID),
			zap.Int("connections", n),
		)
	}
	return nil
}
