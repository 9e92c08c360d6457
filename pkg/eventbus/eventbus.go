package eventbus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event - любое событие в системе.
type Event interface {
	Name() string
}

// Listener - обработчик событий.
type Listener func(ctx context.Context, event Event) error

// Publisher - то, что нужно сервисам от шины.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type Bus struct {
	listeners map[string][]Listener
	mu        sync.RWMutex
	wg        sync.WaitGroup
	timeout   time.Duration
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		listeners: make(map[string][]Listener),
		timeout:   time.Minute,
		logger:    logger,
	}
}

func (b *Bus) Subscribe(eventName string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventName] = append(b.listeners[eventName], listener)
}

// Publish вызывает подписчиков асинхронно; ошибки подписчиков только логируются.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	eventName := event.Name()
	for _, listener := range b.listeners[eventName] {
		b.wg.Add(1)
		go func(l Listener) {
			defer b.wg.Done()
			// контекст запроса к этому моменту может быть уже отменён
			ctxWithTimeout, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
			defer cancel()

			if err := l(ctxWithTimeout, event); err != nil {
				b.logger.Error("Ошибка в обработчике события",
					zap.String("event", eventName),
					zap.Error(err),
				)
			}
		}(listener)
	}
}

// Wait дожидается завершения запущенных обработчиков (graceful shutdown, тесты).
func (b *Bus) Wait() {
	b.wg.Wait()
}
