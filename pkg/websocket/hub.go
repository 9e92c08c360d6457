package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub держит открытые соединения и раздаёт сообщения по userID.
type Hub struct {
	userClients map[uint64]map[*Client]struct{}
	register    chan *Client
	unregister  chan *Client
	done        chan struct{}
	mu          sync.RWMutex
	logger      *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		userClients: make(map[uint64]map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run обслуживает регистрацию клиентов до отмены ctx, затем закрывает все соединения.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.userClients[client.UserID] == nil {
				h.userClients[client.UserID] = make(map[*Client]struct{})
			}
			h.userClients[client.UserID][client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("Клиент WebSocket зарегистрирован", zap.Uint64("userID", client.UserID))
		case client := <-h.unregister:
			h.remove(client)
		case <-ctx.Done():
			h.mu.Lock()
			for userID, clients := range h.userClients {
				for client := range clients {
					close(client.send)
				}
				delete(h.userClients, userID)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.userClients[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.userClients, client.UserID)
	}
	h.logger.Debug("Клиент WebSocket отсоединён", zap.Uint64("userID", client.UserID))
}

// Connected - число открытых соединений пользователя.
func (h *Hub) Connected(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID])
}

// SendToUser кладёт сообщение в очереди всех соединений пользователя.
// Медленный клиент с полной очередью сообщение пропускает.
func (h *Hub) SendToUser(userID uint64, messageType string, payload interface{}) (int, error) {
	data, err := json.Marshal(Envelope{
		Type:      messageType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for client := range h.userClients[userID] {
		select {
		case client.send <- data:
			delivered++
		default:
			h.logger.Warn("Очередь клиента WebSocket переполнена, сообщение пропущено", zap.Uint64("userID", userID))
		}
	}
	return delivered, nil
}
