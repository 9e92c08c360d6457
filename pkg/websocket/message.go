package websocket

import "time"

// Типы сообщений.
const (
	TypeRequestChanged = "request.changed"
)

// Envelope - конверт любого сообщения: фронт выбирает обработчик по Type.
type Envelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// RequestChangedPayload - уведомление об изменении заявки.
type RequestChangedPayload struct {
	RequestID     uint64   `json:"request_id"`
	StatusID      int64    `json:"status_id"`
	ChangedBy     uint64   `json:"changed_by"`
	ChangedFields []string `json:"changed_fields"`
	Created       bool     `json:"created"`
}
