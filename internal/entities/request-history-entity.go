package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

type RequestHistory struct {
	ID        uint64      `json:"rh_id"`
	RequestID uint64      `json:"request_id"`
	ChangerID null.Int64  `json:"changer_id"`
	FieldName string      `json:"field_name"`
	OldValue  null.String `json:"old_value"`
	NewValue  null.String `json:"new_value"`
	ChangedAt time.Time   `json:"changed_at"`
}

// RequestHistoryItem - запись истории с именем автора изменения.
type RequestHistoryItem struct {
	RequestHistory
	ChangerName null.String `json:"changer_name"`
}
