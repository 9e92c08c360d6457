package dto

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"fieldservice/internal/entities"
	apperrors "fieldservice/pkg/errors"
)

type CreateRequestDTO struct {
	StatusID     int64  `json:"status_id" validate:"required,status_id"`
	EngineerID   *int64 `json:"engineer_id" validate:"omitempty,gt=0"`
	Phone        string `json:"phone" validate:"required,phone"`
	Address      string `json:"address" validate:"required,notblank,max=500"`
	Techniq      string `json:"techniq" validate:"required,notblank,max=500"`
	Description  string `json:"description" validate:"required,notblank"`
	CustomerName string `json:"customer_name" validate:"required,notblank,max=255"`
}

// UpdateRequestDTO - частичное обновление: только переданные ключи.
// null в JSON означает "очистить поле".
type UpdateRequestDTO map[string]json.RawMessage

// ToChanges разбирает тело запроса в типизированные изменения.
// Неизвестные и неизменяемые ключи отбрасываются и возвращаются в dropped.
func (d UpdateRequestDTO) ToChanges() (changes entities.RequestChanges, dropped []string, err error) {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	changes = make(entities.RequestChanges, len(d))
	for _, key := range keys {
		raw := d[key]
		field := entities.RequestField(key)
		if entities.ImmutableFields[key] || !field.Valid() {
			dropped = append(dropped, key)
			continue
		}

		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			changes[field] = nil
			continue
		}

		switch field.Kind() {
		case entities.KindID:
			var v int64
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, nil, apperrors.NewValidation("поле '%s' должно быть целым числом", key)
			}
			changes[field] = v
		case entities.KindTime:
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, nil, apperrors.NewValidation("поле '%s' должно быть строкой с датой", key)
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, nil, apperrors.NewValidation("поле '%s' должно быть в формате RFC3339", key)
			}
			changes[field] = t
		default:
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, nil, apperrors.NewValidation("поле '%s' должно быть строкой", key)
			}
			changes[field] = strings.TrimSpace(s)
		}
	}
	return changes, dropped, nil
}

// RequestHistoryDTO - запись истории для фронта.
type RequestHistoryDTO struct {
	ID          uint64  `json:"id"`
	FieldName   string  `json:"field_name"`
	OldValue    *string `json:"old_value"`
	NewValue    *string `json:"new_value"`
	ChangedAt   string  `json:"changed_at"`
	ChangerID   *int64  `json:"changer_id"`
	ChangerName string  `json:"changer_name"`
}
