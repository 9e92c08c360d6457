package entities

import (
	"strconv"
	"time"

	"github.com/aarondl/null/v8"
)

// RequestField - изменяемое поле заявки. Значение совпадает с именем колонки.
type RequestField string

const (
	FieldOperatorID   RequestField = "operator_id"
	FieldEngineerID   RequestField = "engineer_id"
	FieldStatusID     RequestField = "status_id"
	FieldPhone        RequestField = "phone"
	FieldAddress      RequestField = "address"
	FieldTechniq      RequestField = "techniq"
	FieldDescription  RequestField = "description"
	FieldCustomerName RequestField = "customer_name"
	FieldAssignedTime RequestField = "assigned_time"
	FieldInWorksTime  RequestField = "in_works_time"
	FieldDoneTime     RequestField = "done_time"
)

// FieldKind - тип значения поля.
type FieldKind int

const (
	KindID FieldKind = iota
	KindText
	KindTime
)

// UpdatableFields - порядок важен: в нём пишутся записи аудита.
var UpdatableFields = []RequestField{
	FieldOperatorID,
	FieldEngineerID,
	FieldStatusID,
	FieldPhone,
	FieldAddress,
	FieldTechniq,
	FieldDescription,
	FieldCustomerName,
	FieldAssignedTime,
	FieldInWorksTime,
	FieldDoneTime,
}

// ImmutableFields не меняются: в обновлении такие ключи отбрасываются.
var ImmutableFields = map[string]bool{
	"request_id":    true,
	"creation_date": true,
}

func (f RequestField) Kind() FieldKind {
	switch f {
	case FieldOperatorID, FieldEngineerID, FieldStatusID:
		return KindID
	case FieldAssignedTime, FieldInWorksTime, FieldDoneTime:
		return KindTime
	default:
		return KindText
	}
}

func (f RequestField) Valid() bool {
	for _, u := range UpdatableFields {
		if u == f {
			return true
		}
	}
	return false
}

// Nullable: поля, которые можно очистить (null).
func (f RequestField) Nullable() bool {
	switch f {
	case FieldOperatorID, FieldEngineerID, FieldAssignedTime, FieldInWorksTime, FieldDoneTime:
		return true
	default:
		return false
	}
}

// RequestChanges - запрошенные изменения. Значения: nil, int64, string, time.Time.
type RequestChanges map[RequestField]any

type Request struct {
	ID           uint64     `json:"request_id"`
	OperatorID   null.Int64 `json:"operator_id"`
	EngineerID   null.Int64 `json:"engineer_id"`
	StatusID     int64      `json:"status_id"`
	Phone        string     `json:"phone"`
	Address      string     `json:"address"`
	Techniq      string     `json:"techniq"`
	Description  string     `json:"description"`
	CustomerName string     `json:"customer_name"`
	CreationDate time.Time  `json:"creation_date"`
	AssignedTime null.Time  `json:"assigned_time"`
	InWorksTime  null.Time  `json:"in_works_time"`
	DoneTime     null.Time  `json:"done_time"`
}

func int64Value(v null.Int64) any {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

func timeValue(v null.Time) any {
	if !v.Valid {
		return nil
	}
	return v.Time
}

// Value возвращает текущее значение поля в том же виде, что и RequestChanges.
func (r *Request) Value(f RequestField) any {
	switch f {
	case FieldOperatorID:
		return int64Value(r.OperatorID)
	case FieldEngineerID:
		return int64Value(r.EngineerID)
	case FieldStatusID:
		return r.StatusID
	case FieldPhone:
		return r.Phone
	case FieldAddress:
		return r.Address
	case FieldTechniq:
		return r.Techniq
	case FieldDescription:
		return r.Description
	case FieldCustomerName:
		return r.CustomerName
	case FieldAssignedTime:
		return timeValue(r.AssignedTime)
	case FieldInWorksTime:
		return timeValue(r.InWorksTime)
	case FieldDoneTime:
		return timeValue(r.DoneTime)
	}
	return nil
}

// IsAssignedTo: заявка назначена на этого инженера.
func (r *Request) IsAssignedTo(userID uint64) bool {
	return r.EngineerID.Valid && r.EngineerID.Int64 == int64(userID)
}

// SameValue сравнивает значения полей; время сравнивается через Equal.
func SameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}

// FormatValue - строковое представление значения для аудита.
func FormatValue(v any) null.String {
	switch val := v.(type) {
	case nil:
		return null.String{}
	case int64:
		return null.StringFrom(strconv.FormatInt(val, 10))
	case string:
		return null.StringFrom(val)
	case time.Time:
		return null.StringFrom(val.Format(time.RFC3339))
	default:
		return null.String{}
	}
}

type RequestFilter struct {
	EngineerID null.Int64
	StatusIDs  []int64
	DateFrom   null.Time
	DateTo     null.Time
	Limit      uint64
	Offset     uint64
}
