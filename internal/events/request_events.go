package events

import "time"

const (
	RequestChangedEventName = "request.changed"
	BalanceChangedEventName = "balance.changed"
)

// RequestChangedEvent публикуется после коммита создания или изменения заявки.
// Нулевой ID участника - участника нет.
type RequestChangedEvent struct {
	RequestID     uint64
	ActorID       uint64
	StatusID      int64
	OperatorID    uint64
	EngineerID    uint64
	PrevEngineer  uint64
	CreationDate  time.Time
	ChangedFields []string
}

// Participants - кому интересно изменение, без автора.
func (e RequestChangedEvent) Participants() []uint64 {
	var out []uint64
	seen := map[uint64]bool{0: true, e.ActorID: true}
	for _, id := range []uint64{e.EngineerID, e.PrevEngineer, e.OperatorID} {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (e RequestChangedEvent) Name() string {
	return RequestChangedEventName
}

// BalanceChangedEvent публикуется после коммита изменения баланса инженера.
type BalanceChangedEvent struct {
	EngineerID uint64
	AdminID    uint64
	OldSum     string
	NewSum     string
}

func (e BalanceChangedEvent) Name() string {
	return BalanceChangedEventName
}
