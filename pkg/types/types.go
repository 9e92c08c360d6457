package types

import "fieldservice/pkg/constants"

// Actor - аутентифицированный пользователь, от имени которого выполняется операция.
type Actor struct {
	UserID uint64
	Role   constants.Role
}

func (a Actor) Is(roles ...constants.Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

type Pagination struct {
	Limit  uint64 `json:"limit"`
	Offset uint64 `json:"offset"`
	Page   uint64 `json:"page"`
}

type PaginationMeta struct {
	TotalCount uint64 `json:"total_count"`
	Page       uint64 `json:"page"`
	Limit      uint64 `json:"limit"`
	TotalPages uint64 `json:"total_pages"`
}
