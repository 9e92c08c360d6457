package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"

	"fieldservice/pkg/constants"
)

type User struct {
	ID        uint64         `json:"user_id"`
	RoleID    constants.Role `json:"role_id"`
	Name      string         `json:"name"`
	Login     string         `json:"login"`
	Password  string         `json:"-"`
	Phone     null.String    `json:"phone"`
	Email     null.String    `json:"email"`
	CreatedAt time.Time      `json:"created_at"`
}

type EngineerProfile struct {
	ID       uint64          `json:"engin_id"`
	UserID   uint64          `json:"user_id"`
	Balance  decimal.Decimal `json:"balance"`
	Schedule string          `json:"schedule"`
}

type BalanceHistory struct {
	ID         uint64          `json:"bh_id"`
	AdminID    null.Int64      `json:"admin_id"`
	EngineerID uint64          `json:"engineer_id"`
	OldSum     decimal.Decimal `json:"old_sum"`
	NewSum     decimal.Decimal `json:"new_sum"`
	ChangedAt  time.Time       `json:"changed_at"`
	AdminName  null.String     `json:"admin_name"`
}
