package dto

import (
	"github.com/shopspring/decimal"

	"fieldservice/internal/entities"
	"fieldservice/pkg/constants"
)

type CreateUserDTO struct {
	RoleID   int    `json:"role_id" validate:"required,role_id"`
	Name     string `json:"name" validate:"required,notblank,max=255"`
	Login    string `json:"login" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Email    string `json:"email" validate:"omitempty,email"`
	Schedule string `json:"schedule"`
}

// UpdateUserDTO: nil означает "не менять".
type UpdateUserDTO struct {
	RoleID   *int    `json:"role_id" validate:"omitempty,role_id"`
	Name     *string `json:"name" validate:"omitempty,notblank,max=255"`
	Login    *string `json:"login" validate:"omitempty,min=3,max=100"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	Phone    *string `json:"phone" validate:"omitempty,phone"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

type UpdateScheduleDTO struct {
	Schedule string `json:"schedule" validate:"required,notblank"`
}

type UserResponseDTO struct {
	ID       uint64           `json:"user_id"`
	RoleID   int              `json:"role_id"`
	Role     string           `json:"role"`
	Name     string           `json:"name"`
	Login    string           `json:"login"`
	Phone    string           `json:"phone,omitempty"`
	Email    string           `json:"email,omitempty"`
	Balance  *decimal.Decimal `json:"balance,omitempty"`
	Schedule *string          `json:"schedule,omitempty"`
}

func NewUserResponseDTO(u *entities.User, profile *entities.EngineerProfile) UserResponseDTO {
	res := UserResponseDTO{
		ID:     u.ID,
		RoleID: int(u.RoleID),
		Role:   u.RoleID.String(),
		Name:   u.Name,
		Login:  u.Login,
		Phone:  u.Phone.String,
		Email:  u.Email.String,
	}
	if profile != nil && u.RoleID == constants.RoleEngineer {
		balance := profile.Balance
		schedule := profile.Schedule
		res.Balance = &balance
		res.Schedule = &schedule
	}
	return res
}
