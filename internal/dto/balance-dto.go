package dto

import "github.com/shopspring/decimal"

type UpdateBalanceDTO struct {
	Balance *decimal.Decimal `json:"balance" validate:"required"`
}

type BalanceResponseDTO struct {
	EngineerID uint64          `json:"engineer_id"`
	Balance    decimal.Decimal `json:"balance"`
}
