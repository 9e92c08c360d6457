package services

import (
	"context"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fieldservice/internal/authz"
	"fieldservice/internal/dto"
	"fieldservice/internal/entities"
	"fieldservice/internal/events"
	"fieldservice/internal/repositories"
	apperrors "fieldservice/pkg/errors"
	"fieldservice/pkg/eventbus"
	"fieldservice/pkg/types"
)

// максимальное значение NUMERIC(12,2)
var maxBalance = decimal.RequireFromString("9999999999.99")

type BalanceServiceInterface interface {
	UpdateBalance(ctx context.Context, actor types.Actor, engineerID uint64, newBalance decimal.Decimal) (*dto.BalanceResponseDTO, error)
	GetBalance(ctx context.Context, actor types.Actor, engineerID uint64) (*dto.BalanceResponseDTO, error)
	GetHistory(ctx context.Context, actor types.Actor, engineerID uint64) ([]entities.BalanceHistory, error)
}

type BalanceService struct {
	txManager   repositories.TxManagerInterface
	profileRepo repositories.EngineerProfileRepositoryInterface
	historyRepo repositories.BalanceHistoryRepositoryInterface
	bus         eventbus.Publisher
	logger      *zap.Logger
}

func NewBalanceService(
	txManager repositories.TxManagerInterface,
	profileRepo repositories.EngineerProfileRepositoryInterface,
	historyRepo repositories.BalanceHistoryRepositoryInterface,
	bus eventbus.Publisher,
	logger *zap.Logger,
) BalanceServiceInterface {
	return &BalanceService{
		txManager:   txManager,
		profileRepo: profileRepo,
		historyRepo: historyRepo,
		bus:         bus,
		logger:      logger,
	}
}

func (s *BalanceService) UpdateBalance(ctx context.Context, actor types.Actor, engineerID uint64, newBalance decimal.Decimal) (*dto.BalanceResponseDTO, error) {
	logger := s.logger.With(zap.Uint64("engineerID", engineerID), zap.Uint64("actorID", actor.UserID))
	if err := authz.Require(actor, authz.BalanceUpdate); err != nil {
		logger.Warn("Изменение баланса запрещено", zap.String("role", actor.Role.String()))
		return nil, err
	}

	newBalance = newBalance.Round(2)
	if newBalance.Abs().GreaterThan(maxBalance) {
		return nil, apperrors.NewValidation("баланс вне допустимого диапазона")
	}

	var oldBalance decimal.Decimal
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		profile, err := s.profileRepo.FindByUserIDForUpdate(ctx, tx, engineerID)
		if err != nil {
			return err
		}
		oldBalance = profile.Balance
		if oldBalance.Equal(newBalance) {
			return apperrors.NewNoOp("баланс не изменился")
		}

		if err := s.profileRepo.UpdateBalanceInTx(ctx, tx, engineerID, newBalance); err != nil {
			return err
		}
		return s.historyRepo.CreateInTx(ctx, tx, &entities.BalanceHistory{
			AdminID:    null.Int64From(int64(actor.UserID)),
			EngineerID: engineerID,
			OldSum:     oldBalance,
			NewSum:     newBalance,
		})
	})
	if err != nil {
		logFailure(logger, "Баланс не изменён", err)
		return nil, err
	}

	logger.Info("Баланс инженера изменён",
		zap.String("old", oldBalance.StringFixed(2)),
		zap.String("new", newBalance.StringFixed(2)),
	)
	s.bus.Publish(ctx, events.BalanceChangedEvent{
		EngineerID: engineerID,
		AdminID:    actor.UserID,
		OldSum:     oldBalance.StringFixed(2),
		NewSum:     newBalance.StringFixed(2),
	})
	return &dto.BalanceResponseDTO{EngineerID: engineerID, Balance: newBalance}, nil
}

func (s *BalanceService) GetBalance(ctx context.Context, actor types.Actor, engineerID uint64) (*dto.BalanceResponseDTO, error) {
	if err := authz.RequireScoped(actor, authz.BalanceView, authz.BalanceViewAll, engineerID); err != nil {
		return nil, err
	}
	profile, err := s.profileRepo.FindByUserID(ctx, nil, engineerID)
	if err != nil {
		return nil, err
	}
	return &dto.BalanceResponseDTO{EngineerID: engineerID, Balance: profile.Balance}, nil
}

func (s *BalanceService) GetHistory(ctx context.Context, actor types.Actor, engineerID uint64) ([]entities.BalanceHistory, error) {
	if err := authz.RequireScoped(actor, authz.BalanceView, authz.BalanceViewAll, engineerID); err != nil {
		return nil, err
	}
	if _, err := s.profileRepo.FindByUserID(ctx, nil, engineerID); err != nil {
		return nil, err
	}
	return s.historyRepo.FindByEngineerID(ctx, engineerID)
}
