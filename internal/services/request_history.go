package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fieldservice/internal/authz"
	"fieldservice/internal/dto"
	"fieldservice/internal/repositories"
	apperrors "fieldservice/pkg/errors"
	"fieldservice/pkg/types"
)

type RequestHistoryServiceInterface interface {
	GetHistory(ctx context.Context, actor types.Actor, requestID uint64) ([]dto.RequestHistoryDTO, error)
}

type RequestHistoryService struct {
	requestRepo repositories.RequestRepositoryInterface
	historyRepo repositories.RequestHistoryRepositoryInterface
	logger      *zap.Logger
}

func NewRequestHistoryService(
	requestRepo repositories.RequestRepositoryInterface,
	historyRepo repositories.RequestHistoryRepositoryInterface,
	logger *zap.Logger,
) RequestHistoryServiceInterface {
	return &RequestHistoryService{
		requestRepo: requestRepo,
		historyRepo: historyRepo,
		logger:      logger,
	}
}

func (s *RequestHistoryService) GetHistory(ctx context.Context, actor types.Actor, requestID uint64) ([]dto.RequestHistoryDTO, error) {
	if err := authz.Require(actor, authz.RequestsView); err != nil {
		return nil, err
	}
	req, err := s.requestRepo.FindByID(ctx, nil, requestID)
	if err != nil {
		return nil, err
	}
	if !authz.HasPermission(actor.Role, authz.RequestsViewAll) && !req.IsAssignedTo(actor.UserID) {
		return nil, apperrors.NewForbidden("история доступна только по своим заявкам")
	}

	items, err := s.historyRepo.FindByRequestID(ctx, requestID)
	if err != nil {
		s.logger.Error("Не удалось получить историю заявки", zap.Uint64("requestID", requestID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.RequestHistoryDTO, 0, len(items))
	for _, item := range items {
		entry := dto.RequestHistoryDTO{
			ID:          item.ID,
			FieldName:   item.FieldName,
			OldValue:    item.OldValue.Ptr(),
			NewValue:    item.NewValue.Ptr(),
			ChangedAt:   item.ChangedAt.Format(time.RFC3339),
			ChangerID:   item.ChangerID.Ptr(),
			ChangerName: item.ChangerName.String,
		}
		if !item.ChangerID.Valid {
			entry.ChangerName = "Пользователь удалён"
		}
		result = append(result, entry)
	}
	return result, nil
}
