package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"fieldservice/internal/services"
	"fieldservice/pkg/utils"
)

type RequestHistoryController struct {
	historyService services.RequestHistoryServiceInterface
	logger         *zap.Logger
}

func NewRequestHistoryController(historyService services.RequestHistoryServiceInterface, logger *zap.Logger) *RequestHistoryController {
	return &RequestHistoryController{historyService: historyService, logger: logger}
}

func (c *RequestHistoryController) GetHistory(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.historyService.GetHistory(reqCtx, actor, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "История заявки получена", http.StatusOK)
}
