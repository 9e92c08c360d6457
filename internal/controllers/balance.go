package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"fieldservice/internal/dto"
	"fieldservice/internal/services"
	"fieldservice/pkg/utils"
)

type BalanceController struct {
	balanceService services.BalanceServiceInterface
	logger         *zap.Logger
}

func NewBalanceController(balanceService services.BalanceServiceInterface, logger *zap.Logger) *BalanceController {
	return &BalanceController{balanceService: balanceService, logger: logger}
}

func (c *BalanceController) GetBalance(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	engineerID, err := utils.ParseIDParam(ctx, "engineer_id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.balanceService.GetBalance(reqCtx, actor, engineerID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Баланс получен", http.StatusOK)
}

func (c *BalanceController) UpdateBalance(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	engineerID, err := utils.ParseIDParam(ctx, "engineer_id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.UpdateBalanceDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, utils.BadRequest("Баланс должен быть числом", err), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.balanceService.UpdateBalance(reqCtx, actor, engineerID, *payload.Balance)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Баланс обновлён", http.StatusOK)
}

func (c *BalanceController) GetHistory(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	engineerID, err := utils.ParseIDParam(ctx, "engineer_id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.balanceService.GetHistory(reqCtx, actor, engineerID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "История баланса получена", http.StatusOK)
}
