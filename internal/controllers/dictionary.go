package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"fieldservice/internal/services"
	"fieldservice/pkg/utils"
)

// DictionaryController отдаёт справочники статусов и ролей для фронта.
type DictionaryController struct {
	dictionaryService services.DictionaryServiceInterface
	logger            *zap.Logger
}

func NewDictionaryController(dictionaryService services.DictionaryServiceInterface, logger *zap.Logger) *DictionaryController {
	return &DictionaryController{dictionaryService: dictionaryService, logger: logger}
}

func (c *DictionaryController) Statuses(ctx echo.Context) error {
	res, err := c.dictionaryService.Statuses(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Справочник статусов получен", http.StatusOK)
}

func (c *DictionaryController) Roles(ctx echo.Context) error {
	res, err := c.dictionaryService.Roles(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Справочник ролей получен", http.StatusOK)
}
