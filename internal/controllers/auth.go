package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"fieldservice/internal/dto"
	"fieldservice/internal/services"
	apperrors "fieldservice/pkg/errors"
	"fieldservice/pkg/utils"
)

type AuthController struct {
	authService services.AuthServiceInterface
	logger      *zap.Logger
}

func NewAuthController(authService services.AuthServiceInterface, logger *zap.Logger) *AuthController {
	return &AuthController{authService: authService, logger: logger}
}

func (ctrl *AuthController) errorResponse(c echo.Context, err error) error {
	return utils.ErrorResponse(c, err, ctrl.logger)
}

func (ctrl *AuthController) Login(c echo.Context) error {
	var payload dto.LoginDTO
	if err := c.Bind(&payload); err != nil {
		ctrl.logger.Error("Login: ошибка привязки данных", zap.Error(err))
		return ctrl.errorResponse(c, utils.BadRequest("Неверный формат данных для входа", err))
	}
	if err := c.Validate(&payload); err != nil {
		return ctrl.errorResponse(c, err)
	}

	res, err := ctrl.authService.Login(c.Request().Context(), payload)
	if err != nil {
		ctrl.logger.Warn("Login: ошибка авторизации", zap.String("login", payload.Login), zap.Error(err))
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, res, "Авторизация прошла успешно", http.StatusOK)
}

func (ctrl *AuthController) Refresh(c echo.Context) error {
	var payload dto.RefreshTokenDTO
	if err := c.Bind(&payload); err != nil {
		return ctrl.errorResponse(c, utils.BadRequest("Неверный формат запроса", err))
	}
	if err := c.Validate(&payload); err != nil {
		return ctrl.errorResponse(c, err)
	}

	res, err := ctrl.authService.Refresh(c.Request().Context(), payload.RefreshToken)
	if err != nil {
		ctrl.logger.Warn("Refresh: токен не принят", zap.Error(err))
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, res, "Токены обновлены", http.StatusOK)
}

// Logout отзывает текущий access-токен и, если передан, refresh-токен.
func (ctrl *AuthController) Logout(c echo.Context) error {
	reqCtx := c.Request().Context()
	tokenID, expiresAt, ok := utils.GetTokenFromCtx(reqCtx)
	if !ok {
		return ctrl.errorResponse(c, apperrors.ErrInvalidToken)
	}

	var payload dto.RefreshTokenDTO
	// тело необязательно
	_ = c.Bind(&payload)

	if err := ctrl.authService.Logout(reqCtx, tokenID, expiresAt, payload.RefreshToken); err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, nil, "Выход выполнен", http.StatusOK)
}
