package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"fieldservice/pkg/constants"
	apperrors "fieldservice/pkg/errors"
	"fieldservice/pkg/service"
	"fieldservice/pkg/types"
	"fieldservice/pkg/utils"
)

// IdentityResolver превращает bearer-токен в пользователя с ролью.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (types.Actor, *service.JwtCustomClaim, error)
}

type AuthMiddleware struct {
	identity IdentityResolver
	logger   *zap.Logger
}

func NewAuthMiddleware(identity IdentityResolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		identity: identity,
		logger:   logger,
	}
}

func BearerToken(header string) (string, error) {
	if header == "" {
		return "", apperrors.ErrEmptyAuthHeader
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", apperrors.ErrInvalidAuthHeader
	}
	return parts[1], nil
}

// Auth кладёт в контекст запроса Actor и данные access-токена.
func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString, err := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			m.logger.Debug("AuthMiddleware: заголовок Authorization отсутствует или неверен", zap.Error(err))
			return utils.ErrorResponse(c, err, m.logger)
		}

		ctx := c.Request().Context()
		actor, claims, err := m.identity.Resolve(ctx, tokenString)
		if err != nil {
			m.logger.Warn("AuthMiddleware: токен не принят", zap.Error(err))
			return utils.ErrorResponse(c, err, m.logger)
		}

		ctx = utils.ContextWithActor(ctx, actor)
		ctx = utils.ContextWithToken(ctx, claims.ID, claims.ExpiresAt.Time)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}

// RequireRoles пропускает только пользователей с одной из ролей.
func (m *AuthMiddleware) RequireRoles(roles ...constants.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := utils.GetActorFromCtx(c.Request().Context())
			if err != nil {
				return utils.ErrorResponse(c, err, m.logger)
			}
			if !actor.Is(roles...) {
				m.logger.Warn("Доступ запрещён по роли",
					zap.Uint64("userID", actor.UserID),
					zap.String("role", actor.Role.String()),
					zap.String("path", c.Path()),
				)
				return utils.ErrorResponse(c, apperrors.NewForbidden("недостаточно прав для выполнения операции"), m.logger)
			}
			return next(c)
		}
	}
}
