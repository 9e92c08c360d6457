package controllers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"fieldservice/pkg/middleware"
	"fieldservice/pkg/utils"
	appwebsocket "fieldservice/pkg/websocket"
)

type WebSocketController struct {
	hub      *appwebsocket.Hub
	identity middleware.IdentityResolver
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketController: пустой allowedOrigins - проверка Origin по умолчанию (тот же хост).
func NewWebSocketController(hub *appwebsocket.Hub, identity middleware.IdentityResolver, allowedOrigins []string, logger *zap.Logger) *WebSocketController {
	upgrader := websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]bool, len(allowedOrigins))
		for _, o := range allowedOrigins {
			allowed[o] = true
		}
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return allowed[r.Header.Get(echo.HeaderOrigin)]
		}
	}
	return &WebSocketController{hub: hub, identity: identity, upgrader: upgrader, logger: logger}
}

// ServeWs: GET /ws?token=<access>. Браузер не умеет передать заголовок при рукопожатии.
func (c *WebSocketController) ServeWs(ctx echo.Context) error {
	token := ctx.QueryParam("token")
	if token == "" {
		return utils.ErrorResponse(ctx, utils.BadRequest("Не передан токен", nil), c.logger)
	}
	actor, _, err := c.identity.Resolve(ctx.Request().Context(), token)
	if err != nil {
		c.logger.Warn("WebSocket: токен не принят", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	conn, err := c.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// Upgrade сам ответил клиенту
		c.logger.Warn("WebSocket: не удалось установить соединение", zap.Error(err))
		return nil
	}

	appwebsocket.NewClient(c.hub, conn, actor.UserID).Serve()
	c.logger.Info("WebSocket: клиент подключен", zap.Uint64("userID", actor.UserID), zap.String("role", actor.Role.String()))
	return nil
}
