package routes

import (
	"github.com/labstack/echo/v4"

	"fieldservice/internal/controllers"
)

func runAuthRouter(api *echo.Group, secureGroup *echo.Group, authCtrl *controllers.AuthController) {
	api.POST("/users/login", authCtrl.Login)
	api.POST("/users/refresh", authCtrl.Refresh)
	secureGroup.POST("/users/logout", authCtrl.Logout)
}
