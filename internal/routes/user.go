package routes

import (
	"github.com/labstack/echo/v4"

	"fieldservice/internal/controllers"
	"fieldservice/pkg/constants"
	"fieldservice/pkg/middleware"
)

func runUserRouter(secureGroup *echo.Group, userCtrl *controllers.UserController, authMW *middleware.AuthMiddleware) {
	onlyManager := authMW.RequireRoles(constants.RoleManager)

	secureGroup.GET("/users/profile", userCtrl.Profile)
	secureGroup.POST("/users/register", userCtrl.Create, onlyManager)
	secureGroup.GET("/users", userCtrl.List, onlyManager)
	secureGroup.PATCH("/users/:id", userCtrl.Update, onlyManager)
	secureGroup.PATCH("/users/:id/schedule", userCtrl.UpdateSchedule, onlyManager)
	secureGroup.DELETE("/users/:id", userCtrl.Delete, onlyManager)
}
