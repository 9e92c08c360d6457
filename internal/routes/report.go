package routes

import (
	"github.com/labstack/echo/v4"

	"fieldservice/internal/controllers"
	"fieldservice/pkg/constants"
	"fieldservice/pkg/middleware"
)

func runReportRouter(secureGroup *echo.Group, reportCtrl *controllers.ReportController, authMW *middleware.AuthMiddleware) {
	secureGroup.GET("/reports/engineers.xlsx", reportCtrl.ExportEngineerStats, authMW.RequireRoles(constants.RoleManager))
}
