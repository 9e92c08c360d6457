package routes

import (
	"github.com/labstack/echo/v4"

	"fieldservice/internal/controllers"
)

func runRequestRouter(
	secureGroup *echo.Group,
	requestCtrl *controllers.RequestController,
	historyCtrl *controllers.RequestHistoryController,
	reportCtrl *controllers.ReportController,
) {
	secureGroup.POST("/requests", requestCtrl.Create)
	secureGroup.GET("/requests/engineer", requestCtrl.ListByEngineer)
	secureGroup.GET("/requests/completed/:page", requestCtrl.ListCompleted)
	secureGroup.GET("/requests/filter", requestCtrl.Filter)
	secureGroup.PUT("/requests/delete/:id", requestCtrl.SoftDelete)
	secureGroup.GET("/requests/history/:id", historyCtrl.GetHistory)
	secureGroup.POST("/requests/engineers/stats", reportCtrl.EngineerStats)
	secureGroup.GET("/requests/stats/funnel", reportCtrl.MonthlyFunnel)
	secureGroup.GET("/requests/:id", requestCtrl.FindByID)
	secureGroup.PUT("/requests/:id", requestCtrl.Update)
}
