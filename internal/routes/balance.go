package routes

import (
	"github.com/labstack/echo/v4"

	"fieldservice/internal/controllers"
)

func runBalanceRouter(secureGroup *echo.Group, balanceCtrl *controllers.BalanceController) {
	secureGroup.GET("/balance/history/:engineer_id", balanceCtrl.GetHistory)
	secureGroup.GET("/balance/:engineer_id", balanceCtrl.GetBalance)
	secureGroup.PUT("/balance/:engineer_id", balanceCtrl.UpdateBalance)
}
