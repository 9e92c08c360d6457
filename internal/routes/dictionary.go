package routes

import (
	"github.com/labstack/echo/v4"

	"fieldservice/internal/controllers"
)

func runDictionaryRouter(secureGroup *echo.Group, dictionaryCtrl *controllers.DictionaryController) {
	secureGroup.GET("/dictionaries/statuses", dictionaryCtrl.Statuses)
	secureGroup.GET("/dictionaries/roles", dictionaryCtrl.Roles)
}
