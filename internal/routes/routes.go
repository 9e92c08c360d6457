package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"fieldservice/internal/controllers"
	"fieldservice/internal/listeners"
	"fieldservice/internal/repositories"
	"fieldservice/internal/services"
	"fieldservice/pkg/config"
	"fieldservice/pkg/eventbus"
	"fieldservice/pkg/middleware"
	"fieldservice/pkg/service"
	"fieldservice/pkg/websocket"
)

type Loggers struct {
	Main    *zap.Logger
	Auth    *zap.Logger
	Request *zap.Logger
	User    *zap.Logger
	Balance *zap.Logger
	Report  *zap.Logger
}

// Controllers - всё, что вешается на маршруты.
type Controllers struct {
	Auth           *controllers.AuthController
	User           *controllers.UserController
	Request        *controllers.RequestController
	RequestHistory *controllers.RequestHistoryController
	Balance        *controllers.BalanceController
	Report         *controllers.ReportController
	Dictionary     *controllers.DictionaryController
	WebSocket      *controllers.WebSocketController
}

func InitRouter(e *echo.Echo, dbConn *pgxpool.Pool, redisClient *redis.Client, jwtSvc service.JWTService, bus *eventbus.Bus, hub *websocket.Hub, loggers *Loggers, cfg *config.Config) {
	loggers.Main.Info("InitRouter: Начало создания маршрутов")

	// --- 0. ОБЩИЕ КОМПОНЕНТЫ ---
	txManager := repositories.NewTxManager(dbConn)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)

	// --- 1. РЕПОЗИТОРИИ ---
	userRepo := repositories.NewUserRepository(dbConn, loggers.User)
	profileRepo := repositories.NewEngineerProfileRepository(dbConn)
	requestRepo := repositories.NewRequestRepository(dbConn, loggers.Request)
	historyRepo := repositories.NewRequestHistoryRepository(dbConn)
	balanceHistoryRepo := repositories.NewBalanceHistoryRepository(dbConn)
	dictionaryRepo := repositories.NewDictionaryRepository(dbConn)
	reportRepo := repositories.NewReportRepository(dbConn)

	// --- 2. СЕРВИСЫ ---
	dictionaryService := services.NewDictionaryService(dictionaryRepo, cacheRepo, cfg.Cache.StatusTTL, loggers.Main)
	authService := services.NewAuthService(userRepo, profileRepo, cacheRepo, jwtSvc, cfg.Auth, loggers.Auth)
	userService := services.NewUserService(txManager, userRepo, profileRepo, requestRepo, historyRepo, balanceHistoryRepo, loggers.User)
	requestService := services.NewRequestService(txManager, requestRepo, historyRepo, userRepo, dictionaryService, bus, loggers.Request)
	historyService := services.NewRequestHistoryService(requestRepo, historyRepo, loggers.Request)
	balanceService := services.NewBalanceService(txManager, profileRepo, balanceHistoryRepo, bus, loggers.Balance)
	reportService := services.NewReportService(reportRepo, cacheRepo, cfg.Cache.StatsTTL, loggers.Report)

	// --- 3. СЛУШАТЕЛИ СОБЫТИЙ ---
	listeners.NewStatsCacheListener(cacheRepo, loggers.Report).Register(bus)
	listeners.NewNotificationListener(hub, loggers.Request).Register(bus)

	// --- 4. КОНТРОЛЛЕРЫ ---
	ctrls := &Controllers{
		Auth:           controllers.NewAuthController(authService, loggers.Auth),
		User:           controllers.NewUserController(userService, loggers.User),
		Request:        controllers.NewRequestController(requestService, loggers.Request),
		RequestHistory: controllers.NewRequestHistoryController(historyService, loggers.Request),
		Balance:        controllers.NewBalanceController(balanceService, loggers.Balance),
		Report:         controllers.NewReportController(reportService, loggers.Report),
		Dictionary:     controllers.NewDictionaryController(dictionaryService, loggers.Main),
		WebSocket:      controllers.NewWebSocketController(hub, authService, cfg.Server.AllowedOrigins, loggers.Main),
	}
	authMW := middleware.NewAuthMiddleware(authService, loggers.Auth)

	RegisterRoutes(e, ctrls, authMW)
	loggers.Main.Info("InitRouter: Создание маршрутов завершено")
}

// RegisterRoutes вешает маршруты /api на готовые контроллеры.
func RegisterRoutes(e *echo.Echo, ctrls *Controllers, authMW *middleware.AuthMiddleware) {
	api := e.Group("/api")
	secureGroup := api.Group("", authMW.Auth)

	runAuthRouter(api, secureGroup, ctrls.Auth)
	runUserRouter(secureGroup, ctrls.User, authMW)
	runRequestRouter(secureGroup, ctrls.Request, ctrls.RequestHistory, ctrls.Report)
	runBalanceRouter(secureGroup, ctrls.Balance)
	runReportRouter(secureGroup, ctrls.Report, authMW)
	runDictionaryRouter(secureGroup, ctrls.Dictionary)

	// токен передаётся в query, заголовок при рукопожатии браузер не шлёт
	api.GET("/ws", ctrls.WebSocket.ServeWs)
}
