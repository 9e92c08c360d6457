package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"fieldservice/internal/routes"
	"fieldservice/pkg/config"
	"fieldservice/pkg/customvalidator"
	"fieldservice/pkg/database/postgresql"
	apperrors "fieldservice/pkg/errors"
	"fieldservice/pkg/eventbus"
	applogger "fieldservice/pkg/logger"
	"fieldservice/pkg/middleware"
	"fieldservice/pkg/service"
	"fieldservice/pkg/utils"
	"fieldservice/pkg/websocket"
)

func main() {
	// 1. Конфиг и логгер
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}
	logger, err := applogger.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Echo и middleware
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.AccessLog(logger.Named("http")))
	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("!!! ОБНАРУЖЕНА ПАНИКА (PANIC) !!!",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err, nil)
				_ = utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentDisposition, echo.HeaderXRequestID},
	}))

	// 3. Валидатор
	v := validator.New()
	if err := customvalidator.RegisterCustomValidations(v); err != nil {
		logger.Fatal("Ошибка регистрации кастомных правил валидации", zap.Error(err))
	}
	e.Validator = utils.NewValidator(v)

	// 4. PostgreSQL и Redis
	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("не удалось подключиться к PostgreSQL", zap.Error(err))
	}
	defer dbConn.Close()

	if cfg.Postgres.Migrate {
		if err := postgresql.Migrate(ctx, dbConn, logger); err != nil {
			logger.Fatal("не удалось применить миграции", zap.Error(err))
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logger.Fatal("не удалось подключиться к Redis", zap.Error(err), zap.String("address", cfg.Redis.Address))
	}

	// 5. Сервисы и маршруты
	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL, logger.Named("jwt"))
	bus := eventbus.New(logger.Named("events"))
	hub := websocket.NewHub(logger.Named("ws"))
	go hub.Run(ctx)

	loggers := &routes.Loggers{
		Main:    logger,
		Auth:    logger.Named("auth"),
		Request: logger.Named("requests"),
		User:    logger.Named("users"),
		Balance: logger.Named("balance"),
		Report:  logger.Named("reports"),
	}
	routes.InitRouter(e, dbConn, redisClient, jwtSvc, bus, hub, loggers, cfg)

	// 6. Запуск и корректная остановка
	go func() {
		logger.Info("Сервер запущен", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Ошибка запуска сервера", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Получен сигнал остановки, завершаем работу")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка при остановке сервера", zap.Error(err))
	}
	bus.Wait()
	logger.Info("Сервер остановлен")
}
