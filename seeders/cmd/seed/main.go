package main

import (
	"context"
	"log"

	flag "github.com/spf13/pflag"

	"fieldservice/pkg/config"
	"fieldservice/pkg/database/postgresql"
	applogger "fieldservice/pkg/logger"
	"fieldservice/seeders"
)

func main() {
	log.Println("======================================================")
	log.Println("       🌱 СИСТЕМА СИДЕРОВ (Наполнение БД)           ")
	log.Println("======================================================")

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}

	login := flag.String("login", cfg.Seeder.ManagerLogin, "Логин первого менеджера")
	password := flag.String("password", cfg.Seeder.ManagerPassword, "Пароль первого менеджера")
	name := flag.String("name", cfg.Seeder.ManagerName, "Имя первого менеджера")
	demo := flag.Bool("demo", false, "Создать тестовых оператора и инженеров")
	migrate := flag.Bool("migrate", true, "Применить миграции перед наполнением")
	flag.Parse()

	logger, err := applogger.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}

	ctx := context.Background()
	dbPool, err := postgresql.ConnectDB(ctx, cfg.Postgres, logger)
	if err != nil {
		log.Fatalf("❌ Не удалось подключиться к БД: %v", err)
	}
	defer dbPool.Close()

	if *migrate {
		if err := postgresql.Migrate(ctx, dbPool, logger); err != nil {
			log.Fatalf("❌ Ошибка миграций: %v", err)
		}
	}

	log.Println("  - Создание менеджера...")
	if err := seeders.SeedManager(ctx, dbPool, *login, *password, *name); err != nil {
		log.Fatalf("❌ %v", err)
	}

	if *demo {
		log.Println("  - Создание тестовых пользователей...")
		if err := seeders.SeedDemoUsers(ctx, dbPool); err != nil {
			log.Fatalf("❌ %v", err)
		}
	}

	log.Println("✅ Все указанные операции сидирования успешно завершены.")
	log.Println("======================================================")
}
