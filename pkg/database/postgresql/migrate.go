package postgresql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"fieldservice/migrations"
)

type gooseLogger struct {
	logger *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) { l.logger.Infof(format, v...) }
func (l gooseLogger) Fatalf(format string, v ...interface{}) { l.logger.Fatalf(format, v...) }

// Migrate применяет встроенные SQL-миграции.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{logger: logger.Named("goose").Sugar()})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}
	return nil
}
