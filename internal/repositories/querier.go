package repositories

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "fieldservice/pkg/errors"
)

// Querier - общий интерфейс pgxpool.Pool и pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func getQuerier(pool *pgxpool.Pool, tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return pool
}

// storeError переводит ошибки pgx в ошибки приложения.
func storeError(op string, notFound string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(notFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperrors.NewConflict("запись с такими данными уже существует", err)
		case "23503":
			return apperrors.New(apperrors.KindValidation, "ссылка на несуществующую запись", err)
		}
	}
	return apperrors.NewStore(op, err)
}
