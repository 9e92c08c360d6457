package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fieldservice/internal/entities"
)

const profileNotFound = "профиль инженера не найден"

type EngineerProfileRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, userID uint64, schedule string) error
	FindByUserID(ctx context.Context, tx pgx.Tx, userID uint64) (*entities.EngineerProfile, error)
	FindByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uint64) (*entities.EngineerProfile, error)
	UpdateBalanceInTx(ctx context.Context, tx pgx.Tx, userID uint64, balance decimal.Decimal) error
	UpdateScheduleInTx(ctx context.Context, tx pgx.Tx, userID uint64, schedule string) error
	DeleteByUserIDInTx(ctx context.Context, tx pgx.Tx, userID uint64) error
}

type EngineerProfileRepository struct {
	storage *pgxpool.Pool
}

func NewEngineerProfileRepository(storage *pgxpool.Pool) EngineerProfileRepositoryInterface {
	return &EngineerProfileRepository{storage: storage}
}

func (r *EngineerProfileRepository) CreateInTx(ctx context.Context, tx pgx.Tx, userID uint64, schedule string) error {
	query, args, err := psql.Insert("engineer_profile").
		Columns("user_id", "balance", "schedule").
		Values(userID, decimal.Zero, schedule).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса CreateInTx: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return storeError("не удалось создать профиль инженера", profileNotFound, err)
	}
	return nil
}

func (r *EngineerProfileRepository) find(ctx context.Context, q Querier, userID uint64, forUpdate bool) (*entities.EngineerProfile, error) {
	builder := psql.Select("engin_id", "user_id", "balance", "schedule").
		From("engineer_profile").
		Where(sq.Eq{"user_id": userID})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса find: %w", err)
	}

	var p entities.EngineerProfile
	if err := q.QueryRow(ctx, query, args...).Scan(&p.ID, &p.UserID, &p.Balance, &p.Schedule); err != nil {
		return nil, storeError("не удалось загрузить профиль инженера", profileNotFound, err)
	}
	return &p, nil
}

func (r *EngineerProfileRepository) FindByUserID(ctx context.Context, tx pgx.Tx, userID uint64) (*entities.EngineerProfile, error) {
	return r.find(ctx, getQuerier(r.storage, tx), userID, false)
}

func (r *EngineerProfileRepository) FindByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uint64) (*entities.EngineerProfile, error) {
	return r.find(ctx, tx, userID, true)
}

func (r *EngineerProfileRepository) update(ctx context.Context, tx pgx.Tx, userID uint64, column string, value interface{}) error {
	query, args, err := psql.Update("engineer_profile").Set(column, value).Where(sq.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса update: %w", err)
	}
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return storeError("не удалось обновить профиль инженера", profileNotFound, err)
	}
	if tag.RowsAffected() == 0 {
		return storeError("", profileNotFound, pgx.ErrNoRows)
	}
	return nil
}

func (r *EngineerProfileRepository) UpdateBalanceInTx(ctx context.Context, tx pgx.Tx, userID uint64, balance decimal.Decimal) error {
	return r.update(ctx, tx, userID, "balance", balance)
}

func (r *EngineerProfileRepository) UpdateScheduleInTx(ctx context.Context, tx pgx.Tx, userID uint64, schedule string) error {
	return r.update(ctx, tx, userID, "schedule", schedule)
}

func (r *EngineerProfileRepository) DeleteByUserIDInTx(ctx context.Context, tx pgx.Tx, userID uint64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM engineer_profile WHERE user_id = $1`, userID); err != nil {
		return storeError("не удалось удалить профиль инженера", profileNotFound, err)
	}
	return nil
}
