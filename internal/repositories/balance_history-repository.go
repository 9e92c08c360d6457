package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldservice/internal/entities"
)

type BalanceHistoryRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, h *entities.BalanceHistory) error
	FindByEngineerID(ctx context.Context, engineerID uint64) ([]entities.BalanceHistory, error)
	DeleteByEngineerIDInTx(ctx context.Context, tx pgx.Tx, engineerID uint64) error
	NullifyAdminInTx(ctx context.Context, tx pgx.Tx, adminID uint64) error
}

type BalanceHistoryRepository struct {
	storage *pgxpool.Pool
}

func NewBalanceHistoryRepository(storage *pgxpool.Pool) BalanceHistoryRepositoryInterface {
	return &BalanceHistoryRepository{storage: storage}
}

func (r *BalanceHistoryRepository) CreateInTx(ctx context.Context, tx pgx.Tx, h *entities.BalanceHistory) error {
	query, args, err := psql.Insert("balance_history").
		Columns("admin_id", "engineer_id", "old_sum", "new_sum", "changed_at").
		Values(h.AdminID, h.EngineerID, h.OldSum, h.NewSum, sq.Expr("NOW()")).
		Suffix("RETURNING bh_id, changed_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса CreateInTx: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&h.ID, &h.ChangedAt); err != nil {
		return storeError("не удалось записать историю баланса", "инженер не найден", err)
	}
	return nil
}

// FindByEngineerID - новые записи первыми.
func (r *BalanceHistoryRepository) FindByEngineerID(ctx context.Context, engineerID uint64) ([]entities.BalanceHistory, error) {
	query, args, err := psql.Select("bh.bh_id", "bh.admin_id", "bh.engineer_id", "bh.old_sum", "bh.new_sum", "bh.changed_at", "u.name").
		From("balance_history bh").
		LeftJoin("users u ON u.user_id = bh.admin_id").
		Where(sq.Eq{"bh.engineer_id": engineerID}).
		OrderBy("bh.changed_at DESC", "bh.bh_id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса FindByEngineerID: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError("не удалось получить историю баланса", "история не найдена", err)
	}
	defer rows.Close()

	list := make([]entities.BalanceHistory, 0)
	for rows.Next() {
		var h entities.BalanceHistory
		if err := rows.Scan(&h.ID, &h.AdminID, &h.EngineerID, &h.OldSum, &h.NewSum, &h.ChangedAt, &h.AdminName); err != nil {
			return nil, storeError("не удалось прочитать историю баланса", "история не найдена", err)
		}
		list = append(list, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("не удалось прочитать историю баланса", "история не найдена", err)
	}
	return list, nil
}

func (r *BalanceHistoryRepository) DeleteByEngineerIDInTx(ctx context.Context, tx pgx.Tx, engineerID uint64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM balance_history WHERE engineer_id = $1`, engineerID); err != nil {
		return storeError("не удалось удалить историю баланса", "история не найдена", err)
	}
	return nil
}

func (r *BalanceHistoryRepository) NullifyAdminInTx(ctx context.Context, tx pgx.Tx, adminID uint64) error {
	if _, err := tx.Exec(ctx, `UPDATE balance_history SET admin_id = NULL WHERE admin_id = $1`, adminID); err != nil {
		return storeError("не удалось отвязать менеджера от истории баланса", "история не найдена", err)
	}
	return nil
}
