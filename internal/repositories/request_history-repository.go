package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldservice/internal/entities"
)

type RequestHistoryRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, history *entities.RequestHistory) error
	FindByRequestID(ctx context.Context, requestID uint64) ([]entities.RequestHistoryItem, error)
	NullifyChangerInTx(ctx context.Context, tx pgx.Tx, userID uint64) error
}

type RequestHistoryRepository struct {
	storage *pgxpool.Pool
}

func NewRequestHistoryRepository(storage *pgxpool.Pool) RequestHistoryRepositoryInterface {
	return &RequestHistoryRepository{storage: storage}
}

func (r *RequestHistoryRepository) CreateInTx(ctx context.Context, tx pgx.Tx, h *entities.RequestHistory) error {
	query, args, err := psql.Insert("request_history").
		Columns("request_id", "changer_id", "field_name", "old_value", "new_value", "changed_at").
		Values(h.RequestID, h.ChangerID, h.FieldName, h.OldValue, h.NewValue, sq.Expr("NOW()")).
		Suffix("RETURNING rh_id, changed_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса CreateInTx: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&h.ID, &h.ChangedAt); err != nil {
		return storeError("не удалось записать историю заявки", "заявка не найдена", err)
	}
	return nil
}

// FindByRequestID - история в хронологическом порядке с именем автора.
func (r *RequestHistoryRepository) FindByRequestID(ctx context.Context, requestID uint64) ([]entities.RequestHistoryItem, error) {
	query := `
		SELECT
			h.rh_id, h.request_id, h.changer_id, h.field_name, h.old_value, h.new_value, h.changed_at,
			u.name AS changer_name
		FROM request_history h
		LEFT JOIN users u ON u.user_id = h.changer_id
		WHERE h.request_id = $1
		ORDER BY h.changed_at ASC, h.rh_id ASC`

	rows, err := r.storage.Query(ctx, query, requestID)
	if err != nil {
		return nil, storeError("не удалось получить историю заявки", "история не найдена", err)
	}
	defer rows.Close()

	history := make([]entities.RequestHistoryItem, 0)
	for rows.Next() {
		var h entities.RequestHistoryItem
		if err := rows.Scan(
			&h.ID, &h.RequestID, &h.ChangerID, &h.FieldName, &h.OldValue, &h.NewValue, &h.ChangedAt,
			&h.ChangerName,
		); err != nil {
			return nil, storeError("не удалось прочитать историю заявки", "история не найдена", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("не удалось прочитать историю заявки", "история не найдена", err)
	}
	return history, nil
}

func (r *RequestHistoryRepository) NullifyChangerInTx(ctx context.Context, tx pgx.Tx, userID uint64) error {
	if _, err := tx.Exec(ctx, `UPDATE request_history SET changer_id = NULL WHERE changer_id = $1`, userID); err != nil {
		return storeError("не удалось отвязать автора изменений", "история не найдена", err)
	}
	return nil
}
