package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldservice/internal/entities"
	"fieldservice/pkg/constants"
)

type ReportRepositoryInterface interface {
	CountCompleted(ctx context.Context, period entities.StatsPeriod, engineerID *uint64) ([]entities.EngineerStat, error)
	CountByStatus(ctx context.Context, period entities.StatsPeriod) ([]entities.StatusCount, error)
}

type ReportRepository struct {
	storage *pgxpool.Pool
}

func NewReportRepository(storage *pgxpool.Pool) ReportRepositoryInterface {
	return &ReportRepository{storage: storage}
}

// CountCompleted: выполненные заявки по инженерам за [From, To). Инженеры без заявок тоже попадают (0).
func (r *ReportRepository) CountCompleted(ctx context.Context, period entities.StatsPeriod, engineerID *uint64) ([]entities.EngineerStat, error) {
	builder := psql.Select("u.user_id", "u.name", "COUNT(r.request_id) AS completed").
		From("users u").
		LeftJoin("request r ON r.engineer_id = u.user_id AND r.status_id = ? AND r.done_time >= ? AND r.done_time < ?",
			constants.StatusDone, period.From, period.To).
		Where(sq.Eq{"u.role_id": int(constants.RoleEngineer)}).
		GroupBy("u.user_id", "u.name").
		OrderBy("completed DESC", "u.name ASC")
	if engineerID != nil {
		builder = builder.Where(sq.Eq{"u.user_id": *engineerID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса CountCompleted: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError("не удалось посчитать выполненные заявки", "данные не найдены", err)
	}
	defer rows.Close()

	stats := make([]entities.EngineerStat, 0)
	for rows.Next() {
		var s entities.EngineerStat
		if err := rows.Scan(&s.EngineerID, &s.EngineerName, &s.Completed); err != nil {
			return nil, storeError("не удалось прочитать статистику", "данные не найдены", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("не удалось прочитать статистику", "данные не найдены", err)
	}
	return stats, nil
}

// CountByStatus - воронка: сколько заявок, созданных в периоде, сейчас в каждом статусе.
func (r *ReportRepository) CountByStatus(ctx context.Context, period entities.StatsPeriod) ([]entities.StatusCount, error) {
	query, args, err := psql.Select("s.status_id", "s.status", "COUNT(r.request_id)").
		From("status s").
		LeftJoin("request r ON r.status_id = s.status_id AND r.creation_date >= ? AND r.creation_date < ?", period.From, period.To).
		GroupBy("s.status_id", "s.status").
		OrderBy("s.status_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса CountByStatus: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError("не удалось посчитать заявки по статусам", "данные не найдены", err)
	}
	defer rows.Close()

	counts := make([]entities.StatusCount, 0, 5)
	for rows.Next() {
		var c entities.StatusCount
		if err := rows.Scan(&c.StatusID, &c.StatusName, &c.Count); err != nil {
			return nil, storeError("не удалось прочитать статистику", "данные не найдены", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("не удалось прочитать статистику", "данные не найдены", err)
	}
	return counts, nil
}
