package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"fieldservice/internal/entities"
)

type DictionaryRepositoryInterface interface {
	FindAllStatuses(ctx context.Context) ([]entities.Status, error)
	FindAllRoles(ctx context.Context) ([]entities.Role, error)
}

type DictionaryRepository struct {
	storage *pgxpool.Pool
}

func NewDictionaryRepository(storage *pgxpool.Pool) DictionaryRepositoryInterface {
	return &DictionaryRepository{storage: storage}
}

func (r *DictionaryRepository) FindAllStatuses(ctx context.Context) ([]entities.Status, error) {
	rows, err := r.storage.Query(ctx, `SELECT status_id, status FROM status ORDER BY status_id`)
	if err != nil {
		return nil, storeError("не удалось получить справочник статусов", "статусы не найдены", err)
	}
	defer rows.Close()

	list := make([]entities.Status, 0, 5)
	for rows.Next() {
		var s entities.Status
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, storeError("не удалось прочитать статус", "статусы не найдены", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("не удалось прочитать статусы", "статусы не найдены", err)
	}
	return list, nil
}

func (r *DictionaryRepository) FindAllRoles(ctx context.Context) ([]entities.Role, error) {
	rows, err := r.storage.Query(ctx, `SELECT role_id, role FROM roles ORDER BY role_id`)
	if err != nil {
		return nil, storeError("не удалось получить справочник ролей", "роли не найдены", err)
	}
	defer rows.Close()

	list := make([]entities.Role, 0, 3)
	for rows.Next() {
		var role entities.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, storeError("не удалось прочитать роль", "роли не найдены", err)
		}
		list = append(list, role)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("не удалось прочитать роли", "роли не найдены", err)
	}
	return list, nil
}
