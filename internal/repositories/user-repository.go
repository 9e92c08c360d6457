package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fieldservice/internal/entities"
	"fieldservice/pkg/constants"
)

const (
	userTable    = "users"
	userFields   = "user_id, role_id, name, login, passw, phone, email, created_at"
	userNotFound = "пользователь не найден"
)

type UserRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, u *entities.User) (uint64, error)
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.User, error)
	FindByLogin(ctx context.Context, login string) (*entities.User, error)
	List(ctx context.Context, role *constants.Role, limit, offset uint64) ([]entities.User, uint64, error)
	UpdateInTx(ctx context.Context, tx pgx.Tx, id uint64, fields map[string]interface{}) error
	DeleteInTx(ctx context.Context, tx pgx.Tx, id uint64) error
}

type UserRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewUserRepository(storage *pgxpool.Pool, logger *zap.Logger) UserRepositoryInterface {
	return &UserRepository{storage: storage, logger: logger}
}

func scanUser(row rowScanner) (*entities.User, error) {
	var (
		u    entities.User
		role int
	)
	if err := row.Scan(&u.ID, &role, &u.Name, &u.Login, &u.Password, &u.Phone, &u.Email, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.RoleID = constants.Role(role)
	return &u, nil
}

func (r *UserRepository) CreateInTx(ctx context.Context, tx pgx.Tx, u *entities.User) (uint64, error) {
	query, args, err := psql.Insert(userTable).
		Columns("role_id", "name", "login", "passw", "phone", "email").
		Values(int(u.RoleID), u.Name, u.Login, u.Password, u.Phone, u.Email).
		Suffix("RETURNING user_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса CreateInTx: %w", err)
	}

	var id uint64
	if err := tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, storeError("не удалось создать пользователя", userNotFound, err)
	}
	return id, nil
}

func (r *UserRepository) findOne(ctx context.Context, q Querier, where sq.Eq) (*entities.User, error) {
	query, args, err := psql.Select(userFields).From(userTable).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса findOne: %w", err)
	}
	u, err := scanUser(q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, storeError("не удалось загрузить пользователя", userNotFound, err)
	}
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.User, error) {
	return r.findOne(ctx, getQuerier(r.storage, tx), sq.Eq{"user_id": id})
}

func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*entities.User, error) {
	return r.findOne(ctx, r.storage, sq.Eq{"login": login})
}

func (r *UserRepository) List(ctx context.Context, role *constants.Role, limit, offset uint64) ([]entities.User, uint64, error) {
	where := sq.And{}
	if role != nil {
		where = append(where, sq.Eq{"role_id": int(*role)})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From(userTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки COUNT запроса: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, storeError("не удалось посчитать пользователей", userNotFound, err)
	}

	builder := psql.Select(userFields).From(userTable).Where(where).OrderBy("user_id ASC")
	if limit > 0 {
		builder = builder.Limit(limit).Offset(offset)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса List: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, storeError("не удалось получить пользователей", userNotFound, err)
	}
	defer rows.Close()

	users := make([]entities.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, storeError("не удалось прочитать пользователя", userNotFound, err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeError("не удалось прочитать пользователей", userNotFound, err)
	}
	return users, total, nil
}

// UpdateInTx: ключи fields - имена колонок users.
func (r *UserRepository) UpdateInTx(ctx context.Context, tx pgx.Tx, id uint64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	query, args, err := psql.Update(userTable).SetMap(fields).Where(sq.Eq{"user_id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса UpdateInTx: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return storeError("не удалось обновить пользователя", userNotFound, err)
	}
	if tag.RowsAffected() == 0 {
		return storeError("", userNotFound, pgx.ErrNoRows)
	}
	return nil
}

func (r *UserRepository) DeleteInTx(ctx context.Context, tx pgx.Tx, id uint64) error {
	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, id)
	if err != nil {
		return storeError("не удалось удалить пользователя", userNotFound, err)
	}
	if tag.RowsAffected() == 0 {
		return storeError("", userNotFound, pgx.ErrNoRows)
	}
	return nil
}
