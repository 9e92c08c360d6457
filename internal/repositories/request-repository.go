package repositories

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fieldservice/internal/entities"
	"fieldservice/pkg/constants"
)

const (
	requestTable  = "request"
	requestFields = "request_id, operator_id, engineer_id, status_id, phone, address, techniq, description, customer_name, creation_date, assigned_time, in_works_time, done_time"
)

const requestNotFound = "заявка не найдена"

type RequestRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, req *entities.Request) (*entities.Request, error)
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Request, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Request, error)
	UpdateFields(ctx context.Context, tx pgx.Tx, id uint64, changes entities.RequestChanges) (*entities.Request, error)

	ListByEngineer(ctx context.Context, engineerID uint64, statuses []int64, from, to *time.Time) ([]entities.Request, error)
	ListCompleted(ctx context.Context, engineerID uint64, limit, offset uint64) ([]entities.Request, uint64, error)
	Filter(ctx context.Context, filter entities.RequestFilter) ([]entities.Request, uint64, error)

	NullifyUserRefsInTx(ctx context.Context, tx pgx.Tx, userID uint64) error
}

type RequestRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewRequestRepository(storage *pgxpool.Pool, logger *zap.Logger) RequestRepositoryInterface {
	return &RequestRepository{storage: storage, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*entities.Request, error) {
	var r entities.Request
	err := row.Scan(
		&r.ID, &r.OperatorID, &r.EngineerID, &r.StatusID, &r.Phone, &r.Address, &r.Techniq,
		&r.Description, &r.CustomerName, &r.CreationDate, &r.AssignedTime, &r.InWorksTime, &r.DoneTime,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectRequests(rows pgx.Rows) ([]entities.Request, error) {
	defer rows.Close()
	list := make([]entities.Request, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *r)
	}
	return list, rows.Err()
}

// Create: creation_date и (если есть инженер) assigned_time берутся из одного NOW().
func (r *RequestRepository) Create(ctx context.Context, tx pgx.Tx, req *entities.Request) (*entities.Request, error) {
	var assigned interface{}
	if req.EngineerID.Valid {
		assigned = sq.Expr("NOW()")
	}

	query, args, err := psql.Insert(requestTable).
		Columns("operator_id", "engineer_id", "status_id", "phone", "address", "techniq", "description", "customer_name", "creation_date", "assigned_time").
		Values(req.OperatorID, req.EngineerID, req.StatusID, req.Phone, req.Address, req.Techniq, req.Description, req.CustomerName, sq.Expr("NOW()"), assigned).
		Suffix("RETURNING " + requestFields).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса Create: %w", err)
	}

	created, err := scanRequest(getQuerier(r.storage, tx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, storeError("не удалось создать заявку", requestNotFound, err)
	}
	return created, nil
}

func (r *RequestRepository) findOne(ctx context.Context, q Querier, id uint64, forUpdate bool) (*entities.Request, error) {
	builder := psql.Select(requestFields).From(requestTable).Where(sq.Eq{"request_id": id})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса findOne: %w", err)
	}

	req, err := scanRequest(q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, storeError("не удалось загрузить заявку", requestNotFound, err)
	}
	return req, nil
}

func (r *RequestRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Request, error) {
	return r.findOne(ctx, getQuerier(r.storage, tx), id, false)
}

// FindByIDForUpdate блокирует строку до конца транзакции.
func (r *RequestRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Request, error) {
	return r.findOne(ctx, tx, id, true)
}

func (r *RequestRepository) UpdateFields(ctx context.Context, tx pgx.Tx, id uint64, changes entities.RequestChanges) (*entities.Request, error) {
	setMap := make(map[string]interface{}, len(changes))
	for field, value := range changes {
		if !field.Valid() {
			return nil, fmt.Errorf("поле %q нельзя обновлять", field)
		}
		setMap[string(field)] = value
	}

	query, args, err := psql.Update(requestTable).
		SetMap(setMap).
		Where(sq.Eq{"request_id": id}).
		Suffix("RETURNING " + requestFields).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса UpdateFields: %w", err)
	}

	updated, err := scanRequest(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, storeError("не удалось обновить заявку", requestNotFound, err)
	}
	return updated, nil
}

// ListByEngineer: без статусов возвращаются все, кроме удалённых.
func (r *RequestRepository) ListByEngineer(ctx context.Context, engineerID uint64, statuses []int64, from, to *time.Time) ([]entities.Request, error) {
	builder := psql.Select(requestFields).From(requestTable).Where(sq.Eq{"engineer_id": engineerID})
	if len(statuses) > 0 {
		builder = builder.Where(sq.Eq{"status_id": statuses})
	} else {
		builder = builder.Where(sq.NotEq{"status_id": constants.StatusDeleted})
	}
	if from != nil {
		builder = builder.Where(sq.GtOrEq{"creation_date": *from})
	}
	if to != nil {
		builder = builder.Where(sq.Lt{"creation_date": *to})
	}

	query, args, err := builder.OrderBy("creation_date ASC", "request_id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса ListByEngineer: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError("не удалось получить заявки инженера", requestNotFound, err)
	}
	list, err := collectRequests(rows)
	if err != nil {
		return nil, storeError("не удалось прочитать заявки инженера", requestNotFound, err)
	}
	return list, nil
}

func (r *RequestRepository) ListCompleted(ctx context.Context, engineerID uint64, limit, offset uint64) ([]entities.Request, uint64, error) {
	where := sq.Eq{"engineer_id": engineerID, "status_id": constants.StatusDone}
	return r.paged(ctx, where, "done_time DESC NULLS LAST", limit, offset)
}

func (r *RequestRepository) Filter(ctx context.Context, f entities.RequestFilter) ([]entities.Request, uint64, error) {
	where := sq.And{}
	if f.EngineerID.Valid {
		where = append(where, sq.Eq{"engineer_id": f.EngineerID.Int64})
	}
	if len(f.StatusIDs) > 0 {
		where = append(where, sq.Eq{"status_id": f.StatusIDs})
	}
	if f.DateFrom.Valid {
		where = append(where, sq.GtOrEq{"creation_date": f.DateFrom.Time})
	}
	if f.DateTo.Valid {
		where = append(where, sq.Lt{"creation_date": f.DateTo.Time})
	}
	return r.paged(ctx, where, "creation_date DESC", f.Limit, f.Offset)
}

func (r *RequestRepository) paged(ctx context.Context, where sq.Sqlizer, orderBy string, limit, offset uint64) ([]entities.Request, uint64, error) {
	countQuery, countArgs, err := psql.Select("COUNT(*)").From(requestTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки COUNT запроса: %w", err)
	}

	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, storeError("не удалось посчитать заявки", requestNotFound, err)
	}
	if total == 0 {
		return []entities.Request{}, 0, nil
	}

	builder := psql.Select(requestFields).From(requestTable).Where(where).OrderBy(orderBy, "request_id DESC")
	if limit > 0 {
		builder = builder.Limit(limit).Offset(offset)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса списка заявок: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, storeError("не удалось получить заявки", requestNotFound, err)
	}
	list, err := collectRequests(rows)
	if err != nil {
		return nil, 0, storeError("не удалось прочитать заявки", requestNotFound, err)
	}
	return list, total, nil
}

// NullifyUserRefsInTx отвязывает пользователя от заявок перед удалением.
func (r *RequestRepository) NullifyUserRefsInTx(ctx context.Context, tx pgx.Tx, userID uint64) error {
	if _, err := tx.Exec(ctx, `UPDATE request SET engineer_id = NULL WHERE engineer_id = $1`, userID); err != nil {
		return storeError("не удалось отвязать инженера от заявок", requestNotFound, err)
	}
	if _, err := tx.Exec(ctx, `UPDATE request SET operator_id = NULL WHERE operator_id = $1`, userID); err != nil {
		return storeError("не удалось отвязать оператора от заявок", requestNotFound, err)
	}
	return nil
}
