package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"fieldservice/internal/authz"
	"fieldservice/internal/dto"
	"fieldservice/internal/entities"
	"fieldservice/internal/events"
	"fieldservice/internal/repositories"
	"fieldservice/pkg/constants"
	"fieldservice/pkg/customvalidator"
	apperrors "fieldservice/pkg/errors"
	"fieldservice/pkg/eventbus"
	"fieldservice/pkg/types"
	"fieldservice/pkg/utils"
)

type RequestServiceInterface interface {
	Create(ctx context.Context, actor types.Actor, payload dto.CreateRequestDTO) (*entities.Request, error)
	Update(ctx context.Context, actor types.Actor, id uint64, changes entities.RequestChanges) (*entities.Request, error)
	SoftDelete(ctx context.Context, actor types.Actor, id uint64) (*entities.Request, error)
	FindByID(ctx context.Context, actor types.Actor, id uint64) (*entities.Request, error)

	ListByEngineer(ctx context.Context, actor types.Actor, engineerID *uint64, statuses []int64, day *time.Time) ([]entities.Request, error)
	ListCompleted(ctx context.Context, actor types.Actor, engineerID *uint64, page uint64) ([]entities.Request, uint64, error)
	Filter(ctx context.Context, actor types.Actor, filter entities.RequestFilter) ([]entities.Request, uint64, error)
}

type RequestService struct {
	txManager   repositories.TxManagerInterface
	requestRepo repositories.RequestRepositoryInterface
	historyRepo repositories.RequestHistoryRepositoryInterface
	userRepo    repositories.UserRepositoryInterface
	dictionary  DictionaryServiceInterface
	bus         eventbus.Publisher
	logger      *zap.Logger
	now         func() time.Time
}

func NewRequestService(
	txManager repositories.TxManagerInterface,
	requestRepo repositories.RequestRepositoryInterface,
	historyRepo repositories.RequestHistoryRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	dictionary DictionaryServiceInterface,
	bus eventbus.Publisher,
	logger *zap.Logger,
) RequestServiceInterface {
	return &RequestService{
		txManager:   txManager,
		requestRepo: requestRepo,
		historyRepo: historyRepo,
		userRepo:    userRepo,
		dictionary:  dictionary,
		bus:         bus,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *RequestService) actorLogger(actor types.Actor, requestID uint64) *zap.Logger {
	return s.logger.With(
		zap.Uint64("requestID", requestID),
		zap.Uint64("actorID", actor.UserID),
		zap.String("role", actor.Role.String()),
	)
}

// logFailure: отказы по правам и данным - Warn, сбои хранилища - Error.
func logFailure(logger *zap.Logger, msg string, err error) {
	switch apperrors.KindOf(err) {
	case apperrors.KindStore, apperrors.KindInternal:
		logger.Error(msg, zap.Error(err))
	default:
		logger.Warn(msg, zap.Error(err))
	}
}

func (s *RequestService) Create(ctx context.Context, actor types.Actor, payload dto.CreateRequestDTO) (*entities.Request, error) {
	logger := s.actorLogger(actor, 0)
	if err := authz.Require(actor, authz.RequestsCreate); err != nil {
		logger.Warn("Создание заявки запрещено")
		return nil, err
	}

	req := &entities.Request{
		OperatorID:   null.Int64From(int64(actor.UserID)),
		StatusID:     payload.StatusID,
		Phone:        strings.TrimSpace(payload.Phone),
		Address:      strings.TrimSpace(payload.Address),
		Techniq:      strings.TrimSpace(payload.Techniq),
		Description:  strings.TrimSpace(payload.Description),
		CustomerName: strings.TrimSpace(payload.CustomerName),
	}
	if payload.EngineerID != nil {
		req.EngineerID = null.Int64From(*payload.EngineerID)
	}

	initial := entities.RequestChanges{
		entities.FieldStatusID:     req.StatusID,
		entities.FieldPhone:        req.Phone,
		entities.FieldAddress:      req.Address,
		entities.FieldTechniq:      req.Techniq,
		entities.FieldDescription:  req.Description,
		entities.FieldCustomerName: req.CustomerName,
	}

	var created *entities.Request
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.validateValues(ctx, tx, initial); err != nil {
			return err
		}
		if req.EngineerID.Valid {
			if err := s.ensureRole(ctx, tx, req.EngineerID.Int64, constants.RoleEngineer); err != nil {
				return err
			}
		}
		var err error
		created, err = s.requestRepo.Create(ctx, tx, req)
		return err
	})
	if err != nil {
		logFailure(logger, "Не удалось создать заявку", err)
		return nil, err
	}

	logger.Info("Заявка создана", zap.Uint64("newRequestID", created.ID))
	s.bus.Publish(ctx, events.RequestChangedEvent{
		RequestID:    created.ID,
		ActorID:      actor.UserID,
		StatusID:     created.StatusID,
		OperatorID:   nullID(created.OperatorID),
		EngineerID:   nullID(created.EngineerID),
		CreationDate: created.CreationDate,
	})
	return created, nil
}

// Update применяет разрешённые роли изменения и пишет по записи аудита на каждое реально изменённое поле.
// Всё выполняется в одной транзакции под блокировкой строки заявки.
func (s *RequestService) Update(ctx context.Context, actor types.Actor, id uint64, requested entities.RequestChanges) (*entities.Request, error) {
	logger := s.actorLogger(actor, id)
	if len(requested) == 0 {
		return nil, apperrors.NewNoOp("не переданы поля для изменения")
	}

	// справочник читаем до транзакции: ошибка запроса внутри прервала бы её
	var statusNames map[int64]string
	if _, ok := requested[entities.FieldStatusID]; ok {
		statusNames = s.dictionary.StatusNames(ctx)
	}

	var (
		current *entities.Request
		updated *entities.Request
		changed []string
	)
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		current, err = s.requestRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		allowed, err := authz.AllowedFields(actor.Role, requested)
		if err != nil {
			return err
		}
		if len(allowed) == 0 {
			return apperrors.NewNoOp("нет полей, которые ваша роль может изменить")
		}
		if actor.Role == constants.RoleEngineer && !current.IsAssignedTo(actor.UserID) {
			return apperrors.NewForbidden("инженер может изменять только назначенные ему заявки")
		}

		if err := s.validateValues(ctx, tx, allowed); err != nil {
			return err
		}

		diff := diffChanges(current, allowed)
		s.stampAssignment(allowed, diff)
		if len(diff) == 0 {
			return apperrors.NewNoOp("значения полей не изменились")
		}

		updated, err = s.requestRepo.UpdateFields(ctx, tx, id, diff)
		if err != nil {
			return err
		}

		for _, field := range entities.UpdatableFields {
			newValue, ok := diff[field]
			if !ok {
				continue
			}
			entry := &entities.RequestHistory{
				RequestID: id,
				ChangerID: null.Int64From(int64(actor.UserID)),
				FieldName: string(field),
				OldValue:  auditValue(field, current.Value(field), statusNames),
				NewValue:  auditValue(field, newValue, statusNames),
			}
			if err := s.historyRepo.CreateInTx(ctx, tx, entry); err != nil {
				return err
			}
			changed = append(changed, string(field))
		}
		return nil
	})
	if err != nil {
		logFailure(logger, "Изменение заявки не применено", err)
		return nil, err
	}

	logger.Info("Заявка изменена", zap.Strings("fields", changed))
	s.bus.Publish(ctx, events.RequestChangedEvent{
		RequestID:     id,
		ActorID:       actor.UserID,
		StatusID:      updated.StatusID,
		OperatorID:    nullID(updated.OperatorID),
		EngineerID:    nullID(updated.EngineerID),
		PrevEngineer:  nullID(current.EngineerID),
		CreationDate:  updated.CreationDate,
		ChangedFields: changed,
	})
	return updated, nil
}

func (s *RequestService) SoftDelete(ctx context.Context, actor types.Actor, id uint64) (*entities.Request, error) {
	if err := authz.Require(actor, authz.RequestsDelete); err != nil {
		s.actorLogger(actor, id).Warn("Удаление заявки запрещено")
		return nil, err
	}
	return s.Update(ctx, actor, id, entities.RequestChanges{entities.FieldStatusID: constants.StatusDeleted})
}

func (s *RequestService) FindByID(ctx context.Context, actor types.Actor, id uint64) (*entities.Request, error) {
	if err := authz.Require(actor, authz.RequestsView); err != nil {
		return nil, err
	}
	req, err := s.requestRepo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !authz.HasPermission(actor.Role, authz.RequestsViewAll) && !req.IsAssignedTo(actor.UserID) {
		return nil, apperrors.NewForbidden("заявка назначена другому инженеру")
	}
	return req, nil
}

func (s *RequestService) ListByEngineer(ctx context.Context, actor types.Actor, engineerID *uint64, statuses []int64, day *time.Time) ([]entities.Request, error) {
	if err := authz.Require(actor, authz.RequestsView); err != nil {
		return nil, err
	}
	target := authz.ScopeEngineer(actor, authz.RequestsViewAll, engineerID)
	if target == nil {
		return nil, apperrors.NewValidation("не указан инженер")
	}
	if err := validateStatuses(statuses); err != nil {
		return nil, err
	}

	var from, to *time.Time
	if day != nil {
		start, end := utils.DayBounds(*day)
		from, to = &start, &end
	}
	return s.requestRepo.ListByEngineer(ctx, *target, statuses, from, to)
}

func (s *RequestService) ListCompleted(ctx context.Context, actor types.Actor, engineerID *uint64, page uint64) ([]entities.Request, uint64, error) {
	if err := authz.Require(actor, authz.RequestsView); err != nil {
		return nil, 0, err
	}
	target := authz.ScopeEngineer(actor, authz.RequestsViewAll, engineerID)
	if target == nil {
		return nil, 0, apperrors.NewValidation("не указан инженер")
	}
	if page == 0 {
		page = 1
	}
	limit := uint64(constants.CompletedPageSize)
	return s.requestRepo.ListCompleted(ctx, *target, limit, (page-1)*limit)
}

func (s *RequestService) Filter(ctx context.Context, actor types.Actor, filter entities.RequestFilter) ([]entities.Request, uint64, error) {
	if err := authz.Require(actor, authz.RequestsView); err != nil {
		return nil, 0, err
	}
	var requested *uint64
	if filter.EngineerID.Valid {
		v := uint64(filter.EngineerID.Int64)
		requested = &v
	}
	if target := authz.ScopeEngineer(actor, authz.RequestsViewAll, requested); target != nil {
		filter.EngineerID = null.Int64From(int64(*target))
	}
	if err := validateStatuses(filter.StatusIDs); err != nil {
		return nil, 0, err
	}
	if filter.DateFrom.Valid && filter.DateTo.Valid && !filter.DateFrom.Time.Before(filter.DateTo.Time) {
		return nil, 0, apperrors.NewValidation("начало периода должно быть раньше конца")
	}
	return s.requestRepo.Filter(ctx, filter)
}

func validateStatuses(statuses []int64) error {
	for _, st := range statuses {
		if !constants.IsValidStatus(st) {
			return apperrors.NewValidation("неизвестный статус %d", st)
		}
	}
	return nil
}

// ensureRole проверяет, что пользователь существует и имеет нужную роль.
func (s *RequestService) ensureRole(ctx context.Context, tx pgx.Tx, userID int64, role constants.Role) error {
	if userID <= 0 {
		return apperrors.NewValidation("неверный идентификатор пользователя %d", userID)
	}
	user, err := s.userRepo.FindByID(ctx, tx, uint64(userID))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewValidation("пользователь %d не найден", userID)
		}
		return err
	}
	if user.RoleID != role {
		return apperrors.NewValidation("пользователь %d не является %s", userID, roleGenitive(role))
	}
	return nil
}

func roleGenitive(role constants.Role) string {
	switch role {
	case constants.RoleEngineer:
		return "инженером"
	case constants.RoleOperator:
		return "оператором"
	default:
		return "менеджером"
	}
}

func (s *RequestService) validateValues(ctx context.Context, tx pgx.Tx, changes entities.RequestChanges) error {
	for _, field := range entities.UpdatableFields {
		value, ok := changes[field]
		if !ok {
			continue
		}
		if value == nil {
			if !field.Nullable() {
				return apperrors.NewValidation("поле '%s' не может быть пустым", field)
			}
			continue
		}

		switch field.Kind() {
		case entities.KindID:
			id, ok := value.(int64)
			if !ok {
				return apperrors.NewValidation("поле '%s' должно быть целым числом", field)
			}
			switch field {
			case entities.FieldStatusID:
				if !constants.IsValidStatus(id) {
					return apperrors.NewValidation("неизвестный статус %d", id)
				}
			case entities.FieldEngineerID:
				if err := s.ensureRole(ctx, tx, id, constants.RoleEngineer); err != nil {
					return err
				}
			case entities.FieldOperatorID:
				if err := s.ensureRole(ctx, tx, id, constants.RoleOperator); err != nil {
					return err
				}
			}
		case entities.KindText:
			text, ok := value.(string)
			if !ok || strings.TrimSpace(text) == "" {
				return apperrors.NewValidation("поле '%s' не может быть пустым", field)
			}
			if field == entities.FieldPhone && !customvalidator.IsValidPhone(text) {
				return apperrors.NewValidation("неверный формат телефона")
			}
		case entities.KindTime:
			if _, ok := value.(time.Time); !ok {
				return apperrors.NewValidation("поле '%s' должно быть датой", field)
			}
		}
	}
	return nil
}

func diffChanges(current *entities.Request, allowed entities.RequestChanges) entities.RequestChanges {
	diff := make(entities.RequestChanges, len(allowed))
	for field, value := range allowed {
		if !entities.SameValue(current.Value(field), value) {
			diff[field] = value
		}
	}
	return diff
}

// stampAssignment: при назначении инженера (в том числе переназначении другому)
// проставляет assigned_time, если его не передали явно.
func (s *RequestService) stampAssignment(allowed, diff entities.RequestChanges) {
	engineer, ok := diff[entities.FieldEngineerID]
	if !ok || engineer == nil {
		return
	}
	if _, explicit := allowed[entities.FieldAssignedTime]; explicit {
		return
	}
	diff[entities.FieldAssignedTime] = s.now()
}

func auditValue(field entities.RequestField, value any, statusNames map[int64]string) null.String {
	if field == entities.FieldStatusID {
		if id, ok := value.(int64); ok {
			if name, found := statusNames[id]; found {
				return null.StringFrom(name)
			}
		}
	}
	return entities.FormatValue(value)
}

func nullID(v null.Int64) uint64 {
	if !v.Valid || v.Int64 <= 0 {
		return 0
	}
	return uint64(v.Int64)
}
