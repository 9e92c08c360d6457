package services

import (
	"context"
	"strings"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"fieldservice/internal/authz"
	"fieldservice/internal/dto"
	"fieldservice/internal/entities"
	"fieldservice/internal/repositories"
	"fieldservice/pkg/constants"
	apperrors "fieldservice/pkg/errors"
	"fieldservice/pkg/types"
	"fieldservice/pkg/utils"
)

type UserServiceInterface interface {
	Create(ctx context.Context, actor types.Actor, payload dto.CreateUserDTO) (*dto.UserResponseDTO, error)
	Delete(ctx context.Context, actor types.Actor, id uint64) error
	List(ctx context.Context, actor types.Actor, role *constants.Role, page types.Pagination) ([]dto.UserResponseDTO, uint64, error)
	Profile(ctx context.Context, actor types.Actor) (*dto.UserResponseDTO, error)
	Update(ctx context.Context, actor types.Actor, id uint64, payload dto.UpdateUserDTO) (*dto.UserResponseDTO, error)
	UpdateSchedule(ctx context.Context, actor types.Actor, id uint64, schedule string) (*dto.UserResponseDTO, error)
}

type UserService struct {
	txManager          repositories.TxManagerInterface
	userRepo           repositories.UserRepositoryInterface
	profileRepo        repositories.EngineerProfileRepositoryInterface
	requestRepo        repositories.RequestRepositoryInterface
	historyRepo        repositories.RequestHistoryRepositoryInterface
	balanceHistoryRepo repositories.BalanceHistoryRepositoryInterface
	logger             *zap.Logger
}

func NewUserService(
	txManager repositories.TxManagerInterface,
	userRepo repositories.UserRepositoryInterface,
	profileRepo repositories.EngineerProfileRepositoryInterface,
	requestRepo repositories.RequestRepositoryInterface,
	historyRepo repositories.RequestHistoryRepositoryInterface,
	balanceHistoryRepo repositories.BalanceHistoryRepositoryInterface,
	logger *zap.Logger,
) UserServiceInterface {
	return &UserService{
		txManager:          txManager,
		userRepo:           userRepo,
		profileRepo:        profileRepo,
		requestRepo:        requestRepo,
		historyRepo:        historyRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		logger:             logger,
	}
}

func optionalString(s string) null.String {
	s = strings.TrimSpace(s)
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}

func (s *UserService) Create(ctx context.Context, actor types.Actor, payload dto.CreateUserDTO) (*dto.UserResponseDTO, error) {
	logger := s.logger.With(zap.Uint64("actorID", actor.UserID), zap.String("login", payload.Login))
	if err := authz.Require(actor, authz.UsersManage); err != nil {
		logger.Warn("Создание пользователя запрещено")
		return nil, err
	}

	role := constants.Role(payload.RoleID)
	if !role.Valid() {
		return nil, apperrors.NewValidation("неизвестная роль %d", payload.RoleID)
	}
	schedule := strings.TrimSpace(payload.Schedule)
	if role == constants.RoleEngineer && schedule == "" {
		return nil, apperrors.NewValidation("для инженера обязателен график работы")
	}
	name := strings.TrimSpace(payload.Name)
	login := strings.TrimSpace(payload.Login)
	if name == "" || login == "" {
		return nil, apperrors.NewValidation("имя и логин обязательны")
	}

	hashed, err := utils.HashPassword(payload.Password)
	if err != nil {
		logger.Error("Не удалось захешировать пароль", zap.Error(err))
		return nil, apperrors.New(apperrors.KindInternal, "не удалось обработать пароль", err)
	}

	user := &entities.User{
		RoleID:   role,
		Name:     name,
		Login:    login,
		Password: hashed,
		Phone:    optionalString(payload.Phone),
		Email:    optionalString(payload.Email),
	}

	var profile *entities.EngineerProfile
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		id, err := s.userRepo.CreateInTx(ctx, tx, user)
		if err != nil {
			return err
		}
		user.ID = id
		if role != constants.RoleEngineer {
			return nil
		}
		if err := s.profileRepo.CreateInTx(ctx, tx, id, schedule); err != nil {
			return err
		}
		profile, err = s.profileRepo.FindByUserID(ctx, tx, id)
		return err
	})
	if err != nil {
		logFailure(logger, "Не удалось создать пользователя", err)
		return nil, err
	}

	logger.Info("Пользователь создан", zap.Uint64("userID", user.ID), zap.String("role", role.String()))
	res := dto.NewUserResponseDTO(user, profile)
	return &res, nil
}

// Delete удаляет пользователя. Ссылки на него в заявках и журналах обнуляются,
// у инженера вместе с ним удаляются профиль и история баланса.
func (s *UserService) Delete(ctx context.Context, actor types.Actor, id uint64) error {
	logger := s.logger.With(zap.Uint64("actorID", actor.UserID), zap.Uint64("userID", id))
	if err := authz.Require(actor, authz.UsersManage); err != nil {
		logger.Warn("Удаление пользователя запрещено")
		return err
	}
	if actor.UserID == id {
		return apperrors.NewForbidden("нельзя удалить собственную учётную запись")
	}

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		user, err := s.userRepo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.requestRepo.NullifyUserRefsInTx(ctx, tx, id); err != nil {
			return err
		}
		if err := s.historyRepo.NullifyChangerInTx(ctx, tx, id); err != nil {
			return err
		}
		if err := s.balanceHistoryRepo.NullifyAdminInTx(ctx, tx, id); err != nil {
			return err
		}
		if user.RoleID == constants.RoleEngineer {
			if err := s.balanceHistoryRepo.DeleteByEngineerIDInTx(ctx, tx, id); err != nil {
				return err
			}
			if err := s.profileRepo.DeleteByUserIDInTx(ctx, tx, id); err != nil {
				return err
			}
		}
		return s.userRepo.DeleteInTx(ctx, tx, id)
	})
	if err != nil {
		logFailure(logger, "Не удалось удалить пользователя", err)
		return err
	}
	logger.Info("Пользователь удалён")
	return nil
}

func (s *UserService) List(ctx context.Context, actor types.Actor, role *constants.Role, page types.Pagination) ([]dto.UserResponseDTO, uint64, error) {
	if err := authz.Require(actor, authz.UsersManage); err != nil {
		return nil, 0, err
	}
	if role != nil && !role.Valid() {
		return nil, 0, apperrors.NewValidation("неизвестная роль %d", int(*role))
	}
	users, total, err := s.userRepo.List(ctx, role, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	result := make([]dto.UserResponseDTO, 0, len(users))
	for i := range users {
		result = append(result, dto.NewUserResponseDTO(&users[i], nil))
	}
	return result, total, nil
}

func (s *UserService) Profile(ctx context.Context, actor types.Actor) (*dto.UserResponseDTO, error) {
	return s.describe(ctx, actor.UserID)
}

func (s *UserService) describe(ctx context.Context, id uint64) (*dto.UserResponseDTO, error) {
	user, err := s.userRepo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	var profile *entities.EngineerProfile
	if user.RoleID == constants.RoleEngineer {
		profile, err = s.profileRepo.FindByUserID(ctx, nil, id)
		if err != nil {
			return nil, err
		}
	}
	res := dto.NewUserResponseDTO(user, profile)
	return &res, nil
}

func (s *UserService) Update(ctx context.Context, actor types.Actor, id uint64, payload dto.UpdateUserDTO) (*dto.UserResponseDTO, error) {
	logger := s.logger.With(zap.Uint64("actorID", actor.UserID), zap.Uint64("userID", id))
	if err := authz.Require(actor, authz.UsersManage); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if name == "" {
			return nil, apperrors.NewValidation("имя не может быть пустым")
		}
		fields["name"] = name
	}
	if payload.Login != nil {
		login := strings.TrimSpace(*payload.Login)
		if login == "" {
			return nil, apperrors.NewValidation("логин не может быть пустым")
		}
		fields["login"] = login
	}
	if payload.Phone != nil {
		fields["phone"] = optionalString(*payload.Phone)
	}
	if payload.Email != nil {
		fields["email"] = optionalString(*payload.Email)
	}
	if payload.Password != nil {
		hashed, err := utils.HashPassword(*payload.Password)
		if err != nil {
			return nil, apperrors.New(apperrors.KindInternal, "не удалось обработать пароль", err)
		}
		fields["passw"] = hashed
	}

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		current, err := s.userRepo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if payload.RoleID != nil && constants.Role(*payload.RoleID) != current.RoleID {
			role := constants.Role(*payload.RoleID)
			switch {
			case !role.Valid():
				return apperrors.NewValidation("неизвестная роль %d", *payload.RoleID)
			case id == actor.UserID:
				return apperrors.NewForbidden("нельзя изменить собственную роль")
			case role == constants.RoleEngineer || current.RoleID == constants.RoleEngineer:
				return apperrors.NewValidation("роль инженера нельзя назначить или снять: у инженера есть профиль и баланс")
			}
			fields["role_id"] = int(role)
		}
		if len(fields) == 0 {
			return apperrors.NewNoOp("не переданы поля для изменения")
		}
		return s.userRepo.UpdateInTx(ctx, tx, id, fields)
	})
	if err != nil {
		logFailure(logger, "Не удалось изменить пользователя", err)
		return nil, err
	}

	logger.Info("Пользователь изменён")
	return s.describe(ctx, id)
}

func (s *UserService) UpdateSchedule(ctx context.Context, actor types.Actor, id uint64, schedule string) (*dto.UserResponseDTO, error) {
	if err := authz.Require(actor, authz.UsersManage); err != nil {
		return nil, err
	}
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return nil, apperrors.NewValidation("график работы не может быть пустым")
	}

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := s.profileRepo.FindByUserIDForUpdate(ctx, tx, id); err != nil {
			return err
		}
		return s.profileRepo.UpdateScheduleInTx(ctx, tx, id, schedule)
	})
	if err != nil {
		logFailure(s.logger.With(zap.Uint64("userID", id)), "Не удалось изменить график", err)
		return nil, err
	}
	return s.describe(ctx, id)
}
