package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"fieldservice/internal/dto"
	"fieldservice/internal/entities"
	"fieldservice/internal/repositories"
	"fieldservice/pkg/config"
	"fieldservice/pkg/constants"
	apperrors "fieldservice/pkg/errors"
	"fieldservice/pkg/service"
	"fieldservice/pkg/types"
	"fieldservice/pkg/utils"
)

type AuthServiceInterface interface {
	Login(ctx context.Context, payload dto.LoginDTO) (*dto.AuthResponseDTO, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponseDTO, error)
	Logout(ctx context.Context, accessID string, accessExp time.Time, refreshToken string) error
	Resolve(ctx context.Context, token string) (types.Actor, *service.JwtCustomClaim, error)
}

type AuthService struct {
	userRepo    repositories.UserRepositoryInterface
	profileRepo repositories.EngineerProfileRepositoryInterface
	cacheRepo   repositories.CacheRepositoryInterface
	jwtService  service.JWTService
	cfg         config.AuthConfig
	logger      *zap.Logger
	now         func() time.Time
}

func NewAuthService(
	userRepo repositories.UserRepositoryInterface,
	profileRepo repositories.EngineerProfileRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	jwtService service.JWTService,
	cfg config.AuthConfig,
	logger *zap.Logger,
) AuthServiceInterface {
	return &AuthService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		cacheRepo:   cacheRepo,
		jwtService:  jwtService,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *AuthService) Login(ctx context.Context, payload dto.LoginDTO) (*dto.AuthResponseDTO, error) {
	login := strings.TrimSpace(payload.Login)
	if err := s.checkLockout(ctx, login); err != nil {
		s.logger.Warn("Попытка входа в заблокированную учётную запись", zap.String("login", login))
		return nil, err
	}

	user, err := s.userRepo.FindByLogin(ctx, login)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		s.handleFailedLoginAttempt(ctx, login)
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := utils.ComparePasswords(user.Password, payload.Password); err != nil {
		s.handleFailedLoginAttempt(ctx, login)
		s.logger.Info("Неверный пароль", zap.String("login", login))
		return nil, apperrors.ErrInvalidCredentials
	}
	s.resetLoginAttempts(ctx, login)

	s.logger.Info("Пользователь вошёл в систему", zap.Uint64("userID", user.ID))
	return s.issue(ctx, user)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponseDTO, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if !claims.IsRefreshToken {
		return nil, apperrors.ErrTokenIsNotRefresh
	}
	if s.isRevoked(ctx, claims.ID) {
		return nil, apperrors.ErrTokenRevoked
	}

	user, err := s.userRepo.FindByID(ctx, nil, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, err
	}

	// refresh-токен одноразовый
	s.revoke(ctx, claims.ID, claims.ExpiresAt.Time)
	return s.issue(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, accessID string, accessExp time.Time, refreshToken string) error {
	s.revoke(ctx, accessID, accessExp)
	if refreshToken == "" {
		return nil
	}
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil || !claims.IsRefreshToken {
		// access уже отозван, ошибку refresh-токена наружу не отдаём
		s.logger.Debug("Logout: refresh-токен не принят", zap.Error(err))
		return nil
	}
	s.revoke(ctx, claims.ID, claims.ExpiresAt.Time)
	return nil
}

// Resolve проверяет access-токен и берёт актуальную роль пользователя из БД.
func (s *AuthService) Resolve(ctx context.Context, token string) (types.Actor, *service.JwtCustomClaim, error) {
	claims, err := s.jwtService.ValidateToken(token)
	if err != nil {
		return types.Actor{}, nil, err
	}
	if claims.IsRefreshToken {
		return types.Actor{}, nil, apperrors.ErrTokenIsNotAccess
	}
	if s.isRevoked(ctx, claims.ID) {
		return types.Actor{}, nil, apperrors.ErrTokenRevoked
	}

	user, err := s.userRepo.FindByID(ctx, nil, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return types.Actor{}, nil, apperrors.ErrInvalidToken
		}
		return types.Actor{}, nil, err
	}
	if !user.RoleID.Valid() {
		return types.Actor{}, nil, apperrors.NewForbidden("у пользователя неизвестная роль")
	}
	return types.Actor{UserID: user.ID, Role: user.RoleID}, claims, nil
}

func (s *AuthService) issue(ctx context.Context, user *entities.User) (*dto.AuthResponseDTO, error) {
	pair, err := s.jwtService.GenerateTokens(user.ID)
	if err != nil {
		s.logger.Error("Не удалось выпустить токены", zap.Uint64("userID", user.ID), zap.Error(err))
		return nil, apperrors.New(apperrors.KindInternal, "не удалось выпустить токены", err)
	}

	var profile *entities.EngineerProfile
	if user.RoleID == constants.RoleEngineer {
		profile, err = s.profileRepo.FindByUserID(ctx, nil, user.ID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}
	return &dto.AuthResponseDTO{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         dto.NewUserResponseDTO(user, profile),
	}, nil
}

func (s *AuthService) revoke(ctx context.Context, tokenID string, expiresAt time.Time) {
	ttl := expiresAt.Sub(s.now())
	if tokenID == "" || ttl <= 0 {
		return
	}
	key := fmt.Sprintf(constants.CacheKeyRevokedToken, tokenID)
	if err := s.cacheRepo.Set(ctx, key, "1", ttl); err != nil {
		s.logger.Error("Не удалось отозвать токен", zap.String("jti", tokenID), zap.Error(err))
	}
}

// isRevoked: при недоступном Redis токен считается действующим.
func (s *AuthService) isRevoked(ctx context.Context, tokenID string) bool {
	_, err := s.cacheRepo.Get(ctx, fmt.Sprintf(constants.CacheKeyRevokedToken, tokenID))
	if err == nil {
		return true
	}
	if !errors.Is(err, repositories.ErrCacheMiss) {
		s.logger.Error("Не удалось проверить отзыв токена", zap.String("jti", tokenID), zap.Error(err))
	}
	return false
}

func (s *AuthService) checkLockout(ctx context.Context, login string) error {
	lockoutKey := fmt.Sprintf(constants.CacheKeyLockout, login)

	// Если ключ существует - аккаунт заблокирован
	if _, err := s.cacheRepo.Get(ctx, lockoutKey); err == nil {
		return apperrors.ErrAccountLocked
	}
	return nil
}

func (s *AuthService) handleFailedLoginAttempt(ctx context.Context, login string) {
	attemptsKey := fmt.Sprintf(constants.CacheKeyLoginAttempts, login)
	attempts, err := s.cacheRepo.Incr(ctx, attemptsKey)
	if err != nil {
		s.logger.Warn("Не удалось учесть неудачную попытку входа", zap.String("login", login), zap.Error(err))
		return
	}
	if attempts == 1 {
		_, _ = s.cacheRepo.Expire(ctx, attemptsKey, s.cfg.LockoutDuration)
	}
	if attempts >= int64(s.cfg.MaxLoginAttempts) {
		lockoutKey := fmt.Sprintf(constants.CacheKeyLockout, login)
		_ = s.cacheRepo.Set(ctx, lockoutKey, "locked", s.cfg.LockoutDuration)
		_ = s.cacheRepo.Del(ctx, attemptsKey)
		s.logger.Warn("Учётная запись заблокирована после неудачных попыток входа", zap.String("login", login))
	}
}

func (s *AuthService) resetLoginAttempts(ctx context.Context, login string) {
	attemptsKey := fmt.Sprintf(constants.CacheKeyLoginAttempts, login)
	lockoutKey := fmt.Sprintf(constants.CacheKeyLockout, login)
	_ = s.cacheRepo.Del(ctx, attemptsKey, lockoutKey)
}
