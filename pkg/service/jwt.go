package service

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "fieldservice/pkg/errors"
)

type JwtCustomClaim struct {
	UserID         uint64 `json:"userId"`
	IsRefreshToken bool   `json:"isRefresh"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessID     string
	RefreshID    string
}

type JWTService interface {
	GenerateTokens(userID uint64) (*TokenPair, error)
	ValidateToken(tokenString string) (*JwtCustomClaim, error)
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
}

type jwtService struct {
	secretKey       []byte
	accessTokenExp  time.Duration
	refreshTokenExp time.Duration
	logger          *zap.Logger
	now             func() time.Time
}

func NewJWTService(secretKey string, accessTokenExp, refreshTokenExp time.Duration, logger *zap.Logger) JWTService {
	return &jwtService{
		secretKey:       []byte(secretKey),
		accessTokenExp:  accessTokenExp,
		refreshTokenExp: refreshTokenExp,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *jwtService) sign(userID uint64, refresh bool, ttl time.Duration) (string, string, error) {
	now := s.now()
	id := uuid.NewString()
	claims := &JwtCustomClaim{
		UserID:         userID,
		IsRefreshToken: refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.secretKey)
	if err != nil {
		return "", "", err
	}
	return signed, id, nil
}

func (s *jwtService) GenerateTokens(userID uint64) (*TokenPair, error) {
	access, accessID, err := s.sign(userID, false, s.accessTokenExp)
	if err != nil {
		return nil, err
	}
	refresh, refreshID, err := s.sign(userID, true, s.refreshTokenExp)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, AccessID: accessID, RefreshID: refreshID}, nil
}

func (s *jwtService) GetAccessTokenTTL() time.Duration {
	return s.accessTokenExp
}

func (s *jwtService) GetRefreshTokenTTL() time.Duration {
	return s.refreshTokenExp
}

func (s *jwtService) ValidateToken(tokenString string) (*JwtCustomClaim, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaim{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.ErrInvalidSigningMethod
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		s.logger.Debug("Ошибка парсинга или проверки подписи токена", zap.Error(err))
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*JwtCustomClaim)
	if !ok || !token.Valid || claims.UserID == 0 || claims.ID == "" {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
