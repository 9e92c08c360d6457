package errors

import (
	"errors"
	"fmt"
)

// Kind - категория ошибки. По ней транспортный слой выбирает HTTP-код.
type Kind int

const (
	KindInternal Kind = iota
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
	KindNoOp
	KindStore
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNoOp:
		return "no_op"
	case KindStore:
		return "store"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// AppError - типизированная ошибка приложения.
// Message безопасно отдавать клиенту, Err - только в лог.
type AppError struct {
	Kind    Kind
	Message string
	Err     error

	generic bool
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Is: общие ошибки-маркеры (ErrForbidden, ErrNotFound, ...) совпадают с любой ошибкой своей категории.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.generic {
		return t.Kind == e.Kind
	}
	return t == e
}

func kindMarker(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message, generic: true}
}

var (
	ErrForbidden    = kindMarker(KindForbidden, "доступ запрещён")
	ErrNotFound     = kindMarker(KindNotFound, "запись не найдена")
	ErrValidation   = kindMarker(KindValidation, "неверные данные")
	ErrConflict     = kindMarker(KindConflict, "конфликт данных")
	ErrNoOp         = kindMarker(KindNoOp, "нет изменений для применения")
	ErrStore        = kindMarker(KindStore, "ошибка хранилища данных")
	ErrUnauthorized = kindMarker(KindUnauthorized, "неавторизован")
)

var (
	// JWT и токены
	ErrInvalidSigningMethod = &AppError{Kind: KindUnauthorized, Message: "неверный метод подписи токена"}
	ErrInvalidToken         = &AppError{Kind: KindUnauthorized, Message: "недопустимый токен"}
	ErrTokenExpired         = &AppError{Kind: KindUnauthorized, Message: "срок действия токена истёк"}
	ErrTokenRevoked         = &AppError{Kind: KindUnauthorized, Message: "токен отозван"}
	ErrTokenIsNotRefresh    = &AppError{Kind: KindUnauthorized, Message: "токен не является refresh-токеном"}
	ErrTokenIsNotAccess     = &AppError{Kind: KindUnauthorized, Message: "токен не является access-токеном"}

	// Авторизация
	ErrEmptyAuthHeader    = &AppError{Kind: KindUnauthorized, Message: "заголовок авторизации отсутствует"}
	ErrInvalidAuthHeader  = &AppError{Kind: KindUnauthorized, Message: "неверный формат заголовка авторизации"}
	ErrInvalidCredentials = &AppError{Kind: KindUnauthorized, Message: "неверный логин или пароль"}
	ErrAccountLocked      = &AppError{Kind: KindUnauthorized, Message: "учётная запись временно заблокирована, попробуйте позже"}

	// Контекст
	ErrActorNotFoundInContext = &AppError{Kind: KindUnauthorized, Message: "пользователь не найден в контексте запроса"}
)

func New(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func NewForbidden(message string) error {
	return New(KindForbidden, message, nil)
}

func NewNotFound(message string) error {
	return New(KindNotFound, message, nil)
}

func NewValidation(format string, args ...interface{}) error {
	return New(KindValidation, fmt.Sprintf(format, args...), nil)
}

func NewConflict(message string, err error) error {
	return New(KindConflict, message, err)
}

func NewNoOp(message string) error {
	return New(KindNoOp, message, nil)
}

func NewStore(message string, err error) error {
	return New(KindStore, message, err)
}

// KindOf возвращает категорию ошибки; всё, что не AppError, считается внутренней ошибкой.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HttpError - ошибка транспортного уровня (кривой JSON, неверный параметр пути).
type HttpError struct {
	Code    int
	Message string
	Err     error
	Context map[string]interface{}
	Details interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, context map[string]interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Context: context}
}
