package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "fieldservice/pkg/errors"
	"fieldservice/pkg/types"
)

type HTTPResponse struct {
	Status  bool        `json:"status"`
	Body    interface{} `json:"body,omitempty"`
	Message string      `json:"message"`
}

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

func ParsePaginationParams(values url.Values) types.Pagination {
	p := types.Pagination{Limit: DefaultLimit, Page: 1}

	if limitStr := values.Get("limit"); limitStr != "" {
		if l, err := strconv.ParseUint(limitStr, 10, 64); err == nil && l > 0 {
			if l > MaxLimit {
				p.Limit = MaxLimit
			} else {
				p.Limit = l
			}
		}
	}

	if pageStr := values.Get("page"); pageStr != "" {
		if pg, err := strconv.ParseUint(pageStr, 10, 64); err == nil && pg > 0 {
			p.Page = pg
		}
	}

	if offsetStr := values.Get("offset"); offsetStr != "" {
		if o, err := strconv.ParseUint(offsetStr, 10, 64); err == nil {
			p.Offset = o
			p.Page = o/p.Limit + 1
			return p
		}
	}

	p.Offset = (p.Page - 1) * p.Limit
	return p
}

// ParseIDParam читает положительный числовой параметр пути.
func ParseIDParam(c echo.Context, name string) (uint64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewHttpError(http.StatusBadRequest, fmt.Sprintf("Неверный параметр '%s'", name), err, map[string]interface{}{"value": raw})
	}
	return id, nil
}

func ParseInt64List(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("неверное значение '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseOptionalUint: пустая строка - nil.
func ParseOptionalUint(raw, name string) (*uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return nil, apperrors.NewHttpError(http.StatusBadRequest, fmt.Sprintf("Неверный параметр '%s'", name), err, map[string]interface{}{"value": raw})
	}
	return &v, nil
}

func BadRequest(message string, err error) error {
	return apperrors.NewHttpError(http.StatusBadRequest, message, err, nil)
}

func SuccessResponse(ctx echo.Context, body interface{}, message string, code int, total ...uint64) error {
	response := &HTTPResponse{Status: true, Message: message}
	if len(total) > 0 {
		p := ParsePaginationParams(ctx.Request().URL.Query())
		totalPages := uint64(0)
		if p.Limit > 0 {
			totalPages = (total[0] + p.Limit - 1) / p.Limit
		}
		response.Body = map[string]interface{}{
			"list": body,
			"pagination": types.PaginationMeta{
				TotalCount: total[0],
				Page:       p.Page,
				Limit:      p.Limit,
				TotalPages: totalPages,
			},
		}
	} else {
		response.Body = body
	}
	return ctx.JSON(code, response)
}

func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindForbidden:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindValidation, apperrors.KindNoOp:
		return http.StatusBadRequest
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func ErrorResponse(c echo.Context, err error, logger *zap.Logger) error {
	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		if httpErr.Err != nil {
			logger.Warn("HTTP Error",
				zap.Int("code", httpErr.Code),
				zap.String("message", httpErr.Message),
				zap.Error(httpErr.Err),
				zap.Any("context", httpErr.Context),
			)
		}

		response := map[string]interface{}{
			"status":  false,
			"message": httpErr.Message,
		}
		if httpErr.Details != nil {
			response["body"] = httpErr.Details
		}
		return c.JSON(httpErr.Code, response)
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var msgs []string
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("Поле '%s' не прошло проверку '%s'", e.Field(), e.Tag()))
		}
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"status": false, "message": "Ошибка валидации: " + strings.Join(msgs, "; ")})
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		code := statusForKind(appErr.Kind)
		message := appErr.Message
		if code == http.StatusInternalServerError {
			logger.Error("Ошибка хранилища", zap.String("kind", appErr.Kind.String()), zap.Error(err))
			message = "Внутренняя ошибка сервера"
		} else {
			logger.Debug("Отказ в операции", zap.String("kind", appErr.Kind.String()), zap.Error(err))
		}
		return c.JSON(code, map[string]interface{}{"status": false, "message": message})
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		return c.JSON(echoErr.Code, map[string]interface{}{"status": false, "message": fmt.Sprint(echoErr.Message)})
	}

	logger.Error("Unexpected Error", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"status":  false,
		"message": "Внутренняя ошибка сервера",
	})
}
