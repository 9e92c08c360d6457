package customvalidator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"fieldservice/pkg/constants"
)

const maxPhoneLen = 20 // VARCHAR(20) columns

var (
	// Хотя бы одна цифра; короткие внутренние номера тоже допустимы.
	phoneRegex = regexp.MustCompile(`^\+?[0-9\s\-()]*[0-9][0-9\s\-()]*$`)
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// RegisterCustomValidations регистрирует кастомные правила в валидаторе.
func RegisterCustomValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("phone", isPhoneNumber); err != nil {
		return err
	}
	if err := v.RegisterValidation("status_id", isRequestStatus); err != nil {
		return err
	}
	if err := v.RegisterValidation("role_id", isRole); err != nil {
		return err
	}
	if err := v.RegisterValidation("email", isGoodEmailFormat); err != nil {
		return err
	}
	if err := v.RegisterValidation("notblank", isNotBlank); err != nil {
		return err
	}
	return nil
}

// IsValidPhone используется и сервисами, когда телефон приходит не через DTO.
func IsValidPhone(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) <= maxPhoneLen && phoneRegex.MatchString(s)
}

func isPhoneNumber(fl validator.FieldLevel) bool {
	return IsValidPhone(fl.Field().String())
}

func isGoodEmailFormat(fl validator.FieldLevel) bool {
	return emailRegex.MatchString(fl.Field().String())
}

func isRequestStatus(fl validator.FieldLevel) bool {
	return constants.IsValidStatus(fl.Field().Int())
}

func isRole(fl validator.FieldLevel) bool {
	return constants.Role(fl.Field().Int()).Valid()
}

func isNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
