// Package validation проверяет входные DTO по тегам `validate`
// и превращает ошибки validator в apperr.Validation с сообщениями по полям.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iudanet/inventory/internal/apperr"
)

// Validator обертка над validator.Validate с именами полей из json тегов
type Validator struct {
	v *validator.Validate
}

// New создает Validator
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// В сообщениях используем имя поля из json тега (fullName, а не FullName)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	return &Validator{v: v}
}

// Struct валидирует структуру
// Возвращает *apperr.Error вида KindValidation; первое сообщение становится Message
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	fields := FormatErrors(err)
	if len(fields) == 0 {
		return apperr.Internal(fmt.Errorf("validate: %w", err))
	}

	return apperr.Validation(fields[0].Message, fields...)
}

// FormatErrors converts validator.ValidationErrors into field errors
func FormatErrors(err error) []apperr.FieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}

	out := make([]apperr.FieldError, 0, len(ve))
	for _, fe := range ve {
		out = append(out, apperr.FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must not exceed %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must not exceed %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "eqfield":
		return "Passwords do not match"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
