// Package apperr defines the closed set of application errors produced by the
// server services. Each failure path constructs its error explicitly; the HTTP
// boundary maps the Kind to a status code.
package apperr

import (
	"errors"
	"net/http"
)

// Kind классифицирует ошибку приложения
type Kind int

const (
	// KindInternal непредвиденная ошибка (500)
	KindInternal Kind = iota
	// KindValidation некорректные входные данные (400)
	KindValidation
	// KindConflict дубликат или повторная операция (400)
	KindConflict
	// KindUnauthorized неверные учетные данные или токен (401)
	KindUnauthorized
	// KindForbidden отсутствует или невалиден refresh token (403)
	KindForbidden
	// KindNotFound ресурс не найден (404)
	KindNotFound
	// KindTooManyRequests превышен лимит запросов (429)
	KindTooManyRequests
)

// String returns a short name of the kind
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// HTTPStatus returns the HTTP status code for the kind
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FieldError описывает ошибку валидации конкретного поля
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a tagged application error
type Error struct {
	Err     error
	Message string
	Fields  []FieldError
	Kind    Kind
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation создает ошибку валидации с опциональными ошибками полей
func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Conflict создает ошибку конфликта (дубликат, уже подтвержден)
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Unauthorized создает ошибку аутентификации
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Forbidden создает ошибку доступа
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound создает ошибку "не найдено"
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// TooManyRequests создает ошибку превышения лимита запросов
func TooManyRequests(message string) *Error {
	return &Error{Kind: KindTooManyRequests, Message: message}
}

// Internal оборачивает непредвиденную ошибку
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// Wrap attaches a cause to an application error, keeping kind and message
func Wrap(e *Error, cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// As extracts *Error from the chain
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for foreign errors
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}
