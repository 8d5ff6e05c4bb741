package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/inventory/internal/apperr"
	"github.com/iudanet/inventory/internal/validation"
	"github.com/iudanet/inventory/pkg/api"
)

const (
	// MsgSomethingWentWrong сообщение 500 в production
	MsgSomethingWentWrong = "Something went wrong. Please try again."
	// MsgRouteNotFound ответ на неизвестный маршрут
	MsgRouteNotFound = "Route not found"
	// MsgInvalidBody тело запроса не является корректным JSON
	MsgInvalidBody = "Invalid request body"

	maxBodyBytes = 1 << 20
)

// ErrorWriter рендерит ошибки в JSON ответ {success:false,message,errors?}
// Единственная точка, где apperr.Kind превращается в HTTP статус
type ErrorWriter struct {
	logger     *slog.Logger
	production bool
}

// NewErrorWriter создает ErrorWriter
// В production детали непредвиденных ошибок не раскрываются
func NewErrorWriter(logger *slog.Logger, production bool) *ErrorWriter {
	return &ErrorWriter{logger: logger, production: production}
}

// WriteError отправляет ошибку клиенту
func (e *ErrorWriter) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal(err)
	}

	status := appErr.Kind.HTTPStatus()
	resp := api.ErrorResponse{
		Success: false,
		Message: appErr.Message,
	}
	for _, f := range appErr.Fields {
		resp.Errors = append(resp.Errors, api.FieldError{Field: f.Field, Message: f.Message})
	}

	if appErr.Kind == apperr.KindInternal {
		e.logger.ErrorContext(ctx, "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))

		switch {
		case e.production:
			resp.Message = MsgSomethingWentWrong
		case appErr.Err != nil:
			resp.Message = appErr.Error()
		}
	} else {
		e.logger.DebugContext(ctx, "request rejected",
			slog.String("kind", appErr.Kind.String()),
			slog.String("message", appErr.Message),
			slog.Any("error", appErr.Err))
	}

	e.sendJSON(w, resp, status)
}

// NotFound обработчик неизвестных маршрутов
func (e *ErrorWriter) NotFound(w http.ResponseWriter, r *http.Request) {
	e.sendJSON(w, api.ErrorResponse{Success: false, Message: MsgRouteNotFound}, http.StatusNotFound)
}

// sendJSON отправляет JSON ответ
func (e *ErrorWriter) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		e.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// decodeJSON читает тело запроса в dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Wrap(apperr.Validation("Request body too large"), err)
		}
		return apperr.Wrap(apperr.Validation(MsgInvalidBody), err)
	}

	return nil
}

// bind декодирует JSON и валидирует его, при ошибке отвечает клиенту и возвращает false
func bind(w http.ResponseWriter, r *http.Request, v *validation.Validator, errs *ErrorWriter, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		errs.WriteError(w, r, err)
		return false
	}
	if err := v.Struct(dst); err != nil {
		errs.WriteError(w, r, err)
		return false
	}
	return true
}
