package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/inventory/pkg/api"
)

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger *slog.Logger
	db     Pinger
	errors *ErrorWriter
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, db Pinger, errs *ErrorWriter) *HealthHandler {
	return &HealthHandler{
		logger: logger,
		db:     db,
		errors: errs,
	}
}

// Health обрабатывает GET /health
// 503 если база данных недоступна
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "health check: database unavailable", slog.Any("error", err))
		h.errors.sendJSON(w, api.MessageResponse{Success: false, Message: "Database unavailable"}, http.StatusServiceUnavailable)
		return
	}

	h.errors.sendJSON(w, api.MessageResponse{Success: true, Message: "Server is running"}, http.StatusOK)
}
