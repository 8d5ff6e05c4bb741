package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/inventory/internal/apperr"
	"github.com/iudanet/inventory/internal/server/handlers"
	"github.com/iudanet/inventory/internal/server/token"
)

// Сообщения 401 для защищенных маршрутов
const (
	MsgLoginRequired      = handlers.MsgLoginRequired
	MsgInvalidAccessToken = "Invalid or expired access token"
)

// AccessVerifier проверяет access token
type AccessVerifier interface {
	Verify(domain token.Domain, tokenString string) (*token.Claims, error)
}

// AuthMiddleware создает middleware для проверки bearer access token
// ID пользователя из токена кладется в контекст запроса
func AuthMiddleware(logger *slog.Logger, tokens AccessVerifier, errs *handlers.ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				errs.WriteError(w, r, apperr.Unauthorized(MsgLoginRequired))
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				logger.WarnContext(r.Context(), "invalid Authorization header format")
				errs.WriteError(w, r, apperr.Unauthorized(MsgLoginRequired))
				return
			}

			claims, err := tokens.Verify(token.Access, strings.TrimSpace(parts[1]))
			if err != nil {
				if !errors.Is(err, token.ErrExpired) {
					logger.WarnContext(r.Context(), "invalid access token", slog.Any("error", err))
				}
				errs.WriteError(w, r, apperr.Wrap(apperr.Unauthorized(MsgInvalidAccessToken), err))
				return
			}
			if claims.UserID == "" {
				errs.WriteError(w, r, apperr.Unauthorized(MsgInvalidAccessToken))
				return
			}

			logger.DebugContext(r.Context(), "user authenticated", slog.String("user_id", claims.UserID))

			next.ServeHTTP(w, r.WithContext(handlers.WithUserID(r.Context(), claims.UserID)))
		})
	}
}
