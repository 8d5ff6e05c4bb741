package handlers

import "context"

// contextKey тип для ключей контекста, чтобы избежать коллизий
type contextKey string

// UserIDKey ключ для ID аутентифицированного пользователя
const UserIDKey contextKey = "user_id"

// WithUserID кладет ID пользователя в контекст
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}
