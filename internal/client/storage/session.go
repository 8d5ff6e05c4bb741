package storage

import (
	"context"
	"time"
)

// SessionStorage хранит сессию CLI клиента между запусками
type SessionStorage interface {
	// SaveSession сохраняет сессию целиком, заменяя предыдущую
	SaveSession(ctx context.Context, session *SessionData) error

	// GetSession возвращает сохраненную сессию
	// Returns ErrSessionNotFound if nothing is stored
	GetSession(ctx context.Context) (*SessionData, error)

	// DeleteSession удаляет сессию (logout)
	// Отсутствие сессии не является ошибкой
	DeleteSession(ctx context.Context) error
}

// SessionUser данные текущего пользователя
type SessionUser struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// RefreshCookie сохраненная cookie refresh_token
type RefreshCookie struct {
	ExpiresAt time.Time `json:"expires_at"`
	Value     string    `json:"value"`
}

// Expired сообщает, истек ли срок cookie на момент now
func (c *RefreshCookie) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// SessionData состояние сессии
// AccessToken и User пусты, пока пользователь не вошел
type SessionData struct {
	User          *SessionUser   `json:"user,omitempty"`
	RefreshCookie *RefreshCookie `json:"refresh_cookie,omitempty"`
	AccessToken   string         `json:"access_token,omitempty"`
	ServerURL     string         `json:"server_url"`
}
