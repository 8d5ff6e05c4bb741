package models

import "time"

// User представляет пользователя в системе
type User struct {
	CreatedAt    time.Time `json:"createdAt"`  // время создания
	ID           string    `json:"id"`         // UUID пользователя
	FullName     string    `json:"fullName"`   // имя пользователя
	Email        string    `json:"email"`      // уникальный email (в нижнем регистре)
	PasswordHash string    `json:"-"`          // bcrypt хеш пароля
	IsVerified   bool      `json:"isVerified"` // email подтвержден
}

// PublicUser представляет безопасное представление пользователя (без хеша пароля)
type PublicUser struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Public возвращает данные пользователя, которые можно отдавать клиенту
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		FullName: u.FullName,
		Email:    u.Email,
	}
}
