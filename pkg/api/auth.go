package api

// SignUpRequest представляет запрос на регистрацию нового пользователя
type SignUpRequest struct {
	FullName        string `json:"fullName" validate:"required,min=2"`                    // имя пользователя
	Email           string `json:"email" validate:"required,email"`                       // email
	Password        string `json:"password" validate:"required,min=6,max=72"`             // пароль
	ConfirmPassword string `json:"confirmPassword" validate:"omitempty,eqfield=Password"` // подтверждение пароля (опционально)
}

// SignInRequest представляет запрос на аутентификацию
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResendVerificationRequest запрос повторной отправки письма
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// GoogleSignInRequest запрос входа через Google
type GoogleSignInRequest struct {
	Token string `json:"token" validate:"required"` // Google ID token
}

// User публичное представление пользователя
type User struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// MessageResponse представляет ответ с сообщением
type MessageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// AuthResponse ответ на успешный вход (signIn, verify-email, google-signIn)
// Refresh token передается только в HttpOnly cookie
type AuthResponse struct {
	User        *User  `json:"user"`
	Message     string `json:"message,omitempty"`
	AccessToken string `json:"accessToken"`
	Success     bool   `json:"success"`
}

// RefreshResponse ответ на обновление access token
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
	Success     bool   `json:"success"`
}

// MeResponse ответ с текущим пользователем
type MeResponse struct {
	User    *User `json:"user"`
	Success bool  `json:"success"`
}

// FieldError ошибка валидации поля
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Message string       `json:"message"`          // описание ошибки
	Errors  []FieldError `json:"errors,omitempty"` // ошибки по полям
	Success bool         `json:"success"`          // всегда false
}
