package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/inventory/internal/apperr"
	"github.com/iudanet/inventory/internal/models"
	"github.com/iudanet/inventory/internal/server/auth"
	"github.com/iudanet/inventory/internal/validation"
	"github.com/iudanet/inventory/pkg/api"
)

// Сообщения об успехе
const (
	MsgLoginSuccessful       = "Login successful"
	MsgEmailVerified         = "Email verified successfully"
	MsgGoogleLoginSuccessful = "Google login successful"
	MsgLogoutSuccessful      = "Logout successful"
	MsgEmailAndTokenRequired = "Email and token are required."
	MsgLoginRequired         = "Login required"
)

// AuthService операции аутентификации, которые использует handler
type AuthService interface {
	Register(ctx context.Context, fullName, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	VerifyEmail(ctx context.Context, email, token string) (*auth.Session, error)
	ResendVerification(ctx context.Context, email string) (string, error)
	GoogleSignIn(ctx context.Context, idToken string) (*auth.Session, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
	RefreshTTL() time.Duration
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger    *slog.Logger
	service   AuthService
	validator *validation.Validator
	errors    *ErrorWriter
	cookie    CookieConfig
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, service AuthService, v *validation.Validator, errs *ErrorWriter, production bool) *AuthHandler {
	return &AuthHandler{
		logger:    logger,
		service:   service,
		validator: v,
		errors:    errs,
		cookie: CookieConfig{
			MaxAge:     service.RefreshTTL(),
			Production: production,
		},
	}
}

// SignUp обрабатывает POST /api/auth/signUp
// Регистрация нового пользователя, письмо подтверждения отправляется сразу
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req api.SignUpRequest
	if !h.decode(w, r, &req) {
		return
	}

	msg, err := h.service.Register(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	h.errors.sendJSON(w, api.MessageResponse{Success: true, Message: msg}, http.StatusCreated)
}

// SignIn обрабатывает POST /api/auth/signIn
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req api.SignInRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	h.sendSession(w, session, MsgLoginSuccessful)
}

// VerifyEmail обрабатывает GET /api/auth/verify-email?email=&token=
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	tok := r.URL.Query().Get("token")
	if email == "" || tok == "" {
		h.errors.WriteError(w, r, apperr.Validation(MsgEmailAndTokenRequired))
		return
	}

	session, err := h.service.VerifyEmail(r.Context(), email, tok)
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	h.sendSession(w, session, MsgEmailVerified)
}

// ResendVerification обрабатывает POST /api/auth/resend-verification
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req api.ResendVerificationRequest
	if !h.decode(w, r, &req) {
		return
	}

	msg, err := h.service.ResendVerification(r.Context(), req.Email)
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	h.errors.sendJSON(w, api.MessageResponse{Success: true, Message: msg}, http.StatusOK)
}

// GoogleSignIn обрабатывает POST /api/auth/google-signIn
func (h *AuthHandler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req api.GoogleSignInRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.service.GoogleSignIn(r.Context(), req.Token)
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	h.sendSession(w, session, MsgGoogleLoginSuccessful)
}

// RefreshToken обрабатывает GET /api/auth/refresh-token
// Refresh token читается из cookie и не ротируется
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	accessToken, err := h.service.RefreshAccessToken(r.Context(), RefreshTokenFromRequest(r))
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	h.errors.sendJSON(w, api.RefreshResponse{Success: true, AccessToken: accessToken}, http.StatusOK)
}

// Logout обрабатывает POST /api/auth/logout
// Токены stateless: очищается только cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ClearRefreshCookie(w, h.cookie)
	h.errors.sendJSON(w, api.MessageResponse{Success: true, Message: MsgLogoutSuccessful}, http.StatusOK)
}

// Me обрабатывает GET /api/auth/me (требует bearer token)
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.errors.WriteError(w, r, apperr.Unauthorized(MsgLoginRequired))
		return
	}

	user, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	h.errors.sendJSON(w, api.MeResponse{Success: true, User: toAPIUser(user)}, http.StatusOK)
}

func (h *AuthHandler) sendSession(w http.ResponseWriter, session *auth.Session, message string) {
	SetRefreshCookie(w, h.cookie, session.RefreshToken)

	h.errors.sendJSON(w, api.AuthResponse{
		Success:     true,
		Message:     message,
		User:        toAPIUser(session.User),
		AccessToken: session.AccessToken,
	}, http.StatusOK)
}

// decode читает и валидирует тело запроса, при ошибке сам отвечает клиенту
func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	return bind(w, r, h.validator, h.errors, dst)
}

func toAPIUser(u *models.User) *api.User {
	pub := u.Public()
	return &api.User{
		ID:       pub.ID,
		FullName: pub.FullName,
		Email:    pub.Email,
	}
}
