// Package auth implements registration, login, email verification,
// Google sign-in and access token refresh.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/inventory/internal/apperr"
	"github.com/iudanet/inventory/internal/crypto"
	"github.com/iudanet/inventory/internal/models"
	"github.com/iudanet/inventory/internal/server/google"
	"github.com/iudanet/inventory/internal/server/storage"
	"github.com/iudanet/inventory/internal/server/token"
)

// Сообщения, которые видит клиент
const (
	MsgEmailRegistered        = "Email already registered"
	MsgRegisteredNotVerified  = "User already registered but not verified"
	MsgVerificationSent       = "Verification email sent. Please check your inbox."
	MsgInvalidCredentials     = "Invalid credentials"
	MsgEmailNotVerified       = "Email not verified. Please verify your email."
	MsgVerifyUserNotFound     = "User not found."
	MsgEmailAlreadyVerified   = "Email is already verified."
	MsgVerifyLinkExpired      = "Verification link has expired. Please request a new one."
	MsgVerifyLinkInvalid      = "Invalid verification link."
	MsgVerifyLinkMismatch     = "Verification link does not match this email."
	MsgUserNotFound           = "User not found"
	MsgAlreadyVerifiedLogin   = "Email already verified. Please login."
	MsgVerificationResent     = "Verification email sent successfully."
	MsgInvalidGoogleToken     = "Invalid Google token"
	MsgRefreshTokenNotFound   = "Refresh token not found"
	MsgRefreshTokenInvalid    = "Invalid or expired refresh token"
	MsgVerificationSendFailed = "Failed to send verification email. Please try again."
	MsgPasswordTooLong        = "password must not exceed 72 bytes"
)

// Mailer отправляет письмо подтверждения email
type Mailer interface {
	SendVerification(ctx context.Context, email, name, token string) error
}

// Session результат успешного входа
type Session struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
}

// Service реализует операции аутентификации
type Service struct {
	users  storage.UserStorage
	tokens *token.Service
	hasher *crypto.PasswordHasher
	mailer Mailer
	google google.Verifier
	logger *slog.Logger
	now    func() time.Time
}

// Option configures Service
type Option func(*Service)

// WithClock overrides the time source used for createdAt
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates auth service
func NewService(
	logger *slog.Logger,
	users storage.UserStorage,
	tokens *token.Service,
	hasher *crypto.PasswordHasher,
	mailer Mailer,
	googleVerifier google.Verifier,
	opts ...Option,
) *Service {
	s := &Service{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		mailer: mailer,
		google: googleVerifier,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeEmail приводит email к каноническому виду (нижний регистр, без пробелов)
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создает неподтвержденного пользователя и отправляет письмо подтверждения
// Письмо уходит после коммита вставки; при ошибке отправки пользователь удаляется
func (s *Service) Register(ctx context.Context, fullName, email, password string) (string, error) {
	email = NormalizeEmail(email)
	fullName = strings.TrimSpace(fullName)

	existing, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return "", existingUserError(existing)
	case !errors.Is(err, storage.ErrUserNotFound):
		return "", apperr.Internal(fmt.Errorf("get user by email: %w", err))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooLong) {
			return "", apperr.Validation(MsgPasswordTooLong,
				apperr.FieldError{Field: "password", Message: MsgPasswordTooLong})
		}
		return "", apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	verifyToken, err := s.tokens.Sign(token.EmailVerification, token.Payload{Email: email})
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("sign verification token: %w", err))
	}

	user := &models.User{
		ID:           uuid.New().String(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		IsVerified:   false,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			// Проиграли гонку параллельной регистрации
			s.logger.WarnContext(ctx, "concurrent registration lost unique race", slog.String("email", email))
			if winner, gerr := s.users.GetUserByEmail(ctx, email); gerr == nil {
				return "", existingUserError(winner)
			}
			return "", apperr.Conflict(MsgRegisteredNotVerified)
		}
		return "", apperr.Internal(fmt.Errorf("create user: %w", err))
	}

	if sendErr := s.mailer.SendVerification(ctx, email, fullName, verifyToken); sendErr != nil {
		s.logger.ErrorContext(ctx, "failed to send verification email, registration rolled back",
			slog.String("email", email), slog.Any("error", sendErr))

		// Удаление не зависит от отмены запроса клиентом
		if err := s.users.DeleteUnverifiedUser(context.WithoutCancel(ctx), user.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to remove user after mail failure",
				slog.String("user_id", user.ID), slog.Any("error", err))
		}
		return "", &apperr.Error{Kind: apperr.KindInternal, Message: MsgVerificationSendFailed, Err: sendErr}
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", email))

	return MsgVerificationSent, nil
}

func existingUserError(u *models.User) error {
	if u.IsVerified {
		return apperr.Conflict(MsgEmailRegistered)
	}
	return apperr.Conflict(MsgRegisteredNotVerified)
}

// Login проверяет учетные данные и выпускает пару токенов
// Отсутствующий пользователь и неверный пароль неразличимы для клиента
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// Выравниваем время ответа с веткой существующего пользователя
			s.hasher.CompareDummy(password)
			return nil, apperr.Unauthorized(MsgInvalidCredentials)
		}
		return nil, apperr.Internal(fmt.Errorf("get user by email: %w", err))
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if !errors.Is(err, crypto.ErrPasswordMismatch) {
			s.logger.ErrorContext(ctx, "password compare failed", slog.String("user_id", user.ID), slog.Any("error", err))
		}
		return nil, apperr.Unauthorized(MsgInvalidCredentials)
	}

	if !user.IsVerified {
		return nil, apperr.Unauthorized(MsgEmailNotVerified)
	}

	return s.issueSession(user)
}

// VerifyEmail подтверждает email по токену из письма и сразу выполняет вход
func (s *Service) VerifyEmail(ctx context.Context, email, verifyToken string) (*Session, error) {
	email = NormalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apperr.NotFound(MsgVerifyUserNotFound)
		}
		return nil, apperr.Internal(fmt.Errorf("get user by email: %w", err))
	}

	// Уже подтвержден: ответ не зависит от токена
	if user.IsVerified {
		return nil, apperr.Conflict(MsgEmailAlreadyVerified)
	}

	claims, err := s.tokens.Verify(token.EmailVerification, verifyToken)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, apperr.Wrap(apperr.Unauthorized(MsgVerifyLinkExpired), err)
		}
		return nil, apperr.Wrap(apperr.Unauthorized(MsgVerifyLinkInvalid), err)
	}

	if NormalizeEmail(claims.Email) != email {
		s.logger.WarnContext(ctx, "verification token email mismatch", slog.String("email", email))
		return nil, apperr.Unauthorized(MsgVerifyLinkMismatch)
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		switch {
		case errors.Is(err, storage.ErrUserAlreadyVerified):
			// Параллельный запрос успел раньше
			return nil, apperr.Conflict(MsgEmailAlreadyVerified)
		case errors.Is(err, storage.ErrUserNotFound):
			return nil, apperr.NotFound(MsgVerifyUserNotFound)
		default:
			return nil, apperr.Internal(fmt.Errorf("mark verified: %w", err))
		}
	}
	user.IsVerified = true

	s.logger.InfoContext(ctx, "email verified", slog.String("user_id", user.ID))

	return s.issueSession(user)
}

// ResendVerification отправляет новое письмо подтверждения
// Ранее выданные ссылки остаются действительными до своего срока
func (s *Service) ResendVerification(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", apperr.NotFound(MsgUserNotFound)
		}
		return "", apperr.Internal(fmt.Errorf("get user by email: %w", err))
	}

	if user.IsVerified {
		return "", apperr.Conflict(MsgAlreadyVerifiedLogin)
	}

	verifyToken, err := s.tokens.Sign(token.EmailVerification, token.Payload{Email: email})
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("sign verification token: %w", err))
	}

	if err := s.mailer.SendVerification(ctx, email, user.FullName, verifyToken); err != nil {
		s.logger.ErrorContext(ctx, "failed to resend verification email", slog.String("email", email), slog.Any("error", err))
		return "", &apperr.Error{Kind: apperr.KindInternal, Message: MsgVerificationSendFailed, Err: err}
	}

	return MsgVerificationResent, nil
}

// GoogleSignIn выполняет вход по Google ID токену
// Неизвестный email создает подтвержденного пользователя со случайным паролем
func (s *Service) GoogleSignIn(ctx context.Context, idToken string) (*Session, error) {
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		s.logger.WarnContext(ctx, "google token rejected", slog.Any("error", err))
		return nil, apperr.Wrap(apperr.Validation(MsgInvalidGoogleToken), err)
	}

	email := NormalizeEmail(identity.Email)
	if email == "" {
		return nil, apperr.Validation(MsgInvalidGoogleToken)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		// Существующий аккаунт (любого способа регистрации): вход без связывания
		return s.issueSession(user)
	case !errors.Is(err, storage.ErrUserNotFound):
		return nil, apperr.Internal(fmt.Errorf("get user by email: %w", err))
	}

	user, err = s.createGoogleUser(ctx, email, identity.Name)
	if err != nil {
		return nil, err
	}

	return s.issueSession(user)
}

func (s *Service) createGoogleUser(ctx context.Context, email, name string) (*models.User, error) {
	if name == "" {
		name = email[:strings.IndexByte(email+"@", '@')]
	}

	hash, err := s.hasher.RandomUnusable()
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("generate password: %w", err))
	}

	user := &models.User{
		ID:           uuid.New().String(),
		FullName:     name,
		Email:        email,
		PasswordHash: hash,
		IsVerified:   true,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			// Параллельный вход создал пользователя раньше
			winner, gerr := s.users.GetUserByEmail(ctx, email)
			if gerr != nil {
				return nil, apperr.Internal(fmt.Errorf("re-read google user: %w", gerr))
			}
			return winner, nil
		}
		return nil, apperr.Internal(fmt.Errorf("create google user: %w", err))
	}

	s.logger.InfoContext(ctx, "user created via google sign-in", slog.String("user_id", user.ID))

	return user, nil
}

// RefreshAccessToken выпускает новый access token по refresh token
// Refresh token не ротируется
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", apperr.Forbidden(MsgRefreshTokenNotFound)
	}

	claims, err := s.tokens.Verify(token.Refresh, refreshToken)
	if err != nil {
		return "", apperr.Wrap(apperr.Forbidden(MsgRefreshTokenInvalid), err)
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", apperr.Unauthorized(MsgUserNotFound)
		}
		return "", apperr.Internal(fmt.Errorf("get user by id: %w", err))
	}

	accessToken, err := s.tokens.Sign(token.Access, token.Payload{UserID: user.ID, Email: user.Email})
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("sign access token: %w", err))
	}

	return accessToken, nil
}

// CurrentUser возвращает пользователя по ID из access token
func (s *Service) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apperr.Unauthorized(MsgUserNotFound)
		}
		return nil, apperr.Internal(fmt.Errorf("get user by id: %w", err))
	}
	return user, nil
}

// RefreshTTL lifetime of the refresh cookie
func (s *Service) RefreshTTL() time.Duration {
	return s.tokens.TTL(token.Refresh)
}

func (s *Service) issueSession(user *models.User) (*Session, error) {
	payload := token.Payload{UserID: user.ID, Email: user.Email}

	accessToken, err := s.tokens.Sign(token.Access, payload)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("sign access token: %w", err))
	}

	refreshToken, err := s.tokens.Sign(token.Refresh, payload)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("sign refresh token: %w", err))
	}

	return &Session{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
