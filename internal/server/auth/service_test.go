package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/inventory/internal/apperr"
	"github.com/iudanet/inventory/internal/crypto"
	"github.com/iudanet/inventory/internal/server/google"
	"github.com/iudanet/inventory/internal/server/storage"
	"github.com/iudanet/inventory/internal/server/storage/sqldb"
	"github.com/iudanet/inventory/internal/server/token"
)

type sentMail struct {
	email string
	name  string
	token string
}

// fakeMailer запоминает отправленные письма
// wait, если задан, задерживает отправку до закрытия канала
type fakeMailer struct {
	err  error
	wait chan struct{}
	sent []sentMail
	mu   sync.Mutex
}

func (m *fakeMailer) SendVerification(_ context.Context, email, name, tok string) error {
	if m.wait != nil {
		<-m.wait
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{email: email, name: name, token: tok})
	return nil
}

func (m *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no verification email sent")
	return m.sent[len(m.sent)-1]
}

// fakeGoogle возвращает заранее заданную identity
type fakeGoogle struct {
	identity *google.Identity
	err      error
}

func (g *fakeGoogle) Verify(_ context.Context, _ string) (*google.Identity, error) {
	return g.identity, g.err
}

type testEnv struct {
	svc     *Service
	store   *sqldb.Storage
	tokens  *token.Service
	mailer  *fakeMailer
	google  *fakeGoogle
	clock   *time.Time
	clockMu *sync.Mutex
}

func (e *testEnv) advance(d time.Duration) {
	e.clockMu.Lock()
	defer e.clockMu.Unlock()
	*e.clock = e.clock.Add(d)
}

func setupService(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := sqldb.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	tokens, err := token.NewService(token.Config{
		Access:            token.Key{Secret: []byte("access"), TTL: 24 * time.Hour},
		Refresh:           token.Key{Secret: []byte("refresh"), TTL: 7 * 24 * time.Hour},
		EmailVerification: token.Key{Secret: []byte("verify"), TTL: 7 * 24 * time.Hour},
	}, token.WithClock(clock))
	require.NoError(t, err)

	mailer := &fakeMailer{}
	g := &fakeGoogle{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewService(logger, store, tokens, crypto.NewPasswordHasher(4), mailer, g, WithClock(clock))

	return &testEnv{
		svc:     svc,
		store:   store,
		tokens:  tokens,
		mailer:  mailer,
		google:  g,
		clock:   &now,
		clockMu: &mu,
	}
}

func requireKind(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %T: %v", err, err)
	assert.Equal(t, kind, appErr.Kind)
	if msg != "" {
		assert.Equal(t, msg, appErr.Message)
	}
}

func TestRegister_LoginBeforeAndAfterVerification(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	msg, err := env.svc.Register(ctx, "Alice", "a@x.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, MsgVerificationSent, msg)

	// До подтверждения вход запрещен
	_, err = env.svc.Login(ctx, "a@x.com", "secret123")
	requireKind(t, err, apperr.KindUnauthorized, MsgEmailNotVerified)

	mail := env.mailer.last(t)
	assert.Equal(t, "a@x.com", mail.email)
	assert.Equal(t, "Alice", mail.name)

	session, err := env.svc.VerifyEmail(ctx, "a@x.com", mail.token)
	require.NoError(t, err)
	assert.True(t, session.User.IsVerified)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)

	session, err = env.svc.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", session.User.Email)

	claims, err := env.tokens.Verify(token.Access, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
}

func TestRegister_Twice(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	_, err := env.svc.Register(ctx, "Alice", "a@x.com", "secret123")
	require.NoError(t, err)

	_, err = env.svc.Register(ctx, "Alice", "a@x.com", "secret123")
	requireKind(t, err, apperr.KindConflict, MsgRegisteredNotVerified)
	assert.Len(t, env.mailer.sent, 1, "no resend on duplicate registration")

	_, err = env.svc.VerifyEmail(ctx, "a@x.com", env.mailer.last(t).token)
	require.NoError(t, err)

	_, err = env.svc.Register(ctx, "Alice", "A@X.com ", "secret123")
	requireKind(t, err, apperr.KindConflict, MsgEmailRegistered)
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Register(ctx, "Alice", "race@x.com", "secret123")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireKind(t, err, apperr.KindConflict, "")
	}
	assert.Equal(t, 1, succeeded)
}

func TestRegister_MailFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)
	env.mailer.err = errors.New("provider down")

	_, err := env.svc.Register(ctx, "Alice", "a@x.com", "secret123")
	requireKind(t, err, apperr.KindInternal, MsgVerificationSendFailed)

	_, err = env.store.GetUserByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	// Повторная попытка после восстановления почты
	env.mailer.err = nil
	_, err = env.svc.Register(ctx, "Alice", "a@x.com", "secret123")
	assert.NoError(t, err)
}

// Медленная почта не блокирует остальные запросы к хранилищу
func TestRegister_SlowMailerDoesNotBlockStore(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)
	env.mailer.wait = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := env.svc.Register(ctx, "Alice", "a@x.com", "secret123")
		done <- err
	}()

	// Вставка зафиксирована до отправки письма
	require.Eventually(t, func() bool {
		_, err := env.store.GetUserByEmail(ctx, "a@x.com")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	loginCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := env.svc.Login(loginCtx, "other@x.com", "secret123")
	requireKind(t, err, apperr.KindUnauthorized, MsgInvalidCredentials)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.NoError(t, env.store.Ping(loginCtx))

	close(env.mailer.wait)
	require.NoError(t, <-done)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	_, err := env.svc.Register(ctx, "Alice", "long@x.com", strings.Repeat("a", 80))
	requireKind(t, err, apperr.KindValidation, MsgPasswordTooLong)

	_, err = env.store.GetUserByEmail(ctx, "long@x.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	assert.Empty(t, env.mailer.sent)
}

func TestLogin_InvalidCredentialsIndistinguishable(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	_, err := env.svc.Register(ctx, "Alice", "a@x.com", "secret123")
	require.NoError(t, err)
	_, err = env.svc.VerifyEmail(ctx, "a@x.com", env.mailer.last(t).token)
	require.NoError(t, err)

	_, wrongPassword := env.svc.Login(ctx, "a@x.com", "wrong-password")
	_, unknownUser := env.svc.Login(ctx, "nobody@x.com", "secret123")

	requireKind(t, wrongPassword, apperr.KindUnauthorized, MsgInvalidCredentials)
	requireKind(t, unknownUser, apperr.KindUnauthorized, MsgInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestLogin_UnverifiedWrongPassword(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	_, err := env.svc.Register(ctx, "Alice", "a@x.com", "secret123")
	require.NoError(t, err)

	// Неверный пароль не раскрывает статус подтверждения
	_, err = env.svc.Login(ctx, "a@x.com", "wrong-password")
	requireKind(t, err, apperr.KindUnauthorized, MsgInvalidCredentials)
}

func TestVerifyEmail_Failures(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	_, err := env.svc.Register(ctx, "Alice", "a@x.com", "secret123")
	require.NoError(t, err)
	_, err = env.svc.Register(ctx, "Bob", "b@x.com", "secret123")
	require.NoError(t, err)
	bobToken := env.mailer.last(t).token

	t.Run("unknown user", func(t *testing.T) {
		_, err := env.svc.VerifyEmail(ctx, "nobody@x.com", bobToken)
		requireKind(t, err, apperr.KindNotFound, MsgVerifyUserNotFound)
	})

	t.Run("token of another email", func(t *testing.T) {
		_, err := env.svc.VerifyEmail(ctx, "a@x.com", bobToken)
		requireKind(t, err, apperr.KindUnauthorized, MsgVerifyLinkMismatch)

		alice, err := env.store.GetUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.False(t, alice.IsVerified, "must not verify another account")
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := env.svc.VerifyEmail(ctx, "a@x.com", "garbage")
		requireKind(t, err, apperr.KindUnauthorized, MsgVerifyLinkInvalid)
	})

	t.Run("access token is not a verification token", func(t *testing.T) {
		tok, err := env.tokens.Sign(token.Access, token.Payload{UserID: "id", Email: "a@x.com"})
		require.NoError(t, err)

		_, err = env.svc.VerifyEmail(ctx, "a@x.com", tok)
		requireKind(t, err, apperr.KindUnauthorized, MsgVerifyLinkInvalid)
	})

	t.Run("expired token", func(t *testing.T) {
		tok, err := env.tokens.Sign(token.EmailVerification, token.Payload{Email: "a@x.com"})
		require.NoError(t, err)

		env.advance(7*24*time.Hour + time.Minute)
		defer env.advance(-(7*24*time.Hour + time.Minute))

		_, err = env.svc.VerifyEmail(ctx, "a@x.com", tok)
		requireKind(t, err, apperr.KindUnauthorized, MsgVerifyLinkExpired)
	})
}

func TestVerifyEmail_AlreadyVerifiedRegardlessOfToken(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	_, err := env.svc.Register(ctx, "Alice", "a@x.com", "secret123")
	require.NoError(t, err)
	tok := env.mailer.last(t).token

	_, err = env.svc.VerifyEmail(ctx, "a@x.com", tok)
	require.NoError(t, err)

	for _, candidate := range []string{tok, "garbage", ""} {
		_, err = env.svc.VerifyEmail(ctx, "a@x.com", candidate)
		requireKind(t, err, apperr.KindConflict, MsgEmailAlreadyVerified)
	}
}

func TestResendVerification(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	_, err := env.svc.ResendVerification(ctx, "nobody@x.com")
	requireKind(t, err, apperr.KindNotFound, MsgUserNotFound)

	_, err = env.svc.Register(ctx, "Alice", "a@x.com", "secret123")
	require.NoError(t, err)
	first := env.mailer.last(t).token

	// Новый токен должен отличаться по iat
	env.advance(time.Second)
	msg, err := env.svc.ResendVerification(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, MsgVerificationResent, msg)
	require.Len(t, env.mailer.sent, 2)
	assert.NotEqual(t, first, env.mailer.last(t).token)

	// Старая ссылка продолжает работать
	_, err = env.svc.VerifyEmail(ctx, "a@x.com", first)
	require.NoError(t, err)

	_, err = env.svc.ResendVerification(ctx, "a@x.com")
	requireKind(t, err, apperr.KindConflict, MsgAlreadyVerifiedLogin)
}

func TestGoogleSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("token without email", func(t *testing.T) {
		env := setupService(t)
		env.google.err = google.ErrNoEmail

		_, err := env.svc.GoogleSignIn(ctx, "id-token")
		requireKind(t, err, apperr.KindValidation, MsgInvalidGoogleToken)
	})

	t.Run("creates verified user", func(t *testing.T) {
		env := setupService(t)
		env.google.identity = &google.Identity{Email: "G@x.com", Name: "Gina"}

		session, err := env.svc.GoogleSignIn(ctx, "id-token")
		require.NoError(t, err)
		assert.Equal(t, "g@x.com", session.User.Email)
		assert.Equal(t, "Gina", session.User.FullName)
		assert.True(t, session.User.IsVerified)

		// Пароль неизвестен никому
		_, err = env.svc.Login(ctx, "g@x.com", "")
		requireKind(t, err, apperr.KindUnauthorized, MsgInvalidCredentials)

		// Повторный вход не создает нового пользователя
		again, err := env.svc.GoogleSignIn(ctx, "id-token")
		require.NoError(t, err)
		assert.Equal(t, session.User.ID, again.User.ID)
	})

	t.Run("name falls back to email local part", func(t *testing.T) {
		env := setupService(t)
		env.google.identity = &google.Identity{Email: "nameless@x.com"}

		session, err := env.svc.GoogleSignIn(ctx, "id-token")
		require.NoError(t, err)
		assert.Equal(t, "nameless", session.User.FullName)
	})

	t.Run("existing password account signs in", func(t *testing.T) {
		env := setupService(t)
		_, err := env.svc.Register(ctx, "Alice", "a@x.com", "secret123")
		require.NoError(t, err)

		env.google.identity = &google.Identity{Email: "a@x.com", Name: "Alice G"}
		session, err := env.svc.GoogleSignIn(ctx, "id-token")
		require.NoError(t, err)
		assert.Equal(t, "Alice", session.User.FullName)
	})
}

func TestRefreshAccessToken(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	env.google.identity = &google.Identity{Email: "a@x.com", Name: "Alice"}
	session, err := env.svc.GoogleSignIn(ctx, "id-token")
	require.NoError(t, err)

	t.Run("empty token", func(t *testing.T) {
		_, err := env.svc.RefreshAccessToken(ctx, "")
		requireKind(t, err, apperr.KindForbidden, MsgRefreshTokenNotFound)
	})

	t.Run("access token is rejected", func(t *testing.T) {
		_, err := env.svc.RefreshAccessToken(ctx, session.AccessToken)
		requireKind(t, err, apperr.KindForbidden, MsgRefreshTokenInvalid)
	})

	t.Run("deleted user", func(t *testing.T) {
		tok, err := env.tokens.Sign(token.Refresh, token.Payload{UserID: "ghost", Email: "ghost@x.com"})
		require.NoError(t, err)

		_, err = env.svc.RefreshAccessToken(ctx, tok)
		requireKind(t, err, apperr.KindUnauthorized, MsgUserNotFound)
	})

	t.Run("valid token", func(t *testing.T) {
		access, err := env.svc.RefreshAccessToken(ctx, session.RefreshToken)
		require.NoError(t, err)

		claims, err := env.tokens.Verify(token.Access, access)
		require.NoError(t, err)
		assert.Equal(t, session.User.ID, claims.UserID)
	})

	t.Run("expired token", func(t *testing.T) {
		env.advance(8 * 24 * time.Hour)
		defer env.advance(-8 * 24 * time.Hour)

		_, err := env.svc.RefreshAccessToken(ctx, session.RefreshToken)
		requireKind(t, err, apperr.KindForbidden, MsgRefreshTokenInvalid)
	})
}

func TestRefreshAccessToken_Concurrent(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	env.google.identity = &google.Identity{Email: "a@x.com", Name: "Alice"}
	session, err := env.svc.GoogleSignIn(ctx, "id-token")
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	tokens := make(chan string, n)
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			access, err := env.svc.RefreshAccessToken(ctx, session.RefreshToken)
			if err != nil {
				errs <- err
				return
			}
			tokens <- access
		}()
	}
	wg.Wait()
	close(tokens)
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	count := 0
	for access := range tokens {
		_, err := env.tokens.Verify(token.Access, access)
		assert.NoError(t, err)
		count++
	}
	assert.Equal(t, n, count)
}

func TestCurrentUser(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	env.google.identity = &google.Identity{Email: "a@x.com", Name: "Alice"}
	session, err := env.svc.GoogleSignIn(ctx, "id-token")
	require.NoError(t, err)

	user, err := env.svc.CurrentUser(ctx, session.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)

	_, err = env.svc.CurrentUser(ctx, "ghost")
	requireKind(t, err, apperr.KindUnauthorized, MsgUserNotFound)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.Com "))
}
