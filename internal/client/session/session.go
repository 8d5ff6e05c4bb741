// Package session хранит состояние входа CLI клиента: access token,
// текущего пользователя и cookie refresh_token.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/iudanet/inventory/internal/client/storage"
)

// RefreshCookieName имя cookie, которую сервер выставляет при входе
const RefreshCookieName = "refresh_token"

// Session состояние сессии
// Безопасна для конкурентного использования
type Session struct {
	store     storage.SessionStorage
	logger    *slog.Logger
	serverURL *url.URL
	jar       *cookiejar.Jar
	user      *storage.SessionUser
	refresh   *storage.RefreshCookie
	now       func() time.Time

	accessToken string
	mu          sync.RWMutex
}

// New создает пустую сессию для сервера serverURL
// Init загружает сохраненное состояние
func New(store storage.SessionStorage, serverURL string, logger *slog.Logger) (*Session, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: scheme and host are required", serverURL)
	}

	jar, err := newJar()
	if err != nil {
		return nil, err
	}

	return &Session{
		store:     store,
		logger:    logger,
		serverURL: u,
		jar:       jar,
		now:       time.Now,
	}, nil
}

func newJar() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return jar, nil
}

// Init восстанавливает access token, пользователя и refresh cookie из хранилища
// Сессия другого сервера и просроченная cookie игнорируются
func (s *Session) Init(ctx context.Context) error {
	data, err := s.store.GetSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	if data.ServerURL != s.serverURL.String() {
		s.logger.Debug("stored session belongs to another server, ignoring",
			slog.String("stored", data.ServerURL),
			slog.String("current", s.serverURL.String()))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = data.AccessToken
	s.user = data.User

	if rc := data.RefreshCookie; rc != nil && rc.Value != "" && !rc.Expired(s.now()) {
		s.refresh = rc
		s.jar.SetCookies(s.serverURL, []*http.Cookie{{
			Name:     RefreshCookieName,
			Value:    rc.Value,
			Path:     "/",
			Expires:  rc.ExpiresAt,
			HttpOnly: true,
		}})
	}

	return nil
}

// Login запоминает пользователя и access token после успешного входа
// Refresh cookie к этому моменту уже получена через Jar
func (s *Session) Login(ctx context.Context, user storage.SessionUser, accessToken string) error {
	s.mu.Lock()
	s.user = &user
	s.accessToken = accessToken
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	return s.persist(ctx, snapshot)
}

// SetAccessToken заменяет access token (после refresh)
func (s *Session) SetAccessToken(ctx context.Context, accessToken string) error {
	s.mu.Lock()
	s.accessToken = accessToken
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	return s.persist(ctx, snapshot)
}

// AccessToken текущий access token или пустая строка
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// User текущий пользователь или nil
func (s *Session) User() *storage.SessionUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated есть ли access token
func (s *Session) IsAuthenticated() bool {
	return s.AccessToken() != ""
}

// RefreshExpiresAt срок действия сохраненной refresh cookie
// false если cookie нет
func (s *Session) RefreshExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.refresh == nil {
		return time.Time{}, false
	}
	return s.refresh.ExpiresAt, true
}

// Logout очищает память, хранилище и cookie jar
func (s *Session) Logout(ctx context.Context) error {
	jar, err := newJar()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken = ""
	s.user = nil
	s.refresh = nil
	s.jar = jar
	s.mu.Unlock()

	if err := s.store.DeleteSession(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Jar cookie jar для HTTP клиента
// Изменения refresh_token сохраняются в хранилище
func (s *Session) Jar() http.CookieJar {
	return &persistentJar{s: s}
}

func (s *Session) snapshotLocked() *storage.SessionData {
	data := &storage.SessionData{
		ServerURL:   s.serverURL.String(),
		AccessToken: s.accessToken,
	}
	if s.user != nil {
		u := *s.user
		data.User = &u
	}
	if s.refresh != nil {
		rc := *s.refresh
		data.RefreshCookie = &rc
	}
	return data
}

func (s *Session) persist(ctx context.Context, data *storage.SessionData) error {
	if err := s.store.SaveSession(ctx, data); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// persistentJar делегирует cookiejar.Jar сессии и сохраняет refresh_token
type persistentJar struct {
	s *Session
}

func (j *persistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s := j.s

	s.mu.Lock()
	s.jar.SetCookies(u, cookies)

	changed := false
	for _, c := range cookies {
		if c.Name != RefreshCookieName {
			continue
		}
		changed = true
		s.refresh = refreshFromCookie(c, s.now())
	}
	if !changed {
		s.mu.Unlock()
		return
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	// http.CookieJar не возвращает ошибок: сбой сохранения только логируется
	if err := s.persist(context.Background(), snapshot); err != nil {
		s.logger.Warn("failed to persist refresh cookie", slog.Any("error", err))
	}
}

func (j *persistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.s.mu.RLock()
	defer j.s.mu.RUnlock()
	return j.s.jar.Cookies(u)
}

// refreshFromCookie возвращает nil, если сервер удаляет cookie
func refreshFromCookie(c *http.Cookie, now time.Time) *storage.RefreshCookie {
	if c.Value == "" || c.MaxAge < 0 {
		return nil
	}

	var expires time.Time
	switch {
	case c.MaxAge > 0:
		expires = now.Add(time.Duration(c.MaxAge) * time.Second)
	case !c.Expires.IsZero():
		if !c.Expires.After(now) {
			return nil
		}
		expires = c.Expires
	}

	return &storage.RefreshCookie{Value: c.Value, ExpiresAt: expires.UTC()}
}
