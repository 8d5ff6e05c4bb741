// Package interceptor добавляет bearer token к запросам и прозрачно
// обновляет истекший access token через refresh cookie.
package interceptor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/inventory/internal/client/notify"
)

// Уведомления пользователю
const (
	NoticeSessionExpired = "Session expired, please log in again."
	NoticeAccessDenied   = "Access denied. Please log in again."
	NoticeServerError    = "Server error, please try again later."
	NoticeNetworkError   = "Network error, please check your connection."
)

const refreshPath = "/api/auth/refresh-token"

var (
	// ErrSessionExpired refresh не удался, сессия завершена
	ErrSessionExpired = errors.New("session expired")
	// ErrForbidden сервер ответил 403, сессия завершена
	ErrForbidden = errors.New("access denied")
)

// Session состояние входа, которое использует interceptor
type Session interface {
	AccessToken() string
	SetAccessToken(ctx context.Context, token string) error
	Logout(ctx context.Context) error
}

// Refresher получает новый access token по refresh cookie
type Refresher interface {
	RefreshToken(ctx context.Context) (string, error)
}

// Doer выполняет HTTP запрос
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client выполняет запросы от имени пользователя
// Параллельные 401 не синхронизируются: каждый запрос может выполнить свой refresh
type Client struct {
	next      Doer
	session   Session
	refresher Refresher
	notifier  notify.Notifier
	logger    *slog.Logger
}

// New создает interceptor
// next транспорт для исходных запросов, refresher ходит через cookie клиент без bearer
func New(next Doer, session Session, refresher Refresher, notifier notify.Notifier, logger *slog.Logger) *Client {
	return &Client{
		next:      next,
		session:   session,
		refresher: refresher,
		notifier:  notifier,
		logger:    logger,
	}
}

// Do отправляет запрос с bearer token
// На 401 выполняется один refresh и один повтор запроса
// Если повтор снова получает 401, сессия завершается (Logout) и возвращается
// ErrSessionExpired, а не ответ 401: новый токен уже отклонен сервером
// 403 вне refresh маршрута также завершает сессию с ErrForbidden
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if err := ensureReplayable(req); err != nil {
		return nil, err
	}

	resp, err := c.send(req, c.session.AccessToken())
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !isRefreshRequest(req) {
		drain(resp)

		token, err := c.refresher.RefreshToken(ctx)
		if err != nil {
			c.logger.DebugContext(ctx, "token refresh failed", slog.Any("error", err))
			return nil, c.endSession(ctx, NoticeSessionExpired, fmt.Errorf("%w: %w", ErrSessionExpired, err))
		}
		if err := c.session.SetAccessToken(ctx, token); err != nil {
			// Токен в памяти уже обновлен, повтор запроса возможен
			c.logger.WarnContext(ctx, "failed to persist refreshed token", slog.Any("error", err))
		}

		replay, err := rewind(req)
		if err != nil {
			return nil, err
		}
		resp, err = c.send(replay, token)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			return nil, c.endSession(ctx, NoticeSessionExpired, ErrSessionExpired)
		}
	}

	switch {
	case resp.StatusCode == http.StatusForbidden && !isRefreshRequest(req):
		drain(resp)
		return nil, c.endSession(ctx, NoticeAccessDenied, ErrForbidden)
	case resp.StatusCode >= http.StatusInternalServerError:
		c.notifier.Notify(notify.LevelError, NoticeServerError)
	}

	return resp, nil
}

func (c *Client) send(req *http.Request, token string) (*http.Response, error) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Del("Authorization")
	}

	resp, err := c.next.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.notifier.Notify(notify.LevelError, NoticeNetworkError)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) endSession(ctx context.Context, notice string, cause error) error {
	if err := c.session.Logout(ctx); err != nil {
		c.logger.WarnContext(ctx, "failed to clear session", slog.Any("error", err))
	}
	c.notifier.Notify(notify.LevelError, notice)
	return cause
}

// ensureReplayable буферизует тело, если запрос нельзя повторить через GetBody
func ensureReplayable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}

	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to buffer request body: %w", err)
	}

	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return nil
}

// rewind возвращает копию запроса с телом с начала
func rewind(req *http.Request) (*http.Request, error) {
	replay := req.Clone(req.Context())
	if req.GetBody == nil {
		return replay, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to rewind request body: %w", err)
	}
	replay.Body = body
	return replay, nil
}

func isRefreshRequest(req *http.Request) bool {
	return strings.HasSuffix(req.URL.Path, refreshPath)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
