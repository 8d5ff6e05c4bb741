package interceptor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/inventory/internal/client/notify"
)

type fakeSession struct {
	token   string
	logouts int
	mu      sync.Mutex
}

func (s *fakeSession) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *fakeSession) SetAccessToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *fakeSession) Logout(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.logouts++
	return nil
}

type fakeRefresher struct {
	err   error
	token string
	calls atomic.Int32
}

func (r *fakeRefresher) RefreshToken(context.Context) (string, error) {
	r.calls.Add(1)
	return r.token, r.err
}

type recordingNotifier struct {
	messages []string
	mu       sync.Mutex
}

func (n *recordingNotifier) Notify(_ notify.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tokenServer принимает только bearer "good", тело POST возвращает обратно
func tokenServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"Invalid or expired access token"}`))
			return
		}
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestClient_AttachesBearer(t *testing.T) {
	var hits atomic.Int32
	ts := tokenServer(t, &hits)
	refresher := &fakeRefresher{}
	c := New(ts.Client(), &fakeSession{token: "good"}, refresher, &recordingNotifier{}, testLogger())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/products", strings.NewReader("payload"))
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "payload", readBody(t, resp))
	assert.Equal(t, int32(0), refresher.calls.Load())
}

func TestClient_RefreshAndReplayOnce(t *testing.T) {
	var hits atomic.Int32
	ts := tokenServer(t, &hits)
	sess := &fakeSession{token: "stale"}
	refresher := &fakeRefresher{token: "good"}
	notes := &recordingNotifier{}
	c := New(ts.Client(), sess, refresher, notes, testLogger())

	// Тело без GetBody буферизуется для повтора
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/products", io.NopCloser(strings.NewReader(`{"name":"Widget"}`)))
	require.NoError(t, err)
	req.GetBody = nil

	resp, err := c.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"name":"Widget"}`, readBody(t, resp))

	assert.Equal(t, int32(1), refresher.calls.Load(), "exactly one refresh")
	assert.Equal(t, int32(2), hits.Load(), "original + one replay")
	assert.Equal(t, "good", sess.AccessToken())
	assert.Empty(t, notes.all())
}

func TestClient_RefreshFails(t *testing.T) {
	var hits atomic.Int32
	ts := tokenServer(t, &hits)
	sess := &fakeSession{token: "stale"}
	refresher := &fakeRefresher{err: errors.New("Refresh token not found")}
	notes := &recordingNotifier{}
	c := New(ts.Client(), sess, refresher, notes, testLogger())

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/auth/me", nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	assert.Nil(t, resp)
	require.ErrorIs(t, err, ErrSessionExpired)

	assert.Equal(t, 1, sess.logouts)
	assert.Equal(t, []string{NoticeSessionExpired}, notes.all())
	assert.Equal(t, int32(1), hits.Load(), "no replay after failed refresh")
}

func TestClient_ReplayStillUnauthorized(t *testing.T) {
	var hits atomic.Int32
	ts := tokenServer(t, &hits)
	sess := &fakeSession{token: "stale"}
	refresher := &fakeRefresher{token: "also-bad"}
	notes := &recordingNotifier{}
	c := New(ts.Client(), sess, refresher, notes, testLogger())

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/products", nil)
	require.NoError(t, err)

	// Второй 401 не возвращается вызывающему: сессия завершается
	resp, err := c.Do(req)
	assert.Nil(t, resp)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(1), refresher.calls.Load(), "no refresh loop")
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 1, sess.logouts)
	assert.Equal(t, []string{NoticeSessionExpired}, notes.all())
}

func TestClient_ForbiddenLogsOut(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	sess := &fakeSession{token: "good"}
	notes := &recordingNotifier{}
	c := New(ts.Client(), sess, &fakeRefresher{}, notes, testLogger())

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/products", nil)
	require.NoError(t, err)

	_, err = c.Do(req)
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 1, sess.logouts)
	assert.Equal(t, []string{NoticeAccessDenied}, notes.all())
}

func TestClient_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	sess := &fakeSession{token: "good"}
	notes := &recordingNotifier{}
	c := New(ts.Client(), sess, &fakeRefresher{}, notes, testLogger())

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/products", nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, []string{NoticeServerError}, notes.all())
	assert.Equal(t, 0, sess.logouts)
}

type brokenDoer struct{}

func (brokenDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestClient_NetworkError(t *testing.T) {
	notes := &recordingNotifier{}
	c := New(brokenDoer{}, &fakeSession{token: "good"}, &fakeRefresher{}, notes, testLogger())

	req, err := http.NewRequest(http.MethodGet, "http://localhost:1/api/products", nil)
	require.NoError(t, err)

	_, err = c.Do(req)
	require.Error(t, err)
	assert.Equal(t, []string{NoticeNetworkError}, notes.all())
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := New(ts.Client(), &fakeSession{}, &fakeRefresher{}, &recordingNotifier{}, testLogger())
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
}

func TestClient_ConcurrentUnauthorized(t *testing.T) {
	var hits atomic.Int32
	ts := tokenServer(t, &hits)
	sess := &fakeSession{token: "stale"}
	refresher := &fakeRefresher{token: "good"}
	c := New(ts.Client(), sess, refresher, &recordingNotifier{}, testLogger())

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/products", nil)
			if err != nil {
				errs <- err
				return
			}
			resp, err := c.Do(req)
			if err != nil {
				errs <- err
				return
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				errs <- errors.New(resp.Status)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	calls := refresher.calls.Load()
	assert.GreaterOrEqual(t, calls, int32(1))
	assert.LessOrEqual(t, calls, int32(n))
	assert.Equal(t, 0, sess.logouts)
}
