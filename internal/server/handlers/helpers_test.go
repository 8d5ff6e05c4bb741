package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/inventory/internal/crypto"
	"github.com/iudanet/inventory/internal/server/auth"
	"github.com/iudanet/inventory/internal/server/google"
	"github.com/iudanet/inventory/internal/server/products"
	"github.com/iudanet/inventory/internal/server/storage/sqldb"
	"github.com/iudanet/inventory/internal/server/token"
	"github.com/iudanet/inventory/internal/validation"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureMailer запоминает последний токен подтверждения
type captureMailer struct {
	tokens map[string]string
	mu     sync.Mutex
}

func (m *captureMailer) SendVerification(_ context.Context, email, _ string, tok string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[email] = tok
	return nil
}

func (m *captureMailer) token(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[email]
}

type stubGoogle struct {
	identity *google.Identity
	err      error
}

func (g *stubGoogle) Verify(context.Context, string) (*google.Identity, error) {
	return g.identity, g.err
}

type testServer struct {
	auth     *AuthHandler
	products *ProductHandler
	health   *HealthHandler
	store    *sqldb.Storage
	tokens   *token.Service
	mailer   *captureMailer
	google   *stubGoogle
}

func setupTestServer(t *testing.T, production bool) *testServer {
	t.Helper()

	store, err := sqldb.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tokens, err := token.NewService(token.Config{
		Access:            token.Key{Secret: []byte("access"), TTL: 24 * time.Hour},
		Refresh:           token.Key{Secret: []byte("refresh"), TTL: 7 * 24 * time.Hour},
		EmailVerification: token.Key{Secret: []byte("verify"), TTL: 7 * 24 * time.Hour},
	})
	require.NoError(t, err)

	logger := setupTestLogger()
	mailer := &captureMailer{tokens: map[string]string{}}
	g := &stubGoogle{}
	v := validation.New()
	errs := NewErrorWriter(logger, production)

	authSvc := auth.NewService(logger, store, tokens, crypto.NewPasswordHasher(4), mailer, g)
	productSvc := products.NewService(logger, store)

	return &testServer{
		auth:     NewAuthHandler(logger, authSvc, v, errs, production),
		products: NewProductHandler(logger, productSvc, v, errs),
		health:   NewHealthHandler(logger, store, errs),
		store:    store,
		tokens:   tokens,
		mailer:   mailer,
		google:   g,
	}
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func refreshCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == RefreshCookieName {
			return c
		}
	}
	return nil
}
