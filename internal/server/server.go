// Package server собирает HTTP API: маршруты, middleware и graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/iudanet/inventory/internal/crypto"
	"github.com/iudanet/inventory/internal/server/auth"
	"github.com/iudanet/inventory/internal/server/config"
	"github.com/iudanet/inventory/internal/server/google"
	"github.com/iudanet/inventory/internal/server/handlers"
	"github.com/iudanet/inventory/internal/server/mail"
	"github.com/iudanet/inventory/internal/server/middleware"
	"github.com/iudanet/inventory/internal/server/products"
	"github.com/iudanet/inventory/internal/server/storage/sqldb"
	"github.com/iudanet/inventory/internal/server/token"
	"github.com/iudanet/inventory/internal/validation"
)

const shutdownTimeout = 10 * time.Second

// Server HTTP сервер приложения
type Server struct {
	logger  *slog.Logger
	cfg     *config.Config
	limiter *middleware.RateLimiter
	handler http.Handler
}

// New собирает сервисы и маршруты поверх открытого хранилища
// sender доставляет письма, verifier проверяет Google ID токены
func New(cfg *config.Config, logger *slog.Logger, store *sqldb.Storage, sender mail.Sender, verifier google.Verifier) (*Server, error) {
	tokens, err := token.NewService(token.Config{
		Access:            token.Key{Secret: []byte(cfg.JWT.AccessSecret), TTL: cfg.JWT.AccessTTL},
		Refresh:           token.Key{Secret: []byte(cfg.JWT.RefreshSecret), TTL: cfg.JWT.RefreshTTL},
		EmailVerification: token.Key{Secret: []byte(cfg.JWT.VerifyEmailSecret), TTL: cfg.JWT.VerifyEmailTTL},
	})
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	production := cfg.IsProduction()
	errs := handlers.NewErrorWriter(logger, production)
	v := validation.New()

	mailer := mail.NewVerificationMailer(sender, cfg.FrontendURL, cfg.JWT.VerifyEmailTTL)
	authService := auth.NewService(logger, store, tokens, crypto.NewPasswordHasher(cfg.BcryptCost), mailer, verifier)
	productService := products.NewService(logger, store)

	authHandler := handlers.NewAuthHandler(logger, authService, v, errs, production)
	productHandler := handlers.NewProductHandler(logger, productService, v, errs)
	healthHandler := handlers.NewHealthHandler(logger, store, errs)

	requireAuth := middleware.AuthMiddleware(logger, tokens, errs)
	protected := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/signUp", authHandler.SignUp)
	mux.HandleFunc("POST /api/auth/signIn", authHandler.SignIn)
	mux.HandleFunc("GET /api/auth/verify-email", authHandler.VerifyEmail)
	mux.HandleFunc("POST /api/auth/resend-verification", authHandler.ResendVerification)
	mux.HandleFunc("POST /api/auth/google-signIn", authHandler.GoogleSignIn)
	mux.HandleFunc("GET /api/auth/refresh-token", authHandler.RefreshToken)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.Handle("GET /api/auth/me", protected(authHandler.Me))

	mux.Handle("POST /api/products", protected(productHandler.Create))
	mux.Handle("GET /api/products", protected(productHandler.List))
	mux.Handle("PUT /api/products/{id}", protected(productHandler.Update))
	mux.Handle("DELETE /api/products/{id}", protected(productHandler.Delete))

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("/", errs.NotFound)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, logger)
	if cfg.RateLimit.TrustProxy {
		limiter.TrustProxyHeaders()
	}

	// Порядок: recovery -> logging -> CORS -> rate limit -> маршруты
	var handler http.Handler = mux
	handler = limiter.Middleware("/api/auth/", errs)(handler)
	handler = middleware.CORSMiddleware(cfg.FrontendURL)(handler)
	handler = middleware.LoggingMiddleware(logger, "/health")(handler)
	handler = middleware.RecoveryMiddleware(logger, errs)(handler)

	return &Server{
		logger:  logger,
		cfg:     cfg,
		limiter: limiter,
		handler: handler,
	}, nil
}

// Handler возвращает корневой http.Handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run слушает cfg.Addr до отмены ctx, затем завершает активные запросы
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает запросы на ln до отмены ctx
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	go s.limiter.Run(limiterCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server started",
			slog.String("addr", ln.Addr().String()),
			slog.String("env", s.cfg.Env))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
