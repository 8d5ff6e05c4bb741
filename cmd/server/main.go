package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/inventory/internal/logging"
	"github.com/iudanet/inventory/internal/server"
	"github.com/iudanet/inventory/internal/server/config"
	"github.com/iudanet/inventory/internal/server/google"
	"github.com/iudanet/inventory/internal/server/mail"
	"github.com/iudanet/inventory/internal/server/storage/sqldb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqldb.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	logger.Info("database ready", slog.String("dialect", string(sqldb.DialectFromDSN(cfg.DatabaseDSN))))

	sender, err := newSender(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.GoogleClientID == "" {
		logger.Warn("GOOGLE_CLIENT_ID is not set, Google sign-in is disabled")
	}

	srv, err := server.New(cfg, logger, store, sender, google.NewIDTokenVerifier(cfg.GoogleClientID))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Run(ctx)
}

func newSender(cfg *config.Config, logger *slog.Logger) (mail.Sender, error) {
	switch cfg.Mail.Provider {
	case config.MailProviderBrevo:
		sender, err := mail.NewBrevoSender(cfg.Mail.APIKey, cfg.Mail.FromEmail, cfg.Mail.FromName)
		if err != nil {
			return nil, fmt.Errorf("failed to create brevo sender: %w", err)
		}
		return sender, nil
	default:
		logger.Warn("mail provider is 'log', verification emails are only logged")
		return mail.NewLogSender(logger), nil
	}
}

func printVersion() {
	fmt.Printf("Inventory Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
