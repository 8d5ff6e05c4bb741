package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/inventory/internal/client/api"
	"github.com/iudanet/inventory/internal/client/cli"
	"github.com/iudanet/inventory/internal/client/interceptor"
	"github.com/iudanet/inventory/internal/client/iocli"
	"github.com/iudanet/inventory/internal/client/notify"
	"github.com/iudanet/inventory/internal/client/session"
	"github.com/iudanet/inventory/internal/client/storage/boltdb"
	"github.com/iudanet/inventory/internal/logging"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const requestTimeout = 30 * time.Second

func main() {
	defaultServer := os.Getenv("INVENTORY_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}

	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", defaultServer, "Server URL")
	dbPath := flag.String("db", "inventory-client.db", "Path to local session database")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	stdio := iocli.NewStdio()
	if flag.NArg() == 0 {
		cli.New(stdio, nil, nil, nil).PrintUsage()
		os.Exit(1)
	}

	if err := run(*serverURL, *dbPath, stdio, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(serverURL, dbPath string, stdio iocli.IO, args []string) error {
	logger := logging.New(os.Stderr, "development", envOr("INVENTORY_LOG_LEVEL", "warn"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	boltStorage, err := boltdb.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	sess, err := session.New(boltStorage, serverURL, logger)
	if err != nil {
		return err
	}
	if err := sess.Init(ctx); err != nil {
		return err
	}

	// Публичный клиент носит refresh cookie, защищенный идет через interceptor
	public := api.NewClient(serverURL, &http.Client{Jar: sess.Jar(), Timeout: requestTimeout})
	authed := api.NewClient(serverURL, interceptor.New(
		&http.Client{Timeout: requestTimeout},
		sess,
		public,
		notify.NewWriter(os.Stderr),
		logger,
	))

	return cli.New(stdio, public, authed, sess).Run(ctx, args)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printVersion() {
	fmt.Printf("Inventory Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
