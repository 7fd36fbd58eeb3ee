package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kumabridgehq/bridge/internal/bulk"
	"github.com/kumabridgehq/bridge/internal/config"
	"github.com/kumabridgehq/bridge/internal/health"
	"github.com/kumabridgehq/bridge/internal/kuma"
	"github.com/kumabridgehq/bridge/internal/logging"
	"github.com/kumabridgehq/bridge/internal/metrics"
	"github.com/kumabridgehq/bridge/internal/server"
)

const shutdownGrace = 10 * time.Second

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "kumabridge: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("kumabridge", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultConfigPath, "Path to bridge configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New()
	store := metrics.NewStore()

	client, err := kuma.NewClient(kuma.Config{
		BaseURL:      cfg.Kuma.URL,
		Username:     cfg.Kuma.Username,
		Password:     cfg.Kuma.Password,
		Token:        cfg.Kuma.Token,
		CallTimeout:  cfg.Kuma.CallTimeout(),
		LoginTimeout: cfg.Kuma.LoginTimeout(),
	}, kuma.Dependencies{
		Logger:  logger,
		Metrics: store,
	})
	if err != nil {
		return fmt.Errorf("build channel client: %w", err)
	}

	srv := server.New(server.Config{
		Addr:         cfg.Addr(),
		ReadTimeout:  cfg.API.ReadTimeout(),
		WriteTimeout: cfg.API.WriteTimeout(),
		IdleTimeout:  cfg.API.IdleTimeout(),
		CallTimeout:  cfg.Kuma.CallTimeout(),
		Pace:         cfg.Bulk.Pace(),
	}, server.Dependencies{
		Logger:  logger,
		Client:  client,
		Metrics: store,
		Health:  health.NewChecker(client, cfg.Kuma.StaleAfter()),
		Runner:  bulk.NewRunner(cfg.Bulk.Pace()),
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.Run(gctx)
	})
	g.Go(func() error {
		logger.Printf("REST facade listening on %s (upstream %s)", cfg.Addr(), cfg.Kuma.URL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
