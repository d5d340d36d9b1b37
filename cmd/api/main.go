package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"dealdesk/auth"
	"dealdesk/config"
	"dealdesk/db"
	"dealdesk/deal"
	"dealdesk/geocode"
	"dealdesk/logger"
	"dealdesk/metrics"
	"dealdesk/notify"
	"dealdesk/storage"
)

const (
	commandServe   = "serve"
	commandMigrate = "migrate"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		log.Fatalf("dealdesk: %v", err)
	}
}

func parseCommand(args []string) string {
	if len(args) == 0 {
		return commandServe
	}
	return args[0]
}

// run loads configuration from CONFIG_PATH (optional) and the environment,
// then dispatches the subcommand.
func run(w io.Writer, args []string) error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}
	lg := logger.SetupDefault(w, cfg.LogLevel)

	switch cmd := parseCommand(args); cmd {
	case commandServe:
		return serve(cfg, lg)
	case commandMigrate:
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			return err
		}
		lg.Info("migrations applied")
		return nil
	default:
		return fmt.Errorf("unknown command %q (want %s or %s)", cmd, commandServe, commandMigrate)
	}
}

func serve(cfg config.Config, lg *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("bootstrap database pool: %w", err)
	}
	defer pool.Close()

	hash := cfg.AdminPasswordHash
	if hash == "" {
		hash, err = auth.HashPassword(cfg.AdminPassword, 0)
		if err != nil {
			return err
		}
		lg.Warn("ADMIN_PASSWORD is set in plaintext; prefer ADMIN_PASSWORD_HASH")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	codec := auth.NewTokenCodec(cfg.JWTSecret)
	guard := auth.NewGuard(codec, lg, collector)
	authService := auth.NewService(auth.NewStaticCredentials(hash), codec, lg, collector)

	presigner, err := storage.NewS3Presigner(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	handoff := storage.NewHandoff(presigner, cfg.Storage.Bucket)

	dispatcher := notify.NewDispatcher(
		&http.Client{Timeout: cfg.Webhooks.Timeout},
		lg,
		cfg.Webhooks.DealDescriptionURL,
		cfg.Webhooks.JvAgreementURL,
	)
	geocoder := geocode.NewClient(&http.Client{Timeout: 10 * time.Second}, lg, cfg.Geocode.Endpoint, cfg.Geocode.APIKey)

	dealService := deal.NewService(guard, deal.NewRepository(pool), handoff, dispatcher, lg).
		WithGeocoder(geocoder).
		WithRecorder(collector)

	server := NewServer(ServerDeps{
		Guard:        guard,
		DealService:  dealService,
		AuthService:  authService,
		Logger:       lg,
		Collector:    collector,
		Gatherer:     reg,
		CORSOrigin:   cfg.CORSAllowedOrigin,
		CookieSecure: cfg.CookieSecure,
		LoginRate:    cfg.LoginRatePerMinute,
		SubmitRate:   cfg.SubmitRatePerMinute,
	})
	defer server.close()
	server.loginLimit.startSweeper(5 * time.Minute)
	server.submitLimit.startSweeper(5 * time.Minute)

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Webhooks.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("api server starting", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	lg.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	lg.Info("api server stopped")
	return nil
}
