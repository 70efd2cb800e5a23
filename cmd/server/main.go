package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flagpost/internal/access"
	"flagpost/internal/config"
	"flagpost/internal/content"
	"flagpost/internal/database/boltstore"
	"flagpost/internal/database/sqlitestore"
	"flagpost/internal/handlers"
	"flagpost/internal/metrics"
	"flagpost/internal/notify"
	"flagpost/internal/report"
	"flagpost/internal/routing"
	"flagpost/internal/tracing"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Set log level from environment (default: info)
	logLevel := os.Getenv("LOG_LEVEL")
	switch logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Use pretty console logging in development, JSON in production
	if os.Getenv("LOG_FORMAT") == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Local development convenience; a missing .env is fine
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment from .env")
	}

	log.Info().Msg("Starting Flagpost report moderation server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	tp, err := tracing.Init(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Tracer shutdown failed")
		}
	}()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", string(cfg.Backend)).Str("path", cfg.DBPath).Msg("Failed to open database")
	}
	defer closeStore()

	log.Info().Str("backend", string(cfg.Backend)).Str("path", cfg.DBPath).Msg("Database opened")

	accessService, err := access.NewService(cfg.ModeratorsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.ModeratorsPath).Msg("Failed to load moderator roles")
	}

	var notifier report.Notifier = notify.LogNotifier{}
	emailNotifier := notify.NewEmailNotifier(notify.SMTPConfig{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		User:       cfg.SMTPUser,
		Pass:       cfg.SMTPPass,
		From:       cfg.SMTPFrom,
		AdminEmail: cfg.AdminEmail,
		PublicURL:  cfg.PublicURL,
	})
	if emailNotifier.Enabled() {
		notifier = emailNotifier
		log.Info().Str("admin_email", cfg.AdminEmail).Msg("Email notifications enabled")
	} else {
		log.Info().Msg("Email notifications disabled, logging new reports instead")
	}

	registry := content.NewRegistry()

	service := report.NewService(report.ServiceConfig{
		Store:    store,
		Gate:     report.NewVisibilityGate(cfg.Visibility, store, registry),
		Policy:   report.NewPolicy(cfg.AutoMod, store),
		Notifier: notifier,
		Content:  registry,
	})
	if err := service.LoadCatalogFromStore(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to load reason catalog, using defaults")
	}

	log.Info().
		Bool("auto_hide", cfg.AutoMod.Enabled).
		Int("min_reports", cfg.AutoMod.MinReports).
		Bool("make_private", cfg.Visibility.MakePrivate).
		Msg("Report service initialized")

	metrics.StartCollector(ctx, metrics.StatsSource{
		CountsByStatus: func() map[string]int {
			counts, err := service.ReportCounts(context.Background())
			if err != nil {
				return nil
			}
			return map[string]int{
				"pending":   counts.Pending,
				"resolved":  counts.Resolved,
				"dismissed": counts.Dismissed,
			}
		},
		HiddenCount: func() int {
			hidden, err := service.ListHidden(context.Background())
			if err != nil {
				return 0
			}
			return len(hidden)
		},
	}, time.Minute)

	h := handlers.NewHandler(service, accessService, handlers.Config{
		PublicURL: cfg.PublicURL,
	})

	handler := routing.SetupRouter(routing.Config{
		Handlers: h,
		Logger:   log.Logger,
	})
	handler = otelhttp.NewHandler(handler, "flagpost")

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info().
			Str("address", srv.Addr).
			Str("public_url", cfg.PublicURL).
			Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
	log.Info().Msg("Server stopped")
}

// openStore opens the configured backend and returns the shared report store.
func openStore(ctx context.Context, cfg *config.Config) (report.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := sqlitestore.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return db.ReportStore(), func() { db.Close() }, nil
	default:
		db, err := boltstore.Open(boltstore.Options{Path: cfg.DBPath})
		if err != nil {
			return nil, nil, err
		}
		return db.ReportStore(), func() { db.Close() }, nil
	}
}
