package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transport-register/internal/cache"
	"transport-register/internal/config"
	"transport-register/internal/docstore"
	"transport-register/internal/docstore/appwrite"
	"transport-register/internal/docstore/postgres"
	"transport-register/internal/export"
	"transport-register/internal/handlers"
	"transport-register/internal/metrics"
	"transport-register/internal/notify"
	"transport-register/internal/repository"
	"transport-register/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx := context.Background()
	m := metrics.New()

	// Connect to document store
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DocStore.Driver).Msg("Failed to open document store")
	}
	defer closeStore()
	store = docstore.Instrument(store, m)
	log.Info().Str("driver", cfg.DocStore.Driver).Msg("Document store ready")

	// Initialize optional integrations
	listCache, closeCache := openCache(ctx, cfg)
	defer closeCache()

	notifier := buildNotifier(cfg)

	exporter, err := buildExporter(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("sink", cfg.Export.Sink).Msg("Failed to create exporter")
	}

	// Initialize repositories
	regRepo := repository.NewRegistrationRepository(store, cfg.DocStore.DatabaseID, cfg.DocStore.RegistrationsCollection, cfg.DocStore.PageLimit)
	walletRepo := repository.NewWalletRepository(store, cfg.DocStore.DatabaseID, cfg.DocStore.WalletsCollection, cfg.DocStore.PageLimit)

	// Initialize services
	wsHub := services.NewWSHub()
	scheduler := services.NewDeleteScheduler()
	authService := services.NewAuthService(cfg.Admin.PasswordHash, cfg.JWT.Secret, cfg.JWT.TTL)
	registrationService := services.NewRegistrationService(regRepo, services.RegistrationOptions{
		PageSize:     cfg.Registrations.PageSize,
		RecentWindow: cfg.Registrations.RecentWindow,
		Cache:        listCache,
		Notifier:     notifier,
		Exporter:     exporter,
		Broadcaster:  wsHub,
		Metrics:      m,
	})
	walletService := services.NewWalletService(walletRepo, scheduler, cfg.Wallets.DeleteAfter, wsHub, m)

	// Addresses stored before a restart lost their timers
	if _, err := walletService.SweepExpired(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to sweep expired wallet addresses")
	}

	// Setup router
	r := handlers.NewRouter(handlers.RouterDeps{
		Registrations: registrationService,
		Wallets:       walletService,
		Auth:          authService,
		Hub:           wsHub,
		Metrics:       m.Handler(),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Pending wallet deletions are picked up by the sweep on next start
	scheduler.Close()
	wsHub.CloseAll()

	// Shutdown HTTP server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	registrationService.WaitNotifications()

	log.Info().Msg("Server exited")
}

// openStore builds the configured document store driver
func openStore(ctx context.Context, cfg *config.Config) (docstore.Store, func(), error) {
	switch cfg.DocStore.Driver {
	case "appwrite":
		client := appwrite.New(cfg.DocStore.Endpoint, cfg.DocStore.ProjectID, cfg.DocStore.APIKey, cfg.DocStore.Timeout)
		return client, func() {}, nil

	case "postgres":
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		store := postgres.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info().Msg("Database connection established")
		return store, db.Close, nil

	case "memory":
		log.Warn().Msg("Using in-memory document store, data is lost on restart")
		return docstore.NewMemory(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown docstore driver %q", cfg.DocStore.Driver)
}

// openCache connects the list cache, falling back to no cache
func openCache(ctx context.Context, cfg *config.Config) (cache.ListCache, func()) {
	if cfg.Redis.URL == "" {
		return cache.Noop{}, func() {}
	}
	rc, err := cache.NewRedis(ctx, cfg.Redis.URL, cfg.Redis.TTL)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to redis, list cache disabled")
		return cache.Noop{}, func() {}
	}
	log.Info().Dur("ttl", cfg.Redis.TTL).Msg("Registration list cache enabled")
	return rc, func() { rc.Close() }
}

// buildNotifier collects the configured coordinator channels
func buildNotifier(cfg *config.Config) notify.Notifier {
	var multi notify.Multi

	if cfg.Telegram.Token != "" && len(cfg.Telegram.ChatIDs) > 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatIDs)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create telegram notifier")
		} else {
			multi = append(multi, tg)
		}
	}

	if cfg.APNs.KeyFile != "" && len(cfg.APNs.DeviceTokens) > 0 {
		push, err := notify.NewAPNs(cfg.APNs.KeyFile, cfg.APNs.KeyID, cfg.APNs.TeamID, cfg.APNs.Topic, cfg.APNs.DeviceTokens, cfg.APNs.Production)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create APNs notifier")
		} else {
			multi = append(multi, push)
		}
	}

	if len(multi) == 0 {
		return nil
	}
	return multi
}

// buildExporter creates the configured export sink. No sink means only
// the CSV download is available.
func buildExporter(ctx context.Context, cfg *config.Config) (export.Exporter, error) {
	switch cfg.Export.Sink {
	case "s3":
		e, err := export.NewS3Exporter(ctx,
			cfg.AWS.Region,
			cfg.AWS.S3Bucket,
			cfg.AWS.AccessKey,
			cfg.AWS.SecretKey,
			cfg.AWS.Endpoint,
			cfg.AWS.URLExpiry,
		)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "sheets":
		e, err := export.NewSheetsExporter(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, nil
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
