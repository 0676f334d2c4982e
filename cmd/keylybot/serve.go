package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/Salmanazari/keylybot/internal/ai"
	"github.com/Salmanazari/keylybot/internal/channel/telegram"
	"github.com/Salmanazari/keylybot/internal/config"
	"github.com/Salmanazari/keylybot/internal/db"
	"github.com/Salmanazari/keylybot/internal/dedup"
	"github.com/Salmanazari/keylybot/internal/handlers"
	"github.com/Salmanazari/keylybot/internal/listing"
	"github.com/Salmanazari/keylybot/internal/logger"
	"github.com/Salmanazari/keylybot/internal/media"
	"github.com/Salmanazari/keylybot/internal/server"
	"github.com/Salmanazari/keylybot/internal/session"
	"github.com/Salmanazari/keylybot/internal/storage"
	"github.com/Salmanazari/keylybot/internal/webhook"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideSessionStore,
			provideSessionSweeper,
			provideDedupFilter,
			provideAIClient,
			provideObjectStore,
			provideTelegramAdapter,
			provideMediaService,
			provideSheetsAppender,
			provideListingService,
			provideProcessor,
			handlers.NewPingHandler,
			provideWebhookHandler,
			provideServer,
		),
		fx.Invoke(
			startSessionSweeper,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func runMigrate() error {
	cfg, err := provideConfig()
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	if err := db.Migrate(cfg.Postgres); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.L.Info("migrations applied")
	return nil
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.Postgres); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideSessionStore(log *slog.Logger, conn *pgxpool.Pool, cfg config.Config) *session.Store {
	return session.NewStore(log, conn, cfg.Session.SessionTimeout())
}

func provideSessionSweeper(log *slog.Logger, store *session.Store, cfg config.Config) (*session.Sweeper, error) {
	return session.NewSweeper(log, store, cfg.Session.SweepSchedule)
}

func provideDedupFilter(cfg config.Config) *dedup.Filter {
	return dedup.NewFilter(cfg.Session.DedupCapacity)
}

func provideAIClient(log *slog.Logger, cfg config.Config) *ai.Client {
	return ai.NewClient(log, cfg.OpenAI)
}

func provideObjectStore(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (*storage.GCS, error) {
	store, err := storage.New(context.Background(), log, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { return store.Close() }})
	return store, nil
}

func provideTelegramAdapter(log *slog.Logger, cfg config.Config) (*telegram.Adapter, error) {
	return telegram.NewAdapter(log, cfg.Telegram)
}

func provideMediaService(log *slog.Logger, adapter *telegram.Adapter, store *storage.GCS, client *ai.Client) *media.Service {
	return media.NewService(log, adapter, store, client)
}

func provideSheetsAppender(cfg config.Config) (*listing.SheetsAppender, error) {
	return listing.NewSheetsAppender(context.Background(), cfg.Sheets)
}

func provideListingService(log *slog.Logger, appender *listing.SheetsAppender) *listing.Service {
	return listing.NewService(log, appender)
}

func provideProcessor(log *slog.Logger, filter *dedup.Filter, sessions *session.Store, mediaService *media.Service, listings *listing.Service, adapter *telegram.Adapter) *webhook.Processor {
	return webhook.NewProcessor(log, filter, sessions, mediaService, listings, adapter)
}

func provideWebhookHandler(log *slog.Logger, proc *webhook.Processor, cfg config.Config) *handlers.TelegramWebhookHandler {
	return handlers.NewTelegramWebhookHandler(log, proc, cfg.Telegram.WebhookSecret)
}

func provideServer(cfg config.Config, log *slog.Logger, pingHandler *handlers.PingHandler, webhookHandler *handlers.TelegramWebhookHandler) *server.Server {
	return server.NewServer(cfg.Server.Addr, log, pingHandler, webhookHandler)
}

func startSessionSweeper(lc fx.Lifecycle, sweeper *session.Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { sweeper.Start(); return nil },
		OnStop:  func(ctx context.Context) error { return sweeper.Stop(ctx) },
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, proc *webhook.Processor, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			// Accepted events are drained, not dropped.
			proc.Wait()
			return nil
		},
	})
}
