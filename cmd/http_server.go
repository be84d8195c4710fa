package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/academy-portal/internal"
	"github.com/frahmantamala/academy-portal/internal/auth"
	"github.com/frahmantamala/academy-portal/internal/events"
	"github.com/frahmantamala/academy-portal/internal/session"
	"github.com/frahmantamala/academy-portal/internal/session/bolt"
	sessionpostgres "github.com/frahmantamala/academy-portal/internal/session/postgres"
	"github.com/frahmantamala/academy-portal/internal/transport/rest"
	"github.com/frahmantamala/academy-portal/internal/upstream"
	"github.com/frahmantamala/academy-portal/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the portal gateway and serve session and navigation APIs`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

// sessionStorage is what a durable backend must offer: the record
// contract plus a readiness probe.
type sessionStorage interface {
	session.Storage
	rest.Pinger
}

type Dependencies struct {
	Config  *internal.Config
	Logger  *slog.Logger
	Storage sessionStorage
	Store   *session.Store
	Bus     *events.EventBus
	Router  *chi.Mux

	closers []func() error
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	// Rehydration runs concurrently with startup; guards answer
	// "initializing" until it finishes, never a premature redirect.
	go deps.Store.Rehydrate(context.Background())

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		deps.close()
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	deps := &Dependencies{
		Config: config,
		Logger: lg,
	}

	storage, err := initStorage(config.Storage, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	deps.Storage = storage

	bus := events.NewEventBus(lg)
	subscribeNoticeLoggers(bus, lg)
	deps.Bus = bus

	upstreamClient := upstream.NewClient(config.Upstream, lg)
	store := session.NewStore(storage, upstreamClient, bus, lg)
	deps.Store = store

	tokens := auth.NewJWTTokenGenerator(config.Security.TokenSecret, config.Security.AccessTokenTTL)
	authHandler := auth.NewHandler(upstreamClient, store, tokens)
	sessionHandler := session.NewHandler(store)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, config, storage, store, authHandler, sessionHandler, bus, lg)
	deps.Router = router

	return deps, nil
}

func initStorage(cfg internal.StorageConfig, deps *Dependencies) (sessionStorage, error) {
	switch cfg.Backend {
	case internal.StorageBackendPostgres:
		return initPostgresStorage(cfg.Database, deps)
	case internal.StorageBackendMemory:
		return session.NewMemoryStorage(), nil
	default:
		storage, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, storage.Close)
		return storage, nil
	}
}

func initPostgresStorage(cfg internal.DatabaseConfig, deps *Dependencies) (sessionStorage, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	deps.closers = append(deps.closers, dbConn.Close)

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: dbConn.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	return sessionpostgres.NewStorage(gormDB), nil
}

// subscribeNoticeLoggers mirrors user-facing notices into the server
// log so operators of the gateway itself can see them.
func subscribeNoticeLoggers(bus *events.EventBus, lg *slog.Logger) {
	bus.Subscribe(events.EventTypePasswordChangeRequired, func(ctx context.Context, e events.Event) error {
		lg.Warn("password change required", "event_id", e.EventID(), "payload", e.Payload())
		return nil
	})
	bus.Subscribe(events.EventTypeLoginFailed, func(ctx context.Context, e events.Event) error {
		lg.Warn("login failed", "event_id", e.EventID(), "payload", e.Payload())
		return nil
	})
	bus.Subscribe(events.EventTypeSessionDefined, func(ctx context.Context, e events.Event) error {
		lg.Info("active period defined", "event_id", e.EventID(), "payload", e.Payload())
		return nil
	})
	bus.Subscribe(events.EventTypeSessionCleared, func(ctx context.Context, e events.Event) error {
		lg.Info("active period cleared", "event_id", e.EventID())
		return nil
	})
}

func (d *Dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			slog.Error("failed to close dependency", "error", err)
		}
	}
}
