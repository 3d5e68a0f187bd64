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

	"github.com/frahmantamala/association-treasury/internal"
	"github.com/frahmantamala/association-treasury/internal/alert"
	"github.com/frahmantamala/association-treasury/internal/association"
	associationPostgres "github.com/frahmantamala/association-treasury/internal/association/postgres"
	"github.com/frahmantamala/association-treasury/internal/core/events"
	"github.com/frahmantamala/association-treasury/internal/loan"
	loanPostgres "github.com/frahmantamala/association-treasury/internal/loan/postgres"
	"github.com/frahmantamala/association-treasury/internal/notification"
	"github.com/frahmantamala/association-treasury/internal/request"
	requestPostgres "github.com/frahmantamala/association-treasury/internal/request/postgres"
	"github.com/frahmantamala/association-treasury/internal/transport/middleware"
	"github.com/frahmantamala/association-treasury/internal/transport/rest"
	"github.com/frahmantamala/association-treasury/internal/treasury"
	treasuryPostgres "github.com/frahmantamala/association-treasury/internal/treasury/postgres"
	"github.com/frahmantamala/association-treasury/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm over pgx pool: %w", err)
	}

	// event bus with notification fan-out
	eventBus := events.NewEventBus(lg)
	notifier := notification.NewSlogNotifier(lg)
	notifier.RegisterEventHandlers(eventBus)

	// repositories
	requestRepo := requestPostgres.NewRequestRepository(gormDB)
	loanRepo := loanPostgres.NewLoanRepository(gormDB)
	associationRepo := associationPostgres.NewAssociationRepository(gormDB)
	treasuryReader := treasuryPostgres.NewTreasuryReader(gormDB)

	// services
	associationService := association.NewService(
		associationRepo,
		config.Treasury.DefaultLowBalanceThreshold,
		config.Treasury.DefaultCurrency,
		lg,
	)
	treasuryService := treasury.NewService(treasuryReader, lg)
	requestService := request.NewService(
		requestRepo,
		treasuryService,
		associationService,
		associationService,
		notifier,
		eventBus,
		config.Treasury.DecideRetries,
		lg,
	)
	loanService := loan.NewService(loanRepo, requestRepo, notifier, eventBus, lg)
	alertService := alert.NewService(treasuryService, associationService, loanService, requestRepo, lg)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.RouterDeps{
		DB:              db.DB,
		Authenticator:   middleware.NewAuthenticator(config.Security.JWTSecret, lg),
		RequestHandler:  request.NewHandler(requestService),
		LoanHandler:     loan.NewHandler(loanService),
		TreasuryHandler: treasury.NewHandler(treasuryService),
		AlertHandler:    alert.NewHandler(alertService),
		AllowedOrigins:  config.Server.AllowedOrigins,
		Logger:          lg,
	})

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		Router: router,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
