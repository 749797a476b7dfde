package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edtriage/edtriage/internal/config"
	"github.com/edtriage/edtriage/internal/domain/facility"
	"github.com/edtriage/edtriage/internal/domain/forecast"
	"github.com/edtriage/edtriage/internal/domain/options"
	"github.com/edtriage/edtriage/internal/domain/patient"
	"github.com/edtriage/edtriage/internal/platform/classify"
	"github.com/edtriage/edtriage/internal/platform/db"
	"github.com/edtriage/edtriage/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "triage-server",
		Short: "Emergency department intake and triage API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the triage API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required to run migrations")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required to inspect migrations")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Store selection: durable when the database is reachable, in-memory
	// fallback otherwise. The fallback keeps the intake kiosk alive through
	// a database outage at the cost of durability.
	ctx := context.Background()
	var pool *pgxpool.Pool
	var repo patient.Repository
	var history forecast.HistoryRepository

	if cfg.DatabaseURL != "" {
		pool, err = db.Probe(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, 5*time.Second)
		if err != nil && !cfg.AllowMemoryStore {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		if err != nil {
			logger.Warn().Err(err).Msg("database unreachable, falling back to in-memory store")
		}
	}

	if pool != nil {
		defer pool.Close()
		repo = patient.NewRepoPG(pool)
		history = forecast.NewHistoryPG(pool)
		logger.Info().Msg("connected to database")
	} else {
		memRepo := patient.NewRepoMemory()
		repo = memRepo
		history = forecast.NewHistoryFromStore(memRepo, logger)
		logger.Warn().Msg("running with in-memory store; records will not survive restarts")
	}

	// Classifier: without a credential every intake degrades to the default
	// acuity instead of failing.
	var oracle classify.Oracle
	if cfg.GeminiAPIKey != "" {
		oracle, err = classify.NewGeminiOracle(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.ClassifyTimeout())
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build classifier")
		}
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set; all intakes will receive the default acuity")
	}
	classifier := classify.New(oracle, cfg.ClassifyTimeout(), logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", db.HealthHandler(pool))

	api := e.Group("/api")

	patientSvc := patient.NewService(repo, classifier, logger)
	patient.NewHandler(patientSvc).RegisterRoutes(api)

	options.NewHandler().RegisterRoutes(api)

	geoip := facility.NewGeoIP(cfg.IPInfoBaseURL, nil, logger)

	forecastSvc := forecast.NewService(history, logger)
	forecast.NewHandler(forecastSvc, geoip).RegisterRoutes(api)

	var places *facility.PlacesClient
	if cfg.MapsAPIKey != "" {
		places, err = facility.NewPlacesClient(cfg.MapsAPIKey, cfg.FacilityRadiusM)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build places client")
		}
	} else {
		logger.Warn().Msg("MAPS_API_KEY not set; the nearby facility list will be empty")
	}
	facility.NewHandler(geoip, places, logger).RegisterRoutes(api)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting triage server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server start failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
