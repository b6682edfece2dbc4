package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/orsched/orsched/internal/config"
	"github.com/orsched/orsched/internal/domain/audit"
	"github.com/orsched/orsched/internal/domain/hospital"
	"github.com/orsched/orsched/internal/domain/inventory"
	"github.com/orsched/orsched/internal/domain/request"
	"github.com/orsched/orsched/internal/domain/schedule"
	"github.com/orsched/orsched/internal/domain/scheduler"
	"github.com/orsched/orsched/internal/platform/auth"
	"github.com/orsched/orsched/internal/platform/cache"
	"github.com/orsched/orsched/internal/platform/db"
	"github.com/orsched/orsched/internal/platform/metrics"
	"github.com/orsched/orsched/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "orsched-server",
		Short: "Operating room scheduling API server",
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
		Short: "Start the scheduling API server",
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

			ctx := context.Background()
			pool, err := db.NewPool(ctx, db.Config{
				URL:      cfg.DatabaseURL,
				MaxConns: cfg.DBMaxConns,
				MinConns: cfg.DBMinConns,
			})
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
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

			ctx := context.Background()
			pool, err := db.NewPool(ctx, db.Config{
				URL:      cfg.DatabaseURL,
				MaxConns: cfg.DBMaxConns,
				MinConns: cfg.DBMinConns,
			})
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
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
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// View cache: Redis when configured, in-process otherwise.
	var views cache.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		views = rc
		logger.Info().Msg("connected to redis")
	} else {
		views = cache.NewMemoryCache()
		logger.Info().Msg("using in-memory view cache")
	}
	defer views.Close()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	// Access trail middleware
	e.Use(middleware.AccessTrail(logger))

	// Repositories
	hospitalRepo := hospital.NewRepoPG(pool)
	roomRepo := inventory.NewOperatingRoomRepoPG(pool)
	staffRepo := inventory.NewStaffRepoPG(pool)
	equipmentRepo := inventory.NewEquipmentRepoPG(pool)
	requestRepo := request.NewRepoPG(pool)
	entryRepo := schedule.NewRepoPG(pool)
	auditRepo := audit.NewRepoPG(pool)

	// Services
	auditSvc := audit.NewService(auditRepo)
	hospitalSvc := hospital.NewService(hospitalRepo)
	inventorySvc := inventory.NewService(roomRepo, staffRepo, equipmentRepo)
	requestSvc := request.NewService(requestRepo, auditSvc, views)

	weights := scheduler.DefaultWeights()
	if cfg.SchedWaitWeight > 0 {
		weights.Wait = cfg.SchedWaitWeight
	}
	if cfg.SchedRoomBalanceWeight > 0 {
		weights.RoomBalance = cfg.SchedRoomBalanceWeight
	}
	if cfg.SchedStaffBalanceWeight > 0 {
		weights.StaffBalance = cfg.SchedStaffBalanceWeight
	}
	if cfg.SchedLatePenalty > 0 {
		weights.LatePenalty = cfg.SchedLatePenalty
	}
	if cfg.SchedImbalancePenalty > 0 {
		weights.ImbalancePenalty = cfg.SchedImbalancePenalty
	}
	if cfg.SchedImbalanceThresholdMin > 0 {
		weights.ImbalanceThreshold = time.Duration(cfg.SchedImbalanceThresholdMin) * time.Minute
	}
	if cfg.SchedHorizonHours > 0 {
		weights.Horizon = time.Duration(cfg.SchedHorizonHours) * time.Hour
	}
	if cfg.SchedEscalateAfterHours > 0 {
		weights.EscalateAfter = time.Duration(cfg.SchedEscalateAfterHours) * time.Hour
	}
	schedulerSvc := scheduler.NewService(requestRepo, entryRepo, roomRepo, staffRepo, equipmentRepo, auditSvc, views, weights)

	// Routes
	apiV1 := e.Group("/api/v1")
	hospital.NewHandler(hospitalSvc).RegisterRoutes(apiV1)
	inventory.NewHandler(inventorySvc).RegisterRoutes(apiV1)
	request.NewHandler(requestSvc).RegisterRoutes(apiV1)
	scheduler.NewHandler(schedulerSvc).RegisterRoutes(apiV1)
	audit.NewHandler(auditSvc).RegisterRoutes(apiV1)

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", metrics.Handler())

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

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
