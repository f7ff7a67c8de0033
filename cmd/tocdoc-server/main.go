package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tocdoc/tocdoc/internal/config"
	"github.com/tocdoc/tocdoc/internal/domain/event"
	"github.com/tocdoc/tocdoc/internal/domain/patient"
	"github.com/tocdoc/tocdoc/internal/domain/retention"
	"github.com/tocdoc/tocdoc/internal/domain/user"
	"github.com/tocdoc/tocdoc/internal/platform/auth"
	"github.com/tocdoc/tocdoc/internal/platform/db"
	"github.com/tocdoc/tocdoc/internal/platform/middleware"
	"github.com/tocdoc/tocdoc/internal/platform/notification"
)

// doctorDirectoryAdapter adapts the user service to the event package's
// DoctorDirectory interface, avoiding an import between the two domains.
type doctorDirectoryAdapter struct {
	users *user.Service
}

func (a *doctorDirectoryAdapter) Doctor(ctx context.Context, id uuid.UUID) (*event.Doctor, error) {
	u, err := a.users.Doctor(ctx, id)
	if err != nil {
		return nil, err
	}
	return &event.Doctor{ID: u.ID, Email: u.Email}, nil
}

// physicianDirectoryAdapter does the same for the legacy patient flows,
// which reference physicians by email.
type physicianDirectoryAdapter struct {
	users *user.Service
}

func (a *physicianDirectoryAdapter) DoctorByEmail(ctx context.Context, email string) (*patient.Physician, error) {
	u, err := a.users.DoctorByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return &patient.Physician{ID: u.ID, Email: u.Email}, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "tocdoc-server",
		Short: "TOCdoc transition-of-care API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
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
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
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

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run the retention sweep once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			sweeper := retention.NewSweeper(event.NewRepo(pool), logger)
			res, err := sweeper.Sweep(ctx)
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}

			fmt.Printf("Deleted %d discharged and %d long-stay event(s).\n", res.Discharged, res.LongStay)
			return nil
		},
	}
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Notification channel. Without an API key, deliveries are logged only.
	var sender notification.EmailSender
	if cfg.ResendAPIKey != "" {
		sender = notification.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
	} else {
		sender = notification.NewLogSender(logger)
	}
	notifier := notification.NewNotifier(sender, cfg.SignInURL, logger)

	// Repositories and services.
	userRepo := user.NewRepo(pool)
	userSvc := user.NewService(userRepo)

	eventRepo := event.NewRepo(pool)
	eventSvc := event.NewService(eventRepo, event.NewTransactor(pool), &doctorDirectoryAdapter{users: userSvc}, notifier)

	sweeper := retention.NewSweeper(eventRepo, logger)

	patientRepo := patient.NewRepo(pool)
	patientSvc := patient.NewService(patientRepo, &physicianDirectoryAdapter{users: userSvc}, notifier)

	// Echo server.
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health checks stay outside the auth gate.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() && cfg.JWTSecret == "" {
		logger.Warn().Msg("running with development auth: all requests are admin")
		apiV1.Use(auth.DevMiddleware(userSvc))
	} else {
		apiV1.Use(auth.Middleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.JWTSecret),
		}, cfg, userSvc))
	}

	event.NewHandler(eventSvc, sweeper, logger).RegisterRoutes(apiV1)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	retention.NewHandler(sweeper).RegisterRoutes(apiV1)
	user.NewHandler(userSvc).RegisterRoutes(apiV1)

	// Graceful shutdown.
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
