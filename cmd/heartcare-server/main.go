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
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/heartcare/heartcare/internal/config"
	"github.com/heartcare/heartcare/internal/domain/audit"
	"github.com/heartcare/heartcare/internal/domain/patient"
	"github.com/heartcare/heartcare/internal/domain/user"
	"github.com/heartcare/heartcare/internal/platform/auth"
	"github.com/heartcare/heartcare/internal/platform/db"
	"github.com/heartcare/heartcare/internal/platform/middleware"
	"github.com/heartcare/heartcare/internal/predict"
)

func main() {
	root := &cobra.Command{
		Use:   "heartcare-server",
		Short: "Heart disease risk assessment service",
	}

	root.AddCommand(serveCmd(), migrateCmd(), seedCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func setupLogger(cfg *config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	var logger zerolog.Logger
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	log.Logger = logger
	return logger
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			model, err := predict.LoadModel(cfg.ModelPath)
			if err != nil {
				return err
			}
			predictor := predict.New(model)
			logger.Info().
				Strs("features", model.Features).
				Float64("test_accuracy", model.TestAccuracy).
				Msg("classifier model loaded")

			txRunner := db.NewTxRunner(pool)
			hasher := auth.NewBcryptHasher()
			issuer := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)

			auditRepo := audit.NewPgRepository(pool)
			auditSvc := audit.NewService(auditRepo)

			patientRepo := patient.NewPgRepository(pool)
			patientSvc := patient.NewService(patientRepo, auditSvc, predictor, txRunner)

			userRepo := user.NewPgRepository(pool)
			userSvc := user.NewService(userRepo, auditSvc, hasher, issuer, patientRepo, txRunner)

			e := echo.New()
			e.HideBanner = true
			e.HidePort = true

			e.Use(middleware.Recovery(logger))
			e.Use(middleware.RequestID())
			e.Use(middleware.Logger(logger))
			e.Use(middleware.RequestMetadata())
			e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
				AllowOrigins: cfg.CORSOrigins,
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
				AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
			}))
			e.Use(middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerSecond: cfg.RateLimitRPS,
				BurstSize:         cfg.RateLimitBurst,
			}))

			e.GET("/health", db.HealthHandler(pool))

			api := e.Group("/api/v1")

			predict.NewHandler(predictor).RegisterRoutes(api)
			user.NewHandler(userSvc).RegisterPublicRoutes(api)

			authed := api.Group("", auth.JWTMiddleware(issuer))
			patient.NewHandler(patientSvc).RegisterRoutes(authed)
			user.NewHandler(userSvc).RegisterProfileRoutes(authed)

			admin := authed.Group("", auth.RequireRole("admin"))
			user.NewHandler(userSvc).RegisterAdminRoutes(admin)
			audit.NewHandler(auditSvc).RegisterRoutes(admin)

			go func() {
				logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
				if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			<-quit

			logger.Info().Msg("shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer shutdownCancel()
			return e.Shutdown(shutdownCtx)
		},
	}
}

func migrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "./migrations", "migrations directory")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogger(cfg)

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			n, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return err
			}
			log.Info().Int("applied", n).Msg("migrations complete")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogger(cfg)

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%03d %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	var adminPassword, staffPassword string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the initial admin and staff accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			if !cfg.IsDev() && (adminPassword == "admin123" || staffPassword == "staff123") {
				return fmt.Errorf("default seed passwords are not allowed outside development")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			hasher := auth.NewBcryptHasher()
			repo := user.NewPgRepository(pool)

			seeds := []struct {
				username, email, fullName, role, password string
			}{
				{"admin", "admin@heartcare.local", "System Administrator", user.RoleAdmin, adminPassword},
				{"staff1", "staff1@heartcare.local", "Medical Staff", user.RoleStaff, staffPassword},
			}

			for _, s := range seeds {
				hash, err := hasher.Hash(s.password)
				if err != nil {
					return fmt.Errorf("hash password for %s: %w", s.username, err)
				}
				u := &user.User{
					Username:     s.username,
					Email:        s.email,
					PasswordHash: hash,
					FullName:     s.fullName,
					Role:         s.role,
					IsActive:     true,
				}
				if err := repo.Insert(ctx, u); err != nil {
					logger.Warn().Err(err).Str("username", s.username).Msg("seed user skipped")
					continue
				}
				logger.Info().Str("username", s.username).Str("role", s.role).Msg("seed user created")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&adminPassword, "admin-password", "admin123", "password for the admin account")
	cmd.Flags().StringVar(&staffPassword, "staff-password", "staff123", "password for the staff1 account")
	return cmd
}
