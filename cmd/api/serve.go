package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluecarbon/registry/internal/config"
	"github.com/bluecarbon/registry/internal/events"
	"github.com/bluecarbon/registry/internal/handlers"
	"github.com/bluecarbon/registry/internal/metrics"
	"github.com/bluecarbon/registry/internal/middleware"
	"github.com/bluecarbon/registry/internal/services"
	"github.com/bluecarbon/registry/internal/storage"
	"github.com/bluecarbon/registry/internal/uploads"
	"github.com/bluecarbon/registry/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  `Run the registry HTTP API. Migrations are applied before the server starts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

// serve wires storage, services and handlers, then runs the HTTP server
// until ctx is cancelled
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := storage.Migrate(repo, cfg.Database.MigrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := uploads.NewStore(cfg.Uploads.Dir, cfg.Uploads.URLPrefix)
	if err != nil {
		return fmt.Errorf("failed to prepare upload directory: %w", err)
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.Events.NATSURL != "" {
		nc, err := events.Connect(cfg.Events.NATSURL, cfg.Events.Subject, logger)
		if err != nil {
			return err
		}
		publisher = nc
		logger.Info("publishing submission events", zap.String("subject", cfg.Events.Subject))
	}
	defer publisher.Close()

	m := metrics.New()
	v := validation.New(validation.Limits{
		MaxPhotoBytes:    cfg.Uploads.MaxPhotoBytes,
		MaxDocumentBytes: cfg.Uploads.MaxDocumentBytes,
	})

	captcha := services.NewRecaptcha(cfg.Auth.RecaptchaSecret, cfg.Auth.RecaptchaURL)
	if captcha == nil {
		logger.Warn("reCAPTCHA secret not set, signup and login are unprotected")
	}

	projectService := services.NewProjectService(repo, v, store, publisher, m, logger)
	authService := services.NewAuthService(repo, captcha, logger)

	jwtConfig := middleware.JWTConfig{
		Secret:     cfg.Auth.JWTSecret,
		Expiration: time.Duration(cfg.Auth.TokenTTLHours) * time.Hour,
		CookieName: cfg.Auth.CookieName,
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.RouterDeps{
		Projects:       handlers.NewProjectHandler(projectService, cfg.Uploads.MaxRequestBytes, logger),
		Auth:           handlers.NewAuthHandler(authService, jwtConfig, cfg.Auth.CookieSecure, logger),
		Health:         handlers.NewHealthHandler(repo, logger),
		Metrics:        m,
		JWT:            jwtConfig,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		UploadsDir:     store.Dir(),
		UploadsPrefix:  cfg.Uploads.URLPrefix,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("registry API listening",
			zap.String("addr", srv.Addr),
			zap.String("driver", cfg.Database.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}
