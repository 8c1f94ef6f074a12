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

	"github.com/frahmantamala/approval-portal/internal/auth"
	"github.com/frahmantamala/approval-portal/internal/document"
	"github.com/frahmantamala/approval-portal/internal/employee"
	"github.com/frahmantamala/approval-portal/internal/export"
	"github.com/frahmantamala/approval-portal/internal/leave"
	"github.com/frahmantamala/approval-portal/internal/room"
	"github.com/frahmantamala/approval-portal/internal/transport/rest"
	"github.com/frahmantamala/approval-portal/internal/transport/swagger"
	"github.com/frahmantamala/approval-portal/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	lg := logger.LoggerWrapper()

	ctx := context.Background()
	app, err := newApp(ctx, cfg, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	router, err := setupRoutes(ctx, app)
	if err != nil {
		lg.Error("failed to set up routes", "error", err)
		app.Close()
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		lg.Info("Starting HTTP server", "address", addr, "env", cfg.Server.Env)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("Server failed", "error", err)
			app.Close()
			os.Exit(1)
		}
	}

	app.Close()
	lg.Info("Server stopped")
}

func setupRoutes(ctx context.Context, app *App) (*chi.Mux, error) {
	cfg := app.Config

	var spec *swagger.Spec
	if cfg.Server.OpenAPIPath != "" {
		s, err := swagger.Load(ctx, cfg.Server.OpenAPIPath)
		if err != nil {
			return nil, err
		}
		spec = s
		app.Logger.Info("openapi spec loaded", "version", s.Version(), "paths", len(s.Paths()))
	}

	var rdb redis.Cmdable
	if app.Redis != nil {
		rdb = app.Redis
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Auth:     auth.NewHandler(app.Auth),
		RBAC:     auth.NewRBACAuthorization(auth.NewPermissionChecker(), app.Logger),
		Employee: employee.NewHandler(app.Employees),
		Document: document.NewHandler(app.Documents),
		Leave:    leave.NewHandler(app.Leave),
		Room:     room.NewHandler(app.Rooms),
		Reports:  export.NewHandler(app.Leave, app.Employees),
	}, rest.Options{
		DB:             app.DB,
		Redis:          rdb,
		Spec:           spec,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		Logger:         app.Logger,
	})
	return router, nil
}

