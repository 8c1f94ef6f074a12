package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/approval"
	"github.com/frahmantamala/approval-portal/internal/attachment"
	"github.com/frahmantamala/approval-portal/internal/auth"
	authPostgres "github.com/frahmantamala/approval-portal/internal/auth/postgres"
	"github.com/frahmantamala/approval-portal/internal/core/common/retry"
	"github.com/frahmantamala/approval-portal/internal/core/events"
	"github.com/frahmantamala/approval-portal/internal/document"
	documentPostgres "github.com/frahmantamala/approval-portal/internal/document/postgres"
	"github.com/frahmantamala/approval-portal/internal/employee"
	employeePostgres "github.com/frahmantamala/approval-portal/internal/employee/postgres"
	"github.com/frahmantamala/approval-portal/internal/export"
	"github.com/frahmantamala/approval-portal/internal/leave"
	leavePostgres "github.com/frahmantamala/approval-portal/internal/leave/postgres"
	"github.com/frahmantamala/approval-portal/internal/notification"
	"github.com/frahmantamala/approval-portal/internal/room"
	roomPostgres "github.com/frahmantamala/approval-portal/internal/room/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// App holds the connections and services shared by the server and the workers.
type App struct {
	Config *internal.Config
	Logger *slog.Logger

	DB    *sqlx.DB
	Gorm  *gorm.DB
	Redis *redis.Client

	Bus      *events.EventBus
	Notifier *notification.Notifier

	Auth      *auth.Service
	Employees *employee.Service
	Leave     *leave.Service
	Documents *document.Service
	Rooms     *room.Service
	Renderer  *export.PDFRenderer
}

func newApp(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (*App, error) {
	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	app := &App{Config: cfg, Logger: logger, DB: db, Gorm: gdb}

	if cfg.Redis.Addr != "" {
		app.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := app.Redis.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, idempotency keys will pass through until it recovers", "error", err, "addr", cfg.Redis.Addr)
		}
	}

	employeeRepo := employeePostgres.NewEmployeeRepository(gdb)
	app.Employees = employee.NewService(employeeRepo, employee.DefaultCacheTTL, logger)

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	app.Auth = auth.NewService(authPostgres.NewRepository(gdb), tokens, cfg.Security.BCryptCost, logger)

	app.Bus = events.NewEventBus(logger)
	app.Notifier = notification.NewNotifier(notification.Config{
		WebhookURL:   cfg.Notification.WebhookURL,
		PortalURL:    cfg.Notification.PortalURL,
		Timeout:      cfg.Notification.Timeout,
		MaxWorkers:   cfg.Notification.MaxWorkers,
		JobQueueSize: cfg.Notification.JobQueueSize,
	}, app.Employees, logger)
	app.Notifier.Subscribe(app.Bus)

	balances := leavePostgres.NewBalanceRepository(gdb)
	calendar := documentPostgres.NewLeaveCalendar(gdb)
	app.Leave = leave.NewService(balances, app.Employees, calendar, logger)

	var store document.AttachmentStore
	if cfg.Storage.Endpoint != "" {
		client, err := attachment.NewMinioClient(cfg.Storage)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create object store client: %w", err)
		}
		s := attachment.NewStore(client, cfg.Storage.Bucket, logger)
		if err := s.EnsureBucket(ctx); err != nil {
			logger.Warn("attachment bucket check failed", "error", err, "bucket", cfg.Storage.Bucket)
		}
		store = s
	} else {
		logger.Warn("storage endpoint not configured, attachments are disabled")
	}

	app.Renderer = export.NewPDFRenderer(app.Employees, logger)
	app.Documents = document.NewService(document.Dependencies{
		Repo:      documentPostgres.NewDocumentRepository(gdb),
		Tx:        documentPostgres.NewTxManager(gdb),
		Inbox:     documentPostgres.NewInboxRepository(db),
		Forms:     document.DefaultForms(balances, calendar, time.Now),
		Builder:   approval.NewBuilder(app.Employees, nil, logger),
		Machine:   approval.NewMachine(approval.Options{ReviewerRejectionBlocks: cfg.Approval.ReviewerRejectionBlocks}),
		People:    app.Employees,
		Store:     store,
		Renderer:  app.Renderer,
		Publisher: app.Bus,
		Retry:     retry.FromConfig(cfg.Approval),
		Clock:     time.Now,
		Logger:    logger,
	})

	hours, err := room.HoursFromConfig(cfg.MeetingRoom)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("invalid meeting room hours: %w", err)
	}
	app.Rooms = room.NewService(
		roomPostgres.NewRoomRepository(gdb),
		roomPostgres.NewTxManager(gdb),
		hours,
		app.Bus,
		time.Now,
		logger,
	)

	return app, nil
}

// Close drains in-flight events and notifications before dropping connections.
func (a *App) Close() {
	if a.Bus != nil {
		a.Bus.Close()
	}
	if a.Notifier != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.Notifier.Flush(ctx); err != nil {
			a.Logger.Warn("notifications still pending at shutdown", "error", err)
		}
		cancel()
		a.Notifier.Shutdown()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("redis close error", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("database close error", "error", err)
		}
	}
}

// initDB opens the pgx-backed sqlx pool shared by gorm, the inbox reader and health checks.
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

func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
}
