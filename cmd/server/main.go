package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/worktally/attendance-backend/internal/application/dispatcher"
	"github.com/worktally/attendance-backend/internal/application/port"
	"github.com/worktally/attendance-backend/internal/application/service"
	"github.com/worktally/attendance-backend/internal/config"
	"github.com/worktally/attendance-backend/internal/infrastructure/external/lark"
	"github.com/worktally/attendance-backend/internal/infrastructure/persistence/repository"
	"github.com/worktally/attendance-backend/internal/infrastructure/persistence/sqlite"
	"github.com/worktally/attendance-backend/internal/ingest"
	httpserver "github.com/worktally/attendance-backend/internal/interfaces/http"
	"github.com/worktally/attendance-backend/pkg/database"
	"github.com/worktally/attendance-backend/pkg/utils"
)

func main() {
	// Local .env overrides, ignored when the file is absent
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Attendance Reconciliation Backend",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	txManager := sqlite.NewDB(db.DB, logger)
	uploadRepo := repository.NewUploadRepository(db.DB, logger)
	employeeRepo := repository.NewEmployeeRepository(db.DB, logger)
	typeRepo := repository.NewAttendanceTypeRepository(db.DB, logger)
	eventRepo := repository.NewAccessEventRepository(db.DB, logger)
	attendanceRepo := repository.NewUsedAttendanceRepository(db.DB, logger)
	ledgerRepo := repository.NewLedgerRepository(db.DB, logger)
	snapshotRepo := repository.NewSnapshotRepository(db.DB, logger)

	appLogger := newSugarAdapter(logger)

	// Initialize event dispatcher
	disp := dispatcher.NewDispatcher(dispatcher.WithLogger(appLogger))
	defer disp.Close()

	// Initialize message sender. Without Lark credentials notifications are
	// logged and dropped.
	var sender port.MessageSender
	if cfg.Lark.Enabled() {
		larkClient := lark.NewClient(lark.Config{
			AppID:      cfg.Lark.AppID,
			AppSecret:  cfg.Lark.AppSecret,
			APITimeout: cfg.Lark.APITimeout,
		}, logger)
		sender = lark.NewMessenger(larkClient, logger)
	} else {
		logger.Warn("Lark credentials not configured, ops notifications disabled")
		sender = lark.NewNoopSender(logger)
	}

	// Initialize application services
	parser := ingest.NewXLSXParser(logger)
	uploadService := service.NewUploadService(parser, uploadRepo, disp, appLogger)
	reconcileService := service.NewReconcileService(
		uploadRepo, employeeRepo, typeRepo,
		eventRepo, attendanceRepo, ledgerRepo,
		txManager, disp, appLogger,
	)
	restoreService := service.NewRestoreService(
		ledgerRepo, eventRepo, attendanceRepo,
		txManager, disp, appLogger,
	)
	ledgerService := service.NewLedgerService(ledgerRepo, appLogger)
	snapshotService := service.NewSnapshotService(
		snapshotRepo, employeeRepo, typeRepo,
		eventRepo, attendanceRepo,
		txManager, disp, appLogger,
	)
	reportService := service.NewReportService(snapshotService, appLogger)

	notificationService := service.NewNotificationService(sender, cfg.Lark.OpsChatID, appLogger)
	notificationService.Register(disp)

	// Initialize HTTP server
	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			MaxUploadMB:  cfg.Upload.MaxFileSizeMB,
		},
		uploadService,
		reconcileService,
		restoreService,
		ledgerService,
		snapshotService,
		reportService,
		appLogger,
	)

	// Start blocks until the context is cancelled, then shuts down gracefully
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// sugarAdapter exposes zap's sugared logger under the keysAndValues
// interface the application layer depends on.
type sugarAdapter struct {
	sugar *zap.SugaredLogger
}

func newSugarAdapter(logger *zap.Logger) *sugarAdapter {
	return &sugarAdapter{sugar: logger.Sugar()}
}

func (a *sugarAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.sugar.Infow(msg, keysAndValues...)
}

func (a *sugarAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.sugar.Warnw(msg, keysAndValues...)
}

func (a *sugarAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.sugar.Errorw(msg, keysAndValues...)
}
