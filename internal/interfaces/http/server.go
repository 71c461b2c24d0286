// Package http provides the HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/worktally/attendance-backend/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxUploadMB  int
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		MaxUploadMB:  20,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config           ServerConfig
	httpServer       *http.Server
	router           *gin.Engine
	uploadService    service.UploadService
	reconcileService service.ReconcileService
	restoreService   service.RestoreService
	ledgerService    service.LedgerService
	snapshotService  service.SnapshotService
	reportService    service.ReportService
	logger           Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	uploadService service.UploadService,
	reconcileService service.ReconcileService,
	restoreService service.RestoreService,
	ledgerService service.LedgerService,
	snapshotService service.SnapshotService,
	reportService service.ReportService,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:           config,
		router:           router,
		uploadService:    uploadService,
		reconcileService: reconcileService,
		restoreService:   restoreService,
		ledgerService:    ledgerService,
		snapshotService:  snapshotService,
		reportService:    reportService,
		logger:           logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.MaxMultipartMemory = int64(s.config.MaxUploadMB) << 20
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(
		s.uploadService,
		s.reconcileService,
		s.restoreService,
		s.ledgerService,
		s.snapshotService,
		s.reportService,
		s.logger,
	)

	// Health check
	s.router.GET("/health", handlers.HealthCheck)

	// API routes
	api := s.router.Group("/api/v1")
	{
		// Uploads
		api.POST("/uploads", handlers.IngestUpload)
		api.GET("/uploads", handlers.ListUploads)
		api.GET("/uploads/:id", handlers.GetUpload)

		// Reconciliation
		api.POST("/reconciliations", handlers.Reconcile)

		// Ledger
		api.GET("/ledger", handlers.ListLedgerEntries)
		api.GET("/ledger/:id", handlers.GetLedgerEntry)
		api.POST("/ledger/:id/restore", handlers.Restore)

		// Snapshots
		api.POST("/snapshots", handlers.CaptureSnapshot)
		api.GET("/snapshots", handlers.ListSnapshots)
		api.GET("/snapshots/:id", handlers.GetSnapshot)
		api.GET("/snapshots/:id/children", handlers.GetSnapshotChildren)
		api.POST("/snapshots/:id/submit", handlers.SubmitSnapshot)
		api.POST("/snapshots/:id/approve", handlers.ApproveSnapshot)
		api.POST("/snapshots/:id/reject", handlers.RejectSnapshot)

		// Reports
		api.GET("/reports/monthly", handlers.MonthlyReport)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
