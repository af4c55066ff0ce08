// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-desk/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	Version         string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigins:  []string{"*"},
		Version:         "1.0.0",
	}
}

// HealthFunc reports overall health and per-component details
type HealthFunc func(ctx context.Context) (healthy bool, details interface{})

// MetricsExporter instruments routes and exposes collected metrics
type MetricsExporter interface {
	GinMiddleware() gin.HandlerFunc
	Handler() http.Handler
}

// Services groups the application services served over HTTP
type Services struct {
	Auth      service.AuthService
	Requests  service.RequestService
	Admin     service.AdminService
	Documents service.DocumentService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	health     HealthFunc
	metrics    MetricsExporter
	logger     Logger
}

// NewServer creates a new HTTP server with the given services. health and
// metrics may be nil.
func NewServer(
	config ServerConfig,
	services Services,
	health HealthFunc,
	metrics MetricsExporter,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		health:   health,
		metrics:  metrics,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(corsMiddleware(s.config.AllowedOrigins))

	if s.metrics != nil {
		s.router.Use(s.metrics.GinMiddleware())
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.health, s.config.Version, s.logger)

	s.router.GET("/health", h.HealthCheck)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	s.router.GET("/files/*name", s.authMiddleware(), requireGroup(groupDocuments), h.ServeFile)

	api := s.router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/validate-token", h.ValidateToken)
	}

	authenticated := api.Group("", s.authMiddleware())

	employee := authenticated.Group("/employee", requireGroup(groupEmployee))
	{
		employee.POST("/create-request", h.CreateRequest)
		employee.GET("/my-requests", h.MyRequests)
		employee.PUT("/edit-request/:id", h.EditRequest)
		employee.DELETE("/delete-request/:id", h.DeleteRequest)
	}

	manager := authenticated.Group("/manager", requireGroup(groupManager))
	{
		manager.GET("/my-requests", h.ManagerRequests)
		manager.GET("/pending-requests", h.ManagerPendingRequests)
		manager.POST("/action-request/:id", h.ActOnRequest)
	}

	travelAdmin := authenticated.Group("/travel-admin", requireGroup(groupTravelAdmin))
	{
		travelAdmin.GET("/all-requests", h.AllRequests)
		travelAdmin.GET("/request-documents/:id", h.RequestDocuments)
		travelAdmin.POST("/action-request/:id", h.ActOnRequest)
		travelAdmin.GET("/export", h.ExportRequests)
	}

	admin := authenticated.Group("/admin", requireGroup(groupAdmin))
	{
		admin.GET("/users", h.ListUsers)
		admin.GET("/managers", h.ListManagers)
		admin.GET("/roles", h.ListRoles)
		admin.GET("/next-employee-id", h.NextEmployeeID)
		admin.POST("/add-user", h.AddUser)
		admin.PUT("/edit-user/:id", h.EditUser)
		admin.DELETE("/delete-user/:id", h.DeleteUser)
		admin.PUT("/deactivate-user/:id", h.DeactivateUser)
		admin.GET("/check-relationships", h.CheckRelationships)
	}

	documents := authenticated.Group("/documents", requireGroup(groupDocuments))
	{
		documents.POST("", h.UploadDocument)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

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

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
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
