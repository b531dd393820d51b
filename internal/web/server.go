package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/vision-portal/internal/auth"
	"github.com/vzahanych/vision-portal/internal/config"
	"github.com/vzahanych/vision-portal/internal/health"
	"github.com/vzahanych/vision-portal/internal/logger"
	"github.com/vzahanych/vision-portal/internal/pipeline"
	"github.com/vzahanych/vision-portal/internal/service"
	"github.com/vzahanych/vision-portal/internal/storage"
)

// Server represents the web server service
type Server struct {
	*service.ServiceBase
	config     *config.Config
	logger     *logger.Logger
	httpServer *http.Server
	router     *gin.Engine
	auth       *auth.Authenticator
	layout     *storage.Layout
	processor  *pipeline.Processor
	healthReg  *health.Registry // Optional health registry
	version    string
	startTime  time.Time
}

// NewServer creates a new web server service
func NewServer(cfg *config.Config, log *logger.Logger) *Server {
	// Debug mode can be enabled via GIN_MODE environment variable
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	return &Server{
		ServiceBase: service.NewServiceBase("web-server", log),
		config:      cfg,
		logger:      log,
		router:      router,
		version:     "dev",
		startTime:   time.Now(),
	}
}

// SetVersion sets the application version
func (s *Server) SetVersion(version string) {
	s.version = version
}

// SetDependencies wires the authenticator, storage layout and processor
func (s *Server) SetDependencies(authn *auth.Authenticator, layout *storage.Layout, processor *pipeline.Processor) {
	s.auth = authn
	s.layout = layout
	s.processor = processor
}

// SetHealthRegistry sets the optional health check registry
func (s *Server) SetHealthRegistry(reg *health.Registry) {
	s.healthReg = reg
}

// Start starts the web server
func (s *Server) Start(ctx context.Context) error {
	s.SetStatus(service.StatusStarting)
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// Video processing holds the request open for the whole run, so
		// the write timeout stays disabled.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		s.LogInfo("Starting web server", "address", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.LogError("Web server error", err, "address", addr)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
		s.SetStatus(service.StatusRunning)
		s.LogInfo("Web server started", "address", addr)
		return nil
	}
}

// Stop stops the web server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.SetStatus(service.StatusStopping)
	s.LogInfo("Stopping web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.SetStatus(service.StatusStopped)
	return nil
}

// Name returns the service name
func (s *Server) Name() string {
	return "web-server"
}

// setupRoutes sets up all routes
func (s *Server) setupRoutes() {
	// Account routes, open to anonymous clients
	s.router.GET("/register", s.handleRegisterForm)
	s.router.POST("/register", s.handleRegister)
	s.router.GET("/login", s.handleLoginForm)
	s.router.POST("/login", s.handleLogin)
	s.router.GET("/logout", s.handleLogout)

	// Operational endpoints
	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/status", s.handleStatus)
	}

	// Everything touching user files requires a session
	authed := s.router.Group("/")
	authed.Use(s.sessionAuth())
	{
		authed.GET("/upload", s.handleUploadForm)
		authed.POST("/upload", s.handleUpload)
		authed.POST("/process/:filename", s.handleProcess)
		authed.GET("/get_processed_files", s.handleListProcessed)
		authed.POST("/clear_results", s.handleClearResults)
		authed.GET("/user_files/:filename", s.handleUserFile)
	}
}

// ginLogger creates a Gin middleware for logging
func ginLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", latency,
			"client_ip", c.ClientIP(),
		)
	}
}

// corsMiddleware creates a CORS middleware for local network access
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
