// Package devbackend provides a local stub of the backend HTTP API so the
// bridge can be exercised end-to-end without a real backend. It implements
// the same endpoint family the HTTP gateway targets.
package devbackend

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/emscape/roze-mcp/internal/telemetry"
)

// ServerOptions holds the dev backend configuration.
type ServerOptions struct {
	// Port is the TCP port to bind the HTTP server to.
	Port string

	OtelProviders *telemetry.Providers
	Logger        *zap.Logger
}

// Server is the stub backend HTTP server.
type Server struct {
	port   string
	router *gin.Engine
	logger *zap.Logger
}

// NewServer initializes a new Gin server for the stub backend.
func NewServer(opts *ServerOptions) (*Server, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	s := &Server{
		port:   opts.Port,
		logger: opts.Logger,
	}
	s.router = s.setupRouter(opts.OtelProviders)
	return s, nil
}

// Start runs the Gin server (blocking call).
func (s *Server) Start() error {
	if err := s.router.Run(":" + s.port); err != nil {
		return fmt.Errorf("failed to run the server: %w", err)
	}
	return nil
}

// Handler exposes the router; used by tests to serve via httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter(otelProviders *telemetry.Providers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	if otelProviders.IsEnabled() {
		r.Use(otelgin.Middleware(otelProviders.ServiceName()))
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/v1/orders", s.createOrderHandler())
	r.POST("/v1/subscribe", s.createSubscriptionHandler())

	return r
}

// createOrderHandler accepts an order payload and returns a canned creation
// response. The bridge has already validated the payload; the stub only
// checks that the body is a JSON object.
func (s *Server) createOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id := newID("ord")
		s.logger.Info("order created", zap.String("id", id))
		c.JSON(http.StatusCreated, gin.H{
			"id":     id,
			"status": "created",
		})
	}
}

func (s *Server) createSubscriptionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id := newID("sub")
		s.logger.Info("subscription created", zap.String("id", id))
		c.JSON(http.StatusCreated, gin.H{
			"id":     id,
			"status": "active",
		})
	}
}

func newID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}
