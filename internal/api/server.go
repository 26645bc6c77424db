// Package api serves the renderer and the logo rasterizer over HTTP and
// WebSocket.
package api

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/thereceipt/receipt-renderer/internal/apperr"
	"github.com/thereceipt/receipt-renderer/internal/logo"
)

// Options configures a Server.
type Options struct {
	Logos  *logo.Service
	Logger *slog.Logger
	// UploadRatePerMinute caps logo uploads per tenant. Zero disables it.
	UploadRatePerMinute int
	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string
}

// Server is the API server
type Server struct {
	router   *gin.Engine
	logos    *logo.Service
	logger   *slog.Logger
	uploads  *tenantLimiter
	origins  []string
	upgrader websocket.Upgrader
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()

	server := &Server{
		router:  router,
		logos:   opts.Logos,
		logger:  logger,
		uploads: newTenantLimiter(opts.UploadRatePerMinute),
		origins: opts.AllowedOrigins,
	}
	server.upgrader = websocket.Upgrader{CheckOrigin: server.checkOrigin}

	router.Use(requestID(), requestLogger(logger), recovery(logger), server.corsMiddleware())
	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	s.router.POST("/render", s.handleRender)

	tenants := s.router.Group("/tenants/:tenant")
	tenants.POST("/logo", s.handleUploadLogo)
	tenants.GET("/logo", s.handleGetLogo)
	tenants.GET("/logo/:class", s.handleGetLogoCommand)
	tenants.DELETE("/logo", s.handleDeleteLogo)

	s.router.GET("/ws/render", s.handleWebSocket)

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Handler exposes the router for an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the API server
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// abortWithError writes err as a JSON error body. Unexpected errors are
// logged and replaced by a generic message.
func (s *Server) abortWithError(c *gin.Context, err error) {
	ae := apperr.As(err)
	if ae == nil {
		ae = apperr.Internal(err)
	}
	if ae.HTTPStatus >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "request_id", c.GetString(requestIDKey), "error", err)
	}
	c.AbortWithStatusJSON(ae.HTTPStatus, ae)
}

func (s *Server) originAllowed(origin string) bool {
	return len(s.origins) == 0 || slices.Contains(s.origins, "*") || slices.Contains(s.origins, origin)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.originAllowed(origin)
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && s.originAllowed(origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
			c.Writer.Header().Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
