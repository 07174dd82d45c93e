// Package httpapi exposes the template service over HTTP with gin.
//
// Routes:
//
//	POST   /api/auth/register
//	POST   /api/auth/login
//	GET    /api/auth/me
//	POST   /api/templates
//	GET    /api/templates
//	GET    /api/templates/:id
//	PUT    /api/templates/:id/mapping
//	DELETE /api/templates/:id
//	DELETE /api/templates
//	POST   /api/render/:id
//	POST   /api/images
//	GET    /api/uploads/images/:name
//	GET    /
//
// Authentication is optional: a valid bearer token scopes template
// operations to its user, requests without one see unowned data.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lvillar/pdftemplate/auth"
	"github.com/lvillar/pdftemplate/service"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Server holds the HTTP handlers.
type Server struct {
	svc    *service.Service
	auth   *auth.Service
	logger *zap.Logger

	origins   []string
	limiter   *rate.Limiter
	maxUpload int64
	imagesDir string
}

// Option is a functional option for configuring a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAllowedOrigins sets the CORS origins. "*" allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithRenderRateLimit limits render requests to perMinute across all
// clients. Zero disables the limit.
func WithRenderRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
}

// WithMaxUploadBytes caps the size of upload request bodies.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) { s.maxUpload = n }
}

// WithImagesDir serves uploaded images from dir.
func WithImagesDir(dir string) Option {
	return func(s *Server) { s.imagesDir = dir }
}

// New creates a Server. authSvc may be nil, which disables the auth routes.
func New(svc *service.Service, authSvc *auth.Service, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		auth:      authSvc,
		logger:    zap.NewNop(),
		maxUpload: 50 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the gin engine.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.accessLog())
	r.Use(cors.New(s.corsConfig()))
	r.Use(s.authenticate())
	r.MaxMultipartMemory = 8 << 20

	r.GET("/", s.root)

	api := r.Group("/api")
	{
		if s.auth != nil {
			api.POST("/auth/register", s.register)
			api.POST("/auth/login", s.login)
			api.GET("/auth/me", s.requireUser(), s.me)
		}

		api.POST("/templates", s.limitBody(), s.uploadTemplate)
		api.GET("/templates", s.listTemplates)
		api.GET("/templates/:id", s.getTemplate)
		api.PUT("/templates/:id/mapping", s.saveMapping)
		api.DELETE("/templates/:id", s.deleteTemplate)
		api.DELETE("/templates", s.deleteAllTemplates)

		api.POST("/render/:id", s.rateLimit(), s.render)

		api.POST("/images", s.limitBody(), s.uploadImage)
		if s.imagesDir != "" {
			api.Static("/uploads/images", s.imagesDir)
		}
	}
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range s.origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	if len(s.origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = s.origins
	return cfg
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "PDF template engine API",
		"version": Version,
	})
}
