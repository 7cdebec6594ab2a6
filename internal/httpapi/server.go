// Package httpapi exposes the suite's services over an Echo HTTP API.
package httpapi

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hikarilabs/sited/internal/cache"
	"github.com/hikarilabs/sited/internal/config"
	"github.com/hikarilabs/sited/internal/dex"
	"github.com/hikarilabs/sited/internal/images"
	"github.com/hikarilabs/sited/internal/quiz"
	"github.com/hikarilabs/sited/internal/syndicate"
	"github.com/hikarilabs/sited/internal/ticket"
	"github.com/hikarilabs/sited/internal/todo"
)

// Syndicator runs one syndication sync on demand.
type Syndicator interface {
	Run(ctx context.Context) (*syndicate.PublishReport, error)
}

// Deps bundles the services the API serves. Syndicate may be nil when
// the pipeline is disabled; the trigger endpoint then returns 503.
type Deps struct {
	Todos     *todo.Service
	Quiz      *quiz.Service
	Tickets   *ticket.Service
	Dex       *dex.Client
	Images    *images.Service
	Syndicate Syndicator
}

// Server provides HTTP endpoints for the suite.
type Server struct {
	echo       *echo.Echo
	deps       Deps
	logger     *zap.Logger
	config     config.ServerConfig
	metrics    *httpMetrics
	statsCache *cache.Cache[[]byte]
}

// Stats answers go stale on every todo or review write, so the stats
// cache never holds an entry longer than this even when the shared
// cache TTL is configured higher.
const statsCacheMaxTTL = 30 * time.Second

// NewServer creates the HTTP server with middleware and routes wired.
// A non-empty authToken protects everything under /api/v1. cacheCfg
// sizes the response cache in front of the stats endpoints.
func NewServer(deps Deps, cfg config.ServerConfig, cacheCfg config.CacheConfig, authToken config.Secret, reg *prometheus.Registry, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	m, err := newHTTPMetrics(reg)
	if err != nil {
		return nil, err
	}

	ttl := cacheCfg.TTL.Duration()
	if ttl <= 0 || ttl > statsCacheMaxTTL {
		ttl = statsCacheMaxTTL
	}
	entries := cacheCfg.MaxEntries
	if entries <= 0 {
		entries = 64
	}
	statsCache := cache.New[[]byte](ttl, entries)
	statsCache.SetMetrics(cache.NewMetrics(reg, "stats"))

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(m.middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:       e,
		deps:       deps,
		logger:     logger,
		config:     cfg,
		metrics:    m,
		statsCache: statsCache,
	}

	s.registerRoutes(authToken, reg)

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes(authToken config.Secret, reg *prometheus.Registry) {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	if authToken.IsSet() {
		v1.Use(bearerAuth(authToken))
	}

	// Todos and categories
	v1.POST("/todos", s.handleCreateTodo)
	v1.GET("/todos", s.handleListTodos)
	v1.GET("/todos/:id", s.handleGetTodo)
	v1.PUT("/todos/:id", s.handleUpdateTodo)
	v1.POST("/todos/:id/done", s.handleSetTodoDone)
	v1.DELETE("/todos/:id", s.handleDeleteTodo)
	v1.GET("/todos/stats", s.handleTodoStats)
	v1.POST("/categories", s.handleCreateCategory)
	v1.GET("/categories", s.handleListCategories)
	v1.PUT("/categories/:id", s.handleRenameCategory)
	v1.DELETE("/categories/:id", s.handleDeleteCategory)

	// Quiz
	v1.POST("/quiz/questions", s.handleCreateQuestion)
	v1.GET("/quiz/questions", s.handleListQuestions)
	v1.GET("/quiz/questions/:id", s.handleGetQuestion)
	v1.PUT("/quiz/questions/:id", s.handleUpdateQuestion)
	v1.DELETE("/quiz/questions/:id", s.handleDeleteQuestion)
	v1.GET("/quiz/due", s.handleQuizDue)
	v1.POST("/quiz/review", s.handleQuizReview)
	v1.GET("/quiz/stats", s.handleQuizStats)

	// Tickets
	v1.POST("/tickets", s.handleIssueTicket)
	v1.GET("/tickets", s.handleListTickets)
	v1.GET("/tickets/:id", s.handleGetTicket)
	v1.POST("/tickets/:id/redeem", s.handleRedeemTicket)
	v1.GET("/tickets/:id/history", s.handleTicketHistory)
	v1.DELETE("/tickets/:id", s.handleDeleteTicket)
	v1.POST("/tickets/import", s.handleImportTickets)
	v1.GET("/tickets/pdf", s.handleTicketsPDF)

	// BIG3 calculator
	v1.POST("/big3/level", s.handleBig3Level)

	// Dex proxy
	v1.GET("/dex/species/:idOrName", s.handleDexSpecies)
	v1.GET("/dex/species", s.handleDexList)

	// Syndication
	v1.POST("/syndicate/run", s.handleSyndicateRun)

	// Images
	v1.POST("/images", s.handleUploadImage)
	v1.GET("/images", s.handleListImages)
	v1.GET("/images/:id", s.handleServeImage)
	v1.DELETE("/images/:id", s.handleDeleteImage)
}

// bearerAuth rejects requests whose Authorization header does not carry
// the configured token.
func bearerAuth(token config.Secret) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			presented, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token.Value())) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing bearer token")
			}
			return next(c)
		}
	}
}

// handleSyndicateRun triggers one syndication sync and returns its
// report. A sync can take a while against slow upstreams, so the
// request context bounds it.
func (s *Server) handleSyndicateRun(c echo.Context) error {
	if s.deps.Syndicate == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "syndication is not enabled")
	}
	report, err := s.deps.Syndicate.Run(c.Request().Context())
	if err != nil {
		s.logger.Error("syndication run failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Echo returns the underlying router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
