package server

import (
	"context"
	"net/http"
	"time"

	"lease-audit/internal/config"
	"lease-audit/internal/domain"
	"lease-audit/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Auditor starts audit runs.
type Auditor interface {
	Run(ctx context.Context, req usecase.RunRequest) (*domain.RunReport, error)
}

// Reviewer reads persisted runs and records resolutions.
type Reviewer interface {
	ListRuns(ctx context.Context, limit int) ([]domain.RunMetadata, error)
	Findings(ctx context.Context, runID string) ([]domain.Finding, error)
	Exceptions(ctx context.Context, runID string) ([]domain.ExceptionView, error)
	ChargeCodes(ctx context.Context, runID string) ([]usecase.ChargeCodeSummary, error)
	ChargeCode(ctx context.Context, runID string, cc domain.ChargeCodeKey) (usecase.ChargeCodeSummary, error)
	Resolve(ctx context.Context, req usecase.ResolveRequest) (usecase.ResolveResult, error)
}

// Server is the HTTP API over the audit pipeline and the resolution tracker.
type Server struct {
	router   *gin.Engine
	handler  http.Handler
	auditor  Auditor
	reviewer Reviewer
	logger   zerolog.Logger
}

func New(cfg config.ServerConfig, auditor Auditor, reviewer Reviewer, logger zerolog.Logger) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		router:   gin.New(),
		auditor:  auditor,
		reviewer: reviewer,
		logger:   logger,
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.RegisterRoutes(s.router.Group("/api"))

	// No configured origins allows any origin.
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	s.handler = c.Handler(s.router)
	return s
}

// RegisterRoutes mounts the API on group.
func (s *Server) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/health", func(c *gin.Context) { success(c, gin.H{"status": "ok"}) })

	r.POST("/runs", s.startRun)
	r.GET("/runs", s.listRuns)
	r.GET("/runs/:run_id/findings", s.listFindings)
	r.GET("/runs/:run_id/exceptions", s.listExceptions)
	r.POST("/runs/:run_id/exceptions/resolve", s.resolveException)
	r.GET("/runs/:run_id/charge-codes", s.listChargeCodes)
	r.GET("/runs/:run_id/charge-codes/:property_id/:lease_interval_id/:ar_code_id", s.getChargeCode)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Run(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("http server listening")
	return http.ListenAndServe(addr, s.handler)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}
