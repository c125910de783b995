package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/covera-health/covera/internal/ingest"
	"github.com/covera-health/covera/internal/model"
	"github.com/covera-health/covera/internal/planner"
	"github.com/covera-health/covera/internal/snapshot"
	"github.com/covera-health/covera/internal/trace"
	"github.com/covera-health/covera/internal/worker"
)

// Server exposes the ingestion and planner APIs over HTTP.
type Server struct {
	cfg    *model.Config
	logger *slog.Logger
	engine *gin.Engine
}

// New assembles the router with logging, metrics, and per-client rate
// limiting on the planner route.
func New(cfg *model.Config, store *snapshot.Store, ing *ingest.Ingestor, pl *planner.Planner, rec *trace.Recorder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger), observeMetrics())

	engine.GET("/health", handleHealth(store))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := worker.NewLimiter(cfg.Query.RatePerSecond, cfg.Query.RateBurst)
	v1 := engine.Group("/v1")
	{
		v1.POST("/ingest", handleIngest(ing))
		v1.POST("/planner/ask", rateLimit(limiter), handleAsk(pl))
		v1.GET("/facility/:id", handleFacility(store))
		v1.GET("/trace/:id", handleTrace(rec))
		v1.GET("/facilities/geo", handleGeo(store))
		v1.GET("/report", handleReport(cfg, store))
	}

	return &Server{cfg: cfg, logger: logger, engine: engine}
}

// Router returns the handler, mainly for tests.
func (s *Server) Router() http.Handler { return s.engine }

// Run serves until the context ends, then drains connections within the
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
