package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/snapcount/internal/config"
	"github.com/smallbiznis/snapcount/internal/export"
	"github.com/smallbiznis/snapcount/internal/intake"
	"github.com/smallbiznis/snapcount/internal/liveevents"
	nutritiondomain "github.com/smallbiznis/snapcount/internal/nutrition/domain"
	"github.com/smallbiznis/snapcount/internal/observability"
	obsmiddleware "github.com/smallbiznis/snapcount/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/snapcount/internal/observability/metrics"
	obstracing "github.com/smallbiznis/snapcount/internal/observability/tracing"
	"github.com/smallbiznis/snapcount/internal/ratelimit"
	sessiondomain "github.com/smallbiznis/snapcount/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, deviceID string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		DeviceID:        deviceID,
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, cfg.DeviceID)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	estimator nutritiondomain.Service
	intake    *intake.Intake
	session   sessiondomain.Service
	exporter  *export.Service
	events    *liveevents.Hub
	limiter   *ratelimit.EstimateLimiter
	metrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	Estimator nutritiondomain.Service
	Intake    *intake.Intake
	Session   sessiondomain.Service
	Exporter  *export.Service
	Events    *liveevents.Hub            `optional:"true"`
	Limiter   *ratelimit.EstimateLimiter `optional:"true"`
	Metrics   *obsmetrics.Metrics        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		estimator: p.Estimator,
		intake:    p.Intake,
		session:   p.Session,
		exporter:  p.Exporter,
		events:    p.Events,
		limiter:   p.Limiter,
		metrics:   p.Metrics,
	}

	svc.registerAPIRoutes()
	svc.registerSessionRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/analyze-food", s.EstimateRateLimit(), s.AnalyzeFood)
	api.GET("/suggestions", s.ListSuggestions)

	ledger := api.Group("/ledger")
	ledger.GET("/export.pdf", s.ExportPDF)
	ledger.GET("/export.xlsx", s.ExportXLSX)
}

func (s *Server) registerSessionRoutes() {
	session := s.engine.Group("/api/session")

	session.GET("", s.GetSession)
	session.POST("/setup", s.CompleteSetup)
	session.POST("/profile/edit", s.EditProfile)
	session.POST("/logging", s.StartLogging)
	session.POST("/back", s.Back)
	session.POST("/image", s.UploadImage)
	session.DELETE("/image", s.ClearImage)
	session.POST("/analyze", s.EstimateRateLimit(), s.Analyze)
	session.POST("/manual", s.ShowManualInput)
	session.POST("/describe", s.EstimateRateLimit(), s.SubmitDescription)
	session.POST("/recalculate", s.EstimateRateLimit(), s.Recalculate)
	session.POST("/entries", s.AddToLog)
	session.DELETE("/entries/:id", s.DeleteEntry)
	session.POST("/reset", s.Reset)
	session.GET("/events", s.StreamSessionEvents)
	session.GET("/ws", s.SessionWebSocket)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
