package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scailup/creditcore/internal/client"
	clientdomain "github.com/scailup/creditcore/internal/client/domain"
	"github.com/scailup/creditcore/internal/clock"
	"github.com/scailup/creditcore/internal/config"
	"github.com/scailup/creditcore/internal/conversion"
	conversiondomain "github.com/scailup/creditcore/internal/conversion/domain"
	"github.com/scailup/creditcore/internal/credit"
	creditdomain "github.com/scailup/creditcore/internal/credit/domain"
	obslogger "github.com/scailup/creditcore/internal/observability/logger"
	"github.com/scailup/creditcore/internal/sweep"
	"github.com/scailup/creditcore/internal/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	client.Module,
	credit.Module,
	conversion.Module,
	webhook.Module,
	sweep.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger, registry *prometheus.Registry) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log, obslogger.MiddlewareConfig{
		Debug:           !cfg.IsProduction(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(cfg config.Config, log *zap.Logger, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(cfg, log, registry)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	clock         clock.Clock
	clientRepo    clientdomain.Repository
	creditSvc     creditdomain.Service
	conversionSvc conversiondomain.Service
	sweeper       *sweep.Sweeper
}

type ServerParams struct {
	fx.In

	Engine        *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	Clock         clock.Clock
	ClientRepo    clientdomain.Repository
	CreditSvc     creditdomain.Service
	ConversionSvc conversiondomain.Service
	Sweeper       *sweep.Sweeper
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:        p.Engine,
		cfg:           p.Cfg,
		log:           p.Log.Named("server"),
		clock:         p.Clock,
		clientRepo:    p.ClientRepo,
		creditSvc:     p.CreditSvc,
		conversionSvc: p.ConversionSvc,
		sweeper:       p.Sweeper,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(s.ResolveClient())
	{
		api.GET("/leads", s.ListLeads)
		api.POST("/contacts/convert", s.ConvertContact)
		api.POST("/contacts/convert/bulk", s.ConvertContactsBulk)
		api.GET("/credits/balance", s.GetCreditBalance)
	}

	admin := s.engine.Group("/api/v1/admin")
	{
		admin.POST("/sweep", s.RunSweep)
		admin.POST("/credits/grant", s.GrantCredits)
	}
}
