package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/tripmesh/integrations/internal/config"
	"github.com/tripmesh/integrations/internal/integration/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin() *gin.Engine {
	return NewEngine()
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
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	svc    domain.Service
}

type ServerParams struct {
	fx.In

	Gin *gin.Engine
	Cfg config.Config
	DB  *gorm.DB
	Svc domain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		db:     p.DB,
		svc:    p.Svc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Integrations --------
	api.POST("/integrations", s.OwnerRequired(), s.CreateIntegration)
	api.GET("/integrations", s.OwnerRequired(), s.ListIntegrations)
	api.GET("/integrations/:id", s.OwnerRequired(), s.GetIntegrationByID)
	api.PATCH("/integrations/:id", s.OwnerRequired(), s.ConfigureIntegration)
	api.DELETE("/integrations/:id", s.OwnerRequired(), s.DeleteIntegration)
	api.POST("/integrations/:id/test", s.OwnerRequired(), s.TestIntegration)
	api.POST("/integrations/:id/toggle", s.OwnerRequired(), s.ToggleIntegration)
	api.POST("/integrations/:id/sync", s.OwnerRequired(), s.SyncIntegration)
	api.POST("/integrations/:id/send", s.OwnerRequired(), s.SendIntegrationData)
	api.GET("/integrations/:id/receive", s.OwnerRequired(), s.ReceiveIntegrationData)
	api.GET("/integrations/:id/analytics", s.OwnerRequired(), s.GetIntegrationAnalytics)

	// Inbound webhooks authenticate with their shared secret, not an owner.
	api.POST("/integrations/:id/webhooks/:event", s.HandleIntegrationWebhook)
}
