package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rateshoplabs/rateshop/internal/config"
	"github.com/rateshoplabs/rateshop/internal/freeship"
	quotedomain "github.com/rateshoplabs/rateshop/internal/quote/domain"
	"github.com/rateshoplabs/rateshop/internal/shipfile"
	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
	"github.com/rateshoplabs/rateshop/internal/whitelist"
	zonedomain "github.com/rateshoplabs/rateshop/internal/zone/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config       config.Config
	Log          *zap.Logger
	QuoteSvc     quotedomain.Service
	TemplateSvc  templatedomain.Service
	ZoneSvc      zonedomain.Service
	FreeshipSvc  freeship.Service
	WhitelistSvc whitelist.Service
	ShipfileSvc  shipfile.Service
}

type Server struct {
	cfg          config.Config
	log          *zap.Logger
	quoteSvc     quotedomain.Service
	templateSvc  templatedomain.Service
	zoneSvc      zonedomain.Service
	freeshipSvc  freeship.Service
	whitelistSvc whitelist.Service
	shipfileSvc  shipfile.Service
}

func New(p Params) *Server {
	return &Server{
		cfg:          p.Config,
		log:          p.Log.Named("server"),
		quoteSvc:     p.QuoteSvc,
		templateSvc:  p.TemplateSvc,
		zoneSvc:      p.ZoneSvc,
		freeshipSvc:  p.FreeshipSvc,
		whitelistSvc: p.WhitelistSvc,
		shipfileSvc:  p.ShipfileSvc,
	}
}

var Module = fx.Module("server",
	fx.Provide(New),
	fx.Invoke(RunHTTP),
)

func (s *Server) Router() *gin.Engine {
	if s.cfg.Server.Mode != "" {
		gin.SetMode(s.cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", s.Healthz)
	s.registerMetrics(r)

	public := r.Group("/api/v1/public/shipping")
	{
		public.GET("/quote", s.Quote)
		public.GET("/countries", s.ListCountries)
		public.GET("/free-countries", s.ListFreeCountries)
	}

	admin := r.Group("/api/v1/admin/shipping-templates")
	{
		admin.GET("", s.ListTemplates)
		admin.POST("", s.UpsertTemplate)
		admin.GET("/:id", s.GetTemplate)
		admin.POST("/bulk-delete", s.BulkDeleteTemplates)
		admin.POST("/import", s.ImportTemplates)
		admin.GET("/export", s.ExportTemplates)
		admin.GET("/sample", s.SampleWorkbook)
		admin.GET("/zone-mappings", s.ListZoneMappings)
		admin.POST("/zone-mappings", s.SetZoneMappings)
		admin.GET("/free-shipping", s.ListFreeShipping)
		admin.POST("/free-shipping", s.SetFreeShipping)
		admin.GET("/allowed-countries", s.ListAllowedCountries)
		admin.POST("/allowed-countries", s.SetAllowedCountries)
	}
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunHTTP starts the HTTP listener on the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
