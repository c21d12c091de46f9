package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tably/tably/internal/config"
	coupondomain "github.com/tably/tably/internal/coupon/domain"
	programdomain "github.com/tably/tably/internal/couponprogram/domain"
	templatedomain "github.com/tably/tably/internal/coupontemplate/domain"
	issuancedomain "github.com/tably/tably/internal/issuance/domain"
	"github.com/tably/tably/internal/observability/logger"
	"github.com/tably/tably/internal/observability/tracing"
	orderdomain "github.com/tably/tably/internal/order/domain"
	"github.com/tably/tably/internal/ratelimit"
	userdomain "github.com/tably/tably/internal/userdirectory/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("server",
	fx.Provide(New),
	fx.Invoke(Run),
)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger

	Templates templatedomain.Service
	Programs  programdomain.Service
	Coupons   coupondomain.Service
	Issuance  issuancedomain.Service
	Orders    orderdomain.Service
	Users     userdomain.Service

	IssueLimiter ratelimit.IssueLimiter
}

type Server struct {
	cfg    config.Config
	log    *zap.Logger
	engine *gin.Engine

	templates templatedomain.Service
	programs  programdomain.Service
	coupons   coupondomain.Service
	issuance  issuancedomain.Service
	orders    orderdomain.Service
	users     userdomain.Service

	issueLimiter ratelimit.IssueLimiter
}

func New(p Params) *Server {
	s := &Server{
		cfg:          p.Config,
		log:          p.Log.Named("server"),
		templates:    p.Templates,
		programs:     p.Programs,
		coupons:      p.Coupons,
		issuance:     p.Issuance,
		orders:       p.Orders,
		users:        p.Users,
		issueLimiter: p.IssueLimiter,
	}
	s.engine = s.newEngine()
	return s
}

func (s *Server) newEngine() *gin.Engine {
	if s.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		Debug:           s.cfg.Environment != "production",
		ErrorClassifier: classifyErrorForLog,
	}))
	engine.Use(tracing.GinMiddleware())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.cfg.AppVersion})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.registerRoutes(engine)
	return engine
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	api := engine.Group("/api")

	api.POST("/coupon_templates", s.createTemplate)
	api.GET("/coupon_templates", s.listTemplates)
	api.GET("/coupon_templates/:id", s.getTemplate)
	api.PUT("/coupon_templates/:id", s.updateTemplate)

	api.POST("/coupon_programs", s.createProgram)
	api.GET("/coupon_programs", s.listPrograms)
	api.GET("/coupon_programs/:id", s.getProgram)
	api.PUT("/coupon_programs/:id", s.updateProgram)
	api.POST("/coupon_programs/:id/issue", s.issueProgram)

	api.POST("/users", s.createUser)
	api.GET("/users/:id/coupons", s.listUserCoupons)

	api.POST("/orders", s.createOrder)
	api.GET("/orders", s.listOrders)
	api.GET("/orders/:id", s.getOrder)
	api.POST("/orders/:id/status", s.setOrderStatus)
	api.POST("/orders/:id/advance", s.advanceOrder)
	api.POST("/orders/:id/amendments", s.createAmendment)
	api.GET("/orders/:id/amendments", s.listAmendments)
}

// Run binds the HTTP server to the fx lifecycle with graceful shutdown.
func Run(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("http server starting", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.log.Info("http server shutting down")
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
