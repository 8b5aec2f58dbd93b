package server

import (
	"context"
	"net/http"

	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/config"
	grocerydomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/grocery/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServerParam struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	GrocerySvc grocerydomain.Service
}

type Server struct {
	engine     *gin.Engine
	addr       string
	log        *zap.Logger
	grocerysvc grocerydomain.Service
}

func NewEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	return engine
}

func NewServer(p ServerParam, engine *gin.Engine) *Server {
	return &Server{
		engine:     engine,
		addr:       p.Config.Server.Addr,
		log:        p.Log.Named("server"),
		grocerysvc: p.GrocerySvc,
	}
}

func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	{
		api.GET("/grocery/basket/:region", s.GetBasket)
		api.POST("/grocery/refresh", s.RefreshCache)
		api.GET("/grocery/status", s.GetStatus)
	}
}

func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("http server starting", zap.String("addr", s.addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
