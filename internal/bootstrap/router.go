package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wemb-pms/pms-backend/config"
	httpapi "github.com/wemb-pms/pms-backend/internal/api/http"
	"github.com/wemb-pms/pms-backend/internal/api/http/middleware"
	"github.com/wemb-pms/pms-backend/internal/api/http/routes"
	catservice "github.com/wemb-pms/pms-backend/internal/catalog/service"
)

type RouterDeps struct {
	Config  *config.Config
	Stores  *Stores
	Catalog *catservice.CatalogService
	Log     *zap.Logger
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	cfg := dep.Config
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(dep.Log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-Id", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	stores := dep.Stores
	if stores == nil {
		stores = &Stores{}
	}
	// nil pool must stay a nil interface so health reports "disabled"
	var db httpapi.Pinger
	if stores.Pool != nil {
		db = stores.Pool
	}
	httpapi.NewHealthHandler(cfg.App.ServiceName, cfg.App.Version, db, stores.Redis).RegisterRoutes(r)

	r.Use(middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst).Middleware())
	routes.RegisterV1(r, routes.V1Deps{
		Pool:    stores.Pool,
		SQL:     stores.SQL,
		Catalog: dep.Catalog,
		Config:  cfg,
		Log:     dep.Log,
	})
	return r
}
