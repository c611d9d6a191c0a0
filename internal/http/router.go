package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/userhub/internal/cache"
	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/repo/postgres"
	"github.com/geocoder89/userhub/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"
)

func NewRouter(cfg config.Config, log *slog.Logger, pool *pgxpool.Pool, store *cache.Cache, reg *prometheus.Registry) *gin.Engine {
	if !cfg.Dev() {
		gin.SetMode(gin.ReleaseMode)
	}

	handlers.DevMode = cfg.Dev()
	handlers.UseJSONFieldNames()

	r := gin.New()

	prom := observability.NewProm(reg)
	limiter := middlewares.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.RequireJSON())
	r.Use(otelgin.Middleware("userhub"))
	r.Use(prom.GinHandleMiddleware())
	r.Use(limiter.LimitMiddleware())

	// health

	dbPing := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	cachePing := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return store.Ping(ctx)
	}

	h := handlers.NewHealthHandler(dbPing, cachePing)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// wire up repository, service and handler

	usersRepo := postgres.NewUsersRepo(pool, prom)
	usersSvc := service.NewUserService(usersRepo, service.BcryptHasher{}, log)
	usersHandler := handlers.NewUsersHandlerWithCache(usersSvc, store, prom)

	v1 := r.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			users.POST("", usersHandler.CreateUser)
			users.GET("", usersHandler.ListUsers)
			users.GET("/:id", usersHandler.GetUserByID)
			users.PUT("/:id", usersHandler.UpdateUser)
			users.PATCH("/:id/status", usersHandler.UpdateUserStatus)
			users.PATCH("/:id/change-password", usersHandler.ChangePassword)
			users.DELETE("/:id", usersHandler.DeleteUser)
		}
	}

	return r
}
