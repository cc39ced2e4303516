package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/http/handlers"
	"github.com/taskhub/taskhub/internal/http/middlewares"
	"github.com/taskhub/taskhub/internal/observability"
	"github.com/taskhub/taskhub/internal/repo/postgres"
	"github.com/taskhub/taskhub/internal/security"
)

func NewRouter(cfg config.Config, pool *pgxpool.Pool) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// metrics registry backs both the middleware and /metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware("taskhub"))
	r.Use(prom.GinHandleMiddleware())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	tasksRepo := postgres.NewTasksRepo(pool, prom)

	// wire up handlers
	hasher := security.NewHasher(cfg.BcryptCost)
	jwtManager := auth.NewManager(cfg.JWTSecret, auth.TokenTTL)

	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, hasher, jwtManager, prom)
	tasksHandler := handlers.NewTasksHandler(tasksRepo)
	healthHandler := handlers.NewHealthHandler(pool)

	authMW := middlewares.NewAuthMiddleware(jwtManager)

	// Routes
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authMW.RequireAuth(), authHandler.Logout)
		authGroup.GET("/me", authMW.RequireAuth(), authHandler.Me)
	}

	tasksGroup := r.Group("/api/tasks")
	tasksGroup.Use(authMW.RequireAuth())
	{
		tasksGroup.GET("", tasksHandler.List)
		tasksGroup.POST("", tasksHandler.Create)
		tasksGroup.GET("/:id", tasksHandler.GetByID)
		tasksGroup.PUT("/:id", tasksHandler.Update)
		tasksGroup.DELETE("/:id", tasksHandler.Delete)
	}

	return r
}
