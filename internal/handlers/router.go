package handlers

import (
	"github.com/bluecarbon/registry/internal/metrics"
	"github.com/bluecarbon/registry/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterDeps carries everything NewRouter wires into routes
type RouterDeps struct {
	Projects       *ProjectHandler
	Auth           *AuthHandler
	Health         *HealthHandler
	Metrics        *metrics.Metrics
	JWT            middleware.JWTConfig
	AllowedOrigins []string
	UploadsDir     string
	UploadsPrefix  string
	Logger         *zap.Logger
}

// NewRouter builds the gin engine serving the registry API
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(d.Logger))
	router.Use(middleware.RequestLogger(d.Logger))
	if d.Metrics != nil {
		router.Use(middleware.Metrics(d.Metrics))
	}
	router.Use(middleware.CORS(d.AllowedOrigins))

	router.GET("/health", d.Health.Health)
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	if d.UploadsDir != "" {
		router.Static(d.UploadsPrefix, d.UploadsDir)
	}

	api := router.Group("/api")
	{
		projects := api.Group("/projects")
		projects.Use(middleware.OptionalAuth(d.JWT))
		{
			projects.POST("", d.Projects.Create)
			projects.GET("", d.Projects.List)
			projects.GET("/:id", d.Projects.Get)
		}

		api.POST("/signup", d.Auth.Signup)
		api.POST("/login", d.Auth.Login)
		api.POST("/login/recovery", d.Auth.Recover)
		api.POST("/logout", d.Auth.Logout)
		api.GET("/me", middleware.RequireAuth(d.JWT), d.Auth.Me)
	}

	return router
}
