package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/vapor-share-api/internal/handler"
	"github.com/noah-isme/vapor-share-api/internal/middleware"
	"github.com/noah-isme/vapor-share-api/internal/models"
	"github.com/noah-isme/vapor-share-api/internal/service"
	"github.com/noah-isme/vapor-share-api/pkg/config"
	appErrors "github.com/noah-isme/vapor-share-api/pkg/errors"
	"github.com/noah-isme/vapor-share-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/vapor-share-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/vapor-share-api/pkg/middleware/requestid"
	"github.com/noah-isme/vapor-share-api/pkg/response"
)

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Handlers groups the HTTP handlers mounted by NewRouter. Blobs is nil unless the local
// provider is active.
type Handlers struct {
	Upload        *handler.UploadHandler
	Retrieval     *handler.RetrievalHandler
	Cleanup       *handler.CleanupHandler
	Notifications *handler.NotificationHandler
	Blobs         *handler.BlobHandler
	Metrics       *handler.MetricsHandler
}

// Dependencies are the cross-cutting collaborators of the router.
type Dependencies struct {
	Logger   *zap.Logger
	Metrics  *service.MetricsService
	Auth     TokenValidator
	Attempts *service.AttemptLimiter
}

// NewRouter builds the gin engine with every route mounted at the root and under the
// configured API prefix.
func NewRouter(cfg *config.Config, deps Dependencies, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "Route not found"))
	})
	r.NoMethod(func(c *gin.Context) {
		response.Error(c, appErrors.ErrMethodNotAllowed)
	})

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerShareRoutes(&r.RouterGroup, cfg, deps, h)
	if prefix := strings.TrimRight(cfg.APIPrefix, "/"); prefix != "" {
		registerShareRoutes(r.Group(prefix), cfg, deps, h)
	}

	return r
}

func registerShareRoutes(group *gin.RouterGroup, cfg *config.Config, deps Dependencies, h Handlers) {
	retrieve := group.Group("/retrieve", middleware.AttemptLimit(deps.Attempts))
	retrieve.POST("", h.Retrieval.Inspect)
	retrieve.GET("", h.Retrieval.Download)

	group.POST("/cleanup", middleware.CleanupToken(cfg.Cleanup.Token), h.Cleanup.Sweep)

	secured := group.Group("", middleware.JWT(deps.Auth))
	secured.POST("/upload", h.Upload.Upload)
	secured.GET("/notifications", h.Notifications.List)
	secured.PATCH("/notifications/:id/read", h.Notifications.MarkRead)

	if h.Blobs != nil {
		group.GET("/blobs/:token", h.Blobs.Serve)
	}
}
