package api

import (
	"context"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/config"
	_ "github.com/d60-Lab/gin-blog/docs"
	"github.com/d60-Lab/gin-blog/internal/api/handler"
	"github.com/d60-Lab/gin-blog/internal/middleware"
	"github.com/d60-Lab/gin-blog/pkg/database"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

const healthTimeout = 2 * time.Second

// SetupRouter 组装中间件与路由；rdb 为 nil 时限流退化为进程内令牌桶
func SetupRouter(cfg *config.Config, h *handler.Handler, db *gorm.DB, rdb *redis.Client) (*gin.Engine, error) {
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		sentrygin.New(sentrygin.Options{Repanic: true}),
	)
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	if c, ok := corsConfig(cfg.CORS); ok {
		r.Use(cors.New(c))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", health(db, rdb))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(newLimiter(cfg.RateLimit, rdb)))
	}
	h.RegisterRoutes(v1)
	return r, nil
}

func newLimiter(cfg config.RateLimitConfig, rdb *redis.Client) middleware.Limiter {
	if rdb != nil {
		return middleware.NewRedisLimiter(rdb, cfg.Burst, cfg.Window)
	}
	return middleware.NewLocalLimiter(cfg.RPS, cfg.Burst)
}

func corsConfig(cfg config.CORSConfig) (cors.Config, bool) {
	if len(cfg.AllowOrigins) == 0 {
		return cors.Config{}, false
	}
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c, true
		}
	}
	c.AllowOrigins = cfg.AllowOrigins
	return c, true
}

// health 检查数据库与（可选）Redis 连通性
func health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		if err := database.Ping(ctx, db); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		status := gin.H{"status": "ok", "database": "ok"}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				status["redis"] = "unavailable"
			} else {
				status["redis"] = "ok"
			}
		}
		response.Success(c, status)
	}
}
