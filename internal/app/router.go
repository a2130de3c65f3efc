package app

import (
	"context"
	"learning_analytics/internal/controller"
	"learning_analytics/pkg/monitoring"
	"learning_analytics/pkg/security"
	"learning_analytics/pkg/tracing"
	"time"

	"github.com/gin-gonic/gin"
)

func (a *App) setupMiddlewares(ctx context.Context, router *gin.Engine) {
	router.Use(security.Secure())

	rl := a.Config.RateLimit
	if rl.MaxRequests > 0 && rl.WindowMinutes > 0 {
		router.Use(security.RateLimiter(ctx, rl.MaxRequests, time.Duration(rl.WindowMinutes)*time.Minute))
	}

	// 分布式追踪中间件
	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// registerRoutes 只有运维接口，数据读写由调用方直接使用 service 包
func (a *App) registerRoutes(router *gin.Engine, health *controller.HealthController) {
	router.GET("/health", health.HealthCheck)
	router.GET("/metrics", monitoring.PrometheusHandler())
}
