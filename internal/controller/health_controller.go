package controller

import (
	"context"
	"learning_analytics/internal/util"
	"learning_analytics/pkg/logger"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const healthTimeout = 3 * time.Second

type HealthController struct {
	Driver string
	Ping   func(ctx context.Context) error
	Redis  *redis.Client
}

func NewHealthController(driver string, ping func(ctx context.Context) error, rdb *redis.Client) *HealthController {
	return &HealthController{Driver: driver, Ping: ping, Redis: rdb}
}

// HealthCheck 检查存储后端和 Redis 的连通性
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), healthTimeout)
	defer cancel()

	log := logger.Named("health")
	healthy := true
	components := gin.H{}

	if err := c.Ping(pingCtx); err != nil {
		log.Warn("Database health check failed", zap.String("driver", c.Driver), zap.Error(err))
		components["database"] = "down"
		healthy = false
	} else {
		components["database"] = "up"
	}

	// Redis 可选，未配置时不影响健康状态
	switch {
	case c.Redis == nil:
		components["redis"] = "disabled"
	case c.Redis.Ping(pingCtx).Err() != nil:
		log.Warn("Redis health check failed")
		components["redis"] = "down"
		healthy = false
	default:
		components["redis"] = "up"
	}

	body := gin.H{
		"driver":     c.Driver,
		"components": components,
	}
	if !healthy {
		body["status"] = "degraded"
		util.ServiceUnavailable(ctx, body)
		return
	}
	body["status"] = "ok"
	util.Success(ctx, body)
}
