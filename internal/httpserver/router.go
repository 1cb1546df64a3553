package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"mailtriage/internal/api"
	"mailtriage/pkg/mq"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	triageHandler *api.TriageHandler,
	tokenHandler *api.TokenHandler,
	mailHandler *api.MailHandler,
	rdb *redis.Client,
	publisher *mq.Publisher,
) *Router {
	r := gin.Default()

	r.Use(TraceMiddleware())
	r.Use(MetricsMiddleware())

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := rdb.Ping(ctx).Err(); err != nil {
			c.JSON(500, gin.H{"status": "redis_not_ready", "error": err.Error()})
			return
		}

		if publisher != nil && !publisher.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Triage intake: enqueue only, the worker owns the pipeline
	r.POST("/triage/:provider", triageHandler.Enqueue)

	// Token write path (auth callbacks land tokens here)
	r.PUT("/tokens/:identity", tokenHandler.Upsert)

	// Synchronous mail proxies
	r.GET("/mail/:provider/list/:identity", mailHandler.List)
	r.GET("/mail/:provider/read/:identity/:id", mailHandler.Read)

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
