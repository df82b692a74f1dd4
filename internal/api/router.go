package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cvbuilder/internal/api/middleware"
	"cvbuilder/internal/metrics"
)

// NewRouter 构建 Gin 路由引擎，挂载通用中间件、健康检查与指标端点。
// metricsSecret 非空时 /metrics 需要 X-Internal-Secret。
func NewRouter(logger *slog.Logger, metricsSecret string) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware(),
		gin.Recovery(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	metricsHandler := gin.WrapH(promhttp.Handler())
	if metricsSecret != "" {
		router.GET("/metrics", middleware.InternalSecretMiddleware(metricsSecret), metricsHandler)
	} else {
		router.GET("/metrics", metricsHandler)
	}

	return router
}
