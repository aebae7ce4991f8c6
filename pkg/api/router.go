// Package api 告警引擎的运维HTTP接口
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/LENAX/alert-engine/pkg/api/handler"
	"github.com/LENAX/alert-engine/pkg/api/middleware"
	"github.com/LENAX/alert-engine/pkg/core/engine"
	"github.com/LENAX/alert-engine/pkg/core/events"
	"github.com/LENAX/alert-engine/pkg/storage"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	Engine    *engine.Engine
	Store     storage.Store
	Publisher events.Publisher // 入站事件投递目标，通常是事件总线
	Logger    *zap.Logger
	Version   string
}

// SetupRouter 设置路由
func SetupRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("api")

	router := gin.New()

	// 全局中间件
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))

	sweepHandler := handler.NewSweepHandler(deps.Engine)
	eventHandler := handler.NewEventHandler(deps.Publisher)
	alertHandler := handler.NewAlertHandler(deps.Store)
	healthHandler := handler.NewHealthHandler(deps.Version, deps.Store, deps.Engine.IsRunning)

	// 健康检查与指标（不带前缀）
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		sweeps := v1.Group("/sweeps")
		{
			sweeps.GET("", sweepHandler.Status)
			sweeps.POST("", sweepHandler.Trigger)
		}

		v1.POST("/workflows/:id/check", sweepHandler.Check)
		v1.POST("/events", eventHandler.Ingest)
		v1.GET("/alerts", alertHandler.List)
		v1.GET("/suppressed-alerts", alertHandler.ListSuppressed)
	}

	return router
}
