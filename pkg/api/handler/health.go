package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/alert-engine/pkg/api/dto"
)

// Pinger 存储连通性检查
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version   string
	startTime time.Time
	store     Pinger
	running   func() bool
}

// NewHealthHandler 创建HealthHandler
func NewHealthHandler(version string, store Pinger, running func() bool) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
		store:     store,
		running:   running,
	}
}

// Health 存活检查
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    formatDuration(time.Since(h.startTime)),
		Timestamp: time.Now().Format(time.RFC3339),
	}))
}

// Ready 就绪检查，存储不可用时返回503
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	resp := dto.ReadyResponse{Status: "ready", Storage: "ok"}
	if h.running != nil {
		resp.EngineRunning = h.running()
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			resp.Status = "not_ready"
			resp.Storage = err.Error()
			c.JSON(http.StatusServiceUnavailable, dto.APIResponse[dto.ReadyResponse]{
				Code:    503,
				Message: "存储不可用",
				Data:    resp,
			})
			return
		}
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// formatDuration 格式化时长
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
