package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/alert-engine/pkg/api/dto"
	"github.com/LENAX/alert-engine/pkg/core/engine"
)

// SweepHandler 巡检与单工作流检查处理器
type SweepHandler struct {
	engine *engine.Engine
}

// NewSweepHandler 创建SweepHandler
func NewSweepHandler(eng *engine.Engine) *SweepHandler {
	return &SweepHandler{engine: eng}
}

// Trigger 手动触发全量巡检，后台执行
// POST /api/v1/sweeps
func (h *SweepHandler) Trigger(c *gin.Context) {
	if !h.engine.TriggerManualSweep(c.Request.Context()) {
		c.JSON(http.StatusConflict, dto.NewErrorResponse(409, "全量巡检正在进行中"))
		return
	}
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(dto.SweepAccepted{
		Mode:       string(engine.ModeFull),
		Trigger:    engine.TriggerManual,
		AcceptedAt: time.Now(),
	}))
}

// Status 巡检运行状态与定时任务
// GET /api/v1/sweeps
func (h *SweepHandler) Status(c *gin.Context) {
	status := dto.SweepStatus{
		FullRunning: h.engine.SweepInProgress(engine.ModeFull),
		FastRunning: h.engine.SweepInProgress(engine.ModeFast),
		Jobs:        []dto.CronEntry{},
	}
	for _, e := range h.engine.CronScheduler().Entries() {
		entry := dto.CronEntry{Name: e.Name, Spec: e.Spec}
		if !e.Next.IsZero() {
			next := e.Next
			entry.Next = &next
		}
		if !e.Prev.IsZero() {
			prev := e.Prev
			entry.Prev = &prev
		}
		status.Jobs = append(status.Jobs, entry)
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(status))
}

// Check 立即检查单个工作流
// POST /api/v1/workflows/:id/check
func (h *SweepHandler) Check(c *gin.Context) {
	id := c.Param("id")
	res, err := h.engine.CheckWorkflow(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, engine.ErrWorkflowNotFound) {
			c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, "工作流不存在"))
			return
		}
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("检查工作流失败: %v", err)))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(res))
}
