package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/alert-engine/pkg/api/dto"
	"github.com/LENAX/alert-engine/pkg/core/events"
)

// EventHandler 工作流状态变更事件接入
type EventHandler struct {
	publisher events.Publisher
}

// NewEventHandler 创建EventHandler
func NewEventHandler(publisher events.Publisher) *EventHandler {
	return &EventHandler{publisher: publisher}
}

// Ingest 接收业务系统上报的事件并投递到事件总线
// POST /api/v1/events
func (h *EventHandler) Ingest(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("请求参数错误: %v", err)))
		return
	}

	t := events.EventType(req.Type)
	if !t.IsInbound() {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("不支持的事件类型: %s", req.Type)))
		return
	}

	ev := events.NewEvent(t, req.WorkflowID, nil).
		WithProject(req.ProjectID).
		WithStep(req.StepID).
		WithMetadata("source", "api")
	if err := h.publisher.Publish(c.Request.Context(), ev); err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("投递事件失败: %v", err)))
		return
	}

	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(dto.EventAccepted{
		EventID:    ev.ID,
		Type:       string(ev.Type),
		WorkflowID: ev.WorkflowID,
	}))
}
