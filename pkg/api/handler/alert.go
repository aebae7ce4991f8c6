package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/alert-engine/pkg/api/dto"
	"github.com/LENAX/alert-engine/pkg/core/alert"
	"github.com/LENAX/alert-engine/pkg/core/policy"
	"github.com/LENAX/alert-engine/pkg/storage"
)

// AlertHandler 告警与拦截审计查询
type AlertHandler struct {
	alerts storage.AlertRepository
}

// NewAlertHandler 创建AlertHandler
func NewAlertHandler(alerts storage.AlertRepository) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// List 查询告警记录
// GET /api/v1/alerts
func (h *AlertHandler) List(c *gin.Context) {
	var query dto.AlertQueryRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("查询参数错误: %v", err)))
		return
	}

	recs, err := h.alerts.ListAlerts(c.Request.Context(), alert.Filter{
		WorkflowID:  query.WorkflowID,
		RecipientID: query.RecipientID,
		Category:    policy.Category(query.Category),
		Status:      alert.Status(query.Status),
		Limit:       query.GetDefaultLimit(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询告警失败: %v", err)))
		return
	}
	if recs == nil {
		recs = []*alert.AlertRecord{}
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[*alert.AlertRecord]{
		Total: len(recs),
		Items: recs,
	}))
}

// ListSuppressed 查询被阶段覆盖拦截的告警
// GET /api/v1/suppressed-alerts
func (h *AlertHandler) ListSuppressed(c *gin.Context) {
	var query dto.SuppressedQueryRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("查询参数错误: %v", err)))
		return
	}

	items, err := h.alerts.ListSuppressedAlerts(c.Request.Context(), query.WorkflowID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询拦截记录失败: %v", err)))
		return
	}
	if items == nil {
		items = []*alert.SuppressedAlert{}
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[*alert.SuppressedAlert]{
		Total: len(items),
		Items: items,
	}))
}
