package dto

// EventRequest 业务系统上报的工作流状态变更事件
type EventRequest struct {
	Type       string `json:"type" binding:"required"`
	WorkflowID string `json:"workflow_id" binding:"required"`
	ProjectID  string `json:"project_id" binding:"omitempty"`
	StepID     string `json:"step_id" binding:"omitempty"`
}

// AlertQueryRequest 告警查询请求
type AlertQueryRequest struct {
	WorkflowID  string `form:"workflow_id" binding:"omitempty"`
	RecipientID string `form:"recipient_id" binding:"omitempty"`
	Category    string `form:"category" binding:"omitempty,oneof=warning urgent overdue section_start"`
	Status      string `form:"status" binding:"omitempty,oneof=active acknowledged dismissed completed"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// SuppressedQueryRequest 拦截审计查询请求
type SuppressedQueryRequest struct {
	WorkflowID string `form:"workflow_id" binding:"required"`
}

// GetDefaultLimit 获取默认limit
func (r *AlertQueryRequest) GetDefaultLimit() int {
	if r.Limit <= 0 {
		return 100
	}
	return r.Limit
}
