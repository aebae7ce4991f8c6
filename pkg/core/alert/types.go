// Package alert 负责告警记录的生成与持久化
package alert

import (
	"time"

	"github.com/LENAX/alert-engine/pkg/core/policy"
)

// Status 告警状态
type Status string

const (
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
	StatusDismissed    Status = "dismissed"
	StatusCompleted    Status = "completed"
)

// NotificationTypeWorkflowAlert 工作流告警通知类型
const NotificationTypeWorkflowAlert = "workflow_alert"

// AlertRecord 持久化的告警记录（对外导出）
// 创建后引擎不再修改，确认/忽略/完成由外部CRUD层处理
type AlertRecord struct {
	ID           string          `json:"id"`
	WorkflowID   string          `json:"workflow_id"`
	ProjectID    string          `json:"project_id"`
	StepID       string          `json:"step_id"`
	StepName     string          `json:"step_name"`
	Phase        string          `json:"phase"`
	Section      string          `json:"section"`
	Category     policy.Category `json:"category"`
	Priority     policy.Priority `json:"priority"`
	RecipientID  string          `json:"recipient_id"`
	Title        string          `json:"title"`
	Message      string          `json:"message"`
	DaysUntilDue int             `json:"days_until_due"`
	DaysOverdue  int             `json:"days_overdue"`
	Status       Status          `json:"status"`
	CreateTime   time.Time       `json:"create_time"`
	UpdateTime   time.Time       `json:"update_time"`
}

// Notification 轻量通知记录，供UI即时投递
type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	AlertID     string    `json:"alert_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Read        bool      `json:"read"`
	CreateTime  time.Time `json:"create_time"`
}

// SuppressedAlert 被阶段覆盖规则拦截的告警审计记录
type SuppressedAlert struct {
	ID         string          `json:"id"`
	WorkflowID string          `json:"workflow_id"`
	StepID     string          `json:"step_id"`
	Phase      string          `json:"phase"`
	Section    string          `json:"section"`
	Category   policy.Category `json:"category"`
	Priority   policy.Priority `json:"priority"`
	Title      string          `json:"title"`
	Message    string          `json:"message"`
	OverrideID string          `json:"override_id"`
	Reason     string          `json:"reason"`
	CreateTime time.Time       `json:"create_time"`
}

// Draft 尚未分配通知对象的告警草稿
type Draft struct {
	WorkflowID   string
	ProjectID    string
	StepID       string
	StepName     string
	Phase        string
	Section      string
	Category     policy.Category
	Priority     policy.Priority
	Title        string
	Message      string
	DaysUntilDue int
	DaysOverdue  int
}

// Filter 告警查询条件
type Filter struct {
	WorkflowID  string
	RecipientID string
	Category    policy.Category
	Status      Status
	Limit       int
}
