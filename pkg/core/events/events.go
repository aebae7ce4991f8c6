// Package events 定义告警引擎的事件类型，并提供基于watermill的进程内事件总线
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType 事件类型
type EventType string

const (
	// 入站事件（由CRUD层发布，触发单个工作流检查）
	EventStepCompleted   EventType = "step.completed"   // 步骤完成
	EventProjectCreated  EventType = "project.created"  // 项目创建
	EventWorkflowChanged EventType = "workflow.changed" // 工作流变更

	// 巡检事件
	EventSweepStarted   EventType = "sweep.started"   // 巡检开始
	EventSweepCompleted EventType = "sweep.completed" // 巡检完成
	EventSweepSkipped   EventType = "sweep.skipped"   // 上一轮未结束，跳过

	// 工作流事件
	EventWorkflowChecked      EventType = "workflow.checked"       // 单个工作流检查完成
	EventWorkflowCheckFailed  EventType = "workflow.check_failed"  // 检查失败（超时/IO错误）
	EventWorkflowOrphanPurged EventType = "workflow.orphan_purged" // 孤儿工作流已清理

	// 告警事件
	EventAlertCreated        EventType = "alert.created"        // 告警已写入
	EventAlertSuppressed     EventType = "alert.suppressed"     // 告警被阶段覆盖拦截
	EventRecipientUnresolved EventType = "recipient.unresolved" // 没有可通知的用户
)

// InboundTypes 触发工作流检查的事件类型
var InboundTypes = []EventType{EventStepCompleted, EventProjectCreated, EventWorkflowChanged}

// IsInbound 是否为入站触发事件
func (t EventType) IsInbound() bool {
	for _, v := range InboundTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Event 引擎事件基础结构
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	WorkflowID string            `json:"workflow_id,omitempty"`
	ProjectID  string            `json:"project_id,omitempty"`
	StepID     string            `json:"step_id,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Payload    interface{}       `json:"payload,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// NewEvent 创建事件
func NewEvent(eventType EventType, workflowID string, payload interface{}) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		WorkflowID: workflowID,
		Timestamp:  time.Now(),
		Payload:    payload,
		Metadata:   make(map[string]string),
	}
}

// WithMetadata 添加元数据
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// WithStep 设置关联步骤
func (e *Event) WithStep(stepID string) *Event {
	e.StepID = stepID
	return e
}

// WithProject 设置关联项目
func (e *Event) WithProject(projectID string) *Event {
	e.ProjectID = projectID
	return e
}

// SweepPayload 巡检事件负载
type SweepPayload struct {
	Mode       string `json:"mode"` // full / fast
	Trigger    string `json:"trigger"`
	Workflows  int    `json:"workflows"`
	Alerts     int    `json:"alerts"`
	Suppressed int    `json:"suppressed"`
	Failed     int    `json:"failed"`
	Orphans    int    `json:"orphans"`
	DurationMs int64  `json:"duration_ms"`
}

// AlertPayload 告警事件负载
type AlertPayload struct {
	Category   string   `json:"category"`
	Priority   string   `json:"priority"`
	Title      string   `json:"title"`
	Recipients []string `json:"recipients,omitempty"`
	OverrideID string   `json:"override_id,omitempty"`
}

// ErrorPayload 错误事件负载
type ErrorPayload struct {
	Message string `json:"message"`
}
