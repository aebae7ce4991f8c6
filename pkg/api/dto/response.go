package dto

import "time"

// APIResponse 通用API响应结构
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) APIResponse[any] {
	return APIResponse[any]{
		Code:    code,
		Message: message,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// ReadyResponse 就绪检查响应
type ReadyResponse struct {
	Status        string `json:"status"`
	Storage       string `json:"storage"`
	EngineRunning bool   `json:"engine_running"`
}

// SweepAccepted 手动巡检受理响应
type SweepAccepted struct {
	Mode       string    `json:"mode"`
	Trigger    string    `json:"trigger"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// SweepStatus 巡检运行状态
type SweepStatus struct {
	FullRunning bool        `json:"full_running"`
	FastRunning bool        `json:"fast_running"`
	Jobs        []CronEntry `json:"jobs"`
}

// CronEntry 定时任务信息
type CronEntry struct {
	Name string     `json:"name"`
	Spec string     `json:"spec"`
	Next *time.Time `json:"next,omitempty"`
	Prev *time.Time `json:"prev,omitempty"`
}

// EventAccepted 事件受理响应
type EventAccepted struct {
	EventID    string `json:"event_id"`
	Type       string `json:"type"`
	WorkflowID string `json:"workflow_id"`
}

// ListResponse 列表响应
type ListResponse[T any] struct {
	Total int `json:"total"`
	Items []T `json:"items"`
}
