// Package storage 定义告警引擎的持久化接口与SQL方言
package storage

import (
	"context"

	"github.com/LENAX/alert-engine/pkg/core/alert"
	"github.com/LENAX/alert-engine/pkg/core/cache"
	"github.com/LENAX/alert-engine/pkg/core/suppression"
	"github.com/LENAX/alert-engine/pkg/core/workflow"
)

// WorkflowRepository 工作流状态存储接口（对外导出）
type WorkflowRepository interface {
	// ListActiveWorkflowIDs 查询状态为 not_started / in_progress 的工作流ID
	ListActiveWorkflowIDs(ctx context.Context) ([]string, error)
	// GetWorkflow 查询工作流并组装阶段/分区/步骤树，不存在时返回nil, nil
	GetWorkflow(ctx context.Context, id string) (*workflow.WorkflowInstance, error)
	// SaveWorkflow 保存工作流实例及其全部步骤（创建或更新）
	SaveWorkflow(ctx context.Context, wf *workflow.WorkflowInstance) error
	// DeleteWorkflow 删除工作流及其步骤，用于清理孤儿工作流
	DeleteWorkflow(ctx context.Context, id string) error
}

// ProjectRepository 项目存储接口
type ProjectRepository interface {
	// GetProject 查询项目，不存在时返回nil, nil
	GetProject(ctx context.Context, id string) (*workflow.Project, error)
	SaveProject(ctx context.Context, p *workflow.Project) error
}

// UserRepository 用户存储接口
type UserRepository interface {
	GetUser(ctx context.Context, id string) (*workflow.User, error)
	ListActiveUsersByRoles(ctx context.Context, roles []string) ([]*workflow.User, error)
	SaveUser(ctx context.Context, u *workflow.User) error
}

// OverrideRepository 阶段覆盖规则存储接口
type OverrideRepository interface {
	ListActiveOverrides(ctx context.Context, workflowID string) ([]*suppression.PhaseOverride, error)
	SaveOverride(ctx context.Context, o *suppression.PhaseOverride) error
}

// AlertRepository 告警与拦截审计存储接口
type AlertRepository interface {
	// CreateAlert 在同一事务内写入告警记录与通知
	CreateAlert(ctx context.Context, rec *alert.AlertRecord, n *alert.Notification) error
	ListAlerts(ctx context.Context, filter alert.Filter) ([]*alert.AlertRecord, error)
	ListNotifications(ctx context.Context, recipientID string) ([]*alert.Notification, error)
	SaveSuppressedAlert(ctx context.Context, s *alert.SuppressedAlert) error
	ListSuppressedAlerts(ctx context.Context, workflowID string) ([]*alert.SuppressedAlert, error)
}

// Store 全部存储接口的组合，sqlstore与memory均实现此接口
type Store interface {
	WorkflowRepository
	ProjectRepository
	UserRepository
	OverrideRepository
	AlertRepository

	// DedupStore 返回与该存储同生命周期的持久化去重存储
	DedupStore() cache.DedupStore
	// Ping 检查存储是否可用
	Ping(ctx context.Context) error
	Close() error
}
