// Package suppression 根据阶段覆盖规则拦截告警并留存审计记录
package suppression

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LENAX/alert-engine/pkg/core/alert"
)

// PhaseOverride 阶段覆盖规则（对外导出）
// 用于工作在常规流程之外处理时，屏蔽指定阶段的告警
type PhaseOverride struct {
	ID               string    `json:"id"`
	WorkflowID       string    `json:"workflow_id"`
	SuppressedPhases []string  `json:"suppressed_phases"`
	Reason           string    `json:"reason"`
	Active           bool      `json:"active"`
	CreatedBy        string    `json:"created_by"`
	CreateTime       time.Time `json:"create_time"`
}

// Covers 是否屏蔽该阶段
func (o *PhaseOverride) Covers(phase string) bool {
	if !o.Active {
		return false
	}
	for _, p := range o.SuppressedPhases {
		if p == phase {
			return true
		}
	}
	return false
}

// OverrideSource 覆盖规则数据源，每次评估都重新查询，不做缓存
type OverrideSource interface {
	ListActiveOverrides(ctx context.Context, workflowID string) ([]*PhaseOverride, error)
}

// AuditSink 拦截审计记录落库接口
type AuditSink interface {
	SaveSuppressedAlert(ctx context.Context, s *alert.SuppressedAlert) error
}

// Decision 过滤结果
type Decision struct {
	Suppressed bool
	Override   *PhaseOverride
	Audit      *alert.SuppressedAlert
}

// Filter 告警拦截器
type Filter struct {
	overrides OverrideSource
	audit     AuditSink
	now       func() time.Time
}

// NewFilter 创建拦截器
func NewFilter(overrides OverrideSource, audit AuditSink, now func() time.Time) *Filter {
	if now == nil {
		now = time.Now
	}
	return &Filter{overrides: overrides, audit: audit, now: now}
}

// Check 检查告警草稿是否被拦截
// 被拦截时不写告警，但写入一条审计记录（原标题、正文、优先级、覆盖规则ID、原因）
func (f *Filter) Check(ctx context.Context, d alert.Draft) (Decision, error) {
	overrides, err := f.overrides.ListActiveOverrides(ctx, d.WorkflowID)
	if err != nil {
		return Decision{}, fmt.Errorf("查询阶段覆盖规则失败: %w", err)
	}

	for _, o := range overrides {
		if !o.Covers(d.Phase) {
			continue
		}
		reason := o.Reason
		if reason == "" {
			reason = fmt.Sprintf("phase %s is overridden", d.Phase)
		}
		audit := &alert.SuppressedAlert{
			ID:         uuid.NewString(),
			WorkflowID: d.WorkflowID,
			StepID:     d.StepID,
			Phase:      d.Phase,
			Section:    d.Section,
			Category:   d.Category,
			Priority:   d.Priority,
			Title:      d.Title,
			Message:    d.Message,
			OverrideID: o.ID,
			Reason:     reason,
			CreateTime: f.now(),
		}
		if err := f.audit.SaveSuppressedAlert(ctx, audit); err != nil {
			return Decision{}, fmt.Errorf("保存拦截审计记录失败: %w", err)
		}
		return Decision{Suppressed: true, Override: o, Audit: audit}, nil
	}
	return Decision{}, nil
}
