package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/LENAX/alert-engine/pkg/core/alert"
	"github.com/LENAX/alert-engine/pkg/core/cache"
	"github.com/LENAX/alert-engine/pkg/core/events"
	"github.com/LENAX/alert-engine/pkg/core/policy"
	"github.com/LENAX/alert-engine/pkg/core/recipient"
	"github.com/LENAX/alert-engine/pkg/core/workflow"
)

// Mode 检查模式
type Mode string

const (
	ModeFull Mode = "full" // 全部类别
	ModeFast Mode = "fast" // 仅section_start
)

// CheckResult 单个工作流的检查结果
type CheckResult struct {
	WorkflowID   string `json:"workflow_id"`
	Mode         Mode   `json:"mode"`
	Skipped      bool   `json:"skipped"`  // 工作流已完成，未检查
	Orphaned     bool   `json:"orphaned"` // 项目缺失，工作流已清理
	Alerts       int    `json:"alerts"`   // 写入的告警记录数（按通知对象计）
	Suppressed   int    `json:"suppressed"`
	Deduplicated int    `json:"deduplicated"`
	Unresolved   int    `json:"unresolved"`
	StepErrors   int    `json:"step_errors"`
}

// CheckWorkflow 对单个工作流执行完整告警策略（事件触发与手动检查入口）
func (e *Engine) CheckWorkflow(ctx context.Context, workflowID string) (*CheckResult, error) {
	res, err := e.checkWorkflow(ctx, workflowID, ModeFull)
	e.recordCheck(ctx, workflowID, res, err)
	return res, err
}

// recordCheck 记录单个工作流检查的指标与事件
func (e *Engine) recordCheck(ctx context.Context, workflowID string, res *CheckResult, err error) {
	switch {
	case errors.Is(err, ErrWorkflowNotFound):
		workflowCheckTotal.WithLabelValues("not_found").Inc()
	case err != nil:
		workflowCheckTotal.WithLabelValues("failed").Inc()
		e.logger.Warn("工作流检查已放弃，下一轮重试",
			zap.String("workflow_id", workflowID),
			zap.Error(err))
		e.publish(ctx, events.NewEvent(events.EventWorkflowCheckFailed, workflowID, &events.ErrorPayload{Message: err.Error()}))
	case res.Orphaned:
		workflowCheckTotal.WithLabelValues("orphan").Inc()
	case res.Skipped:
		workflowCheckTotal.WithLabelValues("skipped").Inc()
	default:
		workflowCheckTotal.WithLabelValues("ok").Inc()
		e.publish(ctx, events.NewEvent(events.EventWorkflowChecked, workflowID, res).WithMetadata("mode", string(res.Mode)))
	}
}

func (e *Engine) checkWorkflow(parent context.Context, workflowID string, mode Mode) (*CheckResult, error) {
	ctx, cancel := context.WithTimeout(parent, e.opts.CheckTimeout)
	defer cancel()

	res := &CheckResult{WorkflowID: workflowID, Mode: mode}

	wf, err := e.workflows.GetWorkflow(ctx, workflowID)
	if err != nil {
		return res, fmt.Errorf("读取工作流 %s 失败: %w", workflowID, err)
	}
	if wf == nil {
		return res, fmt.Errorf("%s: %w", workflowID, ErrWorkflowNotFound)
	}
	if !wf.Status.IsActive() {
		res.Skipped = true
		return res, nil
	}

	project, err := e.projects.GetProject(ctx, wf.ProjectID)
	if err != nil {
		return res, fmt.Errorf("读取项目 %s 失败: %w", wf.ProjectID, err)
	}
	if project == nil {
		if err := e.purgeOrphan(ctx, wf); err != nil {
			return res, err
		}
		res.Orphaned = true
		return res, nil
	}

	now := e.now()
	timeBased := make(map[string]bool)

	for _, step := range wf.IncompleteSteps() {
		eval := e.evaluator.Evaluate(step, now)
		if eval.None() {
			continue
		}
		timeBased[step.ID] = true
		if mode != ModeFull {
			continue
		}
		key := cache.DedupKey{WorkflowID: wf.ID, Subject: cache.StepSubject(step.ID), Category: eval.Category}
		e.runStep(ctx, res, step, func() error {
			return e.deliver(ctx, res, wf, project, step, alert.Compose(wf, step, eval), key)
		})
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("检查工作流 %s 超时: %w", wf.ID, err)
		}
	}

	if err := e.checkSectionStart(ctx, res, wf, project, timeBased); err != nil {
		return res, err
	}
	return res, ctx.Err()
}

// checkSectionStart 处理section_start告警
// 已命中时间类告警的步骤不再参与（类别互斥，时间类优先）
func (e *Engine) checkSectionStart(ctx context.Context, res *CheckResult, wf *workflow.WorkflowInstance, project *workflow.Project, timeBased map[string]bool) error {
	cand := policy.SectionStartCandidates(wf)
	if cand.Empty() {
		return nil
	}

	sectionKey := cache.DedupKey{
		WorkflowID: wf.ID,
		Subject:    cache.SectionSubject(cand.Phase, cand.Section),
		Category:   policy.CategorySectionStart,
	}
	gateChecked, gateOpen := false, false

	for _, step := range cand.Steps {
		if timeBased[step.ID] {
			continue
		}
		eval := policy.Evaluation{Category: policy.CategorySectionStart}
		draft := alert.Compose(wf, step, eval)

		e.runStep(ctx, res, step, func() error {
			suppressed, err := e.suppressed(ctx, res, draft)
			if err != nil || suppressed {
				return err
			}

			// 进行中的工作流每个分区只通告一次
			if cand.PerSection {
				if !gateChecked {
					gateChecked = true
					ok, err := e.dedup.CheckAndMark(ctx, sectionKey, e.opts.Cooldowns.For(policy.CategorySectionStart))
					if err != nil {
						gateChecked = false
						return fmt.Errorf("分区去重检查失败: %w", err)
					}
					gateOpen = ok
				}
				if !gateOpen {
					res.Deduplicated++
					dedupHitsTotal.WithLabelValues(string(policy.CategorySectionStart)).Inc()
					return nil
				}
			}

			key := cache.DedupKey{WorkflowID: wf.ID, Subject: cache.StepSubject(step.ID), Category: policy.CategorySectionStart}
			err = e.mark(ctx, res, project, step, draft, key)
			if err != nil && cand.PerSection && gateOpen {
				e.forget(ctx, sectionKey)
			}
			return err
		})
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("检查工作流 %s 超时: %w", wf.ID, err)
		}
	}
	return nil
}

// runStep 在步骤级别捕获错误与panic，单个步骤失败不影响其他步骤
func (e *Engine) runStep(ctx context.Context, res *CheckResult, step *workflow.Step, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			res.StepErrors++
			stepErrorsTotal.Inc()
			e.logger.Error("步骤处理panic，已恢复",
				zap.String("workflow_id", step.WorkflowID),
				zap.String("step_id", step.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	if err := fn(); err != nil {
		res.StepErrors++
		stepErrorsTotal.Inc()
		e.logger.Warn("步骤处理失败",
			zap.String("workflow_id", step.WorkflowID),
			zap.String("step_id", step.ID),
			zap.Error(err))
	}
}

// deliver 时间类告警：拦截 → 去重 → 解析通知对象 → 写入
func (e *Engine) deliver(ctx context.Context, res *CheckResult, wf *workflow.WorkflowInstance, project *workflow.Project, step *workflow.Step, draft alert.Draft, key cache.DedupKey) error {
	suppressed, err := e.suppressed(ctx, res, draft)
	if err != nil || suppressed {
		return err
	}
	return e.mark(ctx, res, project, step, draft, key)
}

// suppressed 阶段覆盖检查，被拦截时写入审计记录
func (e *Engine) suppressed(ctx context.Context, res *CheckResult, draft alert.Draft) (bool, error) {
	dec, err := e.filter.Check(ctx, draft)
	if err != nil {
		return false, err
	}
	if !dec.Suppressed {
		return false, nil
	}
	res.Suppressed++
	alertsSuppressedTotal.WithLabelValues(string(draft.Category)).Inc()
	e.logger.Info("告警被阶段覆盖拦截",
		zap.String("workflow_id", draft.WorkflowID),
		zap.String("step_id", draft.StepID),
		zap.String("phase", draft.Phase),
		zap.String("category", string(draft.Category)),
		zap.String("override_id", dec.Override.ID))
	e.publish(ctx, events.NewEvent(events.EventAlertSuppressed, draft.WorkflowID, &events.AlertPayload{
		Category:   string(draft.Category),
		Priority:   string(draft.Priority),
		Title:      draft.Title,
		OverrideID: dec.Override.ID,
	}).WithStep(draft.StepID).WithProject(draft.ProjectID))
	return true, nil
}

// mark 原子去重后解析通知对象并写入
// 写入失败撤销标记，下一轮重新评估；没有通知对象时保留标记，同一配置问题每个冷却期只报告一次
func (e *Engine) mark(ctx context.Context, res *CheckResult, project *workflow.Project, step *workflow.Step, draft alert.Draft, key cache.DedupKey) error {
	ok, err := e.dedup.CheckAndMark(ctx, key, e.opts.Cooldowns.For(draft.Category))
	if err != nil {
		return fmt.Errorf("去重检查失败: %w", err)
	}
	if !ok {
		res.Deduplicated++
		dedupHitsTotal.WithLabelValues(string(draft.Category)).Inc()
		return nil
	}

	recipients, err := e.resolver.Resolve(ctx, step, project, draft.Category)
	if errors.Is(err, recipient.ErrNoRecipients) {
		res.Unresolved++
		recipientsUnresolvedTotal.Inc()
		e.logger.Error("没有可通知的用户，告警未生成",
			zap.String("workflow_id", draft.WorkflowID),
			zap.String("step_id", step.ID),
			zap.String("role", step.DefaultResponsibleRole),
			zap.String("category", string(draft.Category)))
		e.publish(ctx, events.NewEvent(events.EventRecipientUnresolved, draft.WorkflowID, &events.AlertPayload{
			Category: string(draft.Category),
			Priority: string(draft.Priority),
			Title:    draft.Title,
		}).WithStep(step.ID).WithProject(draft.ProjectID))
		return nil
	}
	if err != nil {
		e.forget(ctx, key)
		return err
	}

	written, err := e.writer.Write(ctx, draft, recipients)
	res.Alerts += len(written)
	alertsCreatedTotal.WithLabelValues(string(draft.Category)).Add(float64(len(written)))
	if len(written) > 0 {
		ids := make([]string, 0, len(written))
		for _, rec := range written {
			ids = append(ids, rec.RecipientID)
		}
		e.publish(ctx, events.NewEvent(events.EventAlertCreated, draft.WorkflowID, &events.AlertPayload{
			Category:   string(draft.Category),
			Priority:   string(draft.Priority),
			Title:      draft.Title,
			Recipients: ids,
		}).WithStep(step.ID).WithProject(draft.ProjectID))
	}
	if err != nil {
		e.forget(ctx, key)
		return err
	}
	return nil
}

func (e *Engine) forget(ctx context.Context, key cache.DedupKey) {
	if err := e.dedup.Forget(context.WithoutCancel(ctx), key); err != nil {
		e.logger.Warn("撤销去重标记失败", zap.String("key", key.String()), zap.Error(err))
	}
}

// purgeOrphan 删除项目已不存在的工作流
func (e *Engine) purgeOrphan(ctx context.Context, wf *workflow.WorkflowInstance) error {
	if err := e.workflows.DeleteWorkflow(ctx, wf.ID); err != nil {
		return fmt.Errorf("清理孤儿工作流 %s 失败: %w", wf.ID, err)
	}
	e.logger.Info("项目不存在，已清理孤儿工作流",
		zap.String("workflow_id", wf.ID),
		zap.String("project_id", wf.ProjectID))
	e.publish(ctx, events.NewEvent(events.EventWorkflowOrphanPurged, wf.ID, nil).WithProject(wf.ProjectID))
	return nil
}
