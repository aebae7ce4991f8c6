package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/LENAX/alert-engine/pkg/core/suppression"
	"github.com/LENAX/alert-engine/pkg/core/workflow"
	"github.com/LENAX/alert-engine/pkg/storage/dao"
)

var (
	instanceColumns = []string{"id", "project_id", "status", "current_phase", "current_section", "create_time", "update_time"}
	stepColumns     = []string{
		"id", "workflow_id", "step_key", "name", "phase", "phase_order", "section", "section_order",
		"sort_order", "is_completed", "completed_at", "scheduled_end_date", "alert_days",
		"default_responsible_role", "assigned_user_id", "sub_tasks",
	}
	projectColumns  = []string{"id", "name", "project_manager_id"}
	userColumns     = []string{"id", "name", "email", "role", "active"}
	overrideColumns = []string{"id", "workflow_id", "suppressed_phases", "reason", "active", "created_by", "create_time"}
)

const stepSelect = `SELECT id, workflow_id, step_key, name, phase, phase_order, section, section_order,
	sort_order, is_completed, completed_at, scheduled_end_date, alert_days,
	default_responsible_role, assigned_user_id, sub_tasks
	FROM workflow_step WHERE workflow_id = ?`

// ListActiveWorkflowIDs 查询需要巡检的工作流ID
func (s *Store) ListActiveWorkflowIDs(ctx context.Context) ([]string, error) {
	var ids []string
	query := s.db.Rebind(`SELECT id FROM workflow_instance WHERE status IN (?, ?) ORDER BY id`)
	if err := s.db.SelectContext(ctx, &ids, query, string(workflow.StatusNotStarted), string(workflow.StatusInProgress)); err != nil {
		return nil, fmt.Errorf("查询活跃工作流失败: %w", err)
	}
	return ids, nil
}

// GetWorkflow 查询工作流并组装步骤树
func (s *Store) GetWorkflow(ctx context.Context, id string) (*workflow.WorkflowInstance, error) {
	var inst dao.WorkflowInstanceDAO
	query := s.db.Rebind(`SELECT id, project_id, status, current_phase, current_section, create_time, update_time
		FROM workflow_instance WHERE id = ?`)
	if err := s.db.GetContext(ctx, &inst, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询工作流失败: %w", err)
	}

	var stepDAOs []dao.StepDAO
	if err := s.db.SelectContext(ctx, &stepDAOs, s.db.Rebind(stepSelect), id); err != nil {
		return nil, fmt.Errorf("查询工作流步骤失败: %w", err)
	}

	steps := make([]*workflow.Step, 0, len(stepDAOs))
	for i := range stepDAOs {
		st, err := stepFromDAO(&stepDAOs[i])
		if err != nil {
			// 单个损坏的步骤不影响同一工作流其他步骤的检查
			s.logger.Warn("跳过无法解析的步骤",
				zap.String("workflow_id", id),
				zap.String("step_id", stepDAOs[i].ID),
				zap.Error(err))
			continue
		}
		steps = append(steps, st)
	}

	wf := &workflow.WorkflowInstance{
		ID:             inst.ID,
		ProjectID:      inst.ProjectID,
		Status:         workflow.Status(inst.Status),
		CurrentPhase:   inst.CurrentPhase,
		CurrentSection: inst.CurrentSection,
		CreateTime:     inst.CreateTime,
		UpdateTime:     inst.UpdateTime,
	}
	return workflow.Assemble(wf, steps), nil
}

// SaveWorkflow 保存工作流实例与步骤，步骤整体替换
func (s *Store) SaveWorkflow(ctx context.Context, wf *workflow.WorkflowInstance) error {
	now := s.now().UTC()
	if wf.CreateTime.IsZero() {
		wf.CreateTime = now
	}
	wf.UpdateTime = now

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	inst := &dao.WorkflowInstanceDAO{
		ID:             wf.ID,
		ProjectID:      wf.ProjectID,
		Status:         string(wf.Status),
		CurrentPhase:   wf.CurrentPhase,
		CurrentSection: wf.CurrentSection,
		CreateTime:     wf.CreateTime.UTC(),
		UpdateTime:     wf.UpdateTime.UTC(),
	}
	upsert := s.dialect.UpsertSQL("workflow_instance", instanceColumns, []string{"id"}, instanceColumns[1:])
	if _, err := tx.NamedExecContext(ctx, upsert, inst); err != nil {
		return fmt.Errorf("保存工作流实例失败: %w", err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM workflow_step WHERE workflow_id = ?`), wf.ID); err != nil {
		return fmt.Errorf("清理旧步骤失败: %w", err)
	}

	insertStep := fmt.Sprintf("INSERT INTO workflow_step (%s) VALUES (%s)",
		joinColumns(stepColumns), joinNamed(stepColumns))
	for _, st := range wf.Steps() {
		st.WorkflowID = wf.ID
		d, err := stepToDAO(st)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, insertStep, d); err != nil {
			return fmt.Errorf("保存步骤 %s 失败: %w", st.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// DeleteWorkflow 删除工作流、步骤与覆盖规则，历史告警保留
func (s *Store) DeleteWorkflow(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM workflow_step WHERE workflow_id = ?`,
		`DELETE FROM phase_override WHERE workflow_id = ?`,
		`DELETE FROM workflow_instance WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), id); err != nil {
			return fmt.Errorf("删除工作流失败: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// GetProject 查询项目
func (s *Store) GetProject(ctx context.Context, id string) (*workflow.Project, error) {
	var d dao.ProjectDAO
	if err := s.db.GetContext(ctx, &d, s.db.Rebind(`SELECT id, name, project_manager_id FROM project WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询项目失败: %w", err)
	}
	return &workflow.Project{ID: d.ID, Name: d.Name, ProjectManagerID: d.ProjectManagerID.String}, nil
}

// SaveProject 保存项目
func (s *Store) SaveProject(ctx context.Context, p *workflow.Project) error {
	d := &dao.ProjectDAO{ID: p.ID, Name: p.Name, ProjectManagerID: nullString(p.ProjectManagerID)}
	upsert := s.dialect.UpsertSQL("project", projectColumns, []string{"id"}, projectColumns[1:])
	if _, err := s.db.NamedExecContext(ctx, upsert, d); err != nil {
		return fmt.Errorf("保存项目失败: %w", err)
	}
	return nil
}

// GetUser 查询用户
func (s *Store) GetUser(ctx context.Context, id string) (*workflow.User, error) {
	var d dao.UserDAO
	if err := s.db.GetContext(ctx, &d, s.db.Rebind(`SELECT id, name, email, role, active FROM app_user WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return userFromDAO(&d), nil
}

// ListActiveUsersByRoles 查询拥有任一角色的在职用户，按ID排序
func (s *Store) ListActiveUsersByRoles(ctx context.Context, roles []string) ([]*workflow.User, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, email, role, active FROM app_user WHERE active = ? AND role IN (?) ORDER BY id`, true, roles)
	if err != nil {
		return nil, fmt.Errorf("构建用户查询失败: %w", err)
	}

	var daos []dao.UserDAO
	if err := s.db.SelectContext(ctx, &daos, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("按角色查询用户失败: %w", err)
	}
	users := make([]*workflow.User, 0, len(daos))
	for i := range daos {
		users = append(users, userFromDAO(&daos[i]))
	}
	return users, nil
}

// SaveUser 保存用户
func (s *Store) SaveUser(ctx context.Context, u *workflow.User) error {
	d := &dao.UserDAO{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Active: u.Active}
	upsert := s.dialect.UpsertSQL("app_user", userColumns, []string{"id"}, userColumns[1:])
	if _, err := s.db.NamedExecContext(ctx, upsert, d); err != nil {
		return fmt.Errorf("保存用户失败: %w", err)
	}
	return nil
}

// ListActiveOverrides 查询工作流当前生效的阶段覆盖规则
func (s *Store) ListActiveOverrides(ctx context.Context, workflowID string) ([]*suppression.PhaseOverride, error) {
	var daos []dao.PhaseOverrideDAO
	query := s.db.Rebind(`SELECT id, workflow_id, suppressed_phases, reason, active, created_by, create_time
		FROM phase_override WHERE workflow_id = ? AND active = ? ORDER BY create_time, id`)
	if err := s.db.SelectContext(ctx, &daos, query, workflowID, true); err != nil {
		return nil, fmt.Errorf("查询阶段覆盖规则失败: %w", err)
	}
	out := make([]*suppression.PhaseOverride, 0, len(daos))
	for i := range daos {
		o, err := overrideFromDAO(&daos[i])
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// SaveOverride 保存阶段覆盖规则
func (s *Store) SaveOverride(ctx context.Context, o *suppression.PhaseOverride) error {
	phases, err := json.Marshal(o.SuppressedPhases)
	if err != nil {
		return fmt.Errorf("序列化被屏蔽阶段失败: %w", err)
	}
	if o.CreateTime.IsZero() {
		o.CreateTime = s.now()
	}
	d := &dao.PhaseOverrideDAO{
		ID:               o.ID,
		WorkflowID:       o.WorkflowID,
		SuppressedPhases: string(phases),
		Reason:           o.Reason,
		Active:           o.Active,
		CreatedBy:        o.CreatedBy,
		CreateTime:       o.CreateTime.UTC(),
	}
	upsert := s.dialect.UpsertSQL("phase_override", overrideColumns, []string{"id"}, overrideColumns[1:])
	if _, err := s.db.NamedExecContext(ctx, upsert, d); err != nil {
		return fmt.Errorf("保存阶段覆盖规则失败: %w", err)
	}
	return nil
}

func userFromDAO(d *dao.UserDAO) *workflow.User {
	return &workflow.User{ID: d.ID, Name: d.Name, Email: d.Email, Role: d.Role, Active: d.Active}
}
