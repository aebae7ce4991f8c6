// Package workflow 提供项目工作流（阶段 → 分区 → 步骤）的只读状态视图
package workflow

import (
	"sort"
	"time"
)

// Status WorkflowInstance状态
type Status string

const (
	StatusNotStarted Status = "not_started" // 未开始
	StatusInProgress Status = "in_progress" // 进行中
	StatusCompleted  Status = "completed"   // 已完成
)

// IsActive 是否需要参与告警巡检
func (s Status) IsActive() bool {
	return s == StatusNotStarted || s == StatusInProgress
}

// WorkflowInstance 项目工作流实例（对外导出）
// 一个实例只属于一个Project，Phases按Order升序排列
type WorkflowInstance struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	Status         Status    `json:"status"`
	CurrentPhase   string    `json:"current_phase"`   // 当前阶段指针（可为空）
	CurrentSection string    `json:"current_section"` // 当前分区指针（可为空）
	Phases         []*Phase  `json:"phases"`
	CreateTime     time.Time `json:"create_time"`
	UpdateTime     time.Time `json:"update_time"`
}

// Phase 工作流阶段
type Phase struct {
	Name     string     `json:"name"`
	Order    int        `json:"order"`
	Sections []*Section `json:"sections"`
}

// Section 阶段内的分区
type Section struct {
	Name  string  `json:"name"`
	Order int     `json:"order"`
	Steps []*Step `json:"steps"`
}

// Step 工作流步骤（line item）
type Step struct {
	ID                     string     `json:"id"`
	WorkflowID             string     `json:"workflow_id"`
	Key                    string     `json:"key"` // 稳定的步骤标识，用于查找操作指引
	Name                   string     `json:"name"`
	Phase                  string     `json:"phase"`
	PhaseOrder             int        `json:"phase_order"`
	Section                string     `json:"section"`
	SectionOrder           int        `json:"section_order"`
	Order                  int        `json:"order"`
	IsCompleted            bool       `json:"is_completed"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`
	ScheduledEndDate       *time.Time `json:"scheduled_end_date,omitempty"`
	AlertDays              *int       `json:"alert_days,omitempty"` // 提前预警天数（可选）
	DefaultResponsibleRole string     `json:"default_responsible_role"`
	AssignedUserID         string     `json:"assigned_user_id,omitempty"`
	SubTasks               []SubTask  `json:"sub_tasks,omitempty"`
}

// SubTask 步骤下的子任务
type SubTask struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsCompleted bool   `json:"is_completed"`
}

// Completed 步骤是否已完成
// 显式标记完成，或者存在子任务且全部完成，都视为完成
func (s *Step) Completed() bool {
	if s.IsCompleted {
		return true
	}
	if len(s.SubTasks) == 0 {
		return false
	}
	for _, st := range s.SubTasks {
		if !st.IsCompleted {
			return false
		}
	}
	return true
}

// Project 工作流所属项目
type Project struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ProjectManagerID string `json:"project_manager_id,omitempty"`
}

// User 系统用户
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"` // 数据库角色：ADMIN、MANAGER、PROJECT_MANAGER...
	Active bool   `json:"active"`
}

// Assemble 按阶段/分区/步骤顺序组装工作流树
// steps会按 (PhaseOrder, SectionOrder, Order) 排序后分组，原有Phases会被覆盖
func Assemble(inst *WorkflowInstance, steps []*Step) *WorkflowInstance {
	sorted := make([]*Step, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.PhaseOrder != b.PhaseOrder {
			return a.PhaseOrder < b.PhaseOrder
		}
		if a.SectionOrder != b.SectionOrder {
			return a.SectionOrder < b.SectionOrder
		}
		return a.Order < b.Order
	})

	inst.Phases = nil
	var phase *Phase
	var section *Section
	for _, s := range sorted {
		s.WorkflowID = inst.ID
		if phase == nil || phase.Name != s.Phase {
			phase = &Phase{Name: s.Phase, Order: s.PhaseOrder}
			inst.Phases = append(inst.Phases, phase)
			section = nil
		}
		if section == nil || section.Name != s.Section {
			section = &Section{Name: s.Section, Order: s.SectionOrder}
			phase.Sections = append(phase.Sections, section)
		}
		section.Steps = append(section.Steps, s)
	}
	return inst
}

// Steps 按顺序返回全部步骤
func (w *WorkflowInstance) Steps() []*Step {
	var steps []*Step
	for _, p := range w.Phases {
		for _, sec := range p.Sections {
			steps = append(steps, sec.Steps...)
		}
	}
	return steps
}

// FindStep 根据ID查找步骤
func (w *WorkflowInstance) FindStep(stepID string) *Step {
	for _, s := range w.Steps() {
		if s.ID == stepID {
			return s
		}
	}
	return nil
}

// CompletedCount 已完成步骤数
func (w *WorkflowInstance) CompletedCount() int {
	n := 0
	for _, s := range w.Steps() {
		if s.Completed() {
			n++
		}
	}
	return n
}

// IsBrandNew 是否为全新的工作流（没有任何完成的步骤）
func (w *WorkflowInstance) IsBrandNew() bool {
	return w.CompletedCount() == 0
}

// IncompleteSteps 按顺序返回未完成步骤
func (w *WorkflowInstance) IncompleteSteps() []*Step {
	var steps []*Step
	for _, s := range w.Steps() {
		if !s.Completed() {
			steps = append(steps, s)
		}
	}
	return steps
}

// ActivePhase 当前阶段
// 优先使用CurrentPhase指针；指针为空或失效时，取第一个存在未完成步骤的阶段
func (w *WorkflowInstance) ActivePhase() *Phase {
	if w.CurrentPhase != "" {
		for _, p := range w.Phases {
			if p.Name == w.CurrentPhase {
				return p
			}
		}
	}
	for _, p := range w.Phases {
		if p.hasOpenWork() {
			return p
		}
	}
	return nil
}

// NextActiveSection 下一个待推进的分区
// 按阶段顺序、再按分区顺序遍历，返回第一个仍有未完成步骤的分区
func (w *WorkflowInstance) NextActiveSection() (*Phase, *Section) {
	for _, p := range w.Phases {
		for _, sec := range p.Sections {
			if sec.hasOpenWork() {
				return p, sec
			}
		}
	}
	return nil, nil
}

// IncompleteSteps 阶段内未完成步骤
func (p *Phase) IncompleteSteps() []*Step {
	var steps []*Step
	for _, sec := range p.Sections {
		steps = append(steps, sec.IncompleteSteps()...)
	}
	return steps
}

func (p *Phase) hasOpenWork() bool {
	for _, sec := range p.Sections {
		if sec.hasOpenWork() {
			return true
		}
	}
	return false
}

// IncompleteSteps 分区内未完成步骤
func (s *Section) IncompleteSteps() []*Step {
	var steps []*Step
	for _, st := range s.Steps {
		if !st.Completed() {
			steps = append(steps, st)
		}
	}
	return steps
}

func (s *Section) hasOpenWork() bool {
	for _, st := range s.Steps {
		if !st.Completed() {
			return true
		}
	}
	return false
}
