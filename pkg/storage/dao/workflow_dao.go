package dao

import (
	"database/sql"
	"time"
)

// WorkflowInstanceDAO workflow_instance表的数据访问对象（内部使用）
type WorkflowInstanceDAO struct {
	ID             string    `db:"id"`
	ProjectID      string    `db:"project_id"`
	Status         string    `db:"status"`
	CurrentPhase   string    `db:"current_phase"`
	CurrentSection string    `db:"current_section"`
	CreateTime     time.Time `db:"create_time"`
	UpdateTime     time.Time `db:"update_time"`
}

// StepDAO workflow_step表的数据访问对象（内部使用）
type StepDAO struct {
	ID                     string         `db:"id"`
	WorkflowID             string         `db:"workflow_id"`
	StepKey                string         `db:"step_key"`
	Name                   string         `db:"name"`
	Phase                  string         `db:"phase"`
	PhaseOrder             int            `db:"phase_order"`
	Section                string         `db:"section"`
	SectionOrder           int            `db:"section_order"`
	SortOrder              int            `db:"sort_order"`
	IsCompleted            bool           `db:"is_completed"`
	CompletedAt            sql.NullTime   `db:"completed_at"`
	ScheduledEndDate       sql.NullTime   `db:"scheduled_end_date"`
	AlertDays              sql.NullInt64  `db:"alert_days"`
	DefaultResponsibleRole string         `db:"default_responsible_role"`
	AssignedUserID         sql.NullString `db:"assigned_user_id"`
	SubTasks               sql.NullString `db:"sub_tasks"` // JSON格式存储
}

// ProjectDAO project表的数据访问对象（内部使用）
type ProjectDAO struct {
	ID               string         `db:"id"`
	Name             string         `db:"name"`
	ProjectManagerID sql.NullString `db:"project_manager_id"`
}

// UserDAO app_user表的数据访问对象（内部使用）
type UserDAO struct {
	ID     string `db:"id"`
	Name   string `db:"name"`
	Email  string `db:"email"`
	Role   string `db:"role"`
	Active bool   `db:"active"`
}

// PhaseOverrideDAO phase_override表的数据访问对象（内部使用）
type PhaseOverrideDAO struct {
	ID               string    `db:"id"`
	WorkflowID       string    `db:"workflow_id"`
	SuppressedPhases string    `db:"suppressed_phases"` // JSON格式存储
	Reason           string    `db:"reason"`
	Active           bool      `db:"active"`
	CreatedBy        string    `db:"created_by"`
	CreateTime       time.Time `db:"create_time"`
}
