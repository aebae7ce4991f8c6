package dao

import "time"

// AlertDAO workflow_alert表的数据访问对象（内部使用）
type AlertDAO struct {
	ID           string    `db:"id"`
	WorkflowID   string    `db:"workflow_id"`
	ProjectID    string    `db:"project_id"`
	StepID       string    `db:"step_id"`
	StepName     string    `db:"step_name"`
	Phase        string    `db:"phase"`
	Section      string    `db:"section"`
	Category     string    `db:"category"`
	Priority     string    `db:"priority"`
	RecipientID  string    `db:"recipient_id"`
	Title        string    `db:"title"`
	Message      string    `db:"message"`
	DaysUntilDue int       `db:"days_until_due"`
	DaysOverdue  int       `db:"days_overdue"`
	Status       string    `db:"status"`
	CreateTime   time.Time `db:"create_time"`
	UpdateTime   time.Time `db:"update_time"`
}

// NotificationDAO notification表的数据访问对象（内部使用）
type NotificationDAO struct {
	ID          string    `db:"id"`
	RecipientID string    `db:"recipient_id"`
	AlertID     string    `db:"alert_id"`
	Type        string    `db:"type"`
	Title       string    `db:"title"`
	Message     string    `db:"message"`
	IsRead      bool      `db:"is_read"`
	CreateTime  time.Time `db:"create_time"`
}

// SuppressedAlertDAO suppressed_alert表的数据访问对象（内部使用）
type SuppressedAlertDAO struct {
	ID         string    `db:"id"`
	WorkflowID string    `db:"workflow_id"`
	StepID     string    `db:"step_id"`
	Phase      string    `db:"phase"`
	Section    string    `db:"section"`
	Category   string    `db:"category"`
	Priority   string    `db:"priority"`
	Title      string    `db:"title"`
	Message    string    `db:"message"`
	OverrideID string    `db:"override_id"`
	Reason     string    `db:"reason"`
	CreateTime time.Time `db:"create_time"`
}

// DedupDAO alert_dedup表的数据访问对象（内部使用）
type DedupDAO struct {
	WorkflowID string    `db:"workflow_id"`
	Subject    string    `db:"subject"`
	Category   string    `db:"category"`
	MarkedAt   time.Time `db:"marked_at"`
}
