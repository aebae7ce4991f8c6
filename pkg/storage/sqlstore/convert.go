package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LENAX/alert-engine/pkg/core/alert"
	"github.com/LENAX/alert-engine/pkg/core/policy"
	"github.com/LENAX/alert-engine/pkg/core/suppression"
	"github.com/LENAX/alert-engine/pkg/core/workflow"
	"github.com/LENAX/alert-engine/pkg/storage/dao"
)

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func stepToDAO(s *workflow.Step) (*dao.StepDAO, error) {
	d := &dao.StepDAO{
		ID:                     s.ID,
		WorkflowID:             s.WorkflowID,
		StepKey:                s.Key,
		Name:                   s.Name,
		Phase:                  s.Phase,
		PhaseOrder:             s.PhaseOrder,
		Section:                s.Section,
		SectionOrder:           s.SectionOrder,
		SortOrder:              s.Order,
		IsCompleted:            s.IsCompleted,
		CompletedAt:            nullTime(s.CompletedAt),
		ScheduledEndDate:       nullTime(s.ScheduledEndDate),
		DefaultResponsibleRole: s.DefaultResponsibleRole,
		AssignedUserID:         nullString(s.AssignedUserID),
	}
	if s.AlertDays != nil {
		d.AlertDays = sql.NullInt64{Int64: int64(*s.AlertDays), Valid: true}
	}
	if len(s.SubTasks) > 0 {
		raw, err := json.Marshal(s.SubTasks)
		if err != nil {
			return nil, fmt.Errorf("序列化子任务失败: %w", err)
		}
		d.SubTasks = sql.NullString{String: string(raw), Valid: true}
	}
	return d, nil
}

func stepFromDAO(d *dao.StepDAO) (*workflow.Step, error) {
	s := &workflow.Step{
		ID:                     d.ID,
		WorkflowID:             d.WorkflowID,
		Key:                    d.StepKey,
		Name:                   d.Name,
		Phase:                  d.Phase,
		PhaseOrder:             d.PhaseOrder,
		Section:                d.Section,
		SectionOrder:           d.SectionOrder,
		Order:                  d.SortOrder,
		IsCompleted:            d.IsCompleted,
		CompletedAt:            timePtr(d.CompletedAt),
		ScheduledEndDate:       timePtr(d.ScheduledEndDate),
		DefaultResponsibleRole: d.DefaultResponsibleRole,
		AssignedUserID:         d.AssignedUserID.String,
	}
	if d.AlertDays.Valid {
		n := int(d.AlertDays.Int64)
		s.AlertDays = &n
	}
	if d.SubTasks.Valid && d.SubTasks.String != "" {
		if err := json.Unmarshal([]byte(d.SubTasks.String), &s.SubTasks); err != nil {
			return nil, fmt.Errorf("解析子任务失败: step=%s: %w", d.ID, err)
		}
	}
	return s, nil
}

func overrideFromDAO(d *dao.PhaseOverrideDAO) (*suppression.PhaseOverride, error) {
	o := &suppression.PhaseOverride{
		ID:         d.ID,
		WorkflowID: d.WorkflowID,
		Reason:     d.Reason,
		Active:     d.Active,
		CreatedBy:  d.CreatedBy,
		CreateTime: d.CreateTime,
	}
	if d.SuppressedPhases != "" {
		if err := json.Unmarshal([]byte(d.SuppressedPhases), &o.SuppressedPhases); err != nil {
			return nil, fmt.Errorf("解析被屏蔽阶段失败: override=%s: %w", d.ID, err)
		}
	}
	return o, nil
}

func alertToDAO(r *alert.AlertRecord) *dao.AlertDAO {
	return &dao.AlertDAO{
		ID:           r.ID,
		WorkflowID:   r.WorkflowID,
		ProjectID:    r.ProjectID,
		StepID:       r.StepID,
		StepName:     r.StepName,
		Phase:        r.Phase,
		Section:      r.Section,
		Category:     string(r.Category),
		Priority:     string(r.Priority),
		RecipientID:  r.RecipientID,
		Title:        r.Title,
		Message:      r.Message,
		DaysUntilDue: r.DaysUntilDue,
		DaysOverdue:  r.DaysOverdue,
		Status:       string(r.Status),
		CreateTime:   r.CreateTime.UTC(),
		UpdateTime:   r.UpdateTime.UTC(),
	}
}

func alertFromDAO(d *dao.AlertDAO) *alert.AlertRecord {
	return &alert.AlertRecord{
		ID:           d.ID,
		WorkflowID:   d.WorkflowID,
		ProjectID:    d.ProjectID,
		StepID:       d.StepID,
		StepName:     d.StepName,
		Phase:        d.Phase,
		Section:      d.Section,
		Category:     policy.Category(d.Category),
		Priority:     policy.Priority(d.Priority),
		RecipientID:  d.RecipientID,
		Title:        d.Title,
		Message:      d.Message,
		DaysUntilDue: d.DaysUntilDue,
		DaysOverdue:  d.DaysOverdue,
		Status:       alert.Status(d.Status),
		CreateTime:   d.CreateTime,
		UpdateTime:   d.UpdateTime,
	}
}

func suppressedToDAO(s *alert.SuppressedAlert) *dao.SuppressedAlertDAO {
	return &dao.SuppressedAlertDAO{
		ID:         s.ID,
		WorkflowID: s.WorkflowID,
		StepID:     s.StepID,
		Phase:      s.Phase,
		Section:    s.Section,
		Category:   string(s.Category),
		Priority:   string(s.Priority),
		Title:      s.Title,
		Message:    s.Message,
		OverrideID: s.OverrideID,
		Reason:     s.Reason,
		CreateTime: s.CreateTime.UTC(),
	}
}

func suppressedFromDAO(d *dao.SuppressedAlertDAO) *alert.SuppressedAlert {
	return &alert.SuppressedAlert{
		ID:         d.ID,
		WorkflowID: d.WorkflowID,
		StepID:     d.StepID,
		Phase:      d.Phase,
		Section:    d.Section,
		Category:   policy.Category(d.Category),
		Priority:   policy.Priority(d.Priority),
		Title:      d.Title,
		Message:    d.Message,
		OverrideID: d.OverrideID,
		Reason:     d.Reason,
		CreateTime: d.CreateTime,
	}
}
