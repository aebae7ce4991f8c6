package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/LENAX/alert-engine/pkg/core/alert"
	"github.com/LENAX/alert-engine/pkg/storage"
	"github.com/LENAX/alert-engine/pkg/storage/dao"
)

var (
	alertColumns = []string{
		"id", "workflow_id", "project_id", "step_id", "step_name", "phase", "section", "category",
		"priority", "recipient_id", "title", "message", "days_until_due", "days_overdue", "status",
		"create_time", "update_time",
	}
	notificationColumns = []string{"id", "recipient_id", "alert_id", "type", "title", "message", "is_read", "create_time"}
	suppressedColumns   = []string{
		"id", "workflow_id", "step_id", "phase", "section", "category", "priority", "title", "message",
		"override_id", "reason", "create_time",
	}
)

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}

func joinNamed(columns []string) string {
	return strings.Join(storage.NamedPlaceholders(columns), ", ")
}

func insertSQL(table string, columns []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, joinColumns(columns), joinNamed(columns))
}

// CreateAlert 在同一事务内写入告警记录与通知
func (s *Store) CreateAlert(ctx context.Context, rec *alert.AlertRecord, n *alert.Notification) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertSQL("workflow_alert", alertColumns), alertToDAO(rec)); err != nil {
		return fmt.Errorf("写入告警记录失败: %w", err)
	}

	if n != nil {
		nd := &dao.NotificationDAO{
			ID:          n.ID,
			RecipientID: n.RecipientID,
			AlertID:     n.AlertID,
			Type:        n.Type,
			Title:       n.Title,
			Message:     n.Message,
			IsRead:      n.Read,
			CreateTime:  n.CreateTime.UTC(),
		}
		if _, err := tx.NamedExecContext(ctx, insertSQL("notification", notificationColumns), nd); err != nil {
			return fmt.Errorf("写入通知失败: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// ListAlerts 按条件查询告警记录，按创建时间倒序
func (s *Store) ListAlerts(ctx context.Context, filter alert.Filter) ([]*alert.AlertRecord, error) {
	var where []string
	var args []interface{}
	if filter.WorkflowID != "" {
		where = append(where, "workflow_id = ?")
		args = append(args, filter.WorkflowID)
	}
	if filter.RecipientID != "" {
		where = append(where, "recipient_id = ?")
		args = append(args, filter.RecipientID)
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := fmt.Sprintf("SELECT %s FROM workflow_alert", joinColumns(alertColumns))
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY create_time DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	var daos []dao.AlertDAO
	if err := s.db.SelectContext(ctx, &daos, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("查询告警记录失败: %w", err)
	}
	out := make([]*alert.AlertRecord, 0, len(daos))
	for i := range daos {
		out = append(out, alertFromDAO(&daos[i]))
	}
	return out, nil
}

// ListNotifications 查询用户的通知，按创建时间倒序
func (s *Store) ListNotifications(ctx context.Context, recipientID string) ([]*alert.Notification, error) {
	var daos []dao.NotificationDAO
	query := fmt.Sprintf("SELECT %s FROM notification WHERE recipient_id = ? ORDER BY create_time DESC, id", joinColumns(notificationColumns))
	if err := s.db.SelectContext(ctx, &daos, s.db.Rebind(query), recipientID); err != nil {
		return nil, fmt.Errorf("查询通知失败: %w", err)
	}
	out := make([]*alert.Notification, 0, len(daos))
	for _, d := range daos {
		out = append(out, &alert.Notification{
			ID:          d.ID,
			RecipientID: d.RecipientID,
			AlertID:     d.AlertID,
			Type:        d.Type,
			Title:       d.Title,
			Message:     d.Message,
			Read:        d.IsRead,
			CreateTime:  d.CreateTime,
		})
	}
	return out, nil
}

// SaveSuppressedAlert 写入拦截审计记录
func (s *Store) SaveSuppressedAlert(ctx context.Context, sa *alert.SuppressedAlert) error {
	if _, err := s.db.NamedExecContext(ctx, insertSQL("suppressed_alert", suppressedColumns), suppressedToDAO(sa)); err != nil {
		return fmt.Errorf("写入拦截审计记录失败: %w", err)
	}
	return nil
}

// ListSuppressedAlerts 查询拦截审计记录，workflowID为空时返回全部
func (s *Store) ListSuppressedAlerts(ctx context.Context, workflowID string) ([]*alert.SuppressedAlert, error) {
	query := fmt.Sprintf("SELECT %s FROM suppressed_alert", joinColumns(suppressedColumns))
	var args []interface{}
	if workflowID != "" {
		query += " WHERE workflow_id = ?"
		args = append(args, workflowID)
	}
	query += " ORDER BY create_time DESC, id"

	var daos []dao.SuppressedAlertDAO
	if err := s.db.SelectContext(ctx, &daos, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("查询拦截审计记录失败: %w", err)
	}
	out := make([]*alert.SuppressedAlert, 0, len(daos))
	for i := range daos {
		out = append(out, suppressedFromDAO(&daos[i]))
	}
	return out, nil
}
