package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LENAX/alert-engine/pkg/core/workflow"
)

// Sink 告警落库接口
type Sink interface {
	// CreateAlert 在同一事务内保存告警记录及其通知
	CreateAlert(ctx context.Context, rec *AlertRecord, n *Notification) error
}

// Writer 告警写入器
// 不做幂等检查，去重由调用方（冷却存储）负责
type Writer struct {
	sink Sink
	now  func() time.Time
}

// NewWriter 创建写入器，now为nil时使用time.Now
func NewWriter(sink Sink, now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{sink: sink, now: now}
}

// Write 为每个通知对象写入一条告警记录和一条通知
// 出错时立即返回已写入的记录与错误，本轮不重试
func (w *Writer) Write(ctx context.Context, d Draft, recipients []*workflow.User) ([]*AlertRecord, error) {
	written := make([]*AlertRecord, 0, len(recipients))
	for _, u := range recipients {
		ts := w.now()
		rec := &AlertRecord{
			ID:           uuid.NewString(),
			WorkflowID:   d.WorkflowID,
			ProjectID:    d.ProjectID,
			StepID:       d.StepID,
			StepName:     d.StepName,
			Phase:        d.Phase,
			Section:      d.Section,
			Category:     d.Category,
			Priority:     d.Priority,
			RecipientID:  u.ID,
			Title:        d.Title,
			Message:      d.Message,
			DaysUntilDue: d.DaysUntilDue,
			DaysOverdue:  d.DaysOverdue,
			Status:       StatusActive,
			CreateTime:   ts,
			UpdateTime:   ts,
		}
		n := &Notification{
			ID:          uuid.NewString(),
			RecipientID: u.ID,
			AlertID:     rec.ID,
			Type:        NotificationTypeWorkflowAlert,
			Title:       d.Title,
			Message:     d.Message,
			CreateTime:  ts,
		}
		if err := w.sink.CreateAlert(ctx, rec, n); err != nil {
			return written, fmt.Errorf("写入告警失败: recipient=%s: %w", u.ID, err)
		}
		written = append(written, rec)
	}
	return written, nil
}
