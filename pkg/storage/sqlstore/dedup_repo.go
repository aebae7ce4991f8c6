package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/LENAX/alert-engine/pkg/core/cache"
	"github.com/LENAX/alert-engine/pkg/storage"
	"github.com/LENAX/alert-engine/pkg/storage/dao"
)

var dedupColumns = []string{"workflow_id", "subject", "category", "marked_at"}

// DedupRepo 持久化去重存储（对外导出）
// 主键 (workflow_id, subject, category) 保证多实例之间同一个键只有一行
type DedupRepo struct {
	db      *sqlx.DB
	dialect storage.Dialect
	now     func() time.Time
}

// NewDedupRepo 创建持久化去重存储
func NewDedupRepo(db *sqlx.DB, dialect storage.Dialect, now func() time.Time) *DedupRepo {
	if now == nil {
		now = time.Now
	}
	return &DedupRepo{db: db, dialect: dialect, now: now}
}

// CheckAndMark 检查并标记
// 先对已过冷却期的行做条件UPDATE，未命中再insert-or-ignore；两条语句各自原子，
// 并发调用方只有一个能得到非零影响行数
func (r *DedupRepo) CheckAndMark(ctx context.Context, key cache.DedupKey, cooldown time.Duration) (bool, error) {
	now := r.now().UTC()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE alert_dedup SET marked_at = ?
		WHERE workflow_id = ? AND subject = ? AND category = ? AND marked_at <= ?`),
		now, key.WorkflowID, key.Subject, string(key.Category), now.Add(-cooldown))
	if err != nil {
		return false, fmt.Errorf("更新去重标记失败: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return true, nil
	}

	d := &dao.DedupDAO{
		WorkflowID: key.WorkflowID,
		Subject:    key.Subject,
		Category:   string(key.Category),
		MarkedAt:   now,
	}
	res, err = r.db.NamedExecContext(ctx, r.dialect.InsertIgnoreSQL("alert_dedup", dedupColumns), d)
	if err != nil {
		return false, fmt.Errorf("写入去重标记失败: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("读取影响行数失败: %w", err)
	}
	return n > 0, nil
}

// Forget 撤销标记
func (r *DedupRepo) Forget(ctx context.Context, key cache.DedupKey) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM alert_dedup WHERE workflow_id = ? AND subject = ? AND category = ?`),
		key.WorkflowID, key.Subject, string(key.Category))
	if err != nil {
		return fmt.Errorf("删除去重标记失败: %w", err)
	}
	return nil
}

// Evict 清理最后标记早于olderThan的条目
func (r *DedupRepo) Evict(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM alert_dedup WHERE marked_at < ?`), olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("清理去重标记失败: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("读取影响行数失败: %w", err)
	}
	return int(n), nil
}

// 确保实现接口
var _ cache.DedupStore = (*DedupRepo)(nil)
