// Package cache 提供告警去重（冷却期）存储
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LENAX/alert-engine/pkg/core/policy"
)

// DedupKey 去重键（对外导出）
// Subject 为 step:<id> 或 section:<phase>/<section>
type DedupKey struct {
	WorkflowID string
	Subject    string
	Category   policy.Category
}

// String 用于日志输出
func (k DedupKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.WorkflowID, k.Subject, k.Category)
}

// StepSubject 步骤级去重主体
func StepSubject(stepID string) string {
	return "step:" + stepID
}

// SectionSubject 分区级去重主体
func SectionSubject(phase, section string) string {
	return "section:" + phase + "/" + section
}

// DedupStore 去重存储接口（对外导出）
type DedupStore interface {
	// CheckAndMark 原子地检查并标记
	// 返回true表示冷却期已过（或从未发送），调用方可以告警，且key已被标记为now
	CheckAndMark(ctx context.Context, key DedupKey, cooldown time.Duration) (bool, error)

	// Forget 撤销标记，写入告警失败时调用，下一轮会重新尝试
	Forget(ctx context.Context, key DedupKey) error

	// Evict 清理最后标记时间早于olderThan的条目，返回清理数量
	Evict(ctx context.Context, olderThan time.Time) (int, error)
}

// MemoryDedupStore 内存去重存储实现（对外导出）
// 不跨进程共享，重启后丢失
type MemoryDedupStore struct {
	mu      sync.Mutex
	entries map[DedupKey]time.Time
	now     func() time.Time
}

// NewMemoryDedupStore 创建内存去重存储，now为nil时使用time.Now
func NewMemoryDedupStore(now func() time.Time) *MemoryDedupStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryDedupStore{
		entries: make(map[DedupKey]time.Time),
		now:     now,
	}
}

// CheckAndMark 检查并标记
func (s *MemoryDedupStore) CheckAndMark(ctx context.Context, key DedupKey, cooldown time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if last, ok := s.entries[key]; ok && now.Sub(last) < cooldown {
		return false, nil
	}
	s.entries[key] = now
	return true, nil
}

// Forget 撤销标记
func (s *MemoryDedupStore) Forget(ctx context.Context, key DedupKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Evict 清理过期条目
func (s *MemoryDedupStore) Evict(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, last := range s.entries {
		if last.Before(olderThan) {
			delete(s.entries, key)
			n++
		}
	}
	return n, nil
}

// Len 当前条目数
func (s *MemoryDedupStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RunCleanup 定期清理超过retention的条目，直到ctx取消
// 清理失败只记录日志，下一个周期重试
func RunCleanup(ctx context.Context, store DedupStore, interval, retention time.Duration, now func() time.Time, logger *zap.Logger) {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Evict(ctx, now().Add(-retention))
			if err != nil {
				logger.Warn("[去重清理] 清理过期条目失败", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("[去重清理] 已清理过期条目", zap.Int("evicted", n))
			}
		}
	}
}
