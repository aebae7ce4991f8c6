package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// 定时任务名称
const (
	JobFastSweep    = "fast_sweep"
	JobFullSweep    = "full_sweep"
	JobDedupCleanup = "dedup_cleanup"
)

// ScheduleOptions 定时调度配置，表达式支持秒级精度与 @every / @daily 描述符
type ScheduleOptions struct {
	Enabled      bool
	FastSweep    string
	FullSweep    string
	DedupCleanup string
}

// DefaultScheduleOptions 默认调度：5分钟快速巡检，1小时全量巡检，每天清理去重条目
func DefaultScheduleOptions() ScheduleOptions {
	return ScheduleOptions{
		Enabled:      true,
		FastSweep:    "@every 5m",
		FullSweep:    "@every 1h",
		DedupCleanup: "@daily",
	}
}

// EntryInfo 定时任务信息
type EntryInfo struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev"`
}

// CronScheduler 定时调度器（对外导出）
type CronScheduler struct {
	cron    *cron.Cron
	engine  *Engine
	opts    ScheduleOptions
	specs   map[string]string       // name -> 表达式
	entries map[string]cron.EntryID // name -> cron.EntryID映射
	started bool
	mu      sync.RWMutex
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSpec 校验Cron表达式（秒级精度）
func ValidateSpec(spec string) error {
	if spec == "" {
		return errors.New("Cron表达式为空")
	}
	if _, err := cronParser.Parse(spec); err != nil {
		return fmt.Errorf("Cron表达式 %q 无效: %w", spec, err)
	}
	return nil
}

// NewCronScheduler 创建定时调度器（对外导出）
// 表达式为空的任务不注册
func NewCronScheduler(eng *Engine, opts ScheduleOptions) (*CronScheduler, error) {
	specs := map[string]string{
		JobFastSweep:    opts.FastSweep,
		JobFullSweep:    opts.FullSweep,
		JobDedupCleanup: opts.DedupCleanup,
	}
	for name, spec := range specs {
		if spec == "" {
			delete(specs, name)
			continue
		}
		if err := ValidateSpec(spec); err != nil {
			return nil, fmt.Errorf("定时任务 %s: %w", name, err)
		}
	}

	return &CronScheduler{
		cron:    cron.New(cron.WithSeconds()), // 支持秒级精度
		engine:  eng,
		opts:    opts,
		specs:   specs,
		entries: make(map[string]cron.EntryID),
	}, nil
}

// Start 注册全部定时任务并启动（对外导出）
func (cs *CronScheduler) Start() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.opts.Enabled {
		cs.engine.logger.Info("定时调度已禁用，仅响应事件与手动触发")
		return nil
	}
	if cs.started {
		return nil
	}

	for name, spec := range cs.specs {
		job := cs.job(name)
		entryID, err := cs.cron.AddFunc(spec, job)
		if err != nil {
			return fmt.Errorf("添加Cron任务 %s 失败: %w", name, err)
		}
		cs.entries[name] = entryID
		cs.engine.logger.Info("✅ [Cron调度器] 已注册定时任务", zap.String("job", name), zap.String("spec", spec))
	}

	cs.cron.Start()
	cs.started = true
	cs.engine.logger.Info("✅ [Cron调度器] 已启动")
	return nil
}

// Stop 停止定时调度器，等待正在运行的任务结束（对外导出）
func (cs *CronScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.started {
		return
	}
	<-cs.cron.Stop().Done()
	for name, id := range cs.entries {
		cs.cron.Remove(id)
		delete(cs.entries, name)
	}
	cs.started = false
	cs.engine.logger.Info("✅ [Cron调度器] 已停止")
}

// Entries 已注册的定时任务（对外导出）
func (cs *CronScheduler) Entries() []EntryInfo {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	out := make([]EntryInfo, 0, len(cs.entries))
	for name, id := range cs.entries {
		entry := cs.cron.Entry(id)
		out = append(out, EntryInfo{Name: name, Spec: cs.specs[name], Next: entry.Next, Prev: entry.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// job 返回定时任务函数（内部方法）
// 巡检不随调度器停止而取消，Stop会等待其完成
func (cs *CronScheduler) job(name string) func() {
	return func() {
		ctx := context.Background()
		var err error
		switch name {
		case JobFastSweep:
			_, err = cs.engine.RunFastSweep(ctx)
		case JobFullSweep:
			_, err = cs.engine.RunFullSweep(ctx)
		case JobDedupCleanup:
			_, err = cs.engine.RunDedupCleanup(ctx)
		}
		if err != nil && !errors.Is(err, ErrSweepInProgress) {
			cs.engine.logger.Error("❌ [Cron调度器] 定时任务失败", zap.String("job", name), zap.Error(err))
		}
	}
}
