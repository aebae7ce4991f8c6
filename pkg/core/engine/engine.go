// Package engine 告警引擎：巡检调度、事件触发与单工作流告警管线
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/LENAX/alert-engine/pkg/core/alert"
	"github.com/LENAX/alert-engine/pkg/core/cache"
	"github.com/LENAX/alert-engine/pkg/core/events"
	"github.com/LENAX/alert-engine/pkg/core/policy"
	"github.com/LENAX/alert-engine/pkg/core/recipient"
	"github.com/LENAX/alert-engine/pkg/core/suppression"
	"github.com/LENAX/alert-engine/pkg/core/workflow"
	"github.com/LENAX/alert-engine/pkg/storage"
)

var (
	// ErrSweepInProgress 同一模式的巡检仍在运行
	ErrSweepInProgress = errors.New("巡检正在进行中")
	// ErrWorkflowNotFound 工作流不存在
	ErrWorkflowNotFound = errors.New("工作流不存在")
)

// WorkflowSource 工作流读取接口
type WorkflowSource interface {
	ListActiveWorkflowIDs(ctx context.Context) ([]string, error)
	GetWorkflow(ctx context.Context, id string) (*workflow.WorkflowInstance, error)
	DeleteWorkflow(ctx context.Context, id string) error
}

// ProjectSource 项目读取接口
type ProjectSource interface {
	GetProject(ctx context.Context, id string) (*workflow.Project, error)
}

// AlertSink 告警与拦截审计写入接口
type AlertSink interface {
	alert.Sink
	suppression.AuditSink
}

// Subscriber 事件订阅接口，*events.Bus实现此接口
type Subscriber interface {
	Subscribe(name string, eventType events.EventType, handler events.Handler)
}

// Deps 引擎依赖，全部通过构造函数注入
type Deps struct {
	Workflows WorkflowSource
	Projects  ProjectSource
	Users     recipient.UserDirectory
	Overrides suppression.OverrideSource
	Alerts    AlertSink
	Dedup     cache.DedupStore

	Events     events.Publisher // 可选，为空时丢弃事件
	Subscriber Subscriber       // 可选，为空时不响应入站事件
	Logger     *zap.Logger      // 可选
	Now        func() time.Time // 可选，测试时注入固定时钟
}

// DepsFromStore 使用同一个Store填充存储相关依赖
func DepsFromStore(s storage.Store, dedup cache.DedupStore) Deps {
	if dedup == nil {
		dedup = s.DedupStore()
	}
	return Deps{
		Workflows: s,
		Projects:  s,
		Users:     s,
		Overrides: s,
		Alerts:    s,
		Dedup:     dedup,
	}
}

// Options 引擎参数
type Options struct {
	DefaultAlertDays  int
	Cooldowns         policy.Cooldowns
	WorkerConcurrency int           // 巡检时并发检查的工作流数量
	CheckTimeout      time.Duration // 单个工作流检查超时
	DedupRetention    time.Duration // 去重条目保留时间
	Schedule          ScheduleOptions
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		DefaultAlertDays:  policy.DefaultAlertDays,
		Cooldowns:         policy.DefaultCooldowns(),
		WorkerConcurrency: 8,
		CheckTimeout:      15 * time.Second,
		DedupRetention:    7 * 24 * time.Hour,
		Schedule:          DefaultScheduleOptions(),
	}
}

// Engine 告警引擎核心结构体（对外导出）
type Engine struct {
	workflows  WorkflowSource
	projects   ProjectSource
	dedup      cache.DedupStore
	evaluator  *policy.Evaluator
	resolver   *recipient.Resolver
	filter     *suppression.Filter
	writer     *alert.Writer
	events     events.Publisher
	subscriber Subscriber
	logger     *zap.Logger
	now        func() time.Time
	opts       Options

	cronScheduler *CronScheduler
	fullRunning   atomic.Bool
	fastRunning   atomic.Bool
	running       atomic.Bool
	background    sync.WaitGroup
}

// NewEngine 创建Engine实例（对外导出的工厂方法）
func NewEngine(deps Deps, opts Options) (*Engine, error) {
	if deps.Workflows == nil || deps.Projects == nil || deps.Users == nil ||
		deps.Overrides == nil || deps.Alerts == nil || deps.Dedup == nil {
		return nil, fmt.Errorf("引擎依赖不完整")
	}

	defaults := DefaultOptions()
	if opts.WorkerConcurrency <= 0 {
		opts.WorkerConcurrency = defaults.WorkerConcurrency
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = defaults.CheckTimeout
	}
	if opts.DedupRetention <= 0 {
		opts.DedupRetention = defaults.DedupRetention
	}
	if opts.Cooldowns == nil {
		opts.Cooldowns = defaults.Cooldowns
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	publisher := deps.Events
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	eng := &Engine{
		workflows:  deps.Workflows,
		projects:   deps.Projects,
		dedup:      deps.Dedup,
		evaluator:  policy.NewEvaluator(opts.DefaultAlertDays),
		resolver:   recipient.NewResolver(deps.Users),
		filter:     suppression.NewFilter(deps.Overrides, deps.Alerts, now),
		writer:     alert.NewWriter(deps.Alerts, now),
		events:     publisher,
		subscriber: deps.Subscriber,
		logger:     logger.Named("engine"),
		now:        now,
		opts:       opts,
	}

	cs, err := NewCronScheduler(eng, opts.Schedule)
	if err != nil {
		return nil, err
	}
	eng.cronScheduler = cs
	return eng, nil
}

// Start 启动引擎：注册入站事件处理器并启动定时调度器
// 使用*events.Bus时需在Start之后调用bus.Run
func (e *Engine) Start(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return nil
	}

	if e.subscriber != nil {
		for _, t := range events.InboundTypes {
			e.subscriber.Subscribe("alert_engine_"+string(t), t, e.handleInboundEvent)
		}
	}

	if err := e.cronScheduler.Start(); err != nil {
		e.running.Store(false)
		return fmt.Errorf("启动定时调度器失败: %w", err)
	}

	e.logger.Info("✅ 告警引擎已启动",
		zap.Int("worker_concurrency", e.opts.WorkerConcurrency),
		zap.Duration("check_timeout", e.opts.CheckTimeout))
	return nil
}

// Stop 停止定时调度器并等待后台巡检结束
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	e.cronScheduler.Stop()
	e.background.Wait()
	e.logger.Info("✅ 告警引擎已停止")
}

// Wait 等待手动触发的后台巡检结束
func (e *Engine) Wait() {
	e.background.Wait()
}

// IsRunning 引擎是否已启动
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// SweepInProgress 指定模式的巡检是否正在运行
func (e *Engine) SweepInProgress(mode Mode) bool {
	if mode == ModeFast {
		return e.fastRunning.Load()
	}
	return e.fullRunning.Load()
}

// CronScheduler 返回定时调度器
func (e *Engine) CronScheduler() *CronScheduler {
	return e.cronScheduler
}

// RunDedupCleanup 清理超过保留期的去重条目
func (e *Engine) RunDedupCleanup(ctx context.Context) (int, error) {
	n, err := e.dedup.Evict(ctx, e.now().Add(-e.opts.DedupRetention))
	if err != nil {
		return 0, fmt.Errorf("清理去重条目失败: %w", err)
	}
	e.logger.Info("去重条目清理完成", zap.Int("evicted", n))
	return n, nil
}

// handleInboundEvent 入站事件触发单个工作流检查，不受巡检标志限制
func (e *Engine) handleInboundEvent(ctx context.Context, ev *events.Event) error {
	if ev.WorkflowID == "" {
		return fmt.Errorf("事件 %s 缺少workflow_id", ev.Type)
	}
	res, err := e.CheckWorkflow(ctx, ev.WorkflowID)
	if err != nil {
		if errors.Is(err, ErrWorkflowNotFound) {
			e.logger.Debug("事件关联的工作流不存在，忽略",
				zap.String("event_type", string(ev.Type)),
				zap.String("workflow_id", ev.WorkflowID))
			return nil
		}
		return err
	}
	e.logger.Debug("事件触发检查完成",
		zap.String("event_type", string(ev.Type)),
		zap.String("workflow_id", ev.WorkflowID),
		zap.Int("alerts", res.Alerts))
	return nil
}

func (e *Engine) publish(ctx context.Context, ev *events.Event) {
	ev.Timestamp = e.now()
	if err := e.events.Publish(ctx, ev); err != nil {
		e.logger.Warn("发布事件失败", zap.String("event_type", string(ev.Type)), zap.Error(err))
	}
}
