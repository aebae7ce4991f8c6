package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LENAX/alert-engine/pkg/core/events"
)

// 触发来源
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// SweepReport 一次巡检的汇总
type SweepReport struct {
	Mode         Mode      `json:"mode"`
	Trigger      string    `json:"trigger"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Workflows    int       `json:"workflows"`
	Checked      int       `json:"checked"`
	Failed       int       `json:"failed"`
	Orphans      int       `json:"orphans"`
	Alerts       int       `json:"alerts"`
	Suppressed   int       `json:"suppressed"`
	Deduplicated int       `json:"deduplicated"`
	Unresolved   int       `json:"unresolved"`
	StepErrors   int       `json:"step_errors"`
}

// Duration 巡检耗时
func (r *SweepReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *SweepReport) add(res *CheckResult, err error) {
	if err != nil {
		r.Failed++
		return
	}
	if res.Orphaned {
		r.Orphans++
		return
	}
	if res.Skipped {
		return
	}
	r.Checked++
	r.Alerts += res.Alerts
	r.Suppressed += res.Suppressed
	r.Deduplicated += res.Deduplicated
	r.Unresolved += res.Unresolved
	r.StepErrors += res.StepErrors
}

// RunFullSweep 全量巡检：所有活跃工作流、所有告警类别
// 上一轮全量巡检未结束时直接跳过并返回ErrSweepInProgress
func (e *Engine) RunFullSweep(ctx context.Context) (*SweepReport, error) {
	return e.runExclusive(ctx, ModeFull, TriggerSchedule)
}

// RunFastSweep 快速巡检：只检查section_start，让新项目与分区推进尽快通知到人
func (e *Engine) RunFastSweep(ctx context.Context) (*SweepReport, error) {
	return e.runExclusive(ctx, ModeFast, TriggerSchedule)
}

// TriggerManualSweep 运维手动触发全量巡检，在后台执行
// 已有全量巡检在运行时返回false
func (e *Engine) TriggerManualSweep(ctx context.Context) bool {
	if !e.fullRunning.CompareAndSwap(false, true) {
		e.skipped(ctx, ModeFull, TriggerManual)
		return false
	}

	bg := context.WithoutCancel(ctx)
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		defer e.fullRunning.Store(false)
		if _, err := e.sweep(bg, ModeFull, TriggerManual); err != nil {
			e.logger.Error("手动巡检失败", zap.Error(err))
		}
	}()
	return true
}

func (e *Engine) runExclusive(ctx context.Context, mode Mode, trigger string) (*SweepReport, error) {
	flag := e.flag(mode)
	if !flag.CompareAndSwap(false, true) {
		e.skipped(ctx, mode, trigger)
		return nil, ErrSweepInProgress
	}
	defer flag.Store(false)
	return e.sweep(ctx, mode, trigger)
}

func (e *Engine) flag(mode Mode) *atomic.Bool {
	if mode == ModeFast {
		return &e.fastRunning
	}
	return &e.fullRunning
}

func (e *Engine) skipped(ctx context.Context, mode Mode, trigger string) {
	sweepTotal.WithLabelValues(string(mode), "skipped").Inc()
	e.logger.Warn("上一轮巡检仍在运行，本次跳过",
		zap.String("mode", string(mode)),
		zap.String("trigger", trigger))
	e.publish(ctx, events.NewEvent(events.EventSweepSkipped, "", &events.SweepPayload{Mode: string(mode), Trigger: trigger}))
}

// sweep 并发检查所有活跃工作流，单个工作流失败不影响其他工作流
func (e *Engine) sweep(ctx context.Context, mode Mode, trigger string) (*SweepReport, error) {
	report := &SweepReport{Mode: mode, Trigger: trigger, StartedAt: e.now()}
	start := time.Now()

	e.publish(ctx, events.NewEvent(events.EventSweepStarted, "", &events.SweepPayload{Mode: string(mode), Trigger: trigger}))

	ids, err := e.workflows.ListActiveWorkflowIDs(ctx)
	if err != nil {
		sweepTotal.WithLabelValues(string(mode), "failed").Inc()
		return nil, fmt.Errorf("查询活跃工作流失败: %w", err)
	}
	report.Workflows = len(ids)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(e.opts.WorkerConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			res, err := e.checkWorkflow(ctx, id, mode)
			if errors.Is(err, ErrWorkflowNotFound) {
				// 列表与读取之间被删除
				err = nil
				res.Skipped = true
			}
			e.recordCheck(ctx, id, res, err)

			mu.Lock()
			report.add(res, err)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = e.now()
	sweepTotal.WithLabelValues(string(mode), "completed").Inc()
	sweepDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())

	e.logger.Info("巡检完成",
		zap.String("mode", string(mode)),
		zap.String("trigger", trigger),
		zap.Int("workflows", report.Workflows),
		zap.Int("failed", report.Failed),
		zap.Int("orphans", report.Orphans),
		zap.Int("alerts", report.Alerts),
		zap.Int("suppressed", report.Suppressed),
		zap.Duration("elapsed", time.Since(start)))

	e.publish(ctx, events.NewEvent(events.EventSweepCompleted, "", &events.SweepPayload{
		Mode:       string(mode),
		Trigger:    trigger,
		Workflows:  report.Workflows,
		Alerts:     report.Alerts,
		Suppressed: report.Suppressed,
		Failed:     report.Failed,
		Orphans:    report.Orphans,
		DurationMs: time.Since(start).Milliseconds(),
	}))
	return report, nil
}
