package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/alert-engine/pkg/core/alert"
	"github.com/LENAX/alert-engine/pkg/core/events"
	"github.com/LENAX/alert-engine/pkg/core/policy"
	"github.com/LENAX/alert-engine/pkg/core/workflow"
)

func (f *fixture) seedMixedWorkflows() {
	overdue := newStep("o1", "LEAD", 1, "Intake", 1, 1)
	overdue.ScheduledEndDate = dueIn(-3 * 24 * time.Hour)
	fresh := newStep("n1", "LEAD", 1, "Intake", 1, 2)
	f.saveWorkflow("wf-a", workflow.StatusInProgress, overdue, fresh)

	f.saveWorkflow("wf-b", workflow.StatusNotStarted, newStep("b1", "LEAD", 1, "Intake", 1, 1))

	done := newStep("c1", "LEAD", 1, "Intake", 1, 1)
	done.ScheduledEndDate = dueIn(-time.Hour)
	f.saveWorkflow("wf-done", workflow.StatusCompleted, done)
}

func TestRunFullSweep_ChecksEveryActiveWorkflow(t *testing.T) {
	f := newFixture(t)
	f.seedMixedWorkflows()

	report, err := f.eng.RunFullSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeFull, report.Mode)
	assert.Equal(t, TriggerSchedule, report.Trigger)
	assert.Equal(t, 2, report.Workflows)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 0, report.Failed)

	assert.Len(t, f.alerts("wf-a", policy.CategoryOverdue), 4)
	assert.Len(t, f.alerts("wf-a", policy.CategorySectionStart), 1)
	assert.Len(t, f.alerts("wf-b", policy.CategorySectionStart), 1)
	all, _ := f.store.ListAlerts(context.Background(), alert.Filter{WorkflowID: "wf-done"})
	assert.Empty(t, all)

	assert.Equal(t, 1, f.rec.count(events.EventSweepStarted))
	assert.Equal(t, 1, f.rec.count(events.EventSweepCompleted))
	assert.False(t, f.eng.SweepInProgress(ModeFull))

	// 第二轮全部命中去重
	report, err = f.eng.RunFullSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Alerts)
	assert.Equal(t, 3, report.Deduplicated)
}

func TestRunFastSweep_SectionStartOnly(t *testing.T) {
	f := newFixture(t)
	f.seedMixedWorkflows()

	report, err := f.eng.RunFastSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeFast, report.Mode)

	assert.Empty(t, f.alerts("wf-a", policy.CategoryOverdue))
	// 时间类步骤即使在快速模式下也不发section_start
	sectionStart := f.alerts("wf-a", policy.CategorySectionStart)
	require.Len(t, sectionStart, 1)
	assert.Equal(t, "n1", sectionStart[0].StepID)
	assert.Len(t, f.alerts("wf-b", policy.CategorySectionStart), 1)

	_, err = f.eng.RunFullSweep(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.alerts("wf-a", policy.CategoryOverdue), 4)
	assert.Len(t, f.alerts("wf-a", policy.CategorySectionStart), 1)
}

func TestRunFullSweep_PurgesOrphans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newStep("s1", "LEAD", 1, "Intake", 1, 1)
	s.ScheduledEndDate = dueIn(-24 * time.Hour)
	wf := workflow.Assemble(&workflow.WorkflowInstance{ID: "wf-orphan", ProjectID: "p-gone", Status: workflow.StatusInProgress}, []*workflow.Step{s})
	require.NoError(t, f.store.SaveWorkflow(ctx, wf))

	report, err := f.eng.RunFullSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Orphans)
	assert.Equal(t, 0, report.Alerts)

	got, err := f.store.GetWorkflow(ctx, "wf-orphan")
	require.NoError(t, err)
	assert.Nil(t, got)
	all, _ := f.store.ListAlerts(ctx, alert.Filter{WorkflowID: "wf-orphan"})
	assert.Empty(t, all)
	assert.Equal(t, 1, f.rec.count(events.EventWorkflowOrphanPurged))

	report, err = f.eng.RunFullSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Workflows)
}

func TestRunFullSweep_FailedWorkflowDoesNotStopSweep(t *testing.T) {
	f := newFixture(t)
	f.seedMixedWorkflows()
	f.store.SetFailGetWorkflow("wf-a", true)

	report, err := f.eng.RunFullSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Checked)
	assert.Len(t, f.alerts("wf-b", policy.CategorySectionStart), 1)
	assert.Equal(t, 1, f.rec.count(events.EventWorkflowCheckFailed))

	// 下一轮恢复后补发
	f.store.SetFailGetWorkflow("wf-a", false)
	_, err = f.eng.RunFullSweep(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, f.alerts("wf-a", policy.CategoryOverdue))
}

func TestRunFullSweep_OverlappingRunIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.seedMixedWorkflows()
	f.store.SetGetWorkflowDelay(300 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := f.eng.RunFullSweep(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return f.eng.SweepInProgress(ModeFull) }, time.Second, 5*time.Millisecond)

	_, err := f.eng.RunFullSweep(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)
	assert.False(t, f.eng.TriggerManualSweep(context.Background()))
	assert.Equal(t, 2, f.rec.count(events.EventSweepSkipped))

	// 快速巡检使用独立的运行标志
	_, err = f.eng.RunFastSweep(context.Background())
	assert.NoError(t, err)

	require.NoError(t, <-done)
	assert.False(t, f.eng.SweepInProgress(ModeFull))
}

func TestTriggerManualSweep_RunsInBackground(t *testing.T) {
	f := newFixture(t)
	f.seedMixedWorkflows()

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, f.eng.TriggerManualSweep(ctx))
	// 调用方取消不影响后台巡检
	cancel()
	f.eng.Wait()

	assert.Len(t, f.alerts("wf-a", policy.CategoryOverdue), 4)
	assert.False(t, f.eng.SweepInProgress(ModeFull))
	assert.Equal(t, 1, f.rec.count(events.EventSweepCompleted))
}

func TestRunFullSweep_TimeoutAbandonsOnlySlowWorkflow(t *testing.T) {
	f := newFixture(t, func(d *Deps, o *Options) {
		o.CheckTimeout = 20 * time.Millisecond
	})
	f.seedMixedWorkflows()
	f.store.SetGetWorkflowDelay(200 * time.Millisecond)

	report, err := f.eng.RunFullSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 0, report.Alerts)
}

func TestRunDedupCleanup_EvictsExpiredMarks(t *testing.T) {
	f := newFixture(t)
	f.seedMixedWorkflows()
	_, err := f.eng.RunFullSweep(context.Background())
	require.NoError(t, err)

	n, err := f.eng.RunDedupCleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.clock.Advance(8 * 24 * time.Hour)
	n, err = f.eng.RunDedupCleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
