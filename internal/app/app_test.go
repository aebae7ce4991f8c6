package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LENAX/alert-engine/pkg/config"
	"github.com/LENAX/alert-engine/pkg/core/alert"
	"github.com/LENAX/alert-engine/pkg/core/cache"
	"github.com/LENAX/alert-engine/pkg/core/policy"
	"github.com/LENAX/alert-engine/pkg/core/workflow"
)

func testConfig(t *testing.T) *config.EngineConfig {
	t.Helper()
	cfg := &config.EngineConfig{}
	cfg.AlertEngine.Storage.Database.DSN = filepath.Join(t.TempDir(), "alerts.db")
	cfg.ApplyDefaults()
	require.NoError(t, config.ValidateFrameworkConfig(cfg))
	cfg.AlertEngine.API.Host = "127.0.0.1"
	cfg.AlertEngine.API.Port = 0
	return cfg
}

func TestEngineOptions(t *testing.T) {
	cfg := testConfig(t)
	cfg.AlertEngine.Policy.Cooldowns.Urgent = 2 * time.Hour
	cfg.AlertEngine.Schedule.DedupCleanup = config.DisabledJob

	opts := EngineOptions(cfg)
	assert.Equal(t, 3, opts.DefaultAlertDays)
	assert.Equal(t, 2*time.Hour, opts.Cooldowns.For(policy.CategoryUrgent))
	assert.Equal(t, 7*24*time.Hour, opts.Cooldowns.For(policy.CategorySectionStart))
	assert.Equal(t, 15*time.Second, opts.CheckTimeout)
	assert.True(t, opts.Schedule.Enabled)
	assert.Equal(t, "@every 5m", opts.Schedule.FastSweep)
	assert.Empty(t, opts.Schedule.DedupCleanup)
}

func TestNew_SelectsDedupBackend(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, zap.NewNop(), "test")
	require.NoError(t, err)
	defer a.Close()
	_, isMemory := a.Dedup.(*cache.MemoryDedupStore)
	assert.False(t, isMemory)

	cfg = testConfig(t)
	cfg.AlertEngine.Dedup.Backend = config.DedupBackendMemory
	b, err := New(cfg, zap.NewNop(), "test")
	require.NoError(t, err)
	defer b.Close()
	_, isMemory = b.Dedup.(*cache.MemoryDedupStore)
	assert.True(t, isMemory)
}

func TestApp_SweepAgainstSQLite(t *testing.T) {
	a, err := New(testConfig(t), zap.NewNop(), "test")
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	require.NoError(t, a.Store.SaveProject(ctx, &workflow.Project{ID: "p-1", ProjectManagerID: "pm"}))
	require.NoError(t, a.Store.SaveUser(ctx, &workflow.User{ID: "alice", Role: "FOREMAN", Active: true}))
	wf := workflow.Assemble(&workflow.WorkflowInstance{ID: "wf-1", ProjectID: "p-1", Status: workflow.StatusNotStarted}, []*workflow.Step{
		{ID: "s1", Key: "s1", Name: "Kickoff", Phase: "LEAD", PhaseOrder: 1, Section: "Intake", SectionOrder: 1, Order: 1, AssignedUserID: "alice"},
	})
	require.NoError(t, a.Store.SaveWorkflow(ctx, wf))

	report, err := a.Engine.RunFastSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Alerts)

	report, err = a.Engine.RunFastSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Alerts)
	assert.Equal(t, 1, report.Deduplicated)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	disabled := false
	cfg.AlertEngine.Schedule.Enabled = &disabled

	a, err := New(cfg, zap.NewNop(), "test")
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, a.Engine.IsRunning, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run未在ctx取消后返回")
	}
	assert.False(t, a.Engine.IsRunning())
}

func TestApp_CorruptStepDoesNotBlockWorkflow(t *testing.T) {
	a, err := New(testConfig(t), zap.NewNop(), "test")
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	require.NoError(t, a.Store.SaveProject(ctx, &workflow.Project{ID: "p-1"}))
	require.NoError(t, a.Store.SaveUser(ctx, &workflow.User{ID: "admin", Role: "ADMIN", Active: true}))

	due := time.Now().Add(-48 * time.Hour)
	wf := workflow.Assemble(&workflow.WorkflowInstance{ID: "wf-1", ProjectID: "p-1", Status: workflow.StatusInProgress}, []*workflow.Step{
		{ID: "s1", Key: "s1", Name: "Kickoff", Phase: "LEAD", PhaseOrder: 1, Section: "Intake", SectionOrder: 1, Order: 1, IsCompleted: true},
		{ID: "s2", Key: "s2", Name: "Estimate", Phase: "LEAD", PhaseOrder: 1, Section: "Intake", SectionOrder: 1, Order: 2,
			ScheduledEndDate: &due, AssignedUserID: "admin"},
		{ID: "s3", Key: "s3", Name: "Inspection", Phase: "LEAD", PhaseOrder: 1, Section: "Intake", SectionOrder: 1, Order: 3,
			SubTasks: []workflow.SubTask{{ID: "t1", Name: "Photos"}}},
	})
	require.NoError(t, a.Store.SaveWorkflow(ctx, wf))

	db := a.Store.GetDB()
	_, err = db.ExecContext(ctx, db.Rebind(`UPDATE workflow_step SET sub_tasks = ? WHERE id = ?`), "{not json", "s3")
	require.NoError(t, err)

	res, err := a.Engine.CheckWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Alerts, 1)

	overdue, err := a.Store.ListAlerts(ctx, alert.Filter{WorkflowID: "wf-1", Category: policy.CategoryOverdue})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "s2", overdue[0].StepID)
	assert.Equal(t, "admin", overdue[0].RecipientID)
}
