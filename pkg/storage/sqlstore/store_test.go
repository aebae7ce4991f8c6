package sqlstore

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/LENAX/alert-engine/pkg/core/alert"
	"github.com/LENAX/alert-engine/pkg/core/cache"
	"github.com/LENAX/alert-engine/pkg/core/policy"
	"github.com/LENAX/alert-engine/pkg/core/suppression"
	"github.com/LENAX/alert-engine/pkg/core/workflow"
	"github.com/LENAX/alert-engine/pkg/storage/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "alerts.db")
	s, err := Open(sqlite.NewSQLiteDialect(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedWorkflow(t *testing.T, s *Store) *workflow.WorkflowInstance {
	t.Helper()
	due := time.Date(2026, 4, 1, 17, 0, 0, 0, time.UTC)
	days := 5
	steps := []*workflow.Step{
		{ID: "s1", Key: "input_customer_information", Name: "Input Customer Information", Phase: "LEAD", PhaseOrder: 1, Section: "Intake", SectionOrder: 1, Order: 1, IsCompleted: true},
		{ID: "s2", Key: "schedule_site_inspection", Name: "Schedule Site Inspection", Phase: "LEAD", PhaseOrder: 1, Section: "Intake", SectionOrder: 1, Order: 2, ScheduledEndDate: &due, AlertDays: &days, AssignedUserID: "u-office"},
		{ID: "s3", Key: "site_inspection", Name: "Site Inspection", Phase: "PROSPECT", PhaseOrder: 2, Section: "Inspection", SectionOrder: 1, Order: 1,
			DefaultResponsibleRole: "FOREMAN", SubTasks: []workflow.SubTask{{ID: "t1", Name: "Photos"}, {ID: "t2", Name: "Measurements", IsCompleted: true}}},
	}
	wf := workflow.Assemble(&workflow.WorkflowInstance{ID: "wf-1", ProjectID: "p-1", Status: workflow.StatusInProgress}, steps)
	require.NoError(t, s.SaveWorkflow(context.Background(), wf))
	return wf
}

func TestStore_WorkflowRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedWorkflow(t, s)

	got, err := s.GetWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p-1", got.ProjectID)
	assert.Equal(t, workflow.StatusInProgress, got.Status)
	require.Len(t, got.Phases, 2)
	assert.Equal(t, "LEAD", got.Phases[0].Name)

	s2 := got.FindStep("s2")
	require.NotNil(t, s2)
	require.NotNil(t, s2.ScheduledEndDate)
	assert.True(t, s2.ScheduledEndDate.Equal(time.Date(2026, 4, 1, 17, 0, 0, 0, time.UTC)))
	require.NotNil(t, s2.AlertDays)
	assert.Equal(t, 5, *s2.AlertDays)
	assert.Equal(t, "u-office", s2.AssignedUserID)

	s3 := got.FindStep("s3")
	require.NotNil(t, s3)
	assert.Nil(t, s3.ScheduledEndDate)
	assert.Len(t, s3.SubTasks, 2)
	assert.False(t, s3.Completed())

	missing, err := s.GetWorkflow(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_GetWorkflowSkipsCorruptStep(t *testing.T) {
	s := newTestStore(t)
	core, logs := observer.New(zap.WarnLevel)
	s.SetLogger(zap.New(core))
	ctx := context.Background()
	seedWorkflow(t, s)

	_, err := s.GetDB().ExecContext(ctx, s.GetDB().Rebind(`UPDATE workflow_step SET sub_tasks = ? WHERE id = ?`), "{not json", "s3")
	require.NoError(t, err)

	got, err := s.GetWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.FindStep("s3"))
	assert.NotNil(t, got.FindStep("s1"))
	assert.NotNil(t, got.FindStep("s2"))

	entries := logs.FilterField(zap.String("step_id", "s3")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "wf-1", entries[0].ContextMap()["workflow_id"])
}

func TestStore_ListActiveAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedWorkflow(t, s)

	done := workflow.Assemble(&workflow.WorkflowInstance{ID: "wf-done", ProjectID: "p-1", Status: workflow.StatusCompleted}, nil)
	require.NoError(t, s.SaveWorkflow(ctx, done))
	fresh := workflow.Assemble(&workflow.WorkflowInstance{ID: "wf-new", ProjectID: "p-2", Status: workflow.StatusNotStarted}, nil)
	require.NoError(t, s.SaveWorkflow(ctx, fresh))

	ids, err := s.ListActiveWorkflowIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"wf-1", "wf-new"}, ids)

	require.NoError(t, s.DeleteWorkflow(ctx, "wf-1"))
	got, err := s.GetWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_ProjectsAndUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProject(ctx, &workflow.Project{ID: "p-1", Name: "Maple St", ProjectManagerID: "pm"}))
	p, err := s.GetProject(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "pm", p.ProjectManagerID)

	p, err = s.GetProject(ctx, "p-x")
	require.NoError(t, err)
	assert.Nil(t, p)

	for _, u := range []*workflow.User{
		{ID: "a1", Name: "Ada", Role: "ADMIN", Active: true},
		{ID: "m1", Name: "Max", Role: "MANAGER", Active: true},
		{ID: "m2", Name: "Mo", Role: "MANAGER", Active: false},
		{ID: "f1", Name: "Fay", Role: "FOREMAN", Active: true},
	} {
		require.NoError(t, s.SaveUser(ctx, u))
	}

	users, err := s.ListActiveUsersByRoles(ctx, []string{"ADMIN", "MANAGER"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a1", users[0].ID)
	assert.Equal(t, "m1", users[1].ID)

	u, err := s.GetUser(ctx, "m2")
	require.NoError(t, err)
	assert.False(t, u.Active)

	u, err = s.GetUser(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestStore_Overrides(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveOverride(ctx, &suppression.PhaseOverride{
		ID: "ov-1", WorkflowID: "wf-1", SuppressedPhases: []string{"EXECUTION", "SUPPLEMENT"}, Reason: "insurance", Active: true,
	}))
	require.NoError(t, s.SaveOverride(ctx, &suppression.PhaseOverride{
		ID: "ov-2", WorkflowID: "wf-1", SuppressedPhases: []string{"LEAD"}, Active: false,
	}))

	got, err := s.ListActiveOverrides(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"EXECUTION", "SUPPLEMENT"}, got[0].SuppressedPhases)
	assert.True(t, got[0].Covers("EXECUTION"))
}

func TestStore_AlertsAndNotifications(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	for i, rid := range []string{"u1", "u2"} {
		rec := &alert.AlertRecord{
			ID: "a" + rid, WorkflowID: "wf-1", ProjectID: "p-1", StepID: "s2", StepName: "Schedule Site Inspection",
			Phase: "LEAD", Section: "Intake", Category: policy.CategoryOverdue, Priority: policy.PriorityHigh,
			RecipientID: rid, Title: "Overdue: Schedule Site Inspection", Message: "late", DaysOverdue: 1,
			Status: alert.StatusActive, CreateTime: ts.Add(time.Duration(i) * time.Minute), UpdateTime: ts,
		}
		n := &alert.Notification{ID: "n" + rid, RecipientID: rid, AlertID: rec.ID, Type: alert.NotificationTypeWorkflowAlert, Title: rec.Title, Message: rec.Message, CreateTime: ts}
		require.NoError(t, s.CreateAlert(ctx, rec, n))
	}

	all, err := s.ListAlerts(ctx, alert.Filter{WorkflowID: "wf-1"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "u2", all[0].RecipientID, "按创建时间倒序")
	assert.Equal(t, policy.CategoryOverdue, all[0].Category)

	mine, err := s.ListAlerts(ctx, alert.Filter{RecipientID: "u1", Status: alert.StatusActive})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 1, mine[0].DaysOverdue)

	limited, err := s.ListAlerts(ctx, alert.Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	notes, err := s.ListNotifications(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "au1", notes[0].AlertID)
	assert.False(t, notes[0].Read)
}

func TestStore_CreateAlertIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Now()

	rec := &alert.AlertRecord{ID: "dup", WorkflowID: "wf", Status: alert.StatusActive, CreateTime: ts, UpdateTime: ts}
	require.NoError(t, s.CreateAlert(ctx, rec, &alert.Notification{ID: "n1", AlertID: "dup", CreateTime: ts}))

	// 告警主键冲突时通知也不能落库
	err := s.CreateAlert(ctx, rec, &alert.Notification{ID: "n2", RecipientID: "x", AlertID: "dup", CreateTime: ts})
	require.Error(t, err)
	notes, err := s.ListNotifications(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestStore_SuppressedAlerts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSuppressedAlert(ctx, &alert.SuppressedAlert{
		ID: "sa-1", WorkflowID: "wf-1", StepID: "s9", Phase: "EXECUTION", Category: policy.CategoryWarning,
		Priority: policy.PriorityMedium, Title: "Upcoming: Installation", Message: "soon", OverrideID: "ov-1",
		Reason: "insurance", CreateTime: time.Now(),
	}))

	rows, err := s.ListSuppressedAlerts(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ov-1", rows[0].OverrideID)

	rows, err = s.ListSuppressedAlerts(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestDedupRepo_CooldownAcrossInstances(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := &clock{t: time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)}

	// 两个实例共享同一个库
	a := NewDedupRepo(s.GetDB(), sqlite.NewSQLiteDialect(), c.now)
	b := NewDedupRepo(s.GetDB(), sqlite.NewSQLiteDialect(), c.now)
	key := cache.DedupKey{WorkflowID: "wf-1", Subject: cache.StepSubject("s2"), Category: policy.CategoryOverdue}

	ok, err := a.CheckAndMark(ctx, key, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.CheckAndMark(ctx, key, 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	c.advance(24 * time.Hour)
	ok, err = b.CheckAndMark(ctx, key, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "冷却期结束后允许再次告警")

	ok, err = a.CheckAndMark(ctx, key, 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDedupRepo_ForgetAndEvict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := &clock{t: time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)}
	r := NewDedupRepo(s.GetDB(), sqlite.NewSQLiteDialect(), c.now)

	key := cache.DedupKey{WorkflowID: "wf-1", Subject: cache.SectionSubject("LEAD", "Intake"), Category: policy.CategorySectionStart}
	ok, _ := r.CheckAndMark(ctx, key, time.Hour)
	require.True(t, ok)
	require.NoError(t, r.Forget(ctx, key))
	ok, _ = r.CheckAndMark(ctx, key, time.Hour)
	assert.True(t, ok)

	c.advance(8 * 24 * time.Hour)
	other := cache.DedupKey{WorkflowID: "wf-2", Subject: cache.StepSubject("x"), Category: policy.CategoryWarning}
	ok, _ = r.CheckAndMark(ctx, other, time.Hour)
	require.True(t, ok)

	n, err := r.Evict(ctx, c.now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDedupRepo_ConcurrentCheckAndMark(t *testing.T) {
	s := newTestStore(t)
	key := cache.DedupKey{WorkflowID: "wf-1", Subject: cache.StepSubject("s2"), Category: policy.CategoryUrgent}
	repo := s.DedupStore()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.CheckAndMark(context.Background(), key, time.Hour)
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}
