package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/alert-engine/pkg/core/alert"
	"github.com/LENAX/alert-engine/pkg/core/workflow"
)

func TestStore_GetWorkflowReturnsCopy(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()
	wf := workflow.Assemble(&workflow.WorkflowInstance{ID: "wf", Status: workflow.StatusInProgress},
		[]*workflow.Step{{ID: "s1", Phase: "LEAD", Section: "Intake"}})
	require.NoError(t, s.SaveWorkflow(ctx, wf))

	got, err := s.GetWorkflow(ctx, "wf")
	require.NoError(t, err)
	got.FindStep("s1").IsCompleted = true

	again, _ := s.GetWorkflow(ctx, "wf")
	assert.False(t, again.FindStep("s1").IsCompleted)

	require.True(t, s.UpdateStep("wf", "s1", func(st *workflow.Step) { st.IsCompleted = true }))
	again, _ = s.GetWorkflow(ctx, "wf")
	assert.True(t, again.FindStep("s1").IsCompleted)
}

func TestStore_FailureInjection(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()
	require.NoError(t, s.SaveWorkflow(ctx, workflow.Assemble(&workflow.WorkflowInstance{ID: "wf"}, nil)))

	s.SetFailGetWorkflow("wf", true)
	_, err := s.GetWorkflow(ctx, "wf")
	assert.ErrorIs(t, err, ErrSimulated)

	s.SetFailCreateAlert(1)
	rec := &alert.AlertRecord{ID: "a1", CreateTime: time.Now()}
	assert.ErrorIs(t, s.CreateAlert(ctx, rec, nil), ErrSimulated)
	assert.NoError(t, s.CreateAlert(ctx, rec, nil))

	s.SetGetWorkflowDelay(time.Second)
	s.SetFailGetWorkflow("wf", false)
	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = s.GetWorkflow(tctx, "wf")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStore_ListActiveWorkflowIDs(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()
	for id, st := range map[string]workflow.Status{
		"b": workflow.StatusInProgress, "a": workflow.StatusNotStarted, "c": workflow.StatusCompleted,
	} {
		require.NoError(t, s.SaveWorkflow(ctx, workflow.Assemble(&workflow.WorkflowInstance{ID: id, Status: st}, nil)))
	}
	ids, err := s.ListActiveWorkflowIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}
