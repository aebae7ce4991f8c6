package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStep(id, phase string, phaseOrder int, section string, sectionOrder, order int) *Step {
	return &Step{
		ID:           id,
		Key:          id,
		Name:         id,
		Phase:        phase,
		PhaseOrder:   phaseOrder,
		Section:      section,
		SectionOrder: sectionOrder,
		Order:        order,
	}
}

func TestAssemble_GroupsInOrder(t *testing.T) {
	steps := []*Step{
		newStep("s4", "APPROVED", 2, "Setup", 1, 1),
		newStep("s2", "LEAD", 1, "Intake", 1, 2),
		newStep("s1", "LEAD", 1, "Intake", 1, 1),
		newStep("s3", "LEAD", 1, "Inspection", 2, 1),
	}

	wf := Assemble(&WorkflowInstance{ID: "wf-1"}, steps)

	require.Len(t, wf.Phases, 2)
	assert.Equal(t, "LEAD", wf.Phases[0].Name)
	assert.Equal(t, "APPROVED", wf.Phases[1].Name)
	require.Len(t, wf.Phases[0].Sections, 2)
	assert.Equal(t, "Intake", wf.Phases[0].Sections[0].Name)

	ids := make([]string, 0)
	for _, s := range wf.Steps() {
		ids = append(ids, s.ID)
		assert.Equal(t, "wf-1", s.WorkflowID)
	}
	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, ids)
}

func TestStep_CompletedBySubTasks(t *testing.T) {
	s := &Step{SubTasks: []SubTask{{ID: "a", IsCompleted: true}, {ID: "b"}}}
	assert.False(t, s.Completed())

	s.SubTasks[1].IsCompleted = true
	assert.True(t, s.Completed())

	empty := &Step{}
	assert.False(t, empty.Completed(), "没有子任务的步骤不能被隐式完成")
}

func TestWorkflowInstance_ActivePhaseAndNextSection(t *testing.T) {
	s1 := newStep("s1", "LEAD", 1, "Intake", 1, 1)
	s2 := newStep("s2", "LEAD", 1, "Inspection", 2, 1)
	s3 := newStep("s3", "APPROVED", 2, "Setup", 1, 1)
	wf := Assemble(&WorkflowInstance{ID: "wf-1"}, []*Step{s1, s2, s3})

	assert.True(t, wf.IsBrandNew())
	assert.Equal(t, "LEAD", wf.ActivePhase().Name)

	s1.IsCompleted = true
	phase, sec := wf.NextActiveSection()
	require.NotNil(t, sec)
	assert.Equal(t, "LEAD", phase.Name)
	assert.Equal(t, "Inspection", sec.Name)
	assert.False(t, wf.IsBrandNew())
	assert.Equal(t, 1, wf.CompletedCount())

	s2.IsCompleted = true
	phase, sec = wf.NextActiveSection()
	require.NotNil(t, sec)
	assert.Equal(t, "APPROVED", phase.Name)
	assert.Equal(t, "Setup", sec.Name)
	assert.Equal(t, "APPROVED", wf.ActivePhase().Name)

	wf.CurrentPhase = "LEAD"
	assert.Equal(t, "LEAD", wf.ActivePhase().Name, "显式的CurrentPhase指针优先")

	s3.IsCompleted = true
	_, sec = wf.NextActiveSection()
	assert.Nil(t, sec)
	assert.Empty(t, wf.IncompleteSteps())
}

func TestStatus_IsActive(t *testing.T) {
	assert.True(t, StatusNotStarted.IsActive())
	assert.True(t, StatusInProgress.IsActive())
	assert.False(t, StatusCompleted.IsActive())
}
