package suppression

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/alert-engine/pkg/core/alert"
	"github.com/LENAX/alert-engine/pkg/core/policy"
)

type stubOverrides struct {
	overrides []*PhaseOverride
	err       error
	calls     int
}

func (s *stubOverrides) ListActiveOverrides(ctx context.Context, workflowID string) ([]*PhaseOverride, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []*PhaseOverride
	for _, o := range s.overrides {
		if o.WorkflowID == workflowID && o.Active {
			out = append(out, o)
		}
	}
	return out, nil
}

type stubAudit struct {
	rows []*alert.SuppressedAlert
}

func (s *stubAudit) SaveSuppressedAlert(ctx context.Context, a *alert.SuppressedAlert) error {
	s.rows = append(s.rows, a)
	return nil
}

func draft(phase string) alert.Draft {
	return alert.Draft{
		WorkflowID: "wf-1",
		StepID:     "st-1",
		Phase:      phase,
		Category:   policy.CategoryOverdue,
		Priority:   policy.PriorityHigh,
		Title:      "Overdue: Installation",
		Message:    "Installation is 2 days overdue.",
	}
}

func TestFilter_SuppressesCoveredPhaseAndAudits(t *testing.T) {
	src := &stubOverrides{overrides: []*PhaseOverride{
		{ID: "ov-1", WorkflowID: "wf-1", SuppressedPhases: []string{"EXECUTION"}, Reason: "handled by sub", Active: true},
	}}
	audit := &stubAudit{}
	f := NewFilter(src, audit, nil)

	dec, err := f.Check(context.Background(), draft("EXECUTION"))
	require.NoError(t, err)
	assert.True(t, dec.Suppressed)
	require.Len(t, audit.rows, 1)

	row := audit.rows[0]
	assert.Equal(t, "ov-1", row.OverrideID)
	assert.Equal(t, "handled by sub", row.Reason)
	assert.Equal(t, "Overdue: Installation", row.Title)
	assert.Equal(t, policy.PriorityHigh, row.Priority)
	assert.Equal(t, "st-1", row.StepID)
}

func TestFilter_OtherPhasePassesThrough(t *testing.T) {
	src := &stubOverrides{overrides: []*PhaseOverride{
		{ID: "ov-1", WorkflowID: "wf-1", SuppressedPhases: []string{"EXECUTION"}, Active: true},
	}}
	audit := &stubAudit{}
	f := NewFilter(src, audit, nil)

	dec, err := f.Check(context.Background(), draft("APPROVED"))
	require.NoError(t, err)
	assert.False(t, dec.Suppressed)
	assert.Empty(t, audit.rows)
}

func TestFilter_DeactivatedOverrideStopsSuppressing(t *testing.T) {
	ov := &PhaseOverride{ID: "ov-1", WorkflowID: "wf-1", SuppressedPhases: []string{"EXECUTION"}, Active: true}
	src := &stubOverrides{overrides: []*PhaseOverride{ov}}
	f := NewFilter(src, &stubAudit{}, nil)

	dec, err := f.Check(context.Background(), draft("EXECUTION"))
	require.NoError(t, err)
	assert.True(t, dec.Suppressed)

	ov.Active = false
	dec, err = f.Check(context.Background(), draft("EXECUTION"))
	require.NoError(t, err)
	assert.False(t, dec.Suppressed)
	assert.Equal(t, 2, src.calls, "覆盖规则每次都重新查询")
}

func TestFilter_SourceErrorIsReturned(t *testing.T) {
	f := NewFilter(&stubOverrides{err: errors.New("timeout")}, &stubAudit{}, nil)
	_, err := f.Check(context.Background(), draft("EXECUTION"))
	assert.Error(t, err)
}

func TestPhaseOverride_Covers(t *testing.T) {
	o := &PhaseOverride{SuppressedPhases: []string{"LEAD", "PROSPECT"}, Active: true}
	assert.True(t, o.Covers("LEAD"))
	assert.False(t, o.Covers("APPROVED"))
	o.Active = false
	assert.False(t, o.Covers("LEAD"))
}
