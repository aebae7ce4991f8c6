package recipient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/alert-engine/pkg/core/policy"
	"github.com/LENAX/alert-engine/pkg/core/workflow"
)

type fakeDirectory struct {
	users   []*workflow.User
	failErr error
}

func (f *fakeDirectory) GetUser(ctx context.Context, id string) (*workflow.User, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeDirectory) ListActiveUsersByRoles(ctx context.Context, roles []string) ([]*workflow.User, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	var out []*workflow.User
	for _, u := range f.users {
		if !u.Active {
			continue
		}
		for _, r := range roles {
			if u.Role == r {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

func ids(users []*workflow.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func TestResolve_AssignedActiveUserWins(t *testing.T) {
	dir := &fakeDirectory{users: []*workflow.User{
		{ID: "u1", Role: RoleForeman, Active: true},
		{ID: "admin", Role: RoleAdmin, Active: true},
	}}
	r := NewResolver(dir)

	step := &workflow.Step{ID: "s1", AssignedUserID: "u1", DefaultResponsibleRole: ResponsibleOffice}
	got, err := r.Resolve(context.Background(), step, nil, policy.CategoryWarning)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids(got))
}

func TestResolve_InactiveAssigneeFallsBackToRole(t *testing.T) {
	dir := &fakeDirectory{users: []*workflow.User{
		{ID: "u1", Role: RoleForeman, Active: false},
		{ID: "pm", Role: RoleProjectManager, Active: true},
		{ID: "mgr", Role: RoleManager, Active: true},
	}}
	r := NewResolver(dir)

	step := &workflow.Step{ID: "s1", AssignedUserID: "u1", DefaultResponsibleRole: "field director"}
	got, err := r.Resolve(context.Background(), step, nil, policy.CategoryWarning)
	require.NoError(t, err)
	assert.Equal(t, []string{"pm", "mgr"}, ids(got))
}

func TestResolve_FallbackToAdmin(t *testing.T) {
	dir := &fakeDirectory{users: []*workflow.User{
		{ID: "admin", Role: RoleAdmin, Active: true},
		{ID: "gone", Role: RoleSubcontractor, Active: false},
	}}
	r := NewResolver(dir)

	step := &workflow.Step{ID: "s1", DefaultResponsibleRole: RoleSubcontractor}
	got, err := r.Resolve(context.Background(), step, nil, policy.CategoryWarning)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, ids(got))
}

func TestResolve_NoAdminOrManagerIsConfigurationError(t *testing.T) {
	dir := &fakeDirectory{users: []*workflow.User{
		{ID: "pm", Role: RoleProjectManager, Active: true},
	}}
	r := NewResolver(dir)

	step := &workflow.Step{ID: "s1", DefaultResponsibleRole: RoleSubcontractor}
	project := &workflow.Project{ID: "p1", ProjectManagerID: "pm"}
	got, err := r.Resolve(context.Background(), step, project, policy.CategoryOverdue)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrNoRecipients))
}

func TestResolve_UrgentAddsProjectManager(t *testing.T) {
	dir := &fakeDirectory{users: []*workflow.User{
		{ID: "office", Role: RoleAdmin, Active: true},
		{ID: "pm", Role: RoleProjectManager, Active: true},
	}}
	r := NewResolver(dir)
	project := &workflow.Project{ID: "p1", ProjectManagerID: "pm"}
	step := &workflow.Step{ID: "s1", DefaultResponsibleRole: RoleAdmin}

	got, err := r.Resolve(context.Background(), step, project, policy.CategoryUrgent)
	require.NoError(t, err)
	assert.Equal(t, []string{"office", "pm"}, ids(got))

	got, err = r.Resolve(context.Background(), step, project, policy.CategoryWarning)
	require.NoError(t, err)
	assert.Equal(t, []string{"office"}, ids(got), "warning不追加项目经理")
}

func TestResolve_OverdueEscalatesAndDeduplicates(t *testing.T) {
	dir := &fakeDirectory{users: []*workflow.User{
		{ID: "pm", Role: RoleProjectManager, Active: true},
		{ID: "admin", Role: RoleAdmin, Active: true},
		{ID: "mgr", Role: RoleManager, Active: true},
	}}
	r := NewResolver(dir)
	project := &workflow.Project{ID: "p1", ProjectManagerID: "pm"}
	step := &workflow.Step{ID: "s1", AssignedUserID: "pm"}

	got, err := r.Resolve(context.Background(), step, project, policy.CategoryOverdue)
	require.NoError(t, err)
	assert.Equal(t, []string{"pm", "admin", "mgr"}, ids(got))
}

func TestResolve_DirectoryErrorIsWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewResolver(&fakeDirectory{failErr: boom})
	_, err := r.Resolve(context.Background(), &workflow.Step{ID: "s1", AssignedUserID: "u1"}, nil, policy.CategoryWarning)
	assert.ErrorIs(t, err, boom)
}

func TestMapRole(t *testing.T) {
	assert.Equal(t, []string{RoleAdmin, RoleManager}, MapRole("office"))
	assert.Equal(t, []string{RoleProjectManager, RoleManager}, MapRole("Field-Director"))
	assert.Equal(t, []string{"ESTIMATOR"}, MapRole("estimator"))
	assert.Nil(t, MapRole("  "))
}
