// Package memory 提供storage.Store的内存实现，用于测试与单机演示
// 支持模拟各种故障场景
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/LENAX/alert-engine/pkg/core/alert"
	"github.com/LENAX/alert-engine/pkg/core/cache"
	"github.com/LENAX/alert-engine/pkg/core/suppression"
	"github.com/LENAX/alert-engine/pkg/core/workflow"
	"github.com/LENAX/alert-engine/pkg/storage"
)

// ErrSimulated 模拟存储故障
var ErrSimulated = errors.New("模拟存储故障")

// Store 内存存储（对外导出）
type Store struct {
	mu            sync.RWMutex
	workflows     map[string]*workflow.WorkflowInstance
	projects      map[string]*workflow.Project
	users         map[string]*workflow.User
	overrides     map[string]*suppression.PhaseOverride
	alerts        []*alert.AlertRecord
	notifications []*alert.Notification
	suppressed    []*alert.SuppressedAlert
	dedup         *cache.MemoryDedupStore

	failGetWorkflow  map[string]bool
	getWorkflowDelay time.Duration
	failCreateAlert  int // 剩余失败次数，<0表示一直失败
}

// NewStore 创建内存存储，now用于去重存储的时钟
func NewStore(now func() time.Time) *Store {
	return &Store{
		workflows:       make(map[string]*workflow.WorkflowInstance),
		projects:        make(map[string]*workflow.Project),
		users:           make(map[string]*workflow.User),
		overrides:       make(map[string]*suppression.PhaseOverride),
		dedup:           cache.NewMemoryDedupStore(now),
		failGetWorkflow: make(map[string]bool),
	}
}

// SetFailGetWorkflow 设置读取指定工作流是否失败
func (s *Store) SetFailGetWorkflow(id string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGetWorkflow[id] = fail
}

// SetGetWorkflowDelay 设置读取工作流的延迟（用于模拟超时）
func (s *Store) SetGetWorkflowDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getWorkflowDelay = d
}

// SetFailCreateAlert 设置接下来n次写入告警失败，n<0表示一直失败
func (s *Store) SetFailCreateAlert(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreateAlert = n
}

// ListActiveWorkflowIDs 查询需要巡检的工作流ID
func (s *Store) ListActiveWorkflowIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.workflows))
	for id, wf := range s.workflows {
		if wf.Status.IsActive() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// GetWorkflow 查询工作流，返回副本
func (s *Store) GetWorkflow(ctx context.Context, id string) (*workflow.WorkflowInstance, error) {
	s.mu.RLock()
	delay := s.getWorkflowDelay
	fail := s.failGetWorkflow[id]
	s.mu.RUnlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, ErrSimulated
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[id]
	if !ok {
		return nil, nil
	}
	return copyWorkflow(wf), nil
}

// SaveWorkflow 保存工作流副本
func (s *Store) SaveWorkflow(ctx context.Context, wf *workflow.WorkflowInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[wf.ID] = copyWorkflow(wf)
	return nil
}

// DeleteWorkflow 删除工作流及其覆盖规则
func (s *Store) DeleteWorkflow(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workflows, id)
	for oid, o := range s.overrides {
		if o.WorkflowID == id {
			delete(s.overrides, oid)
		}
	}
	return nil
}

// UpdateStep 修改已保存工作流中的步骤（测试辅助）
func (s *Store) UpdateStep(workflowID, stepID string, fn func(st *workflow.Step)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[workflowID]
	if !ok {
		return false
	}
	st := wf.FindStep(stepID)
	if st == nil {
		return false
	}
	fn(st)
	return true
}

// GetProject 查询项目
func (s *Store) GetProject(ctx context.Context, id string) (*workflow.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// SaveProject 保存项目
func (s *Store) SaveProject(ctx context.Context, p *workflow.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

// DeleteProject 删除项目（测试辅助，用于构造孤儿工作流）
func (s *Store) DeleteProject(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, id)
}

// GetUser 查询用户
func (s *Store) GetUser(ctx context.Context, id string) (*workflow.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// ListActiveUsersByRoles 查询拥有任一角色的在职用户，按ID排序
func (s *Store) ListActiveUsersByRoles(ctx context.Context, roles []string) ([]*workflow.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]bool, len(roles))
	for _, r := range roles {
		want[r] = true
	}
	var out []*workflow.User
	for _, u := range s.users {
		if u.Active && want[u.Role] {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveUser 保存用户
func (s *Store) SaveUser(ctx context.Context, u *workflow.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

// ListActiveOverrides 查询生效的覆盖规则
func (s *Store) ListActiveOverrides(ctx context.Context, workflowID string) ([]*suppression.PhaseOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*suppression.PhaseOverride
	for _, o := range s.overrides {
		if o.WorkflowID == workflowID && o.Active {
			cp := *o
			cp.SuppressedPhases = append([]string(nil), o.SuppressedPhases...)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveOverride 保存覆盖规则
func (s *Store) SaveOverride(ctx context.Context, o *suppression.PhaseOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	cp.SuppressedPhases = append([]string(nil), o.SuppressedPhases...)
	s.overrides[o.ID] = &cp
	return nil
}

// CreateAlert 写入告警与通知
func (s *Store) CreateAlert(ctx context.Context, rec *alert.AlertRecord, n *alert.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreateAlert != 0 {
		if s.failCreateAlert > 0 {
			s.failCreateAlert--
		}
		return ErrSimulated
	}
	cp := *rec
	s.alerts = append(s.alerts, &cp)
	if n != nil {
		nc := *n
		s.notifications = append(s.notifications, &nc)
	}
	return nil
}

// ListAlerts 按条件查询告警，按创建时间倒序
func (s *Store) ListAlerts(ctx context.Context, filter alert.Filter) ([]*alert.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*alert.AlertRecord
	for _, a := range s.alerts {
		if filter.WorkflowID != "" && a.WorkflowID != filter.WorkflowID {
			continue
		}
		if filter.RecipientID != "" && a.RecipientID != filter.RecipientID {
			continue
		}
		if filter.Category != "" && a.Category != filter.Category {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreateTime.After(out[j].CreateTime) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ListNotifications 查询用户的通知
func (s *Store) ListNotifications(ctx context.Context, recipientID string) ([]*alert.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*alert.Notification
	for _, n := range s.notifications {
		if n.RecipientID == recipientID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

// SaveSuppressedAlert 写入拦截审计记录
func (s *Store) SaveSuppressedAlert(ctx context.Context, sa *alert.SuppressedAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sa
	s.suppressed = append(s.suppressed, &cp)
	return nil
}

// ListSuppressedAlerts 查询拦截审计记录
func (s *Store) ListSuppressedAlerts(ctx context.Context, workflowID string) ([]*alert.SuppressedAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*alert.SuppressedAlert
	for _, sa := range s.suppressed {
		if workflowID == "" || sa.WorkflowID == workflowID {
			cp := *sa
			out = append(out, &cp)
		}
	}
	return out, nil
}

// DedupStore 返回内存去重存储
func (s *Store) DedupStore() cache.DedupStore {
	return s.dedup
}

// Ping 内存存储始终可用
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close 无需释放资源
func (s *Store) Close() error {
	return nil
}

func copyWorkflow(wf *workflow.WorkflowInstance) *workflow.WorkflowInstance {
	steps := wf.Steps()
	copied := make([]*workflow.Step, 0, len(steps))
	for _, st := range steps {
		cp := *st
		cp.SubTasks = append([]workflow.SubTask(nil), st.SubTasks...)
		copied = append(copied, &cp)
	}
	inst := *wf
	inst.Phases = nil
	return workflow.Assemble(&inst, copied)
}

// 确保实现接口
var _ storage.Store = (*Store)(nil)
