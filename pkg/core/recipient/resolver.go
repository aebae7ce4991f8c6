// Package recipient 根据步骤与告警类别解析通知对象
package recipient

import (
	"context"
	"errors"
	"fmt"

	"github.com/LENAX/alert-engine/pkg/core/policy"
	"github.com/LENAX/alert-engine/pkg/core/workflow"
)

// ErrNoRecipients 所有兜底策略之后仍没有可通知的用户（配置缺失，不重试）
var ErrNoRecipients = errors.New("没有可通知的用户")

// UserDirectory 用户数据源
type UserDirectory interface {
	// GetUser 根据ID查询用户，不存在时返回nil, nil
	GetUser(ctx context.Context, id string) (*workflow.User, error)
	// ListActiveUsersByRoles 查询拥有任一角色的在职用户
	ListActiveUsersByRoles(ctx context.Context, roles []string) ([]*workflow.User, error)
}

// Resolver 通知对象解析器
type Resolver struct {
	users UserDirectory
}

// NewResolver 创建解析器
func NewResolver(users UserDirectory) *Resolver {
	return &Resolver{users: users}
}

// Resolve 解析步骤告警的通知对象
//  1. 指派用户且在职 → 仅该用户
//  2. 否则按负责角色映射查询在职用户
//  3. 仍为空 → 兜底为所有在职ADMIN/MANAGER，再为空返回ErrNoRecipients
//  4. urgent/overdue 追加项目经理
//  5. overdue 追加所有在职ADMIN/MANAGER（升级）
//  6. 按用户ID去重
func (r *Resolver) Resolve(ctx context.Context, step *workflow.Step, project *workflow.Project, category policy.Category) ([]*workflow.User, error) {
	set := newUserSet()

	if step.AssignedUserID != "" {
		u, err := r.users.GetUser(ctx, step.AssignedUserID)
		if err != nil {
			return nil, fmt.Errorf("查询指派用户失败: %w", err)
		}
		if u != nil && u.Active {
			set.add(u)
		}
	}

	if set.empty() {
		if roles := MapRole(step.DefaultResponsibleRole); len(roles) > 0 {
			users, err := r.users.ListActiveUsersByRoles(ctx, roles)
			if err != nil {
				return nil, fmt.Errorf("按角色查询用户失败: %w", err)
			}
			set.add(users...)
		}
	}

	if set.empty() {
		users, err := r.users.ListActiveUsersByRoles(ctx, escalationRoles)
		if err != nil {
			return nil, fmt.Errorf("查询兜底用户失败: %w", err)
		}
		set.add(users...)
		if set.empty() {
			return nil, fmt.Errorf("步骤 %s (%s): %w", step.ID, step.DefaultResponsibleRole, ErrNoRecipients)
		}
	}

	if (category == policy.CategoryUrgent || category == policy.CategoryOverdue) &&
		project != nil && project.ProjectManagerID != "" {
		pm, err := r.users.GetUser(ctx, project.ProjectManagerID)
		if err != nil {
			return nil, fmt.Errorf("查询项目经理失败: %w", err)
		}
		if pm != nil && pm.Active {
			set.add(pm)
		}
	}

	if category == policy.CategoryOverdue {
		users, err := r.users.ListActiveUsersByRoles(ctx, escalationRoles)
		if err != nil {
			return nil, fmt.Errorf("查询升级用户失败: %w", err)
		}
		set.add(users...)
	}

	return set.list(), nil
}

// userSet 按插入顺序去重的用户集合
type userSet struct {
	seen  map[string]bool
	users []*workflow.User
}

func newUserSet() *userSet {
	return &userSet{seen: make(map[string]bool)}
}

func (s *userSet) add(users ...*workflow.User) {
	for _, u := range users {
		if u == nil || u.ID == "" || s.seen[u.ID] {
			continue
		}
		s.seen[u.ID] = true
		s.users = append(s.users, u)
	}
}

func (s *userSet) empty() bool { return len(s.users) == 0 }

func (s *userSet) list() []*workflow.User { return s.users }
