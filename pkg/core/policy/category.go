// Package policy 根据步骤状态与当前时间判定告警类别
package policy

import "time"

// Category 告警类别
type Category string

const (
	CategoryNone         Category = ""              // 无需告警
	CategoryWarning      Category = "warning"       // 即将到期（N天内）
	CategoryUrgent       Category = "urgent"        // 今天/明天到期
	CategoryOverdue      Category = "overdue"       // 已逾期
	CategorySectionStart Category = "section_start" // 新分区/阶段开始
)

// Categories 全部有效类别，按优先级从高到低排列
var Categories = []Category{CategoryOverdue, CategoryUrgent, CategoryWarning, CategorySectionStart}

// Valid 是否为有效类别
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Rank 优先级，数值越大越优先；无类别返回0
func (c Category) Rank() int {
	for i, v := range Categories {
		if c == v {
			return len(Categories) - i
		}
	}
	return 0
}

// Priority 告警优先级
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// PriorityFor 类别对应的优先级
func PriorityFor(c Category) Priority {
	switch c {
	case CategoryUrgent, CategoryOverdue:
		return PriorityHigh
	case CategoryWarning, CategorySectionStart:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Cooldowns 各类别的冷却时间
type Cooldowns map[Category]time.Duration

// DefaultCooldowns 默认冷却时间
func DefaultCooldowns() Cooldowns {
	return Cooldowns{
		CategoryWarning:      24 * time.Hour,
		CategoryUrgent:       12 * time.Hour,
		CategoryOverdue:      24 * time.Hour,
		CategorySectionStart: 7 * 24 * time.Hour,
	}
}

// For 获取类别的冷却时间，未配置时回退到默认值
func (c Cooldowns) For(cat Category) time.Duration {
	if d, ok := c[cat]; ok && d > 0 {
		return d
	}
	return DefaultCooldowns()[cat]
}
