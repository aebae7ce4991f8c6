package policy

import (
	"math"
	"time"

	"github.com/LENAX/alert-engine/pkg/core/workflow"
)

// DefaultAlertDays 步骤未配置alertDays时的默认提前预警天数
const DefaultAlertDays = 3

const day = 24 * time.Hour

// Evaluation 单个步骤的判定结果
type Evaluation struct {
	Category     Category
	DaysUntilDue int // 距到期天数，已钳制为>=0
	DaysOverdue  int // 逾期天数，已钳制为>=0
}

// None 是否无需告警
func (e Evaluation) None() bool {
	return e.Category == CategoryNone
}

// Evaluator 告警策略判定器（纯函数，无副作用）
type Evaluator struct {
	defaultAlertDays int
}

// NewEvaluator 创建判定器
// defaultAlertDays<=0 时使用DefaultAlertDays
func NewEvaluator(defaultAlertDays int) *Evaluator {
	if defaultAlertDays <= 0 {
		defaultAlertDays = DefaultAlertDays
	}
	return &Evaluator{defaultAlertDays: defaultAlertDays}
}

// Evaluate 根据到期时间判定时间类告警类别
// 规则按顺序匹配：已完成 → 无排期 → 逾期 → 紧急 → 预警 → 无
func (e *Evaluator) Evaluate(step *workflow.Step, now time.Time) Evaluation {
	if step == nil || step.Completed() {
		return Evaluation{}
	}
	if step.ScheduledEndDate == nil {
		return Evaluation{}
	}
	end := *step.ScheduledEndDate

	daysOverdue := ceilDays(now.Sub(end))
	if daysOverdue > 0 {
		return Evaluation{Category: CategoryOverdue, DaysOverdue: daysOverdue}
	}

	daysUntilDue := clamp(ceilDays(end.Sub(now)))
	if daysUntilDue <= 1 {
		return Evaluation{Category: CategoryUrgent, DaysUntilDue: daysUntilDue}
	}
	if daysUntilDue <= e.alertDays(step) {
		return Evaluation{Category: CategoryWarning, DaysUntilDue: daysUntilDue}
	}
	return Evaluation{DaysUntilDue: daysUntilDue}
}

func (e *Evaluator) alertDays(step *workflow.Step) int {
	if step.AlertDays != nil {
		return *step.AlertDays
	}
	return e.defaultAlertDays
}

// ceilDays 天数向上取整
func ceilDays(d time.Duration) int {
	return int(math.Ceil(float64(d) / float64(day)))
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
