package alert

import (
	"fmt"

	"github.com/LENAX/alert-engine/pkg/core/guidance"
	"github.com/LENAX/alert-engine/pkg/core/policy"
	"github.com/LENAX/alert-engine/pkg/core/workflow"
)

// Compose 根据步骤与判定结果生成告警草稿（标题、正文、优先级）
func Compose(wf *workflow.WorkflowInstance, step *workflow.Step, eval policy.Evaluation) Draft {
	action := guidance.For(step.Key).Action
	d := Draft{
		WorkflowID:   wf.ID,
		ProjectID:    wf.ProjectID,
		StepID:       step.ID,
		StepName:     step.Name,
		Phase:        step.Phase,
		Section:      step.Section,
		Category:     eval.Category,
		Priority:     policy.PriorityFor(eval.Category),
		DaysUntilDue: eval.DaysUntilDue,
		DaysOverdue:  eval.DaysOverdue,
	}

	where := step.Phase
	if step.Section != "" {
		where = fmt.Sprintf("%s / %s", step.Phase, step.Section)
	}

	switch eval.Category {
	case policy.CategoryOverdue:
		d.Title = fmt.Sprintf("Overdue: %s", step.Name)
		d.Message = fmt.Sprintf("%s (%s) is %s overdue. %s", step.Name, where, pluralDays(eval.DaysOverdue), action)
	case policy.CategoryUrgent:
		d.Title = fmt.Sprintf("Due soon: %s", step.Name)
		when := "tomorrow"
		if eval.DaysUntilDue == 0 {
			when = "today"
		}
		d.Message = fmt.Sprintf("%s (%s) is due %s. %s", step.Name, where, when, action)
	case policy.CategoryWarning:
		d.Title = fmt.Sprintf("Upcoming: %s", step.Name)
		d.Message = fmt.Sprintf("%s (%s) is due in %s. %s", step.Name, where, pluralDays(eval.DaysUntilDue), action)
	case policy.CategorySectionStart:
		d.Title = fmt.Sprintf("New work ready: %s", step.Name)
		d.Message = fmt.Sprintf("%s is now active. %s: %s", where, step.Name, action)
	default:
		d.Title = step.Name
		d.Message = action
	}
	return d
}

func pluralDays(n int) string {
	if n < 0 {
		n = 0
	}
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
