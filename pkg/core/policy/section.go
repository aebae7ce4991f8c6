package policy

import "github.com/LENAX/alert-engine/pkg/core/workflow"

// SectionStart section_start候选集合
type SectionStart struct {
	Phase   string
	Section string // 全新工作流按阶段整体下发时为空
	// PerSection 为true时按分区只通知一次（进行中的工作流）
	PerSection bool
	Steps      []*workflow.Step
}

// Empty 是否没有候选步骤
func (s SectionStart) Empty() bool {
	return len(s.Steps) == 0
}

// SectionStartCandidates 计算section_start候选步骤
//   - 全新工作流（没有已完成步骤）：当前阶段内所有未完成步骤，不论到期时间
//   - 进行中的工作流：按阶段、分区顺序找到第一个仍有未完成步骤的分区
func SectionStartCandidates(wf *workflow.WorkflowInstance) SectionStart {
	if wf == nil {
		return SectionStart{}
	}
	if wf.IsBrandNew() {
		phase := wf.ActivePhase()
		if phase == nil {
			return SectionStart{}
		}
		return SectionStart{Phase: phase.Name, Steps: phase.IncompleteSteps()}
	}

	phase, section := wf.NextActiveSection()
	if section == nil {
		return SectionStart{}
	}
	return SectionStart{
		Phase:      phase.Name,
		Section:    section.Name,
		PerSection: true,
		Steps:      section.IncompleteSteps(),
	}
}
