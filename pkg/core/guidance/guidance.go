// Package guidance 维护步骤标识到操作指引的静态映射表
package guidance

// StepKey 稳定的步骤标识（与步骤显示名称解耦，改名不影响指引查找）
type StepKey string

const (
	// LEAD 阶段
	StepInputCustomerInfo     StepKey = "input_customer_information"
	StepCompleteQuestionnaire StepKey = "complete_questions_checklist"
	StepInputLeadProperty     StepKey = "input_lead_property"
	StepAssignProjectManager  StepKey = "assign_project_manager"

	// PROSPECT 阶段
	StepSiteInspection       StepKey = "site_inspection"
	StepWriteEstimate        StepKey = "write_estimate"
	StepInsuranceProcess     StepKey = "insurance_process"
	StepAgreementPreparation StepKey = "agreement_preparation"
	StepAgreementSigning     StepKey = "agreement_signing"

	// APPROVED 阶段
	StepAdministrativeSetup  StepKey = "administrative_setup"
	StepPreJobActions        StepKey = "pre_job_actions"
	StepPrepareForProduction StepKey = "prepare_for_production"
	StepOrderMaterials       StepKey = "order_materials"

	// EXECUTION 阶段
	StepInstallation      StepKey = "installation"
	StepQualityCheck      StepKey = "quality_check"
	StepMultipleTrades    StepKey = "multiple_trades"
	StepSubcontractorWork StepKey = "subcontractor_work"
	StepUpdateCustomer    StepKey = "update_customer"

	// SUPPLEMENT 阶段
	StepCreateSupplement      StepKey = "create_supplement"
	StepFollowUpSupplement    StepKey = "follow_up_supplement"
	StepReviewSupplement      StepKey = "review_approved_supplement"
	StepCustomerSupplementUpd StepKey = "customer_supplement_update"

	// COMPLETION 阶段
	StepFinancialProcessing StepKey = "financial_processing"
	StepProjectCloseout     StepKey = "project_closeout"
)

// GenericAction 未知步骤的通用指引
const GenericAction = "Complete this task and mark it done in the project workflow."

// Guidance 单个步骤的操作指引
type Guidance struct {
	Key    StepKey
	Action string // 简短可执行的操作说明
}

// table 步骤 → 操作指引
var table = map[StepKey]string{
	StepInputCustomerInfo:     "Enter the customer's contact details and confirm the property address.",
	StepCompleteQuestionnaire: "Walk the customer through the intake questionnaire and record every answer.",
	StepInputLeadProperty:     "Record the property details, roof type and access notes for the lead.",
	StepAssignProjectManager:  "Assign a project manager so ownership of the job is clear.",

	StepSiteInspection:       "Schedule and perform the site inspection, then upload photos and measurements.",
	StepWriteEstimate:        "Prepare the estimate from the inspection data and send it for review.",
	StepInsuranceProcess:     "Contact the insurance carrier, file the claim and record the claim number.",
	StepAgreementPreparation: "Draft the customer agreement with the approved scope and pricing.",
	StepAgreementSigning:     "Send the agreement to the customer and collect the signature.",

	StepAdministrativeSetup:  "Open the job file, confirm permits and enter the job into accounting.",
	StepPreJobActions:        "Confirm the start date with the customer and notify the crew.",
	StepPrepareForProduction: "Verify materials, crew and equipment are ready for production.",
	StepOrderMaterials:       "Place the material order and confirm the delivery date with the supplier.",

	StepInstallation:      "Coordinate the installation crew and log daily progress on site.",
	StepQualityCheck:      "Inspect the finished work against the scope and record any punch-list items.",
	StepMultipleTrades:    "Schedule the additional trades and confirm their sequence on site.",
	StepSubcontractorWork: "Confirm the subcontractor's schedule and collect their completion sign-off.",
	StepUpdateCustomer:    "Call the customer with a progress update and note the conversation.",

	StepCreateSupplement:      "Create the supplement in the estimating system with supporting photos.",
	StepFollowUpSupplement:    "Follow up with the carrier on the pending supplement.",
	StepReviewSupplement:      "Review the approved supplement and update the job budget.",
	StepCustomerSupplementUpd: "Explain the approved supplement to the customer and record their approval.",

	StepFinancialProcessing: "Send the final invoice and reconcile payments received.",
	StepProjectCloseout:     "Collect the completion certificate, warranty paperwork and close the job.",
}

// AllStepKeys 返回全部已知步骤标识（按阶段顺序）
func AllStepKeys() []StepKey {
	return []StepKey{
		StepInputCustomerInfo, StepCompleteQuestionnaire, StepInputLeadProperty, StepAssignProjectManager,
		StepSiteInspection, StepWriteEstimate, StepInsuranceProcess, StepAgreementPreparation, StepAgreementSigning,
		StepAdministrativeSetup, StepPreJobActions, StepPrepareForProduction, StepOrderMaterials,
		StepInstallation, StepQualityCheck, StepMultipleTrades, StepSubcontractorWork, StepUpdateCustomer,
		StepCreateSupplement, StepFollowUpSupplement, StepReviewSupplement, StepCustomerSupplementUpd,
		StepFinancialProcessing, StepProjectCloseout,
	}
}

// Lookup 查找步骤指引，第二个返回值表示是否命中
func Lookup(key StepKey) (Guidance, bool) {
	action, ok := table[key]
	if !ok {
		return Guidance{Key: key, Action: GenericAction}, false
	}
	return Guidance{Key: key, Action: action}, true
}

// For 查找步骤指引，未知步骤返回通用指引
func For(key string) Guidance {
	g, _ := Lookup(StepKey(key))
	return g
}
