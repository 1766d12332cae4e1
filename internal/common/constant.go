package common

// Entity types used in audit entries.
const (
	EntityDossier = "Dossier"
	EntityHoliday = "Holiday"
)

// Audit actions produced by the workflow engine and the holiday administration.
const (
	ActionWorkflowInit    = "WORKFLOW_INIT"
	ActionWorkflowAdvance = "WORKFLOW_ADVANCE"
	ActionWorkflowReturn  = "WORKFLOW_RETURN"
	ActionWorkflowMove    = "WORKFLOW_MOVE"
	ActionHolidayAdd      = "HOLIDAY_ADD"
	ActionHolidayDelete   = "HOLIDAY_DELETE"
)
