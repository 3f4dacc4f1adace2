package model

// ConfirmationReason names the safety rule that demanded a
// confirmation before executing an action.
type ConfirmationReason string

const (
	ConfirmLowConfidence      ConfirmationReason = "low_confidence"
	ConfirmGeneralMode        ConfirmationReason = "general_mode"
	ConfirmNoActiveProject    ConfirmationReason = "no_active_project"
	ConfirmModerateConfidence ConfirmationReason = "moderate_confidence"
	ConfirmDestructive        ConfirmationReason = "destructive"
	ConfirmMissingField       ConfirmationReason = "missing_field"
	ConfirmPolicy             ConfirmationReason = "policy"
)

// ActionResult reports what happened when an intent was executed.
type ActionResult struct {
	Success bool
	Message string

	CreatedKind ItemKind
	CreatedID   string

	// Duplicate is set when an identical item already existed and the
	// write was skipped.
	Duplicate bool
}
