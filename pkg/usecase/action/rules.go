package action

import (
	"fmt"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/ruleset"
)

// Confirmation is the demand to ask the user before executing.
type Confirmation struct {
	Reason  model.ConfirmationReason
	Message string
}

// requiredField names the extracted field an intent cannot execute
// without.
func requiredField(label model.UnifiedLabel) string {
	switch label {
	case model.LabelCreateTask, model.LabelVoiceTask, model.LabelCompleteTask:
		return "title"
	case model.LabelCreateNote, model.LabelVoiceNote, model.LabelDictation:
		return "content"
	case model.LabelCreateProject:
		return "name"
	case model.LabelUpdateItem, model.LabelDeleteItem:
		return "target"
	default:
		return ""
	}
}

// checkConfirmation walks the safety rules in order and returns the
// first one that fires. Each rule alone is enough to demand a
// confirmation. Duplicate detection is not checked here: it needs a
// storage lookup and runs when the action executes.
func checkConfirmation(intent *model.IntelligenceIntent, ui *model.UIContext, rules *ruleset.Ruleset) *Confirmation {
	if intent.Confidence < 60 {
		return &Confirmation{
			Reason:  model.ConfirmLowConfidence,
			Message: fmt.Sprintf("I'm not sure I understood (confidence %d). Should I go ahead?", intent.Confidence),
		}
	}

	if intent.Label.Mutating() && ui.Mode == model.ModeGeneral {
		return &Confirmation{
			Reason:  model.ConfirmGeneralMode,
			Message: "You're outside a project. Apply this to the general workspace?",
		}
	}

	if (intent.Label == model.LabelVoiceNote || intent.Label == model.LabelDictation) && !ui.HasActiveProject() {
		return &Confirmation{
			Reason:  model.ConfirmNoActiveProject,
			Message: "There is no active project for this recording. Save it anyway?",
		}
	}

	if intent.Confidence < 80 {
		return &Confirmation{
			Reason:  model.ConfirmModerateConfidence,
			Message: "Just to be safe, is this what you meant?",
		}
	}

	if intent.Label == model.LabelDeleteItem || rules.HasDestructive(intent.Utterance.Text) {
		return &Confirmation{
			Reason:  model.ConfirmDestructive,
			Message: "This cannot be undone. Continue?",
		}
	}

	if field := requiredField(intent.Label); field != "" && intent.Extracted[field] == "" {
		return &Confirmation{
			Reason:  model.ConfirmMissingField,
			Message: fmt.Sprintf("I'm missing the %s. Can you fill it in?", field),
		}
	}

	return nil
}
