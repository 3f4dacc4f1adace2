package classify

import (
	"strings"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/ruleset"
)

// Detector compares an utterance against the page the user currently
// looks at and reports whether they talk past each other.
type Detector struct {
	rules *ruleset.Ruleset
}

// NewDetector builds a detector on top of a shared rule set.
func NewDetector(rules *ruleset.Ruleset) *Detector {
	return &Detector{rules: rules}
}

// Detect classifies the utterance relative to the UI context.
// Confidence is on a 0..1 scale.
func (d *Detector) Detect(text string, ui *model.UIContext) *model.ClassificationResult {
	result := &model.ClassificationResult{
		Intent:     model.ContextIntentCurrentItem,
		Confidence: 0.7,
	}

	matched, ok := d.rules.MatchSubsystem(text)
	switch {
	case ok && matched != ui.CurrentPage:
		result.Intent = model.ContextIntentOtherSubsystem
		result.Confidence = 0.85
		result.TargetSubsystem = matched
		result.RequiresDecision = true
		result.SuggestedActions = []string{
			"Switch to " + displayName(matched),
			"Stay on " + displayName(ui.CurrentPage),
			"Clarify what you meant",
		}

	case ok:
		// The utterance names the page the user already looks at.
		result.TargetSubsystem = matched

	case d.rules.IsGeneral(text):
		result.Intent = model.ContextIntentGeneral
		result.Confidence = 0.9

	case d.rules.HasAmbiguousReference(text) && !ui.HasSelectedItem():
		result.Intent = model.ContextIntentAmbiguous
		result.Confidence = 0.6
		result.RequiresDecision = true
		result.SuggestedActions = []string{
			"Pick the item you mean",
			"Apply to the whole page",
			"Tell me more",
		}
	}

	// A capture request always needs a decision about where the media
	// should go, whatever branch matched above.
	if media, found := d.rules.MatchMedia(text); found {
		result.RequiresDecision = true
		result.SuggestedActions = append(result.SuggestedActions, media.Options...)
	}

	return result
}

func displayName(s model.Subsystem) string {
	name := string(s)
	if name == "" {
		return "this page"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
