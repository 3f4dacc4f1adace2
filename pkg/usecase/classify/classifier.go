// Package classify turns one utterance plus the current UI context
// into a single intelligence intent that routing, execution and
// history all consume.
package classify

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/ruleset"
	"github.com/m-mizutani/canopy/pkg/utils/logging"
)

// Classifier orchestrates the context mismatch detector, the unified
// intent engine and the media detector into one classification.
type Classifier struct {
	rules    *ruleset.Ruleset
	detector *Detector
	engine   *Engine
	media    *MediaDetector
}

// Weights for blending the unified confidence (0..100) with the
// context detection confidence (0..1).
const (
	unifiedWeight = 0.6
	contextWeight = 0.4
)

// New builds a classifier with all three detection stages.
func New(rules *ruleset.Ruleset) *Classifier {
	return &Classifier{
		rules:    rules,
		detector: NewDetector(rules),
		engine:   NewEngine(),
		media:    NewMediaDetector(rules),
	}
}

// Classify produces exactly one intent for the utterance. The same
// intent value is handed to the router, the executor and the history
// filter so their views never diverge.
func (c *Classifier) Classify(ctx context.Context, utt *model.Utterance, ui *model.UIContext) (*model.IntelligenceIntent, error) {
	if err := utt.Validate(); err != nil {
		return nil, goerr.Wrap(err, "cannot classify utterance")
	}

	detection := c.detector.Detect(utt.Text, ui)
	unified := c.engine.Classify(utt)
	media := c.media.Detect(utt.Text)

	category := c.categorize(utt.Text, detection, unified, media)
	confidence := blendConfidence(unified.Confidence, detection.Confidence)

	intent := &model.IntelligenceIntent{
		ID:              model.NewIntentID(),
		Utterance:       utt,
		Category:        category,
		Label:           unified.Label,
		Confidence:      confidence,
		TargetSubsystem: detection.TargetSubsystem,
		Detection:       detection,
		Media:           media,
		Extracted:       unified.Extracted,
		Polite:          unified.Polite,
		CreatedAt:       time.Now(),
	}

	intent.RequiresDecisionSheet = detection.RequiresDecision ||
		category == model.CategoryAmbiguous ||
		category == model.CategoryNeedsDecision ||
		category == model.CategoryNavigation ||
		unified.RequiresConfirmation ||
		(media != nil && media.MultiTarget())

	if intent.RequiresDecisionSheet {
		intent.DecisionSheetOptions = mergeOptions(detection.SuggestedActions, unified.ConversionOptions)
		if len(intent.DecisionSheetOptions) < model.MinDecisionOptions {
			intent.DecisionSheetOptions = mergeOptions(intent.DecisionSheetOptions, fallbackOptions(intent))
		}
	}

	intent.Acknowledgement = acknowledgement(category, unified)
	intent.Explanation = explain(category, unified, detection)

	// Page switches carry no conversational value, keep them out of
	// the saved history.
	if category == model.CategoryNavigation {
		intent.PreventHistoryPollution = true
	}

	logging.From(ctx).Debug("classified utterance",
		"utterance_id", utt.ID,
		"category", category,
		"label", unified.Label,
		"confidence", confidence,
		"target", detection.TargetSubsystem,
		"decision_sheet", intent.RequiresDecisionSheet,
	)

	return intent, nil
}

// categorize applies the category precedence: smalltalk beats
// ambiguity, ambiguity beats page mismatch, then the static label map
// with media and navigation refinements on top.
func (c *Classifier) categorize(text string, detection *model.ClassificationResult, unified *model.UnifiedResult, media *model.MediaDetection) model.IntelligenceCategory {
	if c.rules.IsSmalltalk(text) {
		return model.CategorySmalltalk
	}
	if detection.Intent == model.ContextIntentAmbiguous {
		return model.CategoryAmbiguous
	}
	if detection.Intent == model.ContextIntentOtherSubsystem && detection.RequiresDecision {
		return model.CategoryNeedsDecision
	}

	category := staticCategory(unified.Label)

	// A capture phrase turns most readings into a media action, but an
	// explicit navigation request keeps its meaning: "open camera" is
	// navigation, not a capture.
	if media != nil && unified.Label != model.LabelNavigate {
		category = model.CategoryMediaAction
	}
	if unified.Label == model.LabelNavigate {
		category = model.CategoryNavigation
	}

	return category
}

// staticCategory is the fixed label to category map.
func staticCategory(label model.UnifiedLabel) model.IntelligenceCategory {
	switch label {
	case model.LabelCreateTask, model.LabelCompleteTask, model.LabelVoiceTask,
		model.LabelUpdateItem, model.LabelDeleteItem:
		return model.CategoryTaskCommand
	case model.LabelCreateNote, model.LabelVoiceNote, model.LabelDictation:
		return model.CategoryNoteCommand
	case model.LabelCreateProject:
		return model.CategoryProjectCommand
	case model.LabelCreateReport, model.LabelQueryItems, model.LabelHelp, model.LabelChat:
		return model.CategoryQuery
	case model.LabelMediaCapture:
		return model.CategoryMediaAction
	case model.LabelNavigate:
		return model.CategoryNavigation
	default:
		return model.CategoryQuery
	}
}

// blendConfidence merges the two confidence scales into one 0..100
// score.
func blendConfidence(unified int, context float64) int {
	blended := unifiedWeight*float64(unified) + contextWeight*context*100
	score := int(math.Round(blended))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// fallbackOptions tops up a sheet whose sources produced fewer than
// the minimum two options.
func fallbackOptions(intent *model.IntelligenceIntent) []string {
	if intent.Category == model.CategoryNavigation {
		target := intent.Extracted["target"]
		if target == "" && intent.TargetSubsystem != "" {
			target = string(intent.TargetSubsystem)
		}
		if target != "" {
			return []string{"Go to " + target, "Stay here"}
		}
	}
	return []string{"Go ahead", "Cancel"}
}

// mergeOptions combines option lists, dropping duplicates and keeping
// at most the sheet limit.
func mergeOptions(lists ...[]string) []string {
	seen := map[string]bool{}
	var merged []string
	for _, list := range lists {
		for _, opt := range list {
			if opt == "" || seen[opt] {
				continue
			}
			seen[opt] = true
			merged = append(merged, opt)
			if len(merged) >= model.MaxDecisionOptions {
				return merged
			}
		}
	}
	return merged
}

func acknowledgement(category model.IntelligenceCategory, unified *model.UnifiedResult) string {
	switch category {
	case model.CategorySmalltalk:
		return "Happy to chat"
	case model.CategoryMediaAction:
		return "Opening capture options"
	case model.CategoryTaskCommand, model.CategoryNoteCommand, model.CategoryProjectCommand:
		if unified.Confidence > 70 {
			return "On it"
		}
	}
	return ""
}

func explain(category model.IntelligenceCategory, unified *model.UnifiedResult, detection *model.ClassificationResult) string {
	base := fmt.Sprintf("%s via %s (label %s, confidence %d)",
		category, unified.Source, unified.Label, unified.Confidence)
	if detection.Intent == model.ContextIntentOtherSubsystem {
		base += fmt.Sprintf(", page mismatch toward %s", detection.TargetSubsystem)
	}
	return base
}
