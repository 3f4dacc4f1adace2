package classify_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/ruleset"
	"github.com/m-mizutani/canopy/pkg/usecase/classify"
)

func pageUI(page model.Subsystem) *model.UIContext {
	return &model.UIContext{
		CurrentPage: page,
		Mode:        model.ModeGeneral,
		Zoom:        model.ZoomCollection,
		CapturedAt:  time.Now(),
	}
}

func classifyText(t *testing.T, text string, ui *model.UIContext) *model.IntelligenceIntent {
	t.Helper()
	c := classify.New(ruleset.Default())
	intent, err := c.Classify(context.Background(), model.NewUtterance(text, model.SourceTyped), ui)
	gt.NoError(t, err)
	return intent
}

func TestClassifyCategories(t *testing.T) {
	testCases := map[string]struct {
		text     string
		source   model.UtteranceSource
		page     model.Subsystem
		selected string

		wantCategory   model.IntelligenceCategory
		wantLabel      model.UnifiedLabel
		wantConfidence int
		wantSheet      bool
	}{
		"smalltalk stays conversational": {
			text:           "hello",
			source:         model.SourceTyped,
			page:           model.SubsystemTasks,
			wantCategory:   model.CategorySmalltalk,
			wantLabel:      model.LabelChat,
			wantConfidence: 54,
			wantSheet:      false,
		},
		"task command on the matching page": {
			text:           "remind me to check the oak tree",
			source:         model.SourceTyped,
			page:           model.SubsystemTasks,
			wantCategory:   model.CategoryTaskCommand,
			wantLabel:      model.LabelCreateTask,
			wantConfidence: 82,
			wantSheet:      false,
		},
		"voice task gets the voice label": {
			text:           "remind me to water the ferns",
			source:         model.SourceVoice,
			page:           model.SubsystemTasks,
			wantCategory:   model.CategoryTaskCommand,
			wantLabel:      model.LabelVoiceTask,
			wantConfidence: 84,
			wantSheet:      false,
		},
		"page mismatch wins over the note label": {
			text:           "add a note about the fungus",
			source:         model.SourceTyped,
			page:           model.SubsystemTasks,
			wantCategory:   model.CategoryNeedsDecision,
			wantLabel:      model.LabelCreateNote,
			wantConfidence: 88,
			wantSheet:      true,
		},
		"page mismatch wins over the navigation label": {
			text:           "go to settings",
			source:         model.SourceTyped,
			page:           model.SubsystemTasks,
			wantCategory:   model.CategoryNeedsDecision,
			wantLabel:      model.LabelNavigate,
			wantConfidence: 85,
			wantSheet:      true,
		},
		"page mismatch wins over the capture label": {
			text:           "take a photo",
			source:         model.SourceTyped,
			page:           model.SubsystemTasks,
			wantCategory:   model.CategoryNeedsDecision,
			wantLabel:      model.LabelMediaCapture,
			wantConfidence: 88,
			wantSheet:      true,
		},
		"capture on the right page is a media action": {
			text:           "take a photo of the trunk",
			source:         model.SourceTyped,
			page:           model.SubsystemTrees,
			wantCategory:   model.CategoryMediaAction,
			wantLabel:      model.LabelMediaCapture,
			wantConfidence: 82,
			wantSheet:      true,
		},
		"navigation without a known page name": {
			text:           "take me to the dashboard",
			source:         model.SourceTyped,
			page:           model.SubsystemTasks,
			wantCategory:   model.CategoryNavigation,
			wantLabel:      model.LabelNavigate,
			wantConfidence: 79,
			wantSheet:      true,
		},
		"unresolved pronoun is ambiguous": {
			text:           "delete that",
			source:         model.SourceTyped,
			page:           model.SubsystemTrees,
			wantCategory:   model.CategoryAmbiguous,
			wantLabel:      model.LabelDeleteItem,
			wantConfidence: 79,
			wantSheet:      true,
		},
		"selected item resolves the pronoun": {
			text:           "delete that",
			source:         model.SourceTyped,
			page:           model.SubsystemTrees,
			selected:       "item-1",
			wantCategory:   model.CategoryTaskCommand,
			wantLabel:      model.LabelDeleteItem,
			wantConfidence: 83,
			wantSheet:      false,
		},
		"query reads as a question": {
			text:           "how many tasks are open",
			source:         model.SourceTyped,
			page:           model.SubsystemTasks,
			wantCategory:   model.CategoryQuery,
			wantLabel:      model.LabelQueryItems,
			wantConfidence: 79,
			wantSheet:      false,
		},
		"help request is a query, not smalltalk": {
			text:           "help",
			source:         model.SourceTyped,
			page:           model.SubsystemTasks,
			wantCategory:   model.CategoryQuery,
			wantLabel:      model.LabelHelp,
			wantConfidence: 84,
			wantSheet:      false,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			ui := pageUI(tc.page)
			ui.SelectedItemID = tc.selected

			c := classify.New(ruleset.Default())
			intent, err := c.Classify(context.Background(), model.NewUtterance(tc.text, tc.source), ui)
			gt.NoError(t, err)

			gt.Equal(t, intent.Category, tc.wantCategory)
			gt.Equal(t, intent.Label, tc.wantLabel)
			gt.Equal(t, intent.Confidence, tc.wantConfidence)
			gt.Equal(t, intent.RequiresDecisionSheet, tc.wantSheet)
			gt.NoError(t, intent.Validate())
		})
	}
}

func TestClassifyMismatchOptions(t *testing.T) {
	intent := classifyText(t, "add a note about the fungus", pageUI(model.SubsystemTasks))

	gt.Equal(t, intent.TargetSubsystem, model.SubsystemNotes)
	gt.Equal(t, intent.DecisionSheetOptions, []string{
		"Switch to Notes",
		"Stay on Tasks",
		"Clarify what you meant",
		"Save the note",
		"Convert to task",
	})
	gt.S(t, intent.Explanation).Contains("page mismatch toward notes")
}

func TestClassifyCapturesCapAtFiveOptions(t *testing.T) {
	// A capture on the wrong page merges mismatch actions with media
	// options, which overflows the sheet limit.
	intent := classifyText(t, "take a photo", pageUI(model.SubsystemTasks))

	gt.Equal(t, intent.DecisionSheetOptions, []string{
		"Switch to Camera",
		"Stay on Tasks",
		"Clarify what you meant",
		"Open camera",
		"Attach photo to current item",
	})
	gt.V(t, intent.Media).NotNil()
	gt.True(t, intent.Media.MultiTarget())
}

func TestClassifyNavigationFallbackOptions(t *testing.T) {
	intent := classifyText(t, "take me to the dashboard", pageUI(model.SubsystemTasks))

	gt.Equal(t, intent.Category, model.CategoryNavigation)
	gt.True(t, intent.PreventHistoryPollution)
	gt.Equal(t, intent.DecisionSheetOptions, []string{"Go to the dashboard", "Stay here"})
}

func TestClassifyMismatchKeepsHistory(t *testing.T) {
	// A mismatch sheet is a real conversation, only resolved page
	// switches are suppressed.
	intent := classifyText(t, "go to settings", pageUI(model.SubsystemTasks))

	gt.False(t, intent.PreventHistoryPollution)
	gt.Equal(t, intent.DecisionSheetOptions, []string{
		"Switch to Settings",
		"Stay on Tasks",
		"Clarify what you meant",
	})
}

func TestClassifyAmbiguousOptions(t *testing.T) {
	intent := classifyText(t, "delete that", pageUI(model.SubsystemTrees))

	gt.Equal(t, intent.DecisionSheetOptions, []string{
		"Pick the item you mean",
		"Apply to the whole page",
		"Tell me more",
		"Archive instead",
		"Delete permanently",
	})
}

func TestClassifyAcknowledgements(t *testing.T) {
	testCases := map[string]struct {
		text string
		page model.Subsystem
		want string
	}{
		"smalltalk":            {text: "good morning", page: model.SubsystemTasks, want: "Happy to chat"},
		"confident command":    {text: "remind me to order mulch", page: model.SubsystemTasks, want: "On it"},
		"capture":              {text: "take a photo of the trunk", page: model.SubsystemTrees, want: "Opening capture options"},
		"query stays silent":   {text: "how many tasks are open", page: model.SubsystemTasks, want: ""},
		"mismatch stays quiet": {text: "go to settings", page: model.SubsystemTasks, want: ""},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			intent := classifyText(t, tc.text, pageUI(tc.page))
			gt.Equal(t, intent.Acknowledgement, tc.want)
		})
	}
}

func TestClassifyPoliteness(t *testing.T) {
	intent := classifyText(t, "Please delete the dead branch photos", pageUI(model.SubsystemCamera))

	gt.True(t, intent.Polite)
	gt.Equal(t, intent.Label, model.LabelDeleteItem)
	gt.Equal(t, intent.Category, model.CategoryTaskCommand)
	gt.Equal(t, intent.Extracted["target"], "the dead branch photos")
	// Courtesy markers are noted but never relax confirmation rules.
	gt.Equal(t, intent.Confidence, 83)
}

func TestClassifyExtraction(t *testing.T) {
	intent := classifyText(t, "remind me to check the oak tree", pageUI(model.SubsystemTasks))
	gt.Equal(t, intent.Extracted["title"], "check the oak tree")

	intent = classifyText(t, "how many tasks are open", pageUI(model.SubsystemTasks))
	gt.Equal(t, intent.Extracted["query"], "tasks are open")
}

func TestClassifyVoiceDictation(t *testing.T) {
	c := classify.New(ruleset.Default())
	utt := model.NewUtterance("take this down the cedar hedge quote is approved", model.SourceVoice)

	// Without a selected item the leading pronoun is unresolvable.
	ui := pageUI(model.SubsystemNotes)
	intent, err := c.Classify(context.Background(), utt, ui)
	gt.NoError(t, err)
	gt.Equal(t, intent.Category, model.CategoryAmbiguous)
	gt.Equal(t, intent.Label, model.LabelDictation)
	gt.Equal(t, intent.DecisionSheetOptions, []string{
		"Pick the item you mean",
		"Apply to the whole page",
		"Tell me more",
		"Save as note",
		"Convert to task",
	})

	// With a selection the dictation goes straight through.
	ui.SelectedItemID = "note-7"
	intent, err = c.Classify(context.Background(), utt, ui)
	gt.NoError(t, err)
	gt.Equal(t, intent.Category, model.CategoryNoteCommand)
	gt.False(t, intent.RequiresDecisionSheet)
	gt.Equal(t, intent.Extracted["content"], "the cedar hedge quote is approved")
	gt.Equal(t, intent.Confidence, 86)
}

func TestClassifyVoiceMemoByKeyword(t *testing.T) {
	// No typed pattern matches, the media table alone drives the sheet.
	intent := classifyText(t, "record a memo about the stump grinding", pageUI(model.SubsystemVoice))

	gt.Equal(t, intent.Category, model.CategoryMediaAction)
	gt.Equal(t, intent.Label, model.LabelChat)
	gt.Equal(t, intent.Confidence, 46)
	gt.V(t, intent.Media).NotNil()
	gt.Equal(t, intent.Media.Action, model.MediaVoiceMemo)
	gt.Equal(t, intent.DecisionSheetOptions, []string{
		"Record voice memo",
		"Create voice note",
		"Dictate a task",
	})
}

func TestClassifyEmptyUtterance(t *testing.T) {
	c := classify.New(ruleset.Default())
	_, err := c.Classify(context.Background(), model.NewUtterance("", model.SourceTyped), pageUI(model.SubsystemTasks))
	gt.Error(t, err)
}

func TestDetectorMismatchActions(t *testing.T) {
	d := classify.NewDetector(ruleset.Default())

	result := d.Detect("show the map", pageUI(model.SubsystemTasks))
	gt.Equal(t, result.Intent, model.ContextIntentOtherSubsystem)
	gt.Equal(t, result.TargetSubsystem, model.SubsystemMap)
	gt.Equal(t, result.Confidence, 0.85)
	gt.True(t, result.RequiresDecision)
	gt.Equal(t, result.SuggestedActions, []string{
		"Switch to Map",
		"Stay on Tasks",
		"Clarify what you meant",
	})
}

func TestDetectorSamePage(t *testing.T) {
	d := classify.NewDetector(ruleset.Default())

	result := d.Detect("open the notes list", pageUI(model.SubsystemNotes))
	gt.Equal(t, result.Intent, model.ContextIntentCurrentItem)
	gt.Equal(t, result.TargetSubsystem, model.SubsystemNotes)
	gt.False(t, result.RequiresDecision)
}

func TestDetectorGeneral(t *testing.T) {
	d := classify.NewDetector(ruleset.Default())

	result := d.Detect("good evening", pageUI(model.SubsystemTasks))
	gt.Equal(t, result.Intent, model.ContextIntentGeneral)
	gt.Equal(t, result.Confidence, 0.9)
}

func TestMediaDetector(t *testing.T) {
	d := classify.NewMediaDetector(ruleset.Default())

	detection := d.Detect("attach the invoice pdf")
	gt.V(t, detection).NotNil()
	gt.Equal(t, detection.Action, model.MediaFileAttach)
	gt.Equal(t, detection.Targets, []model.Subsystem{model.SubsystemFiles, model.SubsystemTasks})
	gt.True(t, detection.MultiTarget())

	detection = d.Detect("scan the permit")
	gt.V(t, detection).NotNil()
	gt.Equal(t, detection.Action, model.MediaDocumentScan)

	gt.Nil(t, d.Detect("the cedar looks healthy"))
}
