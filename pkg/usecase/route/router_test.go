package route_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/ruleset"
	"github.com/m-mizutani/canopy/pkg/usecase/route"
)

func newIntent(category model.IntelligenceCategory, confidence int) *model.IntelligenceIntent {
	return &model.IntelligenceIntent{
		ID:         model.NewIntentID(),
		Category:   category,
		Confidence: confidence,
	}
}

func TestRouteCategories(t *testing.T) {
	testCases := map[string]struct {
		intent *model.IntelligenceIntent
		want   model.Destination
	}{
		"smalltalk stays global": {
			intent: newIntent(model.CategorySmalltalk, 54),
			want:   model.DestinationGlobal,
		},
		"ambiguous goes to disambiguation": {
			intent: newIntent(model.CategoryAmbiguous, 79),
			want:   model.DestinationDisambiguation,
		},
		"page mismatch goes to disambiguation": {
			intent: newIntent(model.CategoryNeedsDecision, 88),
			want:   model.DestinationDisambiguation,
		},
		"task command defaults to tasks": {
			intent: newIntent(model.CategoryTaskCommand, 82),
			want:   model.DestinationTasks,
		},
		"note command defaults to notes": {
			intent: newIntent(model.CategoryNoteCommand, 82),
			want:   model.DestinationNotes,
		},
		"project command defaults to projects": {
			intent: newIntent(model.CategoryProjectCommand, 82),
			want:   model.DestinationProjects,
		},
		"workspace query stays global": {
			intent: newIntent(model.CategoryQuery, 79),
			want:   model.DestinationGlobal,
		},
	}

	router := route.New(ruleset.Default())
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			decision := router.Route(context.Background(), tc.intent)
			gt.Equal(t, decision.Destination, tc.want)
			gt.Equal(t, decision.Confidence, tc.intent.Confidence)
			gt.False(t, decision.Fallback)
			gt.NoError(t, decision.Destination.Validate())
		})
	}
}

func TestRoutePrefersDetectedPage(t *testing.T) {
	router := route.New(ruleset.Default())

	// The detector matched a concrete page, the category default
	// steps aside.
	intent := newIntent(model.CategoryTaskCommand, 82)
	intent.TargetSubsystem = model.SubsystemTrees
	decision := router.Route(context.Background(), intent)
	gt.Equal(t, decision.Destination, model.DestinationTrees)

	intent = newIntent(model.CategoryQuery, 79)
	intent.TargetSubsystem = model.SubsystemReports
	decision = router.Route(context.Background(), intent)
	gt.Equal(t, decision.Destination, model.DestinationReports)
}

func TestRouteMedia(t *testing.T) {
	router := route.New(ruleset.Default())

	// Several possible targets need the user's pick first.
	intent := newIntent(model.CategoryMediaAction, 82)
	intent.Media = &model.MediaDetection{
		Action:  model.MediaPhotoCapture,
		Targets: []model.Subsystem{model.SubsystemCamera, model.SubsystemTasks, model.SubsystemNotes},
	}
	decision := router.Route(context.Background(), intent)
	gt.Equal(t, decision.Destination, model.DestinationDisambiguation)

	// A single target routes straight to the capture page.
	intent.Media = &model.MediaDetection{
		Action:  model.MediaVoiceMemo,
		Targets: []model.Subsystem{model.SubsystemVoice},
	}
	decision = router.Route(context.Background(), intent)
	gt.Equal(t, decision.Destination, model.DestinationVoice)

	intent.Media = &model.MediaDetection{
		Action:  model.MediaDocumentScan,
		Targets: []model.Subsystem{model.SubsystemScanner},
	}
	decision = router.Route(context.Background(), intent)
	gt.Equal(t, decision.Destination, model.DestinationScanner)

	// Without a detection the camera is the safe default.
	intent.Media = nil
	decision = router.Route(context.Background(), intent)
	gt.Equal(t, decision.Destination, model.DestinationCamera)
}

func TestRouteNavigation(t *testing.T) {
	router := route.New(ruleset.Default())

	// A detected page routes directly.
	intent := newIntent(model.CategoryNavigation, 85)
	intent.TargetSubsystem = model.SubsystemSettings
	decision := router.Route(context.Background(), intent)
	gt.Equal(t, decision.Destination, model.DestinationSettings)

	// Without a detected page the spoken target is keyword matched.
	intent = newIntent(model.CategoryNavigation, 79)
	intent.Extracted = map[string]string{"target": "the map page"}
	decision = router.Route(context.Background(), intent)
	gt.Equal(t, decision.Destination, model.DestinationMap)

	// An unknown target cannot be routed.
	intent = newIntent(model.CategoryNavigation, 79)
	intent.Extracted = map[string]string{"target": "the dashboard"}
	decision = router.Route(context.Background(), intent)
	gt.Equal(t, decision.Destination, model.DestinationDisambiguation)

	// Low confidence asks instead of jumping pages.
	intent = newIntent(model.CategoryNavigation, 65)
	intent.TargetSubsystem = model.SubsystemSettings
	decision = router.Route(context.Background(), intent)
	gt.Equal(t, decision.Destination, model.DestinationDisambiguation)
}

func TestRouteText(t *testing.T) {
	testCases := map[string]struct {
		text           string
		want           model.Destination
		wantConfidence int
	}{
		"conversational input": {
			text:           "hello",
			want:           model.DestinationGlobal,
			wantConfidence: 85,
		},
		"no keyword at all": {
			text:           "sharpen the chainsaw",
			want:           model.DestinationGlobal,
			wantConfidence: 40,
		},
		"two keyword hits": {
			text:           "show the tasks checklist",
			want:           model.DestinationTasks,
			wantConfidence: 80,
		},
		"many hits cap at ninety": {
			text:           "inspect the oak tree trunk",
			want:           model.DestinationTrees,
			wantConfidence: 90,
		},
		"weak match with pronoun": {
			text:           "move that note",
			want:           model.DestinationDisambiguation,
			wantConfidence: 65,
		},
		"tie resolves by table order": {
			text:           "task note",
			want:           model.DestinationTasks,
			wantConfidence: 65,
		},
	}

	router := route.New(ruleset.Default())
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			decision := router.RouteText(context.Background(), tc.text)
			gt.Equal(t, decision.Destination, tc.want)
			gt.Equal(t, decision.Confidence, tc.wantConfidence)
			gt.True(t, decision.Fallback)
		})
	}
}
