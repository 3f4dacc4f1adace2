// Package route decides which page of the workspace an utterance
// belongs to.
package route

import (
	"context"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/ruleset"
	"github.com/m-mizutani/canopy/pkg/utils/logging"
)

// Router maps an intent, or a bare utterance when no classification
// is available, to a destination. Both paths read the same rule set
// as the mismatch detector so routing and detection cannot drift
// apart.
type Router struct {
	rules *ruleset.Ruleset
}

// New builds a router on top of a shared rule set.
func New(rules *ruleset.Ruleset) *Router {
	return &Router{rules: rules}
}

// mediaDestination maps a capture action to the page that performs it.
var mediaDestination = map[model.MediaAction]model.Destination{
	model.MediaPhotoCapture: model.DestinationCamera,
	model.MediaVoiceMemo:    model.DestinationVoice,
	model.MediaFileAttach:   model.DestinationFiles,
	model.MediaDocumentScan: model.DestinationScanner,
}

// Route picks a destination for a classified utterance.
func (r *Router) Route(ctx context.Context, intent *model.IntelligenceIntent) *model.RoutingDecision {
	decision := r.routeIntent(intent)

	logging.From(ctx).Debug("routed intent",
		"intent_id", intent.ID,
		"category", intent.Category,
		"destination", decision.Destination,
		"confidence", decision.Confidence,
	)
	return decision
}

func (r *Router) routeIntent(intent *model.IntelligenceIntent) *model.RoutingDecision {
	switch intent.Category {
	case model.CategorySmalltalk:
		return decide(model.DestinationGlobal, intent.Confidence, "smalltalk stays with the assistant")

	case model.CategoryAmbiguous:
		return decide(model.DestinationDisambiguation, intent.Confidence, "reference needs clarification")

	case model.CategoryNeedsDecision:
		return decide(model.DestinationDisambiguation, intent.Confidence, "page mismatch needs a decision")

	case model.CategoryTaskCommand:
		return r.subsystemOr(intent, model.DestinationTasks, "task command")

	case model.CategoryNoteCommand:
		return r.subsystemOr(intent, model.DestinationNotes, "note command")

	case model.CategoryProjectCommand:
		return r.subsystemOr(intent, model.DestinationProjects, "project command")

	case model.CategoryQuery:
		if intent.TargetSubsystem != "" {
			return decide(model.DestinationFor(intent.TargetSubsystem), intent.Confidence, "query about a specific page")
		}
		return decide(model.DestinationGlobal, intent.Confidence, "workspace level query")

	case model.CategoryMediaAction:
		return r.routeMedia(intent)

	case model.CategoryNavigation:
		return r.routeNavigation(intent)

	default:
		return decide(model.DestinationGlobal, intent.Confidence, "no specific page")
	}
}

// subsystemOr prefers the page the detector matched, falling back to
// the category default.
func (r *Router) subsystemOr(intent *model.IntelligenceIntent, fallback model.Destination, reason string) *model.RoutingDecision {
	if intent.TargetSubsystem != "" {
		return decide(model.DestinationFor(intent.TargetSubsystem), intent.Confidence, reason)
	}
	return decide(fallback, intent.Confidence, reason)
}

func (r *Router) routeMedia(intent *model.IntelligenceIntent) *model.RoutingDecision {
	if intent.Media == nil {
		return decide(model.DestinationCamera, intent.Confidence, "capture request")
	}
	if intent.Media.MultiTarget() {
		return decide(model.DestinationDisambiguation, intent.Confidence, "capture has several possible targets")
	}
	if dest, ok := mediaDestination[intent.Media.Action]; ok {
		return decide(dest, intent.Confidence, "capture request")
	}
	return decide(model.DestinationCamera, intent.Confidence, "capture request")
}

func (r *Router) routeNavigation(intent *model.IntelligenceIntent) *model.RoutingDecision {
	target := intent.TargetSubsystem
	if target == "" {
		if sub, hits := r.rules.BestSubsystem(intent.Extracted["target"]); hits > 0 {
			target = sub
		}
	}
	if target == "" || intent.Confidence < 70 {
		return decide(model.DestinationDisambiguation, intent.Confidence, "navigation target unclear")
	}
	return decide(model.DestinationFor(target), intent.Confidence, "navigation request")
}

// RouteText routes an unclassified utterance by keyword match alone.
// Used when a subsystem asks for routing outside the full pipeline.
func (r *Router) RouteText(ctx context.Context, text string) *model.RoutingDecision {
	decision := r.routeText(text)
	decision.Fallback = true

	logging.From(ctx).Debug("routed text without classification",
		"destination", decision.Destination,
		"confidence", decision.Confidence,
	)
	return decision
}

func (r *Router) routeText(text string) *model.RoutingDecision {
	if r.rules.IsGeneral(text) {
		return decide(model.DestinationGlobal, 85, "conversational input")
	}

	sub, hits := r.rules.BestSubsystem(text)
	if hits == 0 {
		return decide(model.DestinationGlobal, 40, "no keyword matched")
	}

	confidence := 50 + 15*hits
	if confidence > 90 {
		confidence = 90
	}
	if r.rules.HasAmbiguousReference(text) && confidence < 70 {
		return decide(model.DestinationDisambiguation, confidence, "weak match with ambiguous reference")
	}
	return decide(model.DestinationFor(sub), confidence, "keyword match")
}

func decide(dest model.Destination, confidence int, reason string) *model.RoutingDecision {
	return &model.RoutingDecision{
		Destination: dest,
		Confidence:  confidence,
		Reason:      reason,
	}
}
