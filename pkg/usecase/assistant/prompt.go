package assistant

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/usecase/semantic"
)

// basePrompt is the standing instruction for global conversational
// turns. Everything else is woven in per turn.
const basePrompt = `You are Canopy, the field assistant built into an arborist workspace app. Keep answers short and practical. When the user asks about their trees, tasks or notes, prefer the workspace tools over guessing.`

// PromptInput carries the per-turn context woven into the system
// prompt. Every field is optional, a zero input yields the base
// prompt alone.
type PromptInput struct {
	Intent    *model.IntelligenceIntent
	Routing   *model.RoutingDecision
	UI        *model.UIContext
	Summary   *model.SemanticSummary
	ToolGuide string
}

// EnhancedPrompt concatenates intent, routing and zoom context onto
// the base prompt so the model answers with the same situational
// awareness the rest of the pipeline has.
func EnhancedPrompt(in PromptInput) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if in.Intent != nil {
		fmt.Fprintf(&b, "\n\n## Current understanding\nThe user's request reads as %s (label %s) at confidence %d.",
			in.Intent.Category, in.Intent.Label, in.Intent.Confidence)
		if in.Intent.Explanation != "" {
			b.WriteString(" ")
			b.WriteString(in.Intent.Explanation)
			b.WriteString(".")
		}
	}

	if in.Routing != nil {
		fmt.Fprintf(&b, "\n\n## Routing\nThis request is headed for %s", in.Routing.Destination)
		if in.Routing.Reason != "" {
			fmt.Fprintf(&b, " (%s)", in.Routing.Reason)
		}
		b.WriteString(".")
	}

	if in.UI != nil {
		behavior := semantic.BehaviorFor(in.UI.Zoom)
		fmt.Fprintf(&b, "\n\n## Focus\nThe user is on %s at %s zoom. %s",
			pageName(in.UI.CurrentPage), behavior.Zoom, behavior.PromptHint)
		if len(behavior.SuggestedActions) > 0 {
			b.WriteString("\nLikely useful next: ")
			b.WriteString(strings.Join(behavior.SuggestedActions, "; "))
			b.WriteString(".")
		}
	}

	if in.Summary != nil && in.Summary.Text != "" {
		b.WriteString("\n\n## Recent workspace activity\n")
		b.WriteString(in.Summary.Text)
	}

	if in.ToolGuide != "" {
		b.WriteString("\n\n")
		b.WriteString(in.ToolGuide)
	}

	return b.String()
}

func pageName(page model.Subsystem) string {
	if page == "" {
		return "the workspace"
	}
	return "the " + string(page) + " page"
}
