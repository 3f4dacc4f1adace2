package semantic

import (
	"github.com/m-mizutani/canopy/pkg/model"
)

// BehaviorFor returns the suggested actions and prompt slant for one
// zoom level. The bundle rides along on the next conversational
// prompt so the model answers at the granularity the user looks at.
func BehaviorFor(zoom model.ZoomLevel) *model.ZoomBehavior {
	switch zoom {
	case model.ZoomItem:
		return &model.ZoomBehavior{
			Zoom: model.ZoomItem,
			SuggestedActions: []string{
				"complete this task",
				"add a note here",
				"attach a photo",
				"set a reminder",
			},
			PromptHint: "The user is focused on a single item. Prefer precise actions on that item over broad queries.",
		}
	case model.ZoomCollection:
		return &model.ZoomBehavior{
			Zoom: model.ZoomCollection,
			SuggestedActions: []string{
				"list open tasks",
				"summarize recent activity",
				"create a task in this project",
				"filter by status",
			},
			PromptHint: "The user is browsing a collection. Prefer filtering, grouping and batch suggestions.",
		}
	default:
		return &model.ZoomBehavior{
			Zoom: model.ZoomWorkspace,
			SuggestedActions: []string{
				"switch to a project",
				"review today's activity",
				"create a new project",
				"search across projects",
			},
			PromptHint: "The user sees the whole workspace. Prefer navigation and cross-project overviews.",
		}
	}
}
