// Package history decides which conversation items deserve to live in
// the durable log and keeps a small diagnostic ring of everything else.
package history

import (
	"github.com/m-mizutani/canopy/pkg/model"
)

// persistenceDefaults is the base decision per interaction type.
// Prompts and answers persist, transient UI chrome does not.
var persistenceDefaults = map[model.InteractionType]bool{
	model.InteractionUserPrompt:         true,
	model.InteractionAIResponse:         true,
	model.InteractionTooltipHint:        false,
	model.InteractionDecisionSheet:      false,
	model.InteractionAcknowledgement:    false,
	model.InteractionNavigationAction:   false,
	model.InteractionContextMarker:      false,
	model.InteractionSystemNotification: false,
}

// ShouldSave applies the pollution filter. The rules run in a fixed
// order so the same inputs always produce the same verdict:
// type default, then the intent's suppression flag, then the
// smalltalk and clarified-ambiguity exceptions that keep useful
// conversation even when it looks trivial.
func ShouldSave(item *model.HistoryItem, intent *model.IntelligenceIntent) bool {
	save := persistenceDefaults[item.Type]

	if intent == nil {
		return save
	}

	if intent.PreventHistoryPollution {
		save = false
	}
	if intent.Category == model.CategorySmalltalk && defaultPersistable(item.Type) {
		save = true
	}
	if intent.Category == model.CategoryAmbiguous && intent.Clarified && defaultPersistable(item.Type) {
		save = true
	}

	return save
}

// defaultPersistable reports whether the type is conversation content
// rather than UI chrome.
func defaultPersistable(t model.InteractionType) bool {
	return t == model.InteractionUserPrompt || t == model.InteractionAIResponse
}
