// Package hint generates proactive suggestions from UI context
// changes and enforces the interaction contracts for the surfaces
// that show them.
package hint

import (
	"fmt"
	"time"

	"github.com/m-mizutani/canopy/pkg/model"
)

// Context is the snapshot a rule sees when the UI changes.
type Context struct {
	UI     *model.UIContext
	Intent *model.IntelligenceIntent

	// Visits counts page entries in this session, current page included.
	Visits map[model.Subsystem]int
	// ItemCount is the number of items on the current page.
	ItemCount int
	// StormActive is the event recorder's advisory flood signal.
	StormActive bool
}

// Rule is one declarative hint source. Condition decides whether it
// fires, Generate renders the tooltip text.
type Rule struct {
	ID       string
	Category model.HintCategory
	Priority model.HintPriority
	// Cooldown is the minimum pause between two showings.
	Cooldown time.Duration
	// MaxShows limits showings per session, zero means unlimited.
	MaxShows  int
	Condition func(*Context) bool
	Generate  func(*Context) string
}

// DefaultRules is the built-in rule table, evaluated in order.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:       "page-mismatch",
			Category: model.HintCategoryMismatch,
			Priority: model.HintPriorityHigh,
			Cooldown: time.Minute,
			MaxShows: 5,
			Condition: func(c *Context) bool {
				return c.Intent != nil &&
					c.Intent.Category == model.CategoryNeedsDecision &&
					c.Intent.TargetSubsystem != ""
			},
			Generate: func(c *Context) string {
				return fmt.Sprintf("You're viewing %s but talking about %s", c.UI.CurrentPage, c.Intent.TargetSubsystem)
			},
		},
		{
			ID:       "event-storm",
			Category: model.HintCategoryWorkload,
			Priority: model.HintPriorityHigh,
			Cooldown: 5 * time.Minute,
			Condition: func(c *Context) bool {
				return c.StormActive
			},
			Generate: func(c *Context) string {
				return "A lot is happening at once, summaries may lag a little"
			},
		},
		{
			ID:       "first-visit",
			Category: model.HintCategoryOnboarding,
			Priority: model.HintPriorityLow,
			Cooldown: 10 * time.Minute,
			MaxShows: 2,
			Condition: func(c *Context) bool {
				return c.Visits[c.UI.CurrentPage] == 1
			},
			Generate: func(c *Context) string {
				return fmt.Sprintf("New to %s? Just say what you need", c.UI.CurrentPage)
			},
		},
		{
			ID:       "open-project",
			Category: model.HintCategoryOnboarding,
			Priority: model.HintPriorityMedium,
			Cooldown: 15 * time.Minute,
			MaxShows: 3,
			Condition: func(c *Context) bool {
				return c.UI.Mode == model.ModeGeneral &&
					c.Intent != nil && c.Intent.Label.Mutating()
			},
			Generate: func(c *Context) string {
				return "Open a project so new items land in the right place"
			},
		},
		{
			ID:       "voice-available",
			Category: model.HintCategoryVoice,
			Priority: model.HintPriorityMedium,
			Cooldown: 30 * time.Minute,
			MaxShows: 3,
			Condition: func(c *Context) bool {
				return c.Intent != nil &&
					c.Intent.Utterance != nil &&
					c.Intent.Utterance.Source == model.SourceTyped &&
					len(c.Intent.Utterance.Text) > 60
			},
			Generate: func(c *Context) string {
				return "Long entry? You can dictate instead of typing"
			},
		},
		{
			ID:       "summary-available",
			Category: model.HintCategorySummary,
			Priority: model.HintPriorityMedium,
			Cooldown: time.Hour,
			MaxShows: 2,
			Condition: func(c *Context) bool {
				return c.ItemCount >= 10
			},
			Generate: func(c *Context) string {
				return fmt.Sprintf("This page holds %d items, ask me for a summary", c.ItemCount)
			},
		},
	}
}
