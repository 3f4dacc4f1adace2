package hint_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/usecase/hint"
)

func testContext() *hint.Context {
	return &hint.Context{
		UI: &model.UIContext{
			CurrentPage: model.SubsystemNotes,
			Mode:        model.ModeProject,
			Zoom:        model.ZoomCollection,
		},
		Visits: map[model.Subsystem]int{model.SubsystemNotes: 1},
	}
}

func alwaysRule(id string, priority model.HintPriority, text string) hint.Rule {
	return hint.Rule{
		ID:        id,
		Category:  model.HintCategoryOnboarding,
		Priority:  priority,
		Condition: func(*hint.Context) bool { return true },
		Generate:  func(*hint.Context) string { return text },
	}
}

func TestEngineLimitsVisibleHints(t *testing.T) {
	rules := []hint.Rule{
		alwaysRule("a", model.HintPriorityLow, "low priority"),
		alwaysRule("b", model.HintPriorityHigh, "high priority"),
		alwaysRule("c", model.HintPriorityMedium, "medium priority"),
		alwaysRule("d", model.HintPriorityHigh, "another high"),
	}
	engine := hint.NewEngine(rules, hint.WithLimit(2))

	shown := engine.OnContextChange(context.Background(), testContext())
	gt.A(t, shown).Length(2)
	gt.Equal(t, shown[0].Text, "high priority")
	gt.Equal(t, shown[1].Text, "another high")
}

func TestEngineRespectsMaxShowsAndCooldown(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	rule := alwaysRule("once", model.HintPriorityMedium, "shown sparingly")
	rule.MaxShows = 2
	rule.Cooldown = time.Minute

	engine := hint.NewEngine([]hint.Rule{rule}, hint.WithClock(clock), hint.WithTTL(time.Second))

	gt.A(t, engine.OnContextChange(context.Background(), testContext())).Length(1)

	// Still cooling down
	now = now.Add(30 * time.Second)
	gt.A(t, engine.OnContextChange(context.Background(), testContext())).Length(0)

	// Cooldown passed, second show allowed
	now = now.Add(31 * time.Second)
	gt.A(t, engine.OnContextChange(context.Background(), testContext())).Length(1)

	// Budget exhausted
	now = now.Add(2 * time.Minute)
	gt.A(t, engine.OnContextChange(context.Background(), testContext())).Length(0)
}

func TestEngineSuppressesVisibleDuplicates(t *testing.T) {
	rules := []hint.Rule{
		alwaysRule("a", model.HintPriorityMedium, "same text"),
		alwaysRule("b", model.HintPriorityMedium, "same text"),
	}
	engine := hint.NewEngine(rules)

	shown := engine.OnContextChange(context.Background(), testContext())
	gt.A(t, shown).Length(1)
}

func TestEngineExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	engine := hint.NewEngine(
		[]hint.Rule{alwaysRule("a", model.HintPriorityMedium, "fleeting")},
		hint.WithClock(clock),
		hint.WithTTL(time.Minute),
	)

	gt.A(t, engine.OnContextChange(context.Background(), testContext())).Length(1)
	gt.A(t, engine.Active()).Length(1)

	now = now.Add(2 * time.Minute)
	gt.A(t, engine.Active()).Length(0)
}

func TestEngineActedUponRetiresRule(t *testing.T) {
	engine := hint.NewEngine([]hint.Rule{alwaysRule("a", model.HintPriorityMedium, "learn me")})

	shown := engine.OnContextChange(context.Background(), testContext())
	gt.A(t, shown).Length(1)
	gt.True(t, engine.MarkActedUpon(shown[0].ID))
	gt.A(t, engine.Active()).Length(0)

	// The rule stays quiet for the rest of the session
	gt.A(t, engine.OnContextChange(context.Background(), testContext())).Length(0)
}

func TestEngineDismissKeepsRuleEligible(t *testing.T) {
	engine := hint.NewEngine([]hint.Rule{alwaysRule("a", model.HintPriorityMedium, "try again later")})

	shown := engine.OnContextChange(context.Background(), testContext())
	gt.A(t, shown).Length(1)
	gt.True(t, engine.Dismiss(shown[0].ID))
	gt.A(t, engine.Active()).Length(0)

	// Unlike acting on a hint, dismissal leaves the rule free to fire again
	gt.A(t, engine.OnContextChange(context.Background(), testContext())).Length(1)
	gt.False(t, engine.Dismiss(model.NewHintID()))
}

func TestDefaultRulesMismatchHint(t *testing.T) {
	engine := hint.NewEngine(hint.DefaultRules())

	hctx := testContext()
	hctx.Intent = &model.IntelligenceIntent{
		Category:        model.CategoryNeedsDecision,
		TargetSubsystem: model.SubsystemTasks,
		Utterance:       model.NewUtterance("add a task to prune", model.SourceTyped),
	}

	shown := engine.OnContextChange(context.Background(), hctx)
	gt.A(t, shown).Longer(0)
	gt.S(t, shown[0].Text).Contains("notes")
	gt.S(t, shown[0].Text).Contains("tasks")
}

func TestContractValidators(t *testing.T) {
	t.Run("decision sheet", func(t *testing.T) {
		sheet := &model.DecisionSheet{
			ID:         model.NewDecisionSheetID(),
			Title:      "Where should this go?",
			Options:    []string{"Tasks", "Notes"},
			Cancelable: true,
		}
		gt.A(t, hint.ValidateDecisionSheet(sheet)).Length(0)

		sheet.Options = []string{"only one"}
		sheet.Cancelable = false
		violations := hint.ValidateDecisionSheet(sheet)
		gt.A(t, violations).Length(2)
	})

	t.Run("acknowledgement", func(t *testing.T) {
		ack := hint.NewAcknowledgement("Task created", 10*time.Second)
		gt.Equal(t, ack.Duration, hint.AcknowledgementMaxDuration)
		gt.A(t, hint.ValidateAcknowledgement(ack)).Length(0)

		bad := &model.Acknowledgement{Message: "", Duration: time.Millisecond}
		gt.A(t, hint.ValidateAcknowledgement(bad)).Length(2)
	})

	t.Run("tooltip", func(t *testing.T) {
		good := &model.Hint{Text: "Short and useful"}
		gt.A(t, hint.ValidateTooltip(good)).Length(0)

		long := &model.Hint{Text: string(make([]byte, 140))}
		gt.A(t, hint.ValidateTooltip(long)).Length(1)
	})
}
