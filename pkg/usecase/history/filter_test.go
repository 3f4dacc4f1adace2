package history_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/repository"
	"github.com/m-mizutani/canopy/pkg/usecase/history"
)

func TestShouldSaveDefaults(t *testing.T) {
	testCases := map[model.InteractionType]bool{
		model.InteractionUserPrompt:         true,
		model.InteractionAIResponse:         true,
		model.InteractionTooltipHint:        false,
		model.InteractionDecisionSheet:      false,
		model.InteractionAcknowledgement:    false,
		model.InteractionNavigationAction:   false,
		model.InteractionContextMarker:      false,
		model.InteractionSystemNotification: false,
	}

	for interactionType, want := range testCases {
		t.Run(string(interactionType), func(t *testing.T) {
			item := model.NewHistoryItem(interactionType, "content")
			gt.Equal(t, history.ShouldSave(item, nil), want)
		})
	}
}

func TestShouldSaveOverrides(t *testing.T) {
	prompt := model.NewHistoryItem(model.InteractionUserPrompt, "hello")

	t.Run("intent suppression beats the type default", func(t *testing.T) {
		intent := &model.IntelligenceIntent{
			Category:                model.CategoryNavigation,
			PreventHistoryPollution: true,
		}
		gt.False(t, history.ShouldSave(prompt, intent))
	})

	t.Run("smalltalk persists", func(t *testing.T) {
		intent := &model.IntelligenceIntent{Category: model.CategorySmalltalk}
		gt.True(t, history.ShouldSave(prompt, intent))
	})

	t.Run("clarified ambiguity persists", func(t *testing.T) {
		intent := &model.IntelligenceIntent{
			Category:  model.CategoryAmbiguous,
			Clarified: true,
		}
		gt.True(t, history.ShouldSave(prompt, intent))
	})

	t.Run("unclarified ambiguity keeps the default", func(t *testing.T) {
		hint := model.NewHistoryItem(model.InteractionTooltipHint, "tip")
		intent := &model.IntelligenceIntent{Category: model.CategoryAmbiguous}
		gt.False(t, history.ShouldSave(hint, intent))
	})

	t.Run("smalltalk does not resurrect UI chrome", func(t *testing.T) {
		ack := model.NewHistoryItem(model.InteractionAcknowledgement, "done")
		intent := &model.IntelligenceIntent{Category: model.CategorySmalltalk}
		gt.False(t, history.ShouldSave(ack, intent))
	})
}

func TestRecorderPersistsFiltered(t *testing.T) {
	repo := repository.NewMemory()
	recorder := history.NewRecorder(repo)
	ctx := context.Background()

	saved, err := recorder.Record(ctx, model.NewHistoryItem(model.InteractionUserPrompt, "add a task"), nil)
	gt.NoError(t, err)
	gt.True(t, saved)

	saved, err = recorder.Record(ctx, model.NewHistoryItem(model.InteractionTooltipHint, "try voice input"), nil)
	gt.NoError(t, err)
	gt.False(t, saved)

	items, err := repo.ListHistory(ctx, 0, 10)
	gt.NoError(t, err)
	gt.A(t, items).Length(1)
	gt.Equal(t, items[0].Content, "add a task")
}

func TestRecorderDeterminism(t *testing.T) {
	ctx := context.Background()

	run := func() []string {
		repo := repository.NewMemory()
		recorder := history.NewRecorder(repo)

		sequence := []struct {
			itemType model.InteractionType
			content  string
			intent   *model.IntelligenceIntent
		}{
			{model.InteractionUserPrompt, "hello", &model.IntelligenceIntent{Category: model.CategorySmalltalk}},
			{model.InteractionAIResponse, "hi there", &model.IntelligenceIntent{Category: model.CategorySmalltalk}},
			{model.InteractionNavigationAction, "switched to trees", &model.IntelligenceIntent{Category: model.CategoryNavigation, PreventHistoryPollution: true}},
			{model.InteractionUserPrompt, "add a task", &model.IntelligenceIntent{Category: model.CategoryTaskCommand}},
			{model.InteractionAcknowledgement, "task created", &model.IntelligenceIntent{Category: model.CategoryTaskCommand}},
		}
		for _, step := range sequence {
			_, err := recorder.Record(ctx, model.NewHistoryItem(step.itemType, step.content), step.intent)
			gt.NoError(t, err)
		}

		items, err := repo.ListHistory(ctx, 0, 0)
		gt.NoError(t, err)
		contents := make([]string, 0, len(items))
		for _, item := range items {
			contents = append(contents, item.Content)
		}
		return contents
	}

	first := run()
	second := run()
	gt.Equal(t, first, second)
	gt.Equal(t, first, []string{"hello", "hi there", "add a task"})
}

func TestRecorderRingBounded(t *testing.T) {
	recorder := history.NewRecorder(nil)
	ctx := context.Background()

	for i := 0; i < 150; i++ {
		_, err := recorder.Record(ctx, model.NewHistoryItem(model.InteractionTooltipHint, fmt.Sprintf("hint %d", i)), nil)
		gt.NoError(t, err)
	}

	recent := recorder.Recent(0)
	gt.A(t, recent).Length(100)
	gt.Equal(t, recent[0].Content, "hint 50")
	gt.Equal(t, recent[99].Content, "hint 149")
}
