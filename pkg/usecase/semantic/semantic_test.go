package semantic_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/usecase/semantic"
)

func newIntent(label model.UnifiedLabel, category model.IntelligenceCategory, text string) *model.IntelligenceIntent {
	return &model.IntelligenceIntent{
		ID:        model.NewIntentID(),
		Utterance: model.NewUtterance(text, model.SourceTyped),
		Category:  category,
		Label:     label,
		Extracted: map[string]string{},
		CreatedAt: time.Now(),
	}
}

func TestRecordIntent(t *testing.T) {
	ctx := context.Background()

	t.Run("PrimaryEventTable", func(t *testing.T) {
		cases := []struct {
			label model.UnifiedLabel
			event model.SemanticEventType
		}{
			{model.LabelCreateTask, model.EventTaskCreated},
			{model.LabelCompleteTask, model.EventTaskCompleted},
			{model.LabelCreateNote, model.EventNoteCreated},
			{model.LabelCreateProject, model.EventProjectCreated},
			{model.LabelDictation, model.EventVoiceNoteCreated},
			{model.LabelDeleteItem, model.EventItemDeleted},
			{model.LabelQueryItems, model.EventQueryExecuted},
			{model.LabelNavigate, model.EventNavigation},
			{model.LabelChat, model.EventConversationTurn},
		}

		for _, tc := range cases {
			t.Run(string(tc.label), func(t *testing.T) {
				rec := semantic.NewRecorder()
				events := rec.RecordIntent(ctx, semantic.IntentRecord{
					Intent: newIntent(tc.label, model.CategoryTaskCommand, "do the thing"),
				})
				gt.A(t, events).Length(1)
				gt.Equal(t, tc.event, events[0].Type)
				gt.False(t, events[0].CreatedAt.IsZero())
				gt.NotEqual(t, "", string(events[0].ID))
			})
		}
	})

	t.Run("ContextSwitchEvent", func(t *testing.T) {
		rec := semantic.NewRecorder()
		events := rec.RecordIntent(ctx, semantic.IntentRecord{
			Intent: newIntent(model.LabelNavigate, model.CategoryNavigation, "go to my notes"),
			Detection: &model.ClassificationResult{
				Intent:          model.ContextIntentOtherSubsystem,
				TargetSubsystem: model.SubsystemNotes,
			},
			UI: &model.UIContext{CurrentPage: model.SubsystemTasks},
		})

		gt.A(t, events).Length(2)
		gt.Equal(t, model.EventContextSwitched, events[1].Type)
		gt.Equal(t, "notes", events[1].Target)
		gt.S(t, events[1].Summary).Contains("tasks")
	})

	t.Run("NoSwitchOnCurrentItem", func(t *testing.T) {
		rec := semantic.NewRecorder()
		events := rec.RecordIntent(ctx, semantic.IntentRecord{
			Intent:    newIntent(model.LabelCreateTask, model.CategoryTaskCommand, "add a task"),
			Detection: &model.ClassificationResult{Intent: model.ContextIntentCurrentItem},
		})
		gt.A(t, events).Length(1)
	})

	t.Run("MediaRideAlong", func(t *testing.T) {
		rec := semantic.NewRecorder()
		intent := newIntent(model.LabelCreateTask, model.CategoryTaskCommand, "add a task and take a photo")
		intent.Media = &model.MediaDetection{
			Action:  model.MediaPhotoCapture,
			Targets: []model.Subsystem{model.SubsystemCamera},
		}

		events := rec.RecordIntent(ctx, semantic.IntentRecord{Intent: intent})
		gt.A(t, events).Length(2)
		gt.Equal(t, model.EventMediaExtracted, events[1].Type)
		gt.Equal(t, "photo_capture", events[1].Target)
	})

	t.Run("MediaPrimaryNotDoubled", func(t *testing.T) {
		rec := semantic.NewRecorder()
		intent := newIntent(model.LabelMediaCapture, model.CategoryMediaAction, "take a photo")
		intent.Media = &model.MediaDetection{
			Action:  model.MediaPhotoCapture,
			Targets: []model.Subsystem{model.SubsystemCamera},
		}

		events := rec.RecordIntent(ctx, semantic.IntentRecord{Intent: intent})
		gt.A(t, events).Length(1)
		gt.Equal(t, model.EventMediaExtracted, events[0].Type)
	})

	t.Run("TargetFromResult", func(t *testing.T) {
		rec := semantic.NewRecorder()
		intent := newIntent(model.LabelCreateTask, model.CategoryTaskCommand, "add a task to prune the oak")
		intent.Extracted["title"] = "prune the oak"

		events := rec.RecordIntent(ctx, semantic.IntentRecord{
			Intent: intent,
			Result: &model.ActionResult{Success: true, CreatedKind: model.ItemKindTask, CreatedID: "task-123"},
			UI:     &model.UIContext{ActiveProjectID: "proj-1"},
		})

		gt.A(t, events).Length(1)
		gt.Equal(t, "task-123", events[0].Target)
		gt.Equal(t, model.ProjectID("proj-1"), events[0].ProjectID)
		gt.S(t, events[0].Summary).Contains("prune the oak")
	})
}

func TestRecorderRing(t *testing.T) {
	ctx := context.Background()
	rec := semantic.NewRecorder(semantic.WithBufferSize(5))

	for i := 0; i < 8; i++ {
		rec.Record(ctx, &model.SemanticEvent{
			Type:    model.EventTaskCreated,
			Target:  fmt.Sprintf("e%d", i),
			Summary: fmt.Sprintf("created task: e%d", i),
		})
	}

	events := rec.Events()
	gt.A(t, events).Length(5)
	gt.Equal(t, "e3", events[0].Target)
	gt.Equal(t, "e7", events[4].Target)
}

func TestStormFlag(t *testing.T) {
	ctx := context.Background()
	rec := semantic.NewRecorder()

	gt.False(t, rec.Storm())

	for i := 0; i < 25; i++ {
		rec.Record(ctx, &model.SemanticEvent{
			Type:    model.EventItemUpdated,
			Target:  "loop",
			Summary: "updated item: loop",
		})
	}

	gt.True(t, rec.Storm())
	gt.A(t, rec.Events()).Length(25)
}

type failSink struct {
	calls int
}

func (s *failSink) Archive(ctx context.Context, events []*model.SemanticEvent) error {
	s.calls++
	return goerr.New("archive unavailable")
}

func TestSinkFailureDoesNotDropEvents(t *testing.T) {
	ctx := context.Background()
	sink := &failSink{}
	rec := semantic.NewRecorder(semantic.WithSink(sink))

	rec.Record(ctx, &model.SemanticEvent{Type: model.EventNoteCreated, Target: "n1", Summary: "captured note: n1"})
	rec.Record(ctx, &model.SemanticEvent{Type: model.EventNoteCreated, Target: "n2", Summary: "captured note: n2"})

	gt.A(t, rec.Events()).Length(2)
	gt.Equal(t, 2, sink.calls)
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()

	record := func(rec *semantic.Recorder, n int, target string, project model.ProjectID) {
		for i := 0; i < n; i++ {
			rec.Record(ctx, &model.SemanticEvent{
				Type:      model.EventTaskCreated,
				Target:    target,
				ProjectID: project,
				Summary:   fmt.Sprintf("created task: %s-%d", target, i),
			})
		}
	}

	t.Run("ConfidenceTiers", func(t *testing.T) {
		cases := []struct {
			count int
			want  float64
		}{
			{0, 0.1},
			{1, 0.3},
			{2, 0.5},
			{5, 0.7},
			{10, 0.85},
		}

		for _, tc := range cases {
			t.Run(fmt.Sprintf("%d_events", tc.count), func(t *testing.T) {
				rec := semantic.NewRecorder()
				record(rec, tc.count, "item-1", "proj-1")
				sum := semantic.NewSummarizer(rec)

				got, err := sum.Summarize(ctx, model.ScopeItem, "item-1", model.WindowLongTerm)
				gt.NoError(t, err)
				gt.Equal(t, tc.count, got.EventCount)
				gt.Equal(t, tc.want, got.Confidence)
			})
		}
	})

	t.Run("EmptyText", func(t *testing.T) {
		rec := semantic.NewRecorder()
		sum := semantic.NewSummarizer(rec)

		got, err := sum.Summarize(ctx, model.ScopeGlobal, "", model.WindowLongTerm)
		gt.NoError(t, err)
		gt.Equal(t, "no recorded activity", got.Text)
		gt.True(t, got.ReferenceTime.IsZero())
	})

	t.Run("RecentSectionCapped", func(t *testing.T) {
		rec := semantic.NewRecorder()
		record(rec, 8, "item-1", "proj-1")
		sum := semantic.NewSummarizer(rec)

		got, err := sum.Summarize(ctx, model.ScopeItem, "item-1", model.WindowLongTerm)
		gt.NoError(t, err)
		gt.S(t, got.Text).Contains("created task: item-1-7").
			Contains("created task: item-1-3").
			NotContains("created task: item-1-2").
			Contains("task_created=8")
	})

	t.Run("ScopeFiltering", func(t *testing.T) {
		rec := semantic.NewRecorder()
		record(rec, 2, "item-1", "proj-1")
		record(rec, 3, "item-2", "proj-1")
		record(rec, 4, "item-3", "proj-2")
		sum := semantic.NewSummarizer(rec)

		item, err := sum.Summarize(ctx, model.ScopeItem, "item-2", model.WindowLongTerm)
		gt.NoError(t, err)
		gt.Equal(t, 3, item.EventCount)

		collection, err := sum.Summarize(ctx, model.ScopeCollection, "proj-1", model.WindowLongTerm)
		gt.NoError(t, err)
		gt.Equal(t, 5, collection.EventCount)

		global, err := sum.Summarize(ctx, model.ScopeGlobal, "", model.WindowLongTerm)
		gt.NoError(t, err)
		gt.Equal(t, 9, global.EventCount)
	})

	t.Run("WindowCutoff", func(t *testing.T) {
		rec := semantic.NewRecorder()
		rec.Record(ctx, &model.SemanticEvent{
			Type:      model.EventTaskCreated,
			Target:    "item-1",
			Summary:   "created task: old",
			CreatedAt: time.Now().Add(-2 * time.Hour),
		})
		rec.Record(ctx, &model.SemanticEvent{
			Type:    model.EventTaskCompleted,
			Target:  "item-1",
			Summary: "completed task: fresh",
		})
		sum := semantic.NewSummarizer(rec)

		short, err := sum.Summarize(ctx, model.ScopeItem, "item-1", model.WindowShortTerm)
		gt.NoError(t, err)
		gt.Equal(t, 1, short.EventCount)
		gt.S(t, short.Text).NotContains("old")

		long, err := sum.Summarize(ctx, model.ScopeItem, "item-1", model.WindowLongTerm)
		gt.NoError(t, err)
		gt.Equal(t, 2, long.EventCount)
	})

	t.Run("Deterministic", func(t *testing.T) {
		rec := semantic.NewRecorder()
		record(rec, 4, "item-1", "proj-1")

		first, err := semantic.NewSummarizer(rec).Summarize(ctx, model.ScopeItem, "item-1", model.WindowLongTerm)
		gt.NoError(t, err)
		second, err := semantic.NewSummarizer(rec).Summarize(ctx, model.ScopeItem, "item-1", model.WindowLongTerm)
		gt.NoError(t, err)

		gt.Equal(t, first.Text, second.Text)
		gt.Equal(t, first.ReferenceTime, second.ReferenceTime)
		gt.Equal(t, first.Confidence, second.Confidence)
	})

	t.Run("CachedUntilNewEvent", func(t *testing.T) {
		rec := semantic.NewRecorder()
		record(rec, 2, "item-1", "proj-1")
		sum := semantic.NewSummarizer(rec)

		first, err := sum.Summarize(ctx, model.ScopeItem, "item-1", model.WindowLongTerm)
		gt.NoError(t, err)
		again, err := sum.Summarize(ctx, model.ScopeItem, "item-1", model.WindowLongTerm)
		gt.NoError(t, err)
		gt.Equal(t, first.GeneratedAt, again.GeneratedAt)

		record(rec, 1, "item-1", "proj-1")
		after, err := sum.Summarize(ctx, model.ScopeItem, "item-1", model.WindowLongTerm)
		gt.NoError(t, err)
		gt.Equal(t, 3, after.EventCount)
	})

	t.Run("InvalidScope", func(t *testing.T) {
		rec := semantic.NewRecorder()
		sum := semantic.NewSummarizer(rec)
		_, err := sum.Summarize(ctx, model.SummaryScope("bogus"), "x", model.WindowLongTerm)
		gt.Error(t, err)
	})
}

func TestApplyEventMatchesRebuild(t *testing.T) {
	ctx := context.Background()
	rec := semantic.NewRecorder()

	for i := 0; i < 3; i++ {
		rec.Record(ctx, &model.SemanticEvent{
			Type:      model.EventTaskCreated,
			Target:    "item-1",
			ProjectID: "proj-1",
			Summary:   fmt.Sprintf("created task: step-%d", i),
		})
	}

	patched := semantic.NewSummarizer(rec)
	_, err := patched.Summarize(ctx, model.ScopeItem, "item-1", model.WindowLongTerm)
	gt.NoError(t, err)

	event := &model.SemanticEvent{
		Type:      model.EventTaskCompleted,
		Target:    "item-1",
		ProjectID: "proj-1",
		Summary:   "completed task: step-0",
	}
	rec.Record(ctx, event)
	patched.ApplyEvent(event)

	got, err := patched.Summarize(ctx, model.ScopeItem, "item-1", model.WindowLongTerm)
	gt.NoError(t, err)
	want, err := semantic.NewSummarizer(rec).Summarize(ctx, model.ScopeItem, "item-1", model.WindowLongTerm)
	gt.NoError(t, err)

	gt.Equal(t, want.Text, got.Text)
	gt.Equal(t, want.EventCount, got.EventCount)
	gt.Equal(t, want.Confidence, got.Confidence)
	gt.Equal(t, want.ReferenceTime, got.ReferenceTime)
	gt.S(t, got.Text).Contains("completed task: step-0").Contains("task_completed=1")
}

func TestZoomBehavior(t *testing.T) {
	item := semantic.BehaviorFor(model.ZoomItem)
	collection := semantic.BehaviorFor(model.ZoomCollection)
	workspace := semantic.BehaviorFor(model.ZoomWorkspace)

	gt.Equal(t, model.ZoomItem, item.Zoom)
	gt.Equal(t, model.ZoomCollection, collection.Zoom)
	gt.Equal(t, model.ZoomWorkspace, workspace.Zoom)

	gt.A(t, item.SuggestedActions).Longer(0)
	gt.A(t, collection.SuggestedActions).Longer(0)
	gt.A(t, workspace.SuggestedActions).Longer(0)

	gt.NotEqual(t, item.PromptHint, collection.PromptHint)
	gt.NotEqual(t, collection.PromptHint, workspace.PromptHint)
	gt.S(t, item.PromptHint).Contains("single item")
	gt.S(t, workspace.PromptHint).Contains("workspace")
}
