package semantic

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/m-mizutani/canopy/pkg/adapter"
	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/utils/logging"
)

const (
	// DefaultBufferSize bounds the event ring. Overflow drops the
	// oldest events, recording itself never blocks.
	DefaultBufferSize = 1000

	// stormThreshold is the events-per-minute volume above which the
	// integration health flag raises.
	stormThreshold = 20
)

// actionEvents maps a resolved intent label to its primary event type.
var actionEvents = map[model.UnifiedLabel]model.SemanticEventType{
	model.LabelCreateTask:    model.EventTaskCreated,
	model.LabelVoiceTask:     model.EventTaskCreated,
	model.LabelCompleteTask:  model.EventTaskCompleted,
	model.LabelCreateNote:    model.EventNoteCreated,
	model.LabelCreateProject: model.EventProjectCreated,
	model.LabelVoiceNote:     model.EventVoiceNoteCreated,
	model.LabelDictation:     model.EventVoiceNoteCreated,
	model.LabelUpdateItem:    model.EventItemUpdated,
	model.LabelDeleteItem:    model.EventItemDeleted,
	model.LabelQueryItems:    model.EventQueryExecuted,
	model.LabelCreateReport:  model.EventQueryExecuted,
	model.LabelNavigate:      model.EventNavigation,
	model.LabelMediaCapture:  model.EventMediaExtracted,
	model.LabelHelp:          model.EventConversationTurn,
	model.LabelChat:          model.EventConversationTurn,
}

// Recorder keeps the append-only semantic event log. Events land in a
// bounded ring, optionally fan out to an archival sink, and feed the
// event-storm self-check.
type Recorder struct {
	max     int
	sink    adapter.EventSink
	limiter *rate.Limiter
	now     func() time.Time

	mu        sync.RWMutex
	events    []*model.SemanticEvent
	lastStorm time.Time
}

// RecorderOption is a functional option for the Recorder
type RecorderOption func(*Recorder)

// WithSink archives every recorded event. Archive failures are logged
// and never fail the recording.
func WithSink(sink adapter.EventSink) RecorderOption {
	return func(r *Recorder) {
		r.sink = sink
	}
}

// WithBufferSize overrides the ring capacity
func WithBufferSize(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.max = n
		}
	}
}

// WithRecorderClock replaces the time source for tests
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder creates an event recorder
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		max:     DefaultBufferSize,
		limiter: rate.NewLimiter(rate.Limit(float64(stormThreshold)/60.0), stormThreshold),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// IntentRecord bundles what is known about one resolved intent when
// it is turned into events. Detection, Result and UI may be nil.
type IntentRecord struct {
	Intent    *model.IntelligenceIntent
	Detection *model.ClassificationResult
	Result    *model.ActionResult
	UI        *model.UIContext
}

// RecordIntent derives one to three events from a resolved intent:
// the primary action event, a context switch event when the utterance
// left the current page, and a media extraction event when a capture
// rode along with another action.
func (r *Recorder) RecordIntent(ctx context.Context, in IntentRecord) []*model.SemanticEvent {
	if in.Intent == nil {
		return nil
	}

	eventType, ok := actionEvents[in.Intent.Label]
	if !ok {
		eventType = model.EventConversationTurn
	}

	var projectID model.ProjectID
	if in.UI != nil {
		projectID = in.UI.ActiveProjectID
	}

	primary := &model.SemanticEvent{
		Type:      eventType,
		Target:    primaryTarget(in),
		ProjectID: projectID,
		Summary:   describe(eventType, in),
		Metadata: map[string]string{
			"category": string(in.Intent.Category),
			"label":    string(in.Intent.Label),
		},
	}
	if in.Intent.Utterance != nil {
		primary.Metadata["source"] = string(in.Intent.Utterance.Source)
	}

	events := []*model.SemanticEvent{primary}

	if in.Detection != nil && in.Detection.Intent != model.ContextIntentCurrentItem {
		target := string(in.Detection.TargetSubsystem)
		if target == "" {
			target = string(in.Detection.Intent)
		}
		from := ""
		if in.UI != nil {
			from = string(in.UI.CurrentPage)
		}
		events = append(events, &model.SemanticEvent{
			Type:      model.EventContextSwitched,
			Target:    target,
			ProjectID: projectID,
			Summary:   "context moved away from " + from,
			Metadata:  map[string]string{"detector_intent": string(in.Detection.Intent)},
		})
	}

	if in.Intent.Media != nil && eventType != model.EventMediaExtracted {
		events = append(events, &model.SemanticEvent{
			Type:      model.EventMediaExtracted,
			Target:    string(in.Intent.Media.Action),
			ProjectID: projectID,
			Summary:   "detected " + string(in.Intent.Media.Action) + " request",
			Metadata:  map[string]string{"label": string(in.Intent.Label)},
		})
	}

	for _, event := range events {
		r.Record(ctx, event)
	}
	return events
}

// Record appends one event. The event is never dropped on high
// volume, the rate limiter only raises the storm flag.
func (r *Recorder) Record(ctx context.Context, event *model.SemanticEvent) {
	if event.ID == "" {
		event.ID = model.NewSemanticEventID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now()
	}

	r.mu.Lock()
	if !r.limiter.Allow() {
		r.lastStorm = r.now()
		logging.From(ctx).Warn("semantic event volume exceeds threshold",
			"threshold_per_min", stormThreshold,
			"type", event.Type,
			"target", event.Target,
		)
	}
	r.events = append(r.events, event)
	if len(r.events) > r.max {
		r.events = r.events[len(r.events)-r.max:]
	}
	r.mu.Unlock()

	if r.sink != nil {
		if err := r.sink.Archive(ctx, []*model.SemanticEvent{event}); err != nil {
			logging.From(ctx).Warn("failed to archive semantic event", "error", err, "id", event.ID)
		}
	}
}

// Events returns a copy of the buffered events, oldest first.
func (r *Recorder) Events() []*model.SemanticEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.SemanticEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Storm reports whether event volume exceeded the threshold within
// the last minute. It is a health signal only, recording continues.
func (r *Recorder) Storm() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.lastStorm.IsZero() && r.now().Sub(r.lastStorm) < time.Minute
}

func primaryTarget(in IntentRecord) string {
	if in.Result != nil && in.Result.CreatedID != "" {
		return in.Result.CreatedID
	}
	if in.UI != nil && in.UI.HasSelectedItem() {
		switch in.Intent.Label {
		case model.LabelCompleteTask, model.LabelUpdateItem, model.LabelDeleteItem:
			return in.UI.SelectedItemID
		}
	}
	if in.Intent.TargetSubsystem != "" {
		return string(in.Intent.TargetSubsystem)
	}
	return "workspace"
}

// describe renders the one-line digest stored on the event. Summaries
// build their recent-activity sections from these lines.
func describe(eventType model.SemanticEventType, in IntentRecord) string {
	subject := ""
	if in.Intent.Extracted != nil {
		for _, key := range []string{"title", "name", "content", "query", "target"} {
			if v := in.Intent.Extracted[key]; v != "" {
				subject = v
				break
			}
		}
	}
	if subject == "" && in.Intent.Utterance != nil {
		subject = snippet(in.Intent.Utterance.Text)
	}

	switch eventType {
	case model.EventTaskCreated:
		return "created task: " + subject
	case model.EventTaskCompleted:
		return "completed task: " + subject
	case model.EventNoteCreated:
		return "captured note: " + subject
	case model.EventProjectCreated:
		return "created project: " + subject
	case model.EventVoiceNoteCreated:
		return "recorded voice note: " + subject
	case model.EventItemUpdated:
		return "updated item: " + subject
	case model.EventItemDeleted:
		return "deleted item: " + subject
	case model.EventQueryExecuted:
		return "ran query: " + subject
	case model.EventNavigation:
		return "navigated to " + string(in.Intent.TargetSubsystem)
	case model.EventMediaExtracted:
		return "media capture: " + subject
	default:
		return "conversation: " + subject
	}
}

func snippet(text string) string {
	text = strings.TrimSpace(text)
	const max = 60
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
