package semantic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/utils/logging"
)

const (
	// maxRecentLines caps the recent-activity section of a summary.
	maxRecentLines = 5

	summaryCacheSize = 256
	summaryCacheTTL  = 10 * time.Minute
)

// typeOrder fixes the aggregation order so that identical event sets
// always render identical totals.
var typeOrder = []model.SemanticEventType{
	model.EventTaskCreated,
	model.EventTaskCompleted,
	model.EventNoteCreated,
	model.EventProjectCreated,
	model.EventVoiceNoteCreated,
	model.EventItemUpdated,
	model.EventItemDeleted,
	model.EventQueryExecuted,
	model.EventContextSwitched,
	model.EventMediaExtracted,
	model.EventNavigation,
	model.EventConversationTurn,
}

type summaryKey struct {
	scope  model.SummaryScope
	target string
	window model.SummaryWindow
}

// cacheEntry keeps the data a summary renders from, so an incremental
// patch produces the same text a full rebuild would.
type cacheEntry struct {
	summary *model.SemanticSummary
	recent  []string
	counts  map[model.SemanticEventType]int
}

// Summarizer builds deterministic digests over the recorded events.
// Digests are cached per (scope, target, window) and patched in place
// as new events arrive instead of recomputing from scratch.
type Summarizer struct {
	recorder *Recorder
	cache    *expirable.LRU[summaryKey, *cacheEntry]
	now      func() time.Time
}

// SummarizerOption is a functional option for the Summarizer
type SummarizerOption func(*Summarizer)

// WithSummarizerClock replaces the time source for tests
func WithSummarizerClock(now func() time.Time) SummarizerOption {
	return func(s *Summarizer) {
		s.now = now
	}
}

// NewSummarizer creates a summarizer reading from the given recorder
func NewSummarizer(recorder *Recorder, opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{
		recorder: recorder,
		cache:    expirable.NewLRU[summaryKey, *cacheEntry](summaryCacheSize, nil, summaryCacheTTL),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Summarize returns the digest for one scope, target and window. The
// reference time is the newest covered event, so summarizing the same
// events again serves the cached digest unchanged.
func (s *Summarizer) Summarize(ctx context.Context, scope model.SummaryScope, targetID string, window model.SummaryWindow) (*model.SemanticSummary, error) {
	if err := scope.Validate(); err != nil {
		return nil, goerr.Wrap(err, "cannot summarize")
	}
	if err := window.Validate(); err != nil {
		return nil, goerr.Wrap(err, "cannot summarize")
	}
	if scope != model.ScopeGlobal && targetID == "" {
		return nil, goerr.New("scoped summary needs a target", goerr.V("scope", string(scope)))
	}

	key := summaryKey{scope: scope, target: targetID, window: window}
	events := s.relevant(scope, targetID, window)

	if entry, ok := s.cache.Get(key); ok && !newestOf(events).After(entry.summary.ReferenceTime) {
		return entry.summary, nil
	}

	entry := s.build(scope, targetID, window, events)
	s.cache.Add(key, entry)
	logging.From(ctx).Debug("summary generated",
		"scope", scope, "target", targetID, "window", window, "events", len(events))
	return entry.summary, nil
}

// ApplyEvent patches the most specific cached digest covering the
// event: a new line goes on top of the recent-activity section and
// the totals shift, without a rebuild. Less specific digests refresh
// lazily on their next read.
func (s *Summarizer) ApplyEvent(event *model.SemanticEvent) {
	if event == nil {
		return
	}
	if s.patchScope(model.ScopeItem, event.Target, event) {
		return
	}
	if s.patchScope(model.ScopeCollection, string(event.ProjectID), event) {
		return
	}
	s.patchScope(model.ScopeGlobal, "", event)
}

func (s *Summarizer) patchScope(scope model.SummaryScope, targetID string, event *model.SemanticEvent) bool {
	if scope != model.ScopeGlobal && targetID == "" {
		return false
	}

	patched := false
	for _, window := range []model.SummaryWindow{model.WindowShortTerm, model.WindowActivity, model.WindowLongTerm} {
		key := summaryKey{scope: scope, target: targetID, window: window}
		entry, ok := s.cache.Get(key)
		if !ok {
			continue
		}
		s.cache.Add(key, s.patch(entry, event))
		patched = true
	}
	return patched
}

func (s *Summarizer) patch(entry *cacheEntry, event *model.SemanticEvent) *cacheEntry {
	recent := append([]string{event.Summary}, entry.recent...)
	if len(recent) > maxRecentLines {
		recent = recent[:maxRecentLines]
	}

	counts := make(map[model.SemanticEventType]int, len(entry.counts)+1)
	for t, n := range entry.counts {
		counts[t] = n
	}
	counts[event.Type]++

	prev := entry.summary
	next := &model.SemanticSummary{
		Scope:         prev.Scope,
		TargetID:      prev.TargetID,
		Window:        prev.Window,
		Text:          render(recent, counts, prev.EventCount+1),
		EventCount:    prev.EventCount + 1,
		Confidence:    confidenceFor(prev.EventCount + 1),
		ReferenceTime: prev.ReferenceTime,
		GeneratedAt:   s.now(),
	}
	if event.CreatedAt.After(next.ReferenceTime) {
		next.ReferenceTime = event.CreatedAt
	}

	return &cacheEntry{summary: next, recent: recent, counts: counts}
}

func (s *Summarizer) build(scope model.SummaryScope, targetID string, window model.SummaryWindow, events []*model.SemanticEvent) *cacheEntry {
	counts := map[model.SemanticEventType]int{}
	var newest time.Time
	for _, event := range events {
		counts[event.Type]++
		if event.CreatedAt.After(newest) {
			newest = event.CreatedAt
		}
	}

	var recent []string
	for i := len(events) - 1; i >= 0 && len(recent) < maxRecentLines; i-- {
		recent = append(recent, events[i].Summary)
	}

	summary := &model.SemanticSummary{
		Scope:         scope,
		TargetID:      targetID,
		Window:        window,
		Text:          render(recent, counts, len(events)),
		EventCount:    len(events),
		Confidence:    confidenceFor(len(events)),
		ReferenceTime: newest,
		GeneratedAt:   s.now(),
	}

	return &cacheEntry{summary: summary, recent: recent, counts: counts}
}

// relevant filters the event buffer down to one scope and window.
func (s *Summarizer) relevant(scope model.SummaryScope, targetID string, window model.SummaryWindow) []*model.SemanticEvent {
	var cutoff time.Time
	if d := window.Duration(); d > 0 {
		cutoff = s.now().Add(-d)
	}

	var out []*model.SemanticEvent
	for _, event := range s.recorder.Events() {
		if !cutoff.IsZero() && event.CreatedAt.Before(cutoff) {
			continue
		}
		if !matchesScope(event, scope, targetID) {
			continue
		}
		out = append(out, event)
	}
	return out
}

func newestOf(events []*model.SemanticEvent) time.Time {
	var newest time.Time
	for _, event := range events {
		if event.CreatedAt.After(newest) {
			newest = event.CreatedAt
		}
	}
	return newest
}

func matchesScope(event *model.SemanticEvent, scope model.SummaryScope, targetID string) bool {
	switch scope {
	case model.ScopeItem:
		return event.Target == targetID
	case model.ScopeCollection:
		return string(event.ProjectID) == targetID
	default:
		return true
	}
}

func render(recent []string, counts map[model.SemanticEventType]int, total int) string {
	if total == 0 {
		return "no recorded activity"
	}

	var b strings.Builder
	b.WriteString("recent activity:\n")
	for _, line := range recent {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("totals:")
	for _, t := range typeOrder {
		if n := counts[t]; n > 0 {
			fmt.Fprintf(&b, " %s=%d", t, n)
		}
	}
	return b.String()
}

// confidenceFor rises with the amount of evidence behind a summary.
func confidenceFor(count int) float64 {
	switch {
	case count >= 10:
		return 0.85
	case count >= 5:
		return 0.7
	case count >= 2:
		return 0.5
	case count >= 1:
		return 0.3
	default:
		return 0.1
	}
}
