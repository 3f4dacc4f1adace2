package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidEventType     = goerr.New("invalid semantic event type")
	ErrInvalidSummaryScope  = goerr.New("invalid summary scope")
	ErrInvalidSummaryWindow = goerr.New("invalid summary window")
)

// SemanticEventType names one kind of recorded activity. Events feed
// the rolling activity summaries.
type SemanticEventType string

const (
	EventTaskCreated      SemanticEventType = "task_created"
	EventTaskCompleted    SemanticEventType = "task_completed"
	EventNoteCreated      SemanticEventType = "note_created"
	EventProjectCreated   SemanticEventType = "project_created"
	EventVoiceNoteCreated SemanticEventType = "voice_note_created"
	EventItemUpdated      SemanticEventType = "item_updated"
	EventItemDeleted      SemanticEventType = "item_deleted"
	EventQueryExecuted    SemanticEventType = "query_executed"
	EventContextSwitched  SemanticEventType = "context_switched"
	EventMediaExtracted   SemanticEventType = "media_extracted"
	EventNavigation       SemanticEventType = "navigation_performed"
	EventConversationTurn SemanticEventType = "conversation_turn"
)

// Validate checks if the event type is a known one
func (t SemanticEventType) Validate() error {
	switch t {
	case EventTaskCreated, EventTaskCompleted, EventNoteCreated,
		EventProjectCreated, EventVoiceNoteCreated, EventItemUpdated,
		EventItemDeleted, EventQueryExecuted, EventContextSwitched,
		EventMediaExtracted, EventNavigation, EventConversationTurn:
		return nil
	default:
		return goerr.Wrap(ErrInvalidEventType, "unknown event type", goerr.V("type", string(t)))
	}
}

type SemanticEventID string

// NewSemanticEventID generates a new unique SemanticEventID
func NewSemanticEventID() SemanticEventID {
	return SemanticEventID(uuid.New().String())
}

// SemanticEvent is one append-only record of a resolved action,
// distinct from raw conversation turns. Target names the item,
// subsystem or page the event refers to.
type SemanticEvent struct {
	ID        SemanticEventID
	Type      SemanticEventType
	Target    string
	ProjectID ProjectID
	Summary   string
	Metadata  map[string]string
	CreatedAt time.Time
}

// SummaryScope selects which slice of activity a summary covers.
type SummaryScope string

const (
	ScopeItem       SummaryScope = "item"
	ScopeCollection SummaryScope = "collection"
	ScopeGlobal     SummaryScope = "global"
)

// Validate checks if the scope is valid
func (s SummaryScope) Validate() error {
	switch s {
	case ScopeItem, ScopeCollection, ScopeGlobal:
		return nil
	default:
		return goerr.Wrap(ErrInvalidSummaryScope, "unknown scope", goerr.V("scope", string(s)))
	}
}

// SummaryWindow is the time range a summary looks back over.
type SummaryWindow string

const (
	WindowShortTerm SummaryWindow = "short_term"
	WindowActivity  SummaryWindow = "activity"
	WindowLongTerm  SummaryWindow = "long_term"
)

// Validate checks if the window is valid
func (w SummaryWindow) Validate() error {
	switch w {
	case WindowShortTerm, WindowActivity, WindowLongTerm:
		return nil
	default:
		return goerr.Wrap(ErrInvalidSummaryWindow, "unknown window", goerr.V("window", string(w)))
	}
}

// Duration returns how far back the window reaches. The long term
// window has no cutoff and returns zero.
func (w SummaryWindow) Duration() time.Duration {
	switch w {
	case WindowShortTerm:
		return time.Hour
	case WindowActivity:
		return 24 * time.Hour
	default:
		return 0
	}
}

// SemanticSummary is a deterministic digest of recent activity.
// ReferenceTime is the timestamp of the newest event covered, so
// regenerating from the same events yields the same summary.
type SemanticSummary struct {
	Scope         SummaryScope
	TargetID      string
	Window        SummaryWindow
	Text          string
	EventCount    int
	Confidence    float64
	ReferenceTime time.Time
	GeneratedAt   time.Time
}

// ZoomBehavior describes how the assistant adapts to the current
// zoom level: what it suggests and how prompts are slanted.
type ZoomBehavior struct {
	Zoom             ZoomLevel
	SuggestedActions []string
	PromptHint       string
}
