package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidContextIntent = goerr.New("invalid context intent")
	ErrInvalidUnifiedLabel  = goerr.New("invalid unified label")
	ErrInvalidCategory      = goerr.New("invalid intelligence category")
	ErrInvalidMediaAction   = goerr.New("invalid media action")
)

// ContextIntentType is the result of comparing an utterance against
// the page the user currently looks at.
type ContextIntentType string

const (
	// ContextIntentCurrentItem means the utterance refers to what is on screen.
	ContextIntentCurrentItem ContextIntentType = "current_item"
	// ContextIntentOtherSubsystem means the user talks about a different page.
	ContextIntentOtherSubsystem ContextIntentType = "other_subsystem"
	// ContextIntentGeneral covers smalltalk and help requests.
	ContextIntentGeneral ContextIntentType = "general"
	// ContextIntentAmbiguous means a pronoun reference cannot be resolved.
	ContextIntentAmbiguous ContextIntentType = "ambiguous"
)

// Validate checks if the context intent is valid
func (t ContextIntentType) Validate() error {
	switch t {
	case ContextIntentCurrentItem, ContextIntentOtherSubsystem, ContextIntentGeneral, ContextIntentAmbiguous:
		return nil
	default:
		return goerr.Wrap(ErrInvalidContextIntent, "unknown context intent", goerr.V("intent", string(t)))
	}
}

// ClassificationResult is what the context mismatch detector reports.
// Confidence is on a 0..1 scale.
type ClassificationResult struct {
	Intent           ContextIntentType
	Confidence       float64
	TargetSubsystem  Subsystem
	RequiresDecision bool
	SuggestedActions []string
}

// UnifiedLabel is a fine-grained intent shared by the voice and text
// classification paths.
type UnifiedLabel string

const (
	LabelCreateTask    UnifiedLabel = "create_task"
	LabelCompleteTask  UnifiedLabel = "complete_task"
	LabelUpdateItem    UnifiedLabel = "update_item"
	LabelDeleteItem    UnifiedLabel = "delete_item"
	LabelCreateNote    UnifiedLabel = "create_note"
	LabelCreateProject UnifiedLabel = "create_project"
	LabelCreateReport  UnifiedLabel = "create_report"
	LabelVoiceTask     UnifiedLabel = "voice_task"
	LabelVoiceNote     UnifiedLabel = "voice_note"
	LabelDictation     UnifiedLabel = "dictation"
	LabelMediaCapture  UnifiedLabel = "media_capture"
	LabelQueryItems    UnifiedLabel = "query_items"
	LabelNavigate      UnifiedLabel = "navigate"
	LabelHelp          UnifiedLabel = "help"
	LabelChat          UnifiedLabel = "chat"
)

// Validate checks if the label is a known one
func (l UnifiedLabel) Validate() error {
	switch l {
	case LabelCreateTask, LabelCompleteTask, LabelUpdateItem, LabelDeleteItem,
		LabelCreateNote, LabelCreateProject, LabelCreateReport,
		LabelVoiceTask, LabelVoiceNote, LabelDictation,
		LabelMediaCapture, LabelQueryItems, LabelNavigate, LabelHelp, LabelChat:
		return nil
	default:
		return goerr.Wrap(ErrInvalidUnifiedLabel, "unknown label", goerr.V("label", string(l)))
	}
}

// Mutating reports whether executing the label writes to storage.
func (l UnifiedLabel) Mutating() bool {
	switch l {
	case LabelCreateTask, LabelCompleteTask, LabelUpdateItem, LabelDeleteItem,
		LabelCreateNote, LabelCreateProject, LabelVoiceTask, LabelVoiceNote, LabelDictation:
		return true
	default:
		return false
	}
}

// UnifiedResult is the outcome of the unified intent engine.
// Confidence is on a 0..100 scale.
type UnifiedResult struct {
	Label      UnifiedLabel
	Confidence int
	Source     UtteranceSource
	Extracted  map[string]string
	Polite     bool

	// RequiresConfirmation is the engine's own rule: a data-mutating
	// label below the confidence threshold must be confirmed before it
	// executes. Politeness markers never relax this.
	RequiresConfirmation bool

	// ConversionOptions are alternative interpretations offered on the
	// confirmation sheet, e.g. turning a task into a note.
	ConversionOptions []string
}

// MediaAction is a capture request detected inside an utterance.
type MediaAction string

const (
	MediaPhotoCapture MediaAction = "photo_capture"
	MediaVoiceMemo    MediaAction = "voice_memo"
	MediaFileAttach   MediaAction = "file_attach"
	MediaDocumentScan MediaAction = "document_scan"
)

// Validate checks if the media action is valid
func (m MediaAction) Validate() error {
	switch m {
	case MediaPhotoCapture, MediaVoiceMemo, MediaFileAttach, MediaDocumentScan:
		return nil
	default:
		return goerr.Wrap(ErrInvalidMediaAction, "unknown media action", goerr.V("action", string(m)))
	}
}

// MediaDetection is a detected media request plus the places it could
// be sent to. More than one target forces a decision sheet.
type MediaDetection struct {
	Action  MediaAction
	Targets []Subsystem
	Options []string
}

// MultiTarget reports whether the capture could land in more than one place.
func (d *MediaDetection) MultiTarget() bool {
	return len(d.Targets) > 1
}

// IntelligenceCategory is the coarse category the orchestrator
// assigns to every utterance.
type IntelligenceCategory string

const (
	CategorySmalltalk      IntelligenceCategory = "smalltalk"
	CategoryAmbiguous      IntelligenceCategory = "ambiguous"
	CategoryNeedsDecision  IntelligenceCategory = "needs_decision"
	CategoryTaskCommand    IntelligenceCategory = "task_command"
	CategoryNoteCommand    IntelligenceCategory = "note_command"
	CategoryProjectCommand IntelligenceCategory = "project_command"
	CategoryQuery          IntelligenceCategory = "query"
	CategoryMediaAction    IntelligenceCategory = "media_action"
	CategoryNavigation     IntelligenceCategory = "navigation"
)

// Validate checks if the category is a known one
func (c IntelligenceCategory) Validate() error {
	switch c {
	case CategorySmalltalk, CategoryAmbiguous, CategoryNeedsDecision,
		CategoryTaskCommand, CategoryNoteCommand, CategoryProjectCommand,
		CategoryQuery, CategoryMediaAction, CategoryNavigation:
		return nil
	default:
		return goerr.Wrap(ErrInvalidCategory, "unknown category", goerr.V("category", string(c)))
	}
}

type IntentID string

// NewIntentID generates a new unique IntentID
func NewIntentID() IntentID {
	return IntentID(uuid.New().String())
}

// IntelligenceIntent is the single classification produced for one
// utterance. Router, executor and history all consume the same value.
type IntelligenceIntent struct {
	ID        IntentID
	Utterance *Utterance

	Category        IntelligenceCategory
	Label           UnifiedLabel
	Confidence      int
	TargetSubsystem Subsystem
	Detection       *ClassificationResult

	RequiresDecisionSheet bool
	DecisionSheetOptions  []string
	Acknowledgement       string
	Explanation           string

	PreventHistoryPollution bool
	// Clarified is set after the user resolves an ambiguous reading
	// through a decision sheet.
	Clarified bool

	Media     *MediaDetection
	Extracted map[string]string
	Polite    bool

	CreatedAt time.Time
}

// Validate checks the intent carries a usable classification
func (i *IntelligenceIntent) Validate() error {
	if err := i.Category.Validate(); err != nil {
		return err
	}
	if i.Confidence < 0 || i.Confidence > 100 {
		return goerr.New("confidence out of range", goerr.V("confidence", i.Confidence))
	}
	if len(i.DecisionSheetOptions) > MaxDecisionOptions {
		return goerr.New("too many decision options", goerr.V("count", len(i.DecisionSheetOptions)))
	}
	return nil
}

// Decision sheet sizing shared by the orchestrator and the UI contract.
const (
	MinDecisionOptions = 2
	MaxDecisionOptions = 5
)

type DecisionSheetID string

// NewDecisionSheetID generates a new unique DecisionSheetID
func NewDecisionSheetID() DecisionSheetID {
	return DecisionSheetID(uuid.New().String())
}

// DecisionSheetKind tells why the sheet is shown.
type DecisionSheetKind string

const (
	DecisionSheetDisambiguation DecisionSheetKind = "disambiguation"
	DecisionSheetConfirmation   DecisionSheetKind = "confirmation"
)

// DecisionSheet is the set of options presented when the assistant
// cannot act without the user choosing.
type DecisionSheet struct {
	ID         DecisionSheetID
	Kind       DecisionSheetKind
	Title      string
	Options    []string
	Cancelable bool
	IntentID   IntentID
	CreatedAt  time.Time
}

// DecisionSelection is the user's answer to a decision sheet.
type DecisionSelection struct {
	SheetID  DecisionSheetID
	Option   string
	Canceled bool
}

// Acknowledgement is a short transient confirmation bubble.
type Acknowledgement struct {
	Message  string
	Duration time.Duration
}
