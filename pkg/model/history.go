package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidInteraction = goerr.New("invalid interaction type")
)

// InteractionType classifies everything that can appear in the
// conversation stream, persistent or ephemeral.
type InteractionType string

const (
	InteractionUserPrompt         InteractionType = "user_prompt"
	InteractionAIResponse         InteractionType = "ai_response"
	InteractionTooltipHint        InteractionType = "tooltip_hint"
	InteractionDecisionSheet      InteractionType = "decision_sheet_interaction"
	InteractionAcknowledgement    InteractionType = "acknowledgement_bubble"
	InteractionNavigationAction   InteractionType = "navigation_action"
	InteractionContextMarker      InteractionType = "context_marker"
	InteractionSystemNotification InteractionType = "system_notification"
)

// Validate checks if the interaction type is a known one
func (t InteractionType) Validate() error {
	switch t {
	case InteractionUserPrompt, InteractionAIResponse, InteractionTooltipHint,
		InteractionDecisionSheet, InteractionAcknowledgement,
		InteractionNavigationAction, InteractionContextMarker, InteractionSystemNotification:
		return nil
	default:
		return goerr.Wrap(ErrInvalidInteraction, "unknown interaction type", goerr.V("type", string(t)))
	}
}

type HistoryItemID string

// NewHistoryItemID generates a new unique HistoryItemID
func NewHistoryItemID() HistoryItemID {
	return HistoryItemID(uuid.New().String())
}

// HistoryItem is one entry of the conversation stream.
type HistoryItem struct {
	ID       HistoryItemID
	Type     InteractionType
	Content  string
	IntentID IntentID
	// Saved marks items that passed the pollution filter and were
	// written to the durable conversation log.
	Saved     bool
	CreatedAt time.Time
}

// NewHistoryItem builds a history item with a fresh ID.
func NewHistoryItem(t InteractionType, content string) *HistoryItem {
	return &HistoryItem{
		ID:        NewHistoryItemID(),
		Type:      t,
		Content:   content,
		CreatedAt: time.Now(),
	}
}
