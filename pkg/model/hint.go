package model

import (
	"time"

	"github.com/google/uuid"
)

// HintPriority orders hints when more can fire than the screen allows.
type HintPriority int

const (
	HintPriorityLow HintPriority = iota
	HintPriorityMedium
	HintPriorityHigh
)

// String returns the priority name for logs.
func (p HintPriority) String() string {
	switch p {
	case HintPriorityHigh:
		return "high"
	case HintPriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// HintCategory groups hints so duplicates can be suppressed.
type HintCategory string

const (
	HintCategoryOnboarding HintCategory = "onboarding"
	HintCategoryMismatch   HintCategory = "mismatch"
	HintCategoryVoice      HintCategory = "voice"
	HintCategorySummary    HintCategory = "summary"
	HintCategoryWorkload   HintCategory = "workload"
)

type HintID string

// NewHintID generates a new unique HintID
func NewHintID() HintID {
	return HintID(uuid.New().String())
}

// Hint is a proactive suggestion rendered as a small tooltip.
type Hint struct {
	ID       HintID
	RuleID   string
	Text     string
	Category HintCategory
	Priority HintPriority

	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the hint passed its display window.
func (h *Hint) Expired(now time.Time) bool {
	return now.After(h.ExpiresAt)
}
