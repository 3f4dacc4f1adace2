package hint

import (
	"fmt"
	"time"

	"github.com/m-mizutani/canopy/pkg/model"
)

// Interaction contracts for the three assistant surfaces. The UI is
// expected to render exactly this, the validators catch drift.
const (
	TooltipMaxTextLen = 100

	AcknowledgementMinDuration = time.Second
	AcknowledgementMaxDuration = 5 * time.Second
)

// Violation describes one contract breach and how to fix it.
type Violation struct {
	Contract string
	Problem  string
	Fix      string
}

// ValidateDecisionSheet checks the sheet contract: slides up from the
// bottom with two to five options and always offers a way out.
func ValidateDecisionSheet(sheet *model.DecisionSheet) []Violation {
	var violations []Violation

	if len(sheet.Options) < model.MinDecisionOptions {
		violations = append(violations, Violation{
			Contract: "decision_sheet",
			Problem:  fmt.Sprintf("only %d option(s)", len(sheet.Options)),
			Fix:      fmt.Sprintf("offer at least %d choices or skip the sheet", model.MinDecisionOptions),
		})
	}
	if len(sheet.Options) > model.MaxDecisionOptions {
		violations = append(violations, Violation{
			Contract: "decision_sheet",
			Problem:  fmt.Sprintf("%d options exceed the sheet", len(sheet.Options)),
			Fix:      fmt.Sprintf("keep the %d best options", model.MaxDecisionOptions),
		})
	}
	if !sheet.Cancelable {
		violations = append(violations, Violation{
			Contract: "decision_sheet",
			Problem:  "sheet cannot be dismissed",
			Fix:      "set Cancelable, users must be able to back out",
		})
	}
	if sheet.Title == "" {
		violations = append(violations, Violation{
			Contract: "decision_sheet",
			Problem:  "sheet has no title",
			Fix:      "state what the user is deciding",
		})
	}

	return violations
}

// ValidateAcknowledgement checks the bubble contract: a short
// non-interactive flash at the top center.
func ValidateAcknowledgement(ack *model.Acknowledgement) []Violation {
	var violations []Violation

	if ack.Message == "" {
		violations = append(violations, Violation{
			Contract: "acknowledgement",
			Problem:  "empty message",
			Fix:      "say what just happened or drop the bubble",
		})
	}
	if ack.Duration < AcknowledgementMinDuration {
		violations = append(violations, Violation{
			Contract: "acknowledgement",
			Problem:  fmt.Sprintf("duration %s is below %s", ack.Duration, AcknowledgementMinDuration),
			Fix:      "give users enough time to read it",
		})
	}
	if ack.Duration > AcknowledgementMaxDuration {
		violations = append(violations, Violation{
			Contract: "acknowledgement",
			Problem:  fmt.Sprintf("duration %s exceeds %s", ack.Duration, AcknowledgementMaxDuration),
			Fix:      "long-lived feedback belongs in the conversation, not a bubble",
		})
	}

	return violations
}

// ValidateTooltip checks the hint tooltip contract.
func ValidateTooltip(hint *model.Hint) []Violation {
	var violations []Violation

	if hint.Text == "" {
		violations = append(violations, Violation{
			Contract: "tooltip",
			Problem:  "empty hint text",
			Fix:      "generate the text before showing the hint",
		})
	}
	if len(hint.Text) > TooltipMaxTextLen {
		violations = append(violations, Violation{
			Contract: "tooltip",
			Problem:  fmt.Sprintf("text length %d exceeds %d", len(hint.Text), TooltipMaxTextLen),
			Fix:      "tighten the wording, tooltips are glanceable",
		})
	}

	return violations
}

// NewAcknowledgement builds a bubble with the duration clamped into
// the contract range.
func NewAcknowledgement(message string, duration time.Duration) *model.Acknowledgement {
	if duration < AcknowledgementMinDuration {
		duration = AcknowledgementMinDuration
	}
	if duration > AcknowledgementMaxDuration {
		duration = AcknowledgementMaxDuration
	}
	return &model.Acknowledgement{
		Message:  message,
		Duration: duration,
	}
}
