// Package action executes classified intents against the item store,
// guarded by a fixed sequence of safety rules.
package action

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/canopy/pkg/adapter"
	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/repository"
	"github.com/m-mizutani/canopy/pkg/ruleset"
	"github.com/m-mizutani/canopy/pkg/utils/logging"
)

var (
	ErrUnsupportedIntent = goerr.New("intent cannot be executed")
)

// Executor runs the write and query side of the assistant. It never
// executes a mutating intent before the safety rules and the optional
// Rego policy had their say.
type Executor struct {
	repo   repository.Repository
	rules  *ruleset.Ruleset
	policy *Policy
	media  adapter.Storage
	now    func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithPolicy attaches a Rego confirmation policy.
func WithPolicy(policy *Policy) Option {
	return func(x *Executor) {
		x.policy = policy
	}
}

// WithMediaStorage attaches blob storage for voice note transcripts.
func WithMediaStorage(media adapter.Storage) Option {
	return func(x *Executor) {
		x.media = media
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(x *Executor) {
		x.now = now
	}
}

// New creates an executor over the given repository.
func New(repo repository.Repository, rules *ruleset.Ruleset, opts ...Option) *Executor {
	x := &Executor{
		repo:  repo,
		rules: rules,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// NeedsConfirmation checks the ordered safety rules, then the Rego
// policy. The policy can add a confirmation but cannot drop one, so
// a permissive policy never weakens the built-in rules.
func (x *Executor) NeedsConfirmation(ctx context.Context, intent *model.IntelligenceIntent, ui *model.UIContext) (*Confirmation, error) {
	if confirmation := checkConfirmation(intent, ui, x.rules); confirmation != nil {
		logging.From(ctx).Debug("confirmation required",
			"intent_id", intent.ID,
			"reason", confirmation.Reason,
		)
		return confirmation, nil
	}

	confirmation, err := x.policy.Require(ctx, intent, ui)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate confirmation policy")
	}
	if confirmation != nil {
		logging.From(ctx).Debug("confirmation required by policy", "intent_id", intent.ID)
	}
	return confirmation, nil
}

// Execute performs the intent. Callers are expected to have passed
// NeedsConfirmation first; Execute itself only guards against
// duplicates because that check needs a storage lookup.
func (x *Executor) Execute(ctx context.Context, intent *model.IntelligenceIntent, ui *model.UIContext) (*model.ActionResult, error) {
	switch intent.Label {
	case model.LabelCreateTask, model.LabelVoiceTask:
		return x.createTask(ctx, intent, ui)
	case model.LabelCompleteTask:
		return x.completeTask(ctx, intent, ui)
	case model.LabelUpdateItem:
		return x.updateItem(ctx, intent, ui)
	case model.LabelDeleteItem:
		return x.deleteItem(ctx, intent, ui)
	case model.LabelCreateNote, model.LabelDictation:
		return x.createNote(ctx, intent, ui)
	case model.LabelVoiceNote:
		return x.createVoiceNote(ctx, intent, ui)
	case model.LabelCreateProject:
		return x.createProject(ctx, intent)
	case model.LabelQueryItems:
		return x.queryItems(ctx, intent, ui)
	default:
		return nil, goerr.Wrap(ErrUnsupportedIntent, "no handler for label",
			goerr.V("label", intent.Label), goerr.V("category", intent.Category))
	}
}

// ExecuteWithConfirmation resumes an intent after the user picked an
// option on a confirmation sheet. The option may convert the intent
// into a neighbouring action before dispatch: a task into a note, a
// deletion into a close. The safety rules are not evaluated again
// because the user already decided.
func (x *Executor) ExecuteWithConfirmation(ctx context.Context, intent *model.IntelligenceIntent, ui *model.UIContext, option string) (*model.ActionResult, error) {
	resolved, short := applyOption(intent, option)
	if short != nil {
		return short, nil
	}

	logging.From(ctx).Debug("executing confirmed intent",
		"intent_id", resolved.ID,
		"option", option,
		"label", resolved.Label,
	)
	return x.Execute(ctx, resolved, ui)
}

// applyOption rewrites the intent according to the chosen conversion
// option. Affirmative and unknown options pass the intent through
// unchanged. A non-nil ActionResult short-circuits execution.
func applyOption(intent *model.IntelligenceIntent, option string) (*model.IntelligenceIntent, *model.ActionResult) {
	switch option {
	case "Convert to note", "Save as note":
		next := cloneIntent(intent)
		next.Label = model.LabelCreateNote
		next.TargetSubsystem = model.SubsystemNotes
		if next.Extracted["content"] == "" {
			next.Extracted["content"] = firstNonEmpty(next.Extracted["title"], utteranceText(intent))
		}
		return next, nil

	case "Convert to task":
		next := cloneIntent(intent)
		next.Label = model.LabelCreateTask
		next.TargetSubsystem = model.SubsystemTasks
		if next.Extracted["title"] == "" {
			next.Extracted["title"] = firstNonEmpty(next.Extracted["content"], utteranceText(intent))
		}
		return next, nil

	case "Archive instead":
		// The store keeps no separate archive state, so archiving a
		// task means closing it: the record survives and drops out of
		// the open list without a destructive write.
		next := cloneIntent(intent)
		next.Label = model.LabelCompleteTask
		if next.Extracted["title"] == "" {
			next.Extracted["title"] = next.Extracted["target"]
		}
		return next, nil

	case "Keep it open":
		return nil, &model.ActionResult{
			Success: true,
			Message: "Okay, leaving it open",
		}

	default:
		return cloneIntent(intent), nil
	}
}

// cloneIntent copies the intent so option handling never mutates the
// caller's value. The copy is marked clarified.
func cloneIntent(intent *model.IntelligenceIntent) *model.IntelligenceIntent {
	next := *intent
	next.Clarified = true
	next.Extracted = make(map[string]string, len(intent.Extracted))
	for k, v := range intent.Extracted {
		next.Extracted[k] = v
	}
	return &next
}

func utteranceText(intent *model.IntelligenceIntent) string {
	if intent.Utterance == nil {
		return ""
	}
	return intent.Utterance.Text
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
