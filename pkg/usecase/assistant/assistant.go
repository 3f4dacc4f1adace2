// Package assistant drives the utterance pipeline end to end. Each
// utterance is classified exactly once and that single reading feeds
// routing, execution, history filtering and the semantic event log.
package assistant

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/repository"
	"github.com/m-mizutani/canopy/pkg/ruleset"
	"github.com/m-mizutani/canopy/pkg/usecase/action"
	"github.com/m-mizutani/canopy/pkg/usecase/classify"
	"github.com/m-mizutani/canopy/pkg/usecase/hint"
	"github.com/m-mizutani/canopy/pkg/usecase/history"
	"github.com/m-mizutani/canopy/pkg/usecase/route"
	"github.com/m-mizutani/canopy/pkg/usecase/semantic"
	"github.com/m-mizutani/canopy/pkg/utils/logging"
)

var ErrNoOpenSheet = goerr.New("no open decision sheet")

const acknowledgementDuration = 2 * time.Second

// Assistant owns one conversation's pipeline state: the open decision
// sheet and the per-page visit counts feeding the hint engine. There
// is never more than one open sheet, a new one supersedes the old.
type Assistant struct {
	rules      *ruleset.Ruleset
	classifier *classify.Classifier
	router     *route.Router
	executor   *action.Executor
	history    *history.Recorder
	events     *semantic.Recorder
	summaries  *semantic.Summarizer
	hints      *hint.Engine
	repo       repository.Repository

	mu       sync.Mutex
	pending  *pendingDecision
	visits   map[model.Subsystem]int
	lastPage model.Subsystem
}

// pendingDecision parks an intent behind the sheet waiting for its
// answer.
type pendingDecision struct {
	sheet  *model.DecisionSheet
	intent *model.IntelligenceIntent
	ui     *model.UIContext
}

// NewInput bundles the pipeline stages. Rules, Classifier, Router and
// Executor are required, the rest degrade gracefully when absent.
type NewInput struct {
	Rules      *ruleset.Ruleset
	Classifier *classify.Classifier
	Router     *route.Router
	Executor   *action.Executor
	History    *history.Recorder
	Events     *semantic.Recorder
	Summaries  *semantic.Summarizer
	Hints      *hint.Engine
	Repo       repository.Repository
}

// New creates an assistant from the given pipeline stages
func New(input NewInput) (*Assistant, error) {
	if input.Rules == nil {
		return nil, goerr.New("ruleset is required")
	}
	if input.Classifier == nil {
		return nil, goerr.New("classifier is required")
	}
	if input.Router == nil {
		return nil, goerr.New("router is required")
	}
	if input.Executor == nil {
		return nil, goerr.New("executor is required")
	}

	return &Assistant{
		rules:      input.Rules,
		classifier: input.Classifier,
		router:     input.Router,
		executor:   input.Executor,
		history:    input.History,
		events:     input.Events,
		summaries:  input.Summaries,
		hints:      input.Hints,
		repo:       input.Repo,
		visits:     map[model.Subsystem]int{},
	}, nil
}

// Turn is everything one utterance or decision produced. A non-nil
// Sheet means the assistant is waiting for the user before acting.
type Turn struct {
	Intent          *model.IntelligenceIntent
	Routing         *model.RoutingDecision
	Result          *model.ActionResult
	Sheet           *model.DecisionSheet
	Acknowledgement *model.Acknowledgement
	Hints           []model.Hint
	Events          []*model.SemanticEvent
}

// HandleUtterance runs the pipeline for one user input. The returned
// turn carries either a result or a decision sheet to answer first.
// Downstream failures come back as an apologetic result, not an
// error, so the conversation survives them.
func (a *Assistant) HandleUtterance(ctx context.Context, utterance *model.Utterance, ui *model.UIContext) (*Turn, error) {
	if ui == nil {
		ui = &model.UIContext{}
	}
	a.trackVisit(ui)

	intent, err := a.classifier.Classify(ctx, utterance, ui)
	if err != nil {
		return nil, goerr.Wrap(err, "cannot handle utterance")
	}

	turn := &Turn{Intent: intent}
	a.record(ctx, model.InteractionUserPrompt, utterance.Text, intent)

	turn.Routing = a.router.Route(ctx, intent)

	if msg := intent.Acknowledgement; msg != "" {
		turn.Acknowledgement = hint.NewAcknowledgement(msg, acknowledgementDuration)
		a.record(ctx, model.InteractionAcknowledgement, msg, intent)
	}

	if intent.RequiresDecisionSheet {
		turn.Sheet = a.openSheet(ctx, intent, ui)
		turn.Hints = a.emitHints(ctx, intent, ui)
		return turn, nil
	}

	if executable(intent.Label) {
		confirmation, err := a.executor.NeedsConfirmation(ctx, intent, ui)
		if err != nil {
			logging.From(ctx).Warn("confirmation check failed", "error", err, "intent_id", intent.ID)
			turn.Result = apologize()
			turn.Hints = a.emitHints(ctx, intent, ui)
			return turn, nil
		}
		if confirmation != nil {
			options := padOptions(classify.ConversionOptions(intent.Label))
			turn.Sheet = a.open(ctx, intent, ui, model.DecisionSheetConfirmation, confirmation.Message, options)
			turn.Hints = a.emitHints(ctx, intent, ui)
			return turn, nil
		}

		result, err := a.executor.Execute(ctx, intent, ui)
		if err != nil {
			logging.From(ctx).Warn("execution failed", "error", err, "intent_id", intent.ID)
			turn.Result = apologize()
			turn.Hints = a.emitHints(ctx, intent, ui)
			return turn, nil
		}
		turn.Result = result
		a.record(ctx, model.InteractionAIResponse, result.Message, intent)
		if result.Success && !result.Duplicate {
			turn.Events = a.recordEvents(ctx, intent, result, ui)
		}
		turn.Hints = a.emitHints(ctx, intent, ui)
		return turn, nil
	}

	// Conversational, media and navigation turns mutate nothing. The
	// event log still notes them for the summaries.
	turn.Events = a.recordEvents(ctx, intent, nil, ui)
	turn.Hints = a.emitHints(ctx, intent, ui)
	return turn, nil
}

// HandleDecision resolves the open decision sheet with the user's
// selection and resumes the parked intent. Selections referring to an
// already superseded sheet fail with ErrNoOpenSheet.
func (a *Assistant) HandleDecision(ctx context.Context, selection *model.DecisionSelection) (*Turn, error) {
	a.mu.Lock()
	pending := a.pending
	if pending != nil && pending.sheet.ID == selection.SheetID {
		a.pending = nil
	} else {
		pending = nil
	}
	a.mu.Unlock()

	if pending == nil {
		return nil, goerr.Wrap(ErrNoOpenSheet, "selection does not match the open sheet",
			goerr.V("sheet_id", selection.SheetID))
	}

	intent := clarified(pending.intent)
	ui := pending.ui
	turn := &Turn{Intent: intent}

	if selection.Canceled || selection.Option == "Cancel" {
		a.record(ctx, model.InteractionDecisionSheet, "canceled: "+pending.sheet.Title, intent)
		turn.Result = &model.ActionResult{Success: true, Message: "Okay, never mind"}
		return turn, nil
	}

	option := selection.Option
	a.record(ctx, model.InteractionDecisionSheet, "selected: "+option, intent)

	// Clarification requests keep the conversation open instead of
	// acting on a guess.
	if option == "Clarify what you meant" || option == "Tell me more" {
		turn.Result = &model.ActionResult{Success: true, Message: "Tell me a bit more about what you need"}
		return turn, nil
	}

	if strings.HasPrefix(option, "Stay") {
		if executable(intent.Label) {
			return a.finishExecution(ctx, intent, ui, option, turn), nil
		}
		turn.Result = &model.ActionResult{Success: true, Message: "Staying put"}
		return turn, nil
	}

	// Conversion options are checked before place names: "Convert to
	// note" mentions a page but means the action, not the navigation.
	if executable(intent.Label) && isConversionOption(intent.Label, option) {
		return a.finishExecution(ctx, intent, ui, option, turn), nil
	}

	if sub, hits := a.rules.BestSubsystem(option); hits > 0 {
		turn.Routing = &model.RoutingDecision{
			Destination: model.DestinationFor(sub),
			Confidence:  intent.Confidence,
			Reason:      "user selected " + option,
		}
		a.record(ctx, model.InteractionNavigationAction, option, intent)
		turn.Events = a.recordEvents(ctx, intent, nil, ui)
		turn.Hints = a.emitHints(ctx, intent, ui)
		return turn, nil
	}

	if executable(intent.Label) {
		return a.finishExecution(ctx, intent, ui, option, turn), nil
	}

	turn.Result = &model.ActionResult{Success: true, Message: "Okay"}
	return turn, nil
}

// Pending returns the sheet currently waiting for an answer, nil when
// the assistant is free to act.
func (a *Assistant) Pending() *model.DecisionSheet {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return nil
	}
	return a.pending.sheet
}

func (a *Assistant) finishExecution(ctx context.Context, intent *model.IntelligenceIntent, ui *model.UIContext, option string, turn *Turn) *Turn {
	result, err := a.executor.ExecuteWithConfirmation(ctx, intent, ui, option)
	if err != nil {
		logging.From(ctx).Warn("confirmed execution failed", "error", err, "intent_id", intent.ID)
		turn.Result = apologize()
		return turn
	}
	turn.Result = result
	turn.Routing = a.router.Route(ctx, intent)
	a.record(ctx, model.InteractionAIResponse, result.Message, intent)
	if result.Success && !result.Duplicate {
		turn.Events = a.recordEvents(ctx, intent, result, ui)
	}
	turn.Hints = a.emitHints(ctx, intent, ui)
	return turn
}

// openSheet builds the disambiguation sheet the classifier asked for.
// Intents whose only open question is "should I really do this" get a
// confirmation sheet instead.
func (a *Assistant) openSheet(ctx context.Context, intent *model.IntelligenceIntent, ui *model.UIContext) *model.DecisionSheet {
	kind := model.DecisionSheetDisambiguation
	title := "What did you mean?"
	switch {
	case intent.Category == model.CategoryMediaAction:
		title = "Where should the capture go?"
	case intent.Category == model.CategoryNavigation:
		title = "Switch pages?"
	case intent.Category == model.CategoryNeedsDecision:
		title = "You're looking at a different page"
	case intent.Category == model.CategoryAmbiguous:
		title = "What did you mean?"
	case executable(intent.Label):
		kind = model.DecisionSheetConfirmation
		title = "Just to confirm"
	}
	return a.open(ctx, intent, ui, kind, title, padOptions(intent.DecisionSheetOptions))
}

func (a *Assistant) open(ctx context.Context, intent *model.IntelligenceIntent, ui *model.UIContext, kind model.DecisionSheetKind, title string, options []string) *model.DecisionSheet {
	sheet := &model.DecisionSheet{
		ID:         model.NewDecisionSheetID(),
		Kind:       kind,
		Title:      title,
		Options:    options,
		Cancelable: true,
		IntentID:   intent.ID,
		CreatedAt:  time.Now(),
	}
	for _, violation := range hint.ValidateDecisionSheet(sheet) {
		logging.From(ctx).Warn("decision sheet violates the surface contract",
			"problem", violation.Problem, "fix", violation.Fix)
	}

	a.mu.Lock()
	superseded := a.pending != nil
	a.pending = &pendingDecision{sheet: sheet, intent: intent, ui: ui}
	a.mu.Unlock()
	if superseded {
		logging.From(ctx).Debug("superseded the previous decision sheet", "sheet_id", sheet.ID)
	}

	a.record(ctx, model.InteractionDecisionSheet, title, intent)
	return sheet
}

func (a *Assistant) record(ctx context.Context, t model.InteractionType, content string, intent *model.IntelligenceIntent) {
	if a.history == nil {
		return
	}
	if _, err := a.history.Record(ctx, model.NewHistoryItem(t, content), intent); err != nil {
		logging.From(ctx).Warn("failed to record history item", "error", err, "type", t)
	}
}

func (a *Assistant) recordEvents(ctx context.Context, intent *model.IntelligenceIntent, result *model.ActionResult, ui *model.UIContext) []*model.SemanticEvent {
	if a.events == nil {
		return nil
	}
	events := a.events.RecordIntent(ctx, semantic.IntentRecord{
		Intent:    intent,
		Detection: intent.Detection,
		Result:    result,
		UI:        ui,
	})
	if a.summaries != nil {
		for _, event := range events {
			a.summaries.ApplyEvent(event)
		}
	}
	return events
}

func (a *Assistant) emitHints(ctx context.Context, intent *model.IntelligenceIntent, ui *model.UIContext) []model.Hint {
	if a.hints == nil {
		return nil
	}
	return a.hints.OnContextChange(ctx, &hint.Context{
		UI:          ui,
		Intent:      intent,
		Visits:      a.visitsSnapshot(),
		ItemCount:   a.itemCount(ctx, ui),
		StormActive: a.events != nil && a.events.Storm(),
	})
}

func (a *Assistant) itemCount(ctx context.Context, ui *model.UIContext) int {
	if a.repo == nil {
		return 0
	}
	var kind model.ItemKind
	switch ui.CurrentPage {
	case model.SubsystemTasks:
		kind = model.ItemKindTask
	case model.SubsystemNotes:
		kind = model.ItemKindNote
	case model.SubsystemProjects:
		kind = model.ItemKindProject
	default:
		return 0
	}
	items, err := a.repo.ListItems(ctx, kind, ui.ActiveProjectID, 0)
	if err != nil {
		logging.From(ctx).Warn("failed to count items for hints", "error", err)
		return 0
	}
	return len(items)
}

func (a *Assistant) trackVisit(ui *model.UIContext) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ui.CurrentPage != a.lastPage {
		a.visits[ui.CurrentPage]++
		a.lastPage = ui.CurrentPage
	}
}

func (a *Assistant) visitsSnapshot() map[model.Subsystem]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[model.Subsystem]int, len(a.visits))
	for page, n := range a.visits {
		out[page] = n
	}
	return out
}

// clarified marks the parked intent as resolved by a human decision,
// which also lets an ambiguous turn into the persisted history.
func clarified(intent *model.IntelligenceIntent) *model.IntelligenceIntent {
	next := *intent
	next.Clarified = true
	return &next
}

// executable reports whether the executor has a handler for the label.
func executable(label model.UnifiedLabel) bool {
	switch label {
	case model.LabelCreateTask, model.LabelVoiceTask, model.LabelCompleteTask,
		model.LabelUpdateItem, model.LabelDeleteItem, model.LabelCreateNote,
		model.LabelDictation, model.LabelVoiceNote, model.LabelCreateProject,
		model.LabelQueryItems:
		return true
	default:
		return false
	}
}

func isConversionOption(label model.UnifiedLabel, option string) bool {
	if option == "Go ahead" {
		return true
	}
	for _, candidate := range classify.ConversionOptions(label) {
		if candidate == option {
			return true
		}
	}
	return false
}

// padOptions tops a short option list up to the sheet minimum.
func padOptions(options []string) []string {
	out := append([]string{}, options...)
	for _, extra := range []string{"Go ahead", "Cancel"} {
		if len(out) >= model.MinDecisionOptions {
			break
		}
		seen := false
		for _, existing := range out {
			if existing == extra {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, extra)
		}
	}
	return out
}

// apologize is the user-facing shape of an infrastructure failure.
func apologize() *model.ActionResult {
	return &model.ActionResult{
		Success: false,
		Message: "Sorry, something went wrong on my side. Nothing was changed, please try again.",
	}
}
