package hint

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/utils/logging"
)

const (
	defaultLimit = 3
	defaultTTL   = 30 * time.Minute
)

// Engine evaluates the rule table on every context change and caps
// what actually reaches the screen.
type Engine struct {
	rules []Rule
	limit int
	ttl   time.Duration
	now   func() time.Time

	mu     sync.Mutex
	state  map[string]*ruleState
	active []*model.Hint
}

type ruleState struct {
	shows     int
	lastShown time.Time
	actedUpon bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimit overrides how many hints may be visible at once.
func WithLimit(limit int) Option {
	return func(e *Engine) {
		e.limit = limit
	}
}

// WithTTL overrides how long a hint stays on screen.
func WithTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.ttl = ttl
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine builds an engine over a rule table.
func NewEngine(rules []Rule, opts ...Option) *Engine {
	e := &Engine{
		rules: rules,
		limit: defaultLimit,
		ttl:   defaultTTL,
		now:   time.Now,
		state: map[string]*ruleState{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnContextChange runs every rule against the new context and returns
// the hints that made it onto the screen. Rules on cooldown, over
// their show budget or already acted upon stay silent. Higher
// priority wins the free slots, duplicates of visible hints are
// dropped.
func (e *Engine) OnContextChange(ctx context.Context, hctx *Context) []model.Hint {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.expire(now)

	type candidate struct {
		rule Rule
		text string
	}
	var candidates []candidate
	for _, rule := range e.rules {
		state := e.state[rule.ID]
		if state != nil {
			if state.actedUpon {
				continue
			}
			if rule.MaxShows > 0 && state.shows >= rule.MaxShows {
				continue
			}
			if rule.Cooldown > 0 && now.Sub(state.lastShown) < rule.Cooldown {
				continue
			}
		}
		if !rule.Condition(hctx) {
			continue
		}
		candidates = append(candidates, candidate{rule: rule, text: rule.Generate(hctx)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].rule.Priority > candidates[j].rule.Priority
	})

	var shown []model.Hint
	for _, cand := range candidates {
		if len(e.active) >= e.limit {
			break
		}
		if e.visibleDuplicate(cand.text, cand.rule.Category) {
			continue
		}

		hint := &model.Hint{
			ID:        model.NewHintID(),
			RuleID:    cand.rule.ID,
			Text:      cand.text,
			Category:  cand.rule.Category,
			Priority:  cand.rule.Priority,
			CreatedAt: now,
			ExpiresAt: now.Add(e.ttl),
		}
		for _, violation := range ValidateTooltip(hint) {
			logging.From(ctx).Warn("hint violates the tooltip contract",
				"rule", cand.rule.ID, "problem", violation.Problem, "fix", violation.Fix)
		}
		e.active = append(e.active, hint)
		shown = append(shown, *hint)

		state := e.state[cand.rule.ID]
		if state == nil {
			state = &ruleState{}
			e.state[cand.rule.ID] = state
		}
		state.shows++
		state.lastShown = now
	}

	if len(shown) > 0 {
		logging.From(ctx).Debug("hints shown", "count", len(shown), "visible", len(e.active))
	}
	return shown
}

// Active returns the currently visible hints.
func (e *Engine) Active() []model.Hint {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.expire(e.now())
	out := make([]model.Hint, 0, len(e.active))
	for _, hint := range e.active {
		out = append(out, *hint)
	}
	return out
}

// Dismiss hides a hint without touching the rule's show budget.
func (e *Engine) Dismiss(id model.HintID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remove(id) != nil
}

// MarkActedUpon hides a hint and retires its rule for the session:
// the user got the message.
func (e *Engine) MarkActedUpon(id model.HintID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	hint := e.remove(id)
	if hint == nil {
		return false
	}
	state := e.state[hint.RuleID]
	if state == nil {
		state = &ruleState{}
		e.state[hint.RuleID] = state
	}
	state.actedUpon = true
	return true
}

func (e *Engine) expire(now time.Time) {
	kept := e.active[:0]
	for _, hint := range e.active {
		if !hint.Expired(now) {
			kept = append(kept, hint)
		}
	}
	e.active = kept
}

func (e *Engine) visibleDuplicate(text string, category model.HintCategory) bool {
	for _, hint := range e.active {
		if hint.Text == text && hint.Category == category {
			return true
		}
	}
	return false
}

func (e *Engine) remove(id model.HintID) *model.Hint {
	for i, hint := range e.active {
		if hint.ID == id {
			e.active = append(e.active[:i], e.active[i+1:]...)
			return hint
		}
	}
	return nil
}
