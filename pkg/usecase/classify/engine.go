package classify

import (
	"math"
	"regexp"
	"strings"

	"github.com/m-mizutani/canopy/pkg/model"
)

// Engine assigns one unified label to an utterance. Voice input goes
// through ordered pattern matching with a generous confidence base,
// typed input through coverage scoring with per-label ceilings. Both
// paths share the same label set so downstream code never cares which
// path ran.
type Engine struct {
	voice []voicePattern
	text  []textPattern
}

type voicePattern struct {
	label  model.UnifiedLabel
	re     *regexp.Regexp
	adjust int
}

type textPattern struct {
	label   model.UnifiedLabel
	re      *regexp.Regexp
	ceiling int
}

const (
	voiceBase        = 85
	chatConfidence   = 30
	politeTrimLimit  = 3
	confirmThreshold = 80
)

// NewEngine builds the engine with its built-in pattern tables.
func NewEngine() *Engine {
	return &Engine{
		voice: []voicePattern{
			{model.LabelDictation, regexp.MustCompile(`(?i)^(start )?(dictation|dictate|take this down)\b\s*(.*)$`), 5},
			{model.LabelVoiceTask, regexp.MustCompile(`(?i)^(remind me to|remind me|add a task to|add a task|create a task to|create a task|new task)\b\s*(.*)$`), 4},
			{model.LabelVoiceNote, regexp.MustCompile(`(?i)^(make a note|add a note|note that|remember that|write down)\b\s*(.*)$`), 4},
			{model.LabelCompleteTask, regexp.MustCompile(`(?i)^(mark|complete|finish|check off)\b\s*(.*)$`), 2},
			{model.LabelDeleteItem, regexp.MustCompile(`(?i)^(delete|remove|discard)\b\s*(.*)$`), 0},
			{model.LabelMediaCapture, regexp.MustCompile(`(?i)^(take|snap)( a)? (photo|picture|snapshot)\b\s*(.*)$`), 0},
			{model.LabelCreateProject, regexp.MustCompile(`(?i)^(create|start|new)( a)? project\b\s*(.*)$`), 2},
			{model.LabelNavigate, regexp.MustCompile(`(?i)^(go to|open|switch to|take me to)\b\s*(.*)$`), -2},
			{model.LabelQueryItems, regexp.MustCompile(`(?i)^(what is|what are|which|list|show|how many|find|search)\b\s*(.*)$`), 0},
		},
		text: []textPattern{
			{model.LabelCreateProject, regexp.MustCompile(`(?i)^(create|start|new)( a)? project\b\s*(.*)$`), 95},
			{model.LabelDeleteItem, regexp.MustCompile(`(?i)^(delete|remove|discard|erase)\b\s*(.*)$`), 92},
			{model.LabelCreateTask, regexp.MustCompile(`(?i)^(remind me to|remind me|add a task to|add a task|create a task to|create a task|new task|remember to)\b\s*(.*)$`), 90},
			{model.LabelCompleteTask, regexp.MustCompile(`(?i)^(mark|complete|finish|check off|done with)\b\s*(.*)$`), 90},
			{model.LabelCreateNote, regexp.MustCompile(`(?i)^(make a note|add a note|note that|write down|jot down)\b\s*(.*)$`), 90},
			{model.LabelMediaCapture, regexp.MustCompile(`(?i)^(take|snap)( a)? (photo|picture|snapshot)\b\s*(.*)$`), 90},
			{model.LabelUpdateItem, regexp.MustCompile(`(?i)^(update|change|rename|edit|reschedule)\b\s*(.*)$`), 88},
			{model.LabelCreateReport, regexp.MustCompile(`(?i)^(generate|create|build)( a| the)? report\b\s*(.*)$`), 88},
			{model.LabelDictation, regexp.MustCompile(`(?i)^(start )?(dictation|dictate)\b\s*(.*)$`), 85},
			{model.LabelQueryItems, regexp.MustCompile(`(?i)^(what is|what are|which|list|show( me)?|how many|find|search)\b\s*(.*)$`), 85},
			{model.LabelNavigate, regexp.MustCompile(`(?i)^(go to|open|switch to|take me to|navigate to)\b\s*(.*)$`), 85},
			{model.LabelHelp, regexp.MustCompile(`(?i)^(help|how do i|what can you do)\b\s*(.*)$`), 80},
		},
	}
}

// Classify assigns a unified label with a 0..100 confidence.
func (e *Engine) Classify(utt *model.Utterance) *model.UnifiedResult {
	stripped, polite := trimPoliteness(utt.Text)

	var result *model.UnifiedResult
	if utt.Source == model.SourceVoice {
		result = e.classifyVoice(stripped)
	}
	if result == nil {
		result = e.classifyText(stripped)
	}

	result.Source = utt.Source
	result.Polite = polite
	result.RequiresConfirmation = result.Label.Mutating() && result.Confidence < confirmThreshold
	result.ConversionOptions = ConversionOptions(result.Label)
	return result
}

// classifyVoice walks the ordered voice patterns and takes the first
// match. Returns nil when nothing matches so the text path can try.
func (e *Engine) classifyVoice(text string) *model.UnifiedResult {
	for _, p := range e.voice {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		confidence := voiceBase + p.adjust
		if len(strings.Fields(text)) >= 3 {
			confidence += 5
		}
		if hasTerminalPunct(text) {
			confidence += 5
		}
		confidence += min(len(text)/40, 5)
		if confidence > 100 {
			confidence = 100
		}
		return &model.UnifiedResult{
			Label:      p.label,
			Confidence: confidence,
			Extracted:  extract(p.label, m[len(m)-1]),
		}
	}
	return nil
}

// classifyText scores every pattern by how much of the utterance it
// covers and keeps the best capped score.
func (e *Engine) classifyText(text string) *model.UnifiedResult {
	best := &model.UnifiedResult{
		Label:      model.LabelChat,
		Confidence: chatConfidence,
	}
	bestScore := 0

	for _, p := range e.text {
		m := p.re.FindStringSubmatch(text)
		if m == nil || len(text) == 0 {
			continue
		}
		coverage := float64(len(m[0])) / float64(len(text))
		score := int(math.Round(coverage * 100))
		if score > p.ceiling {
			score = p.ceiling
		}
		if score > bestScore {
			bestScore = score
			best = &model.UnifiedResult{
				Label:      p.label,
				Confidence: score,
				Extracted:  extract(p.label, m[len(m)-1]),
			}
		}
	}

	return best
}

// extract pulls the structured payload out of the text that followed
// the trigger phrase.
func extract(label model.UnifiedLabel, rest string) map[string]string {
	rest = strings.TrimSpace(strings.Trim(strings.TrimSpace(rest), ".!?"))
	if rest == "" {
		return nil
	}

	switch label {
	case model.LabelCreateTask, model.LabelVoiceTask:
		return map[string]string{"title": rest}
	case model.LabelCompleteTask:
		rest = strings.TrimSuffix(rest, " as done")
		rest = strings.TrimSuffix(rest, " done")
		return map[string]string{"title": strings.TrimSpace(rest)}
	case model.LabelCreateNote, model.LabelVoiceNote, model.LabelDictation:
		return map[string]string{"content": rest}
	case model.LabelCreateProject:
		rest = strings.TrimPrefix(rest, "called ")
		rest = strings.TrimPrefix(rest, "named ")
		return map[string]string{"name": strings.TrimSpace(rest)}
	case model.LabelQueryItems:
		return map[string]string{"query": rest}
	case model.LabelNavigate:
		return map[string]string{"target": rest}
	case model.LabelUpdateItem, model.LabelDeleteItem:
		return map[string]string{"target": rest}
	default:
		return nil
	}
}

// ConversionOptions lists the alternative readings offered when an
// action of the given label needs explicit confirmation.
func ConversionOptions(label model.UnifiedLabel) []string {
	switch label {
	case model.LabelCreateTask, model.LabelVoiceTask:
		return []string{"Create the task", "Convert to note", "Set a due date"}
	case model.LabelCreateNote, model.LabelVoiceNote:
		return []string{"Save the note", "Convert to task"}
	case model.LabelDictation:
		return []string{"Save as note", "Convert to task"}
	case model.LabelCreateProject:
		return []string{"Create the project", "Create from template"}
	case model.LabelDeleteItem:
		return []string{"Archive instead", "Delete permanently"}
	case model.LabelCompleteTask:
		return []string{"Mark as done", "Keep it open"}
	default:
		return nil
	}
}

// trimPoliteness strips a few leading or trailing courtesy phrases so
// pattern matching sees the command itself. The markers are reported
// but never change how strictly an action is confirmed.
func trimPoliteness(text string) (string, bool) {
	stripped := strings.TrimSpace(text)
	polite := false

	prefixes := []string{"please ", "could you ", "would you ", "can you ", "kindly "}
	for i := 0; i < politeTrimLimit; i++ {
		trimmed := false
		lower := strings.ToLower(stripped)
		for _, p := range prefixes {
			if strings.HasPrefix(lower, p) {
				stripped = strings.TrimSpace(stripped[len(p):])
				lower = strings.ToLower(stripped)
				polite = true
				trimmed = true
			}
		}
		if !trimmed {
			break
		}
	}

	lower := strings.ToLower(stripped)
	for _, suffix := range []string{" please", " please.", " please!", " thanks", " thank you"} {
		if strings.HasSuffix(lower, suffix) {
			stripped = strings.TrimSpace(stripped[:len(stripped)-len(suffix)])
			polite = true
			break
		}
	}

	return stripped, polite
}

func hasTerminalPunct(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	switch t[len(t)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}
