package assistant

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"

	"github.com/m-mizutani/canopy/pkg/adapter"
	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/tool"
	"github.com/m-mizutani/canopy/pkg/usecase/history"
	"github.com/m-mizutani/canopy/pkg/utils/logging"
)

// Window sizing. When the serialized turn history outgrows the byte
// budget, the oldest turns are folded into a single context marker so
// the model keeps long-range context without unbounded growth. The
// newest turns within the keep share stay verbatim.
const (
	defaultWindowBudget = 16 * 1024
	windowKeepRatio     = 0.3

	markerLineLimit = 120
	markerMaxLines  = 20

	maxToolRounds = 4
)

// Session is one running conversation with the model for global
// turns. It keeps its own in-memory context window. Durable history
// is the recorder's business, the session only files a context marker
// there when it folds old turns away.
type Session struct {
	gemini  adapter.Gemini
	tools   *tool.Registry
	history *history.Recorder
	budget  int

	mu          sync.Mutex
	contents    []*genai.Content
	markerLines []string
	cancel      context.CancelFunc
	gen         int
}

// SessionInput configures a conversation session. Gemini is required.
type SessionInput struct {
	Gemini  adapter.Gemini
	Tools   *tool.Registry
	History *history.Recorder

	// WindowBudget is the serialized byte budget for retained turns,
	// zero means the default.
	WindowBudget int
}

// NewSession creates a conversation session for global turns
func NewSession(input SessionInput) (*Session, error) {
	if input.Gemini == nil {
		return nil, goerr.New("gemini client is required")
	}
	budget := input.WindowBudget
	if budget <= 0 {
		budget = defaultWindowBudget
	}
	return &Session{
		gemini:  input.Gemini,
		tools:   input.Tools,
		history: input.History,
		budget:  budget,
	}, nil
}

// Send runs one conversational turn under the given system prompt. A
// new call cancels any model call still in flight from the previous
// turn, the newest utterance always wins.
func (s *Session) Send(ctx context.Context, systemPrompt, message string) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.compactLocked(ctx)
	userContent := genai.NewContentFromText(message, genai.RoleUser)
	contents := append(s.windowLocked(), userContent)
	s.mu.Unlock()

	reply, modelContent, err := s.generate(ctx, systemPrompt, contents)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.cancel = nil
	}
	if err != nil {
		// Canceled and failed turns leave the window untouched.
		return "", err
	}
	if s.gen == gen {
		s.contents = append(s.contents, userContent, modelContent)
	}
	return reply, nil
}

// Close cancels any model call still in flight.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// generate drives the model including the function call loop. Only
// the final text content is returned for window retention, the
// intermediate tool exchange is not worth its bytes.
func (s *Session) generate(ctx context.Context, systemPrompt string, contents []*genai.Content) (string, *genai.Content, error) {
	config := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, "")
	}
	if s.tools != nil {
		if specs := s.tools.Specs(); len(specs) > 0 {
			config.Tools = specs
		}
	}

	working := contents
	for round := 0; ; round++ {
		resp, err := s.gemini.GenerateContent(ctx, working, config)
		if err != nil {
			return "", nil, goerr.Wrap(err, "model call failed")
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", nil, goerr.New("empty model response")
		}
		content := resp.Candidates[0].Content

		calls := functionCalls(content)
		if len(calls) == 0 || s.tools == nil || round >= maxToolRounds {
			return textOf(content), content, nil
		}

		working = append(working, content)
		responses := &genai.Content{Role: genai.RoleUser}
		for _, fc := range calls {
			funcResp, execErr := s.tools.Execute(ctx, *fc)
			if execErr != nil {
				logging.From(ctx).Warn("tool execution failed", "tool", fc.Name, "error", execErr)
				funcResp = &genai.FunctionResponse{
					Name:     fc.Name,
					Response: map[string]any{"error": execErr.Error()},
				}
			}
			responses.Parts = append(responses.Parts, &genai.Part{FunctionResponse: funcResp})
		}
		working = append(working, responses)
	}
}

// compactLocked folds the oldest turns into the context marker when
// the window exceeds its byte budget. Each fold files exactly one
// context marker item with the recorder. Callers hold s.mu.
func (s *Session) compactLocked(ctx context.Context) {
	sizes := make([]int, len(s.contents))
	total := len(s.markerText())
	for i, content := range s.contents {
		sizes[i] = contentSize(content)
		total += sizes[i]
	}
	if total <= s.budget {
		return
	}

	keepBudget := int(float64(s.budget) * windowKeepRatio)
	cut := len(s.contents)
	kept := 0
	for cut > 0 && kept+sizes[cut-1] <= keepBudget {
		kept += sizes[cut-1]
		cut--
	}
	// The newest exchange stays verbatim even when it alone overflows
	// the keep share.
	if cut > len(s.contents)-2 {
		cut = len(s.contents) - 2
	}
	if cut <= 0 {
		return
	}

	folded := s.contents[:cut]
	s.contents = append([]*genai.Content{}, s.contents[cut:]...)
	s.fold(folded)

	if s.history != nil {
		item := model.NewHistoryItem(model.InteractionContextMarker, s.markerText())
		if _, err := s.history.Record(ctx, item, nil); err != nil {
			logging.From(ctx).Warn("failed to record context marker", "error", err)
		}
	}
	logging.From(ctx).Debug("compacted conversation window",
		"folded", len(folded), "kept", len(s.contents), "marker_lines", len(s.markerLines))
}

// fold appends the turns being dropped to the marker, oldest lines
// give way when the marker itself fills up.
func (s *Session) fold(folded []*genai.Content) {
	for _, content := range folded {
		text := textOf(content)
		if text == "" {
			continue
		}
		role := string(content.Role)
		if role == "" {
			role = "user"
		}
		s.markerLines = append(s.markerLines, "- "+role+": "+clip(text, markerLineLimit))
	}
	if len(s.markerLines) > markerMaxLines {
		s.markerLines = s.markerLines[len(s.markerLines)-markerMaxLines:]
	}
}

func (s *Session) markerText() string {
	if len(s.markerLines) == 0 {
		return ""
	}
	return "Earlier conversation:\n" + strings.Join(s.markerLines, "\n")
}

// windowLocked renders the context sent to the model: the marker as a
// single leading turn, then the retained turns verbatim.
func (s *Session) windowLocked() []*genai.Content {
	var window []*genai.Content
	if text := s.markerText(); text != "" {
		window = append(window, genai.NewContentFromText(text, genai.RoleUser))
	}
	return append(window, s.contents...)
}

// contentSize measures a turn the way it travels, serialized.
func contentSize(content *genai.Content) int {
	data, err := json.Marshal(content)
	if err != nil {
		return 0
	}
	return len(data)
}

func functionCalls(content *genai.Content) []*genai.FunctionCall {
	var calls []*genai.FunctionCall
	for _, part := range content.Parts {
		if part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

func textOf(content *genai.Content) string {
	var b strings.Builder
	for _, part := range content.Parts {
		if part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func clip(text string, limit int) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
