package store

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/usecase/semantic"
)

// WorkspaceSummary exposes the rolling activity digests to the
// conversational model.
type WorkspaceSummary struct {
	summarizer *semantic.Summarizer
}

// NewWorkspaceSummary creates a new workspace_summary tool
func NewWorkspaceSummary(summarizer *semantic.Summarizer) *WorkspaceSummary {
	return &WorkspaceSummary{
		summarizer: summarizer,
	}
}

// Spec returns the tool specification for Gemini function calling
func (w *WorkspaceSummary) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "workspace_summary",
				Description: "Get a digest of recent user activity for one item, one project, or the whole workspace.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"scope": {
							Type:        genai.TypeString,
							Description: "Which slice of activity to summarize",
							Enum:        []string{"item", "collection", "global"},
						},
						"target_id": {
							Type:        genai.TypeString,
							Description: "Item ID for item scope, project ID for collection scope. Ignored for global scope.",
						},
						"window": {
							Type:        genai.TypeString,
							Description: "How far back to look (default: activity, the last 24 hours)",
							Enum:        []string{"short_term", "activity", "long_term"},
						},
					},
					Required: []string{"scope"},
				},
			},
		},
	}
}

// Prompt returns additional information to be added to the system prompt
func (w *WorkspaceSummary) Prompt(ctx context.Context) string {
	return "Use workspace_summary when the user asks what happened recently or wants an overview of their activity."
}

// Flags returns CLI flags for this tool
func (w *WorkspaceSummary) Flags() []cli.Flag {
	return nil
}

// Execute runs the tool with the given function call
func (w *WorkspaceSummary) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	scope := model.SummaryScope(argString(fc.Args, "scope"))
	targetID := argString(fc.Args, "target_id")

	window := model.SummaryWindow(argString(fc.Args, "window"))
	if window == "" {
		window = model.WindowActivity
	}

	summary, err := w.summarizer.Summarize(ctx, scope, targetID, window)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to summarize activity",
			goerr.V("scope", string(scope)), goerr.V("target", targetID))
	}

	return &genai.FunctionResponse{
		Name: fc.Name,
		Response: map[string]any{
			"result":      summary.Text,
			"event_count": summary.EventCount,
			"confidence":  summary.Confidence,
		},
	}, nil
}
