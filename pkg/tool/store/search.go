package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/repository"
)

const searchLimit = 10

// SearchItems lets the conversational model look up stored tasks,
// notes and projects while answering a global-route utterance.
type SearchItems struct {
	repo repository.Repository
}

// NewSearchItems creates a new search_items tool
func NewSearchItems(repo repository.Repository) *SearchItems {
	return &SearchItems{
		repo: repo,
	}
}

// Spec returns the tool specification for Gemini function calling
func (s *SearchItems) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "search_items",
				Description: "Search stored workspace items (tasks, notes, projects, voice notes) by kind, optionally narrowed to one project or a title keyword.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"kind": {
							Type:        genai.TypeString,
							Description: "Item kind to search",
							Enum:        []string{"task", "note", "project", "voice_note"},
						},
						"project_id": {
							Type:        genai.TypeString,
							Description: "Restrict results to one project (default: all projects)",
						},
						"keyword": {
							Type:        genai.TypeString,
							Description: "Case-insensitive substring matched against item titles",
						},
						"limit": {
							Type:        genai.TypeInteger,
							Description: fmt.Sprintf("Max results (default: %d)", searchLimit),
						},
					},
					Required: []string{"kind"},
				},
			},
		},
	}
}

// Prompt returns additional information to be added to the system prompt
func (s *SearchItems) Prompt(ctx context.Context) string {
	return "Use search_items to check what already exists in the workspace before suggesting new tasks or notes."
}

// Flags returns CLI flags for this tool
func (s *SearchItems) Flags() []cli.Flag {
	return nil
}

// Execute runs the tool with the given function call
func (s *SearchItems) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	kind := model.ItemKind(argString(fc.Args, "kind"))
	switch kind {
	case model.ItemKindTask, model.ItemKindNote, model.ItemKindProject, model.ItemKindVoiceNote:
	default:
		return nil, goerr.New("unsupported item kind", goerr.V("kind", string(kind)))
	}

	projectID := model.ProjectID(argString(fc.Args, "project_id"))
	keyword := strings.ToLower(argString(fc.Args, "keyword"))

	limit := argInt(fc.Args, "limit")
	if limit <= 0 {
		limit = searchLimit
	}

	items, err := s.repo.ListItems(ctx, kind, projectID, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search items", goerr.V("kind", string(kind)))
	}

	if keyword != "" {
		filtered := make([]*model.ItemSummary, 0, len(items))
		for _, item := range items {
			if strings.Contains(strings.ToLower(item.Title), keyword) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	return &genai.FunctionResponse{
		Name:     fc.Name,
		Response: map[string]any{"result": formatItems(items)},
	}, nil
}

func formatItems(items []*model.ItemSummary) string {
	if len(items) == 0 {
		return "No items found matching the criteria."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d item(s):\n", len(items))
	for i, item := range items {
		fmt.Fprintf(&b, "%d. [%s] %s (id: %s", i+1, item.Kind, item.Title, item.ID)
		if item.ProjectID != "" {
			fmt.Fprintf(&b, ", project: %s", item.ProjectID)
		}
		if item.Kind == model.ItemKindTask && item.Done {
			b.WriteString(", done")
		}
		b.WriteString(")\n")
	}
	return b.String()
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func argInt(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
