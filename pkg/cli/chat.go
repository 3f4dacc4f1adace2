package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/service/mcp"
	"github.com/m-mizutani/canopy/pkg/tool"
	"github.com/m-mizutani/canopy/pkg/tool/store"
	"github.com/m-mizutani/canopy/pkg/usecase/assistant"
	"github.com/m-mizutani/canopy/pkg/usecase/classify"
	"github.com/m-mizutani/canopy/pkg/usecase/hint"
	"github.com/m-mizutani/canopy/pkg/usecase/history"
	"github.com/m-mizutani/canopy/pkg/usecase/route"
	"github.com/m-mizutani/canopy/pkg/usecase/semantic"
	"github.com/m-mizutani/canopy/pkg/utils/logging"
)

func chatCommand() *cli.Command {
	var (
		cfg       config
		page      string
		mode      string
		projectID string
		voice     bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "page",
			Usage:       "Page the simulated UI starts on",
			Value:       "tasks",
			Sources:     cli.EnvVars("CANOPY_PAGE"),
			Destination: &page,
		},
		&cli.StringFlag{
			Name:        "mode",
			Usage:       "Workspace mode (general or project)",
			Value:       "general",
			Sources:     cli.EnvVars("CANOPY_MODE"),
			Destination: &mode,
		},
		&cli.StringFlag{
			Name:        "project-id",
			Usage:       "Active project for project mode",
			Sources:     cli.EnvVars("CANOPY_PROJECT_ID"),
			Destination: &projectID,
		},
		&cli.BoolFlag{
			Name:        "voice",
			Usage:       "Treat input lines as voice transcripts",
			Destination: &voice,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, executionFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive assistant session",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggingContext(ctx, c.Root().ErrWriter)

			ui, err := buildUIContext(ctx, page, mode, projectID)
			if err != nil {
				return err
			}

			// Initialize dependencies
			rules, err := cfg.newRules()
			if err != nil {
				return err
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			executor, err := cfg.newExecutor(ctx, repo, rules)
			if err != nil {
				return err
			}

			events, err := cfg.newEvents(ctx)
			if err != nil {
				return err
			}

			recorder := history.NewRecorder(repo)
			summarizer := semantic.NewSummarizer(events)

			ast, err := assistant.New(assistant.NewInput{
				Rules:      rules,
				Classifier: classify.New(rules),
				Router:     route.New(rules),
				Executor:   executor,
				History:    recorder,
				Events:     events,
				Summaries:  summarizer,
				Hints:      hint.NewEngine(hint.DefaultRules()),
				Repo:       repo,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to create assistant")
			}

			// The conversational model is optional: without it the
			// command pipeline still runs, only global turns degrade.
			var (
				registry *tool.Registry
				session  *assistant.Session
			)
			if cfg.geminiProject != "" {
				gemini, err := cfg.newGemini(ctx)
				if err != nil {
					return err
				}

				tools := []tool.Tool{
					store.NewSearchItems(repo),
					store.NewWorkspaceSummary(summarizer),
				}
				mcpTool, err := mcp.LoadAndConnect(ctx, cfg.mcpConfig)
				if err != nil {
					logging.From(ctx).Warn("mcp servers unavailable", "error", err)
				} else if mcpTool != nil {
					tools = append(tools, mcpTool)
				}
				registry = tool.New(tools...)
				logging.From(ctx).Debug("tool registry ready", "functions", registry.Names())

				session, err = assistant.NewSession(assistant.SessionInput{
					Gemini:  gemini,
					Tools:   registry,
					History: recorder,
				})
				if err != nil {
					return goerr.Wrap(err, "failed to create session")
				}
				defer session.Close()
			}

			cs := &chatSession{
				assistant:  ast,
				session:    session,
				registry:   registry,
				summarizer: summarizer,
				ui:         ui,
				source:     model.SourceTyped,
				out:        c.Root().Writer,
			}
			if voice {
				cs.source = model.SourceVoice
			}

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to initialize the prompt")
			}
			defer rl.Close()

			fmt.Fprintf(cs.out, "Canopy assistant on the %s page. Type 'exit' to quit, '/help' for commands.\n", ui.CurrentPage)

			// Interactive loop
			for {
				if cs.sheet != nil {
					rl.SetPrompt("? ")
				} else {
					rl.SetPrompt("> ")
				}

				line, err := rl.Readline()
				if err == readline.ErrInterrupt {
					if cs.dismissSheet(ctx) {
						continue
					}
					break
				} else if err == io.EOF {
					break
				} else if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					break
				}

				if err := cs.handle(ctx, line); err != nil {
					fmt.Fprintf(cs.out, "error: %s\n", err.Error())
				}
			}

			fmt.Fprintf(cs.out, "\nSession closed\n")
			return nil
		},
	}
}

// buildUIContext assembles the simulated UI state the classifier reads
func buildUIContext(ctx context.Context, page, mode, projectID string) (*model.UIContext, error) {
	ui := &model.UIContext{
		CurrentPage:     model.Subsystem(page),
		Mode:            model.Mode(mode),
		Zoom:            model.ZoomCollection,
		ActiveProjectID: model.ProjectID(projectID),
		CapturedAt:      time.Now(),
	}
	if err := ui.CurrentPage.Validate(); err != nil {
		return nil, err
	}
	if err := ui.Mode.Validate(); err != nil {
		return nil, err
	}
	if ui.Mode == model.ModeProject && ui.ActiveProjectID == "" {
		ui.ActiveProjectID = model.NewProjectID()
		logging.From(ctx).Info("project mode without project-id, using a scratch project",
			"project_id", ui.ActiveProjectID)
	}
	return ui, nil
}

// chatSession holds the REPL state, including the decision sheet that
// is waiting for an answer.
type chatSession struct {
	assistant  *assistant.Assistant
	session    *assistant.Session
	registry   *tool.Registry
	summarizer *semantic.Summarizer
	ui         *model.UIContext
	source     model.UtteranceSource
	out        io.Writer
	sheet      *model.DecisionSheet
}

func (cs *chatSession) handle(ctx context.Context, line string) error {
	if strings.HasPrefix(line, "/") {
		return cs.command(ctx, line)
	}

	// An open sheet captures the next input as its answer
	if cs.sheet != nil {
		selection, ok := cs.selection(line)
		if !ok {
			fmt.Fprintf(cs.out, "Pick an option between 1 and %d, or type it out.\n", len(cs.sheet.Options))
			return nil
		}
		cs.sheet = nil

		turn, err := cs.assistant.HandleDecision(ctx, selection)
		if err != nil {
			return err
		}
		return cs.render(ctx, turn, "")
	}

	turn, err := cs.assistant.HandleUtterance(ctx, model.NewUtterance(line, cs.source), cs.ui)
	if err != nil {
		return err
	}
	return cs.render(ctx, turn, line)
}

// selection maps a line to one of the open sheet's options, accepting
// the option number, its text, or 'cancel'.
func (cs *chatSession) selection(line string) (*model.DecisionSelection, bool) {
	sel := &model.DecisionSelection{SheetID: cs.sheet.ID}

	if strings.EqualFold(line, "cancel") && cs.sheet.Cancelable {
		sel.Canceled = true
		return sel, true
	}

	if n, err := strconv.Atoi(line); err == nil {
		if n < 1 || n > len(cs.sheet.Options) {
			return nil, false
		}
		sel.Option = cs.sheet.Options[n-1]
		return sel, true
	}

	for _, opt := range cs.sheet.Options {
		if strings.EqualFold(opt, line) {
			sel.Option = opt
			return sel, true
		}
	}
	return nil, false
}

// dismissSheet cancels the open sheet on Ctrl-C. Returns false when
// there was nothing to dismiss.
func (cs *chatSession) dismissSheet(ctx context.Context) bool {
	if cs.sheet == nil {
		return false
	}
	sheet := cs.sheet
	cs.sheet = nil

	if !sheet.Cancelable {
		return true
	}
	if _, err := cs.assistant.HandleDecision(ctx, &model.DecisionSelection{
		SheetID:  sheet.ID,
		Canceled: true,
	}); err != nil {
		logging.From(ctx).Warn("failed to dismiss decision sheet", "error", err)
		return true
	}
	fmt.Fprintln(cs.out, "dismissed")
	return true
}

func (cs *chatSession) render(ctx context.Context, turn *assistant.Turn, raw string) error {
	if turn.Acknowledgement != nil {
		fmt.Fprintf(cs.out, "· %s\n", turn.Acknowledgement.Message)
	}

	if turn.Sheet != nil {
		cs.sheet = turn.Sheet
		fmt.Fprintf(cs.out, "%s\n", turn.Sheet.Title)
		for i, opt := range turn.Sheet.Options {
			fmt.Fprintf(cs.out, "  %d. %s\n", i+1, opt)
		}
	}

	if turn.Result != nil {
		fmt.Fprintf(cs.out, "%s\n", turn.Result.Message)
		if turn.Result.CreatedID != "" {
			fmt.Fprintf(cs.out, "  [%s %s]\n", turn.Result.CreatedKind, turn.Result.CreatedID)
		}
	}

	// A turn with nothing to show locally is a conversational one
	if turn.Sheet == nil && turn.Result == nil && turn.Routing != nil {
		if turn.Routing.Destination == model.DestinationGlobal {
			if err := cs.converse(ctx, turn, raw); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(cs.out, "→ headed for %s\n", turn.Routing.Destination)
		}
	}

	for _, h := range turn.Hints {
		fmt.Fprintf(cs.out, "  hint: %s\n", h.Text)
	}
	return nil
}

// converse sends a global turn to the model with the enhanced prompt
func (cs *chatSession) converse(ctx context.Context, turn *assistant.Turn, raw string) error {
	if raw == "" {
		return nil
	}
	if cs.session == nil {
		fmt.Fprintln(cs.out, "The conversational model is not configured. Set --gemini-project to enable it.")
		return nil
	}

	var summary *model.SemanticSummary
	if s, err := cs.summarizer.Summarize(ctx, model.ScopeGlobal, "", model.WindowActivity); err == nil {
		summary = s
	}

	var guide string
	if cs.registry != nil {
		guide = cs.registry.Prompts(ctx)
	}

	prompt := assistant.EnhancedPrompt(assistant.PromptInput{
		Intent:    turn.Intent,
		Routing:   turn.Routing,
		UI:        cs.ui,
		Summary:   summary,
		ToolGuide: guide,
	})

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	sp.Suffix = " thinking..."
	sp.Start()
	reply, err := cs.session.Send(ctx, prompt, raw)
	sp.Stop()
	if err != nil {
		return goerr.Wrap(err, "conversation turn failed")
	}

	fmt.Fprintf(cs.out, "%s\n", reply)
	return nil
}

// command handles REPL slash commands for adjusting the simulated UI
func (cs *chatSession) command(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/help":
		fmt.Fprintln(cs.out, "/page <name>   move the simulated UI to another page")
		fmt.Fprintln(cs.out, "/mode <name>   switch between general and project mode")
		fmt.Fprintln(cs.out, "/summary       show the workspace activity digest")
		fmt.Fprintln(cs.out, "exit           quit the session")

	case "/page":
		if len(fields) < 2 {
			fmt.Fprintln(cs.out, "usage: /page <name>")
			return nil
		}
		page := model.Subsystem(fields[1])
		if err := page.Validate(); err != nil {
			fmt.Fprintf(cs.out, "unknown page %q\n", fields[1])
			return nil
		}
		cs.ui.CurrentPage = page
		cs.ui.CapturedAt = time.Now()
		fmt.Fprintf(cs.out, "now on the %s page\n", page)

	case "/mode":
		if len(fields) < 2 {
			fmt.Fprintln(cs.out, "usage: /mode <general|project>")
			return nil
		}
		mode := model.Mode(fields[1])
		if err := mode.Validate(); err != nil {
			fmt.Fprintf(cs.out, "unknown mode %q\n", fields[1])
			return nil
		}
		cs.ui.Mode = mode
		if mode == model.ModeProject && cs.ui.ActiveProjectID == "" {
			cs.ui.ActiveProjectID = model.NewProjectID()
		}
		cs.ui.CapturedAt = time.Now()
		fmt.Fprintf(cs.out, "now in %s mode\n", mode)

	case "/summary":
		summary, err := cs.summarizer.Summarize(ctx, model.ScopeGlobal, "", model.WindowActivity)
		if err != nil {
			return goerr.Wrap(err, "failed to summarize workspace activity")
		}
		fmt.Fprintln(cs.out, summary.Text)

	default:
		fmt.Fprintf(cs.out, "unknown command %s\n", fields[0])
	}
	return nil
}
