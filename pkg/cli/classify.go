package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/usecase/classify"
)

func classifyCommand() *cli.Command {
	var (
		cfg   config
		page  string
		mode  string
		voice bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "page",
			Usage:       "Page the utterance was spoken on",
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
		&cli.BoolFlag{
			Name:        "voice",
			Usage:       "Treat the utterance as a voice transcript",
			Destination: &voice,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "classify",
		Usage:     "Classify one utterance and show the reading",
		ArgsUsage: "<utterance>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggingContext(ctx, c.Root().ErrWriter)

			text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if text == "" {
				return goerr.New("utterance is required")
			}

			ui, err := buildUIContext(ctx, page, mode, "")
			if err != nil {
				return err
			}

			rules, err := cfg.newRules()
			if err != nil {
				return err
			}

			source := model.SourceTyped
			if voice {
				source = model.SourceVoice
			}

			intent, err := classify.New(rules).Classify(ctx, model.NewUtterance(text, source), ui)
			if err != nil {
				return goerr.Wrap(err, "failed to classify utterance")
			}

			// Display the reading
			w := c.Root().Writer
			fmt.Fprintf(w, "category:   %s\n", intent.Category)
			fmt.Fprintf(w, "label:      %s\n", intent.Label)
			fmt.Fprintf(w, "confidence: %d\n", intent.Confidence)
			if intent.TargetSubsystem != "" {
				fmt.Fprintf(w, "target:     %s\n", intent.TargetSubsystem)
			}
			if intent.Acknowledgement != "" {
				fmt.Fprintf(w, "ack:        %s\n", intent.Acknowledgement)
			}
			if len(intent.Extracted) > 0 {
				keys := make([]string, 0, len(intent.Extracted))
				for k := range intent.Extracted {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				fmt.Fprintf(w, "extracted:\n")
				for _, k := range keys {
					fmt.Fprintf(w, "  %s: %s\n", k, intent.Extracted[k])
				}
			}
			if intent.RequiresDecisionSheet {
				fmt.Fprintf(w, "decision sheet:\n")
				for _, opt := range intent.DecisionSheetOptions {
					fmt.Fprintf(w, "  - %s\n", opt)
				}
			}
			fmt.Fprintf(w, "reading:    %s\n", intent.Explanation)

			return nil
		},
	}
}
