package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/usecase/classify"
	"github.com/m-mizutani/canopy/pkg/usecase/route"
)

func routeCommand() *cli.Command {
	var (
		cfg      config
		page     string
		mode     string
		fallback bool
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
			Name:        "fallback",
			Usage:       "Use keyword routing without classification",
			Destination: &fallback,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "route",
		Usage:     "Show where an utterance would be routed",
		ArgsUsage: "<utterance>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggingContext(ctx, c.Root().ErrWriter)

			text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if text == "" {
				return goerr.New("utterance is required")
			}

			rules, err := cfg.newRules()
			if err != nil {
				return err
			}
			router := route.New(rules)

			var decision *model.RoutingDecision
			if fallback {
				decision = router.RouteText(ctx, text)
			} else {
				ui, err := buildUIContext(ctx, page, mode, "")
				if err != nil {
					return err
				}
				intent, err := classify.New(rules).Classify(ctx, model.NewUtterance(text, model.SourceTyped), ui)
				if err != nil {
					return goerr.Wrap(err, "failed to classify utterance")
				}
				decision = router.Route(ctx, intent)
			}

			w := c.Root().Writer
			fmt.Fprintf(w, "destination: %s\n", decision.Destination)
			fmt.Fprintf(w, "confidence:  %d\n", decision.Confidence)
			fmt.Fprintf(w, "reason:      %s\n", decision.Reason)
			if decision.Fallback {
				fmt.Fprintf(w, "fallback:    keyword match only\n")
			}

			return nil
		},
	}
}
