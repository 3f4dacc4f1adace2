package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/canopy/pkg/model"
)

func listCommand() *cli.Command {
	var (
		cfg       config
		kind      string
		projectID string
		limit     int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "kind",
			Aliases:     []string{"k"},
			Usage:       "Item kind to list (task, note, project, voice_note)",
			Value:       "task",
			Destination: &kind,
		},
		&cli.StringFlag{
			Name:        "project-id",
			Usage:       "Limit the listing to one project",
			Sources:     cli.EnvVars("CANOPY_PROJECT_ID"),
			Destination: &projectID,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of items to list",
			Value:       100,
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List stored workspace items",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggingContext(ctx, c.Root().ErrWriter)

			itemKind := model.ItemKind(kind)
			switch itemKind {
			case model.ItemKindTask, model.ItemKindNote, model.ItemKindProject, model.ItemKindVoiceNote:
			default:
				return goerr.New("unknown item kind", goerr.V("kind", kind))
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			items, err := repo.ListItems(ctx, itemKind, model.ProjectID(projectID), int(limit))
			if err != nil {
				return goerr.Wrap(err, "failed to list items")
			}

			if len(items) == 0 {
				fmt.Fprintf(c.Root().Writer, "No %s items found\n", itemKind)
				return nil
			}

			for _, item := range items {
				status := " "
				if item.Done {
					status = "x"
				}
				fmt.Fprintf(c.Root().Writer, "[%s] %s\t%s\t%s\n",
					status,
					item.ID,
					item.Title,
					item.UpdatedAt.Format("2006-01-02 15:04:05"),
				)
			}

			return nil
		},
	}
}
