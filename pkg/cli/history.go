package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func historyCommand() *cli.Command {
	var (
		cfg    config
		offset int64
		limit  int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Offset for pagination",
			Value:       0,
			Destination: &offset,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of entries to list",
			Value:       50,
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "history",
		Usage: "List the durable conversation log",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggingContext(ctx, c.Root().ErrWriter)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			entries, err := repo.ListHistory(ctx, int(offset), int(limit))
			if err != nil {
				return goerr.Wrap(err, "failed to list history")
			}

			if len(entries) == 0 {
				fmt.Fprintf(c.Root().Writer, "No conversation history found\n")
				return nil
			}

			for _, e := range entries {
				content := strings.ReplaceAll(e.Content, "\n", " ")
				if len(content) > 80 {
					content = content[:77] + "..."
				}
				fmt.Fprintf(c.Root().Writer, "%s\t%s\t%s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"),
					e.Type,
					content,
				)
			}

			return nil
		},
	}
}
