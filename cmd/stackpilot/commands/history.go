package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/harborops/stackpilot/internal/dao/releasedao"
	"github.com/harborops/stackpilot/internal/di"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// HistoryCommand lists the release history of a stack in an
// environment, newest first.
func HistoryCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List release history for a stack",
		Flags: []cli.Flag{
			stackNameFlag(),
			envFlag(),
			regionFlag(),
			&cli.IntFlag{
				Name:  "max",
				Usage: "Maximum number of releases to show",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit releases as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			return history(c, logger)
		},
	}
}

func history(c *cli.Context, logger *zerolog.Logger) error {
	container, err := newContainer(c)
	if err != nil {
		return err
	}

	releases := di.MustGet[*releasedao.DAO](container)
	pk := releasedao.NewPK(c.String("stack-name"), c.String("env"))

	records, err := releases.List(c.Context, pk)
	if err != nil {
		return err
	}
	if max := c.Int("max"); len(records) > max {
		records = records[:max]
	}

	if c.Bool("json") {
		return printJSON(records)
	}

	for _, r := range records {
		started := time.Unix(r.StartedAt, 0).Format(time.RFC3339)
		errMsg := ""
		if r.ErrorMsg != nil {
			errMsg = *r.ErrorMsg
		}
		fmt.Fprintf(os.Stdout, "%s  %-8s %-11s %s  %s\n",
			started, r.Operation, r.Status, r.SK, errMsg)
	}
	return nil
}
