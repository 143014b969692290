package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/harborops/stackpilot/internal/di"
	"github.com/harborops/stackpilot/internal/stack"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// EventsCommand tails recent stack events, most useful while diagnosing
// a failed create or update.
func EventsCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Show recent stack events",
		Flags: []cli.Flag{
			stackNameFlag(),
			envFlag(),
			regionFlag(),
			&cli.IntFlag{
				Name:  "max",
				Usage: "Maximum number of events to show",
				Value: 25,
			},
			&cli.BoolFlag{
				Name:  "failed",
				Usage: "Only show failure events",
			},
		},
		Action: func(c *cli.Context) error {
			return events(c, logger)
		},
	}
}

func events(c *cli.Context, logger *zerolog.Logger) error {
	ctx := c.Context
	physical := fmt.Sprintf("%s-%s", c.String("env"), c.String("stack-name"))

	container, err := newContainer(c)
	if err != nil {
		return err
	}

	engine := di.MustGet[*stack.Engine](container)

	var list []types.StackEvent
	if c.Bool("failed") {
		list, err = engine.FailureEvents(ctx, physical, c.Int("max"))
	} else {
		list, err = engine.RecentEvents(ctx, physical, c.Int("max"))
	}
	if err != nil {
		return err
	}

	for _, event := range list {
		timestamp := ""
		if event.Timestamp != nil {
			timestamp = event.Timestamp.Format(time.RFC3339)
		}
		fmt.Fprintf(os.Stdout, "%s  %-20s %-28s %s\n",
			timestamp,
			event.ResourceStatus,
			aws.ToString(event.LogicalResourceId),
			aws.ToString(event.ResourceStatusReason))
	}
	return nil
}
