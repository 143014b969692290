package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/harborops/stackpilot/internal/di"
	"github.com/harborops/stackpilot/internal/services"
	"github.com/harborops/stackpilot/internal/stack"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// RollbackCommand rolls a stack stuck in UPDATE_FAILED back to its last
// known stable state.
func RollbackCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "rollback",
		Usage: "Roll back a stack stuck in UPDATE_FAILED",
		Flags: []cli.Flag{
			stackNameFlag(),
			envFlag(),
			regionFlag(),
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the rollback to settle",
				Value: 30 * time.Minute,
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"yes"},
				Usage:   "Skip the confirmation prompt",
			},
		},
		Action: func(c *cli.Context) error {
			return rollback(c, logger)
		},
	}
}

func rollback(c *cli.Context, logger *zerolog.Logger) error {
	ctx := c.Context
	physical := fmt.Sprintf("%s-%s", c.String("env"), c.String("stack-name"))

	container, err := newContainer(c)
	if err != nil {
		return err
	}

	engine := di.MustGet[*stack.Engine](container)
	described, err := engine.Describe(ctx, physical)
	if err != nil {
		return err
	}

	if !c.Bool("force") {
		identity, err := di.MustGet[*services.IdentityService](container).Whoami(ctx)
		if err != nil {
			return err
		}
		ok, err := confirm(fmt.Sprintf("Roll back %s (currently %s) on %s?",
			physical, described.StackStatus, identityLine(identity, c.String("region"))))
		if err != nil {
			return err
		}
		if !ok {
			logger.Info().Str("stack", physical).Msg("Rollback aborted")
			return nil
		}
	}

	if err := engine.Rollback(ctx, physical); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancel()

	interval := stack.DefaultPollInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			return waitCtx.Err()
		case <-ticker.C:
		}

		described, err := engine.Describe(waitCtx, physical)
		if err != nil {
			return err
		}
		switch described.StackStatus {
		case types.StackStatusUpdateRollbackComplete:
			logger.Info().Str("stack", physical).Msg("Rollback complete")
			return printJSON(map[string]string{
				"stack_name": physical,
				"status":     string(described.StackStatus),
			})
		case types.StackStatusUpdateRollbackFailed:
			return fmt.Errorf("rollback failed for %s: %s", physical, string(described.StackStatus))
		}
	}
}
