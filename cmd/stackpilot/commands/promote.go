package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/harborops/stackpilot/internal/di"
	"github.com/harborops/stackpilot/internal/params"
	"github.com/harborops/stackpilot/internal/promote"
	"github.com/harborops/stackpilot/internal/services"
	"github.com/harborops/stackpilot/internal/stack"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// PromoteCommand redeploys the latest successful release of one
// environment to the next rung of the ladder, byte for byte.
func PromoteCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "promote",
		Usage: "Promote the latest successful release to the next environment",
		Flags: []cli.Flag{
			stackNameFlag(),
			regionFlag(),
			&cli.StringFlag{
				Name:     "from",
				Usage:    "Source environment to promote from",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "params-dir",
				Usage: "Directory holding per-environment parameter override files",
			},
			&cli.StringSliceFlag{
				Name:  "param",
				Usage: "Parameter override in Key=Value form, repeatable",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the stack operation to settle",
				Value: 30 * time.Minute,
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"yes"},
				Usage:   "Skip the confirmation prompt",
			},
		},
		Action: func(c *cli.Context) error {
			return runPromote(c, logger)
		},
	}
}

func runPromote(c *cli.Context, logger *zerolog.Logger) error {
	ctx := c.Context
	stackName := c.String("stack-name")
	fromEnv := c.String("from")

	overrides, err := params.ParseOverrides(c.StringSlice("param"))
	if err != nil {
		return err
	}

	// Release history and snapshots live in the source environment's
	// tables and bucket.
	container, err := di.New(fromEnv,
		di.WithContext(ctx),
		di.WithRegion(c.String("region")),
	)
	if err != nil {
		return err
	}

	config := di.MustGet[*services.Config](container)
	targetEnv, err := promote.NextEnv(config.EnvLadder, fromEnv)
	if err != nil {
		return err
	}

	if !c.Bool("force") {
		identity, err := di.MustGet[*services.IdentityService](container).Whoami(ctx)
		if err != nil {
			return err
		}
		ok, err := confirm(fmt.Sprintf("Promote %s from %s to %s on %s?",
			stackName, fromEnv, targetEnv, identityLine(identity, c.String("region"))))
		if err != nil {
			return err
		}
		if !ok {
			logger.Info().Str("stack", stackName).Msg("Promote aborted")
			return nil
		}
	}

	promoter := di.MustGet[*promote.Promoter](container)
	result, err := promoter.Promote(ctx, promote.Input{
		Stack:     stackName,
		FromEnv:   fromEnv,
		Overrides: overrides,
		ParamsDir: c.String("params-dir"),
	})
	if err != nil {
		return err
	}

	if result.Deploy.Operation != stack.OperationNoop {
		waitCtx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
		defer cancel()

		engine := di.MustGet[*stack.Engine](container)
		if _, err := engine.Wait(waitCtx, stack.WaitInput{
			StackName: result.Deploy.StackName,
			Operation: result.Deploy.Operation,
		}); err != nil {
			return err
		}
	}

	return printJSON(result)
}
