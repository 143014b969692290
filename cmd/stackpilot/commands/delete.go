package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/harborops/stackpilot/internal/dao/lockdao"
	"github.com/harborops/stackpilot/internal/dao/releasedao"
	"github.com/harborops/stackpilot/internal/di"
	apperrors "github.com/harborops/stackpilot/internal/errors"
	"github.com/harborops/stackpilot/internal/services"
	"github.com/harborops/stackpilot/internal/stack"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"github.com/urfave/cli/v2"
)

// DeleteCommand tears down a stack after listing what it will destroy
// and requiring the operator to type the stack name back.
func DeleteCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "Delete a CloudFormation stack and all of its resources",
		Flags: []cli.Flag{
			stackNameFlag(),
			envFlag(),
			regionFlag(),
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the deletion to settle",
				Value: 30 * time.Minute,
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"yes"},
				Usage:   "Skip the confirmation prompt",
			},
		},
		Action: func(c *cli.Context) error {
			return deleteStack(c, logger)
		},
	}
}

func deleteStack(c *cli.Context, logger *zerolog.Logger) error {
	ctx := c.Context
	env := c.String("env")
	stackName := c.String("stack-name")
	physical := fmt.Sprintf("%s-%s", env, stackName)

	container, err := newContainer(c)
	if err != nil {
		return err
	}

	engine := di.MustGet[*stack.Engine](container)

	// A stack that does not exist fails before any prompt is shown.
	exists, err := engine.Exists(ctx, physical)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", apperrors.ErrStackNotFound, physical)
	}

	if !c.Bool("force") {
		resources, err := engine.Resources(ctx, physical)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "The following %d resources will be DELETED:\n", len(resources))
		for _, r := range resources {
			fmt.Fprintf(os.Stdout, "  %-24s %s\n",
				aws.ToString(r.LogicalResourceId),
				aws.ToString(r.ResourceType))
		}

		identity, err := di.MustGet[*services.IdentityService](container).Whoami(ctx)
		if err != nil {
			return err
		}

		ok, err := confirmToken(
			fmt.Sprintf("Type the stack name (%s) to delete it from %s:", physical, identityLine(identity, c.String("region"))),
			physical)
		if err != nil {
			return err
		}
		if !ok {
			logger.Info().Str("stack", physical).Msg("Delete aborted")
			return nil
		}
	}

	releaseSK := ksuid.New().String()
	locks := di.MustGet[*lockdao.DAO](container)
	holder, acquired, err := locks.Acquire(ctx, lockdao.AcquireInput{
		Env:       env,
		Stack:     stackName,
		ReleaseID: releaseSK,
	})
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: held by %s", apperrors.ErrLockHeld, holder.HolderArn)
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := locks.Release(releaseCtx, lockdao.ReleaseInput{
			ID:        lockdao.NewID(env, stackName),
			ReleaseID: releaseSK,
		}); err != nil {
			logger.Warn().Err(err).Str("stack", stackName).Msg("Failed to release deployment lock")
		}
	}()

	releases := di.MustGet[*releasedao.DAO](container)
	release, err := releases.Create(ctx, releasedao.CreateInput{
		Stack:     stackName,
		Env:       env,
		SK:        releaseSK,
		Operation: stack.OperationDelete,
	})
	if err != nil {
		return err
	}

	if err := engine.Delete(ctx, physical); err != nil {
		return finishRelease(ctx, releases, release, stack.OperationDelete, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancel()

	if err := engine.WaitDeleted(waitCtx, physical, 0); err != nil {
		return finishRelease(ctx, releases, release, stack.OperationDelete, err)
	}

	logger.Info().Str("stack", physical).Msg("Stack deleted")
	return finishRelease(ctx, releases, release, stack.OperationDelete, nil)
}
