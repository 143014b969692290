package commands

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/harborops/stackpilot/internal/dao/lockdao"
	"github.com/harborops/stackpilot/internal/dao/releasedao"
	"github.com/harborops/stackpilot/internal/di"
	"github.com/harborops/stackpilot/internal/services"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// SetupCommand provisions the tool's own backing resources for an
// environment: release and lock tables, the artifact bucket, and the
// SSM configuration. Safe to re-run.
func SetupCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Provision release tables, the artifact bucket, and configuration",
		Flags: []cli.Flag{
			envFlag(),
			regionFlag(),
			&cli.StringFlag{
				Name:     "artifact-bucket",
				Usage:    "S3 bucket for release snapshots",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "ecr-repository",
				Usage: "ECR repository name for image tag preflight checks",
			},
			&cli.StringFlag{
				Name:  "env-ladder",
				Usage: "Comma-separated promotion order, lowest first",
			},
		},
		Action: func(c *cli.Context) error {
			return setup(c, logger)
		},
	}
}

func setup(c *cli.Context, logger *zerolog.Logger) error {
	ctx := c.Context
	env := c.String("env")

	container, err := newContainer(c)
	if err != nil {
		return err
	}

	bootstrap := services.NewBootstrap(
		di.MustGet[*dynamodb.Client](container),
		di.MustGet[*s3.Client](container),
		di.MustGet[*ssm.Client](container),
		env,
		c.String("region"),
	)

	if err := bootstrap.EnsureTable(ctx, releasedao.TableName(env), false); err != nil {
		return err
	}
	// Stale locks expire through DynamoDB TTL.
	if err := bootstrap.EnsureTable(ctx, lockdao.TableName(env), true); err != nil {
		return err
	}
	if err := bootstrap.EnsureBucket(ctx, c.String("artifact-bucket")); err != nil {
		return err
	}

	values := map[string]string{
		"artifact-bucket": c.String("artifact-bucket"),
		"release-table":   releasedao.TableName(env),
		"lock-table":      lockdao.TableName(env),
		"ecr-repository":  c.String("ecr-repository"),
	}
	if ladder := c.String("env-ladder"); ladder != "" {
		values["env-ladder"] = ladder
	}
	if err := bootstrap.SeedConfig(ctx, values); err != nil {
		return err
	}

	logger.Info().Str("env", env).Msg("Environment ready")
	return nil
}
