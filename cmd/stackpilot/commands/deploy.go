package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/harborops/stackpilot/internal/dao/lockdao"
	"github.com/harborops/stackpilot/internal/dao/releasedao"
	"github.com/harborops/stackpilot/internal/di"
	apperrors "github.com/harborops/stackpilot/internal/errors"
	"github.com/harborops/stackpilot/internal/params"
	"github.com/harborops/stackpilot/internal/policy"
	"github.com/harborops/stackpilot/internal/services"
	"github.com/harborops/stackpilot/internal/stack"
	"github.com/harborops/stackpilot/internal/template"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"github.com/urfave/cli/v2"
)

// DeployCommand creates or updates a stack from a local template and
// parameter files, recording the release and its artifacts.
func DeployCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "deploy",
		Usage: "Create or update a CloudFormation stack",
		Flags: []cli.Flag{
			stackNameFlag(),
			envFlag(),
			regionFlag(),
			&cli.StringFlag{
				Name:     "template",
				Aliases:  []string{"t"},
				Usage:    "Path to the CloudFormation template file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "params",
				Aliases: []string{"p"},
				Usage:   "Path to the base parameter file",
			},
			&cli.StringSliceFlag{
				Name:  "param",
				Usage: "Parameter override in Key=Value form, repeatable",
			},
			&cli.StringFlag{
				Name:  "on-failure",
				Usage: "Behavior when stack creation fails (ROLLBACK, DELETE, DO_NOTHING)",
				Value: string(types.OnFailureRollback),
			},
			&cli.BoolFlag{
				Name:  "disable-rollback",
				Usage: "Leave a failed update in place for inspection",
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
			return deploy(c, logger)
		},
	}
}

func deploy(c *cli.Context, logger *zerolog.Logger) error {
	ctx := c.Context
	env := c.String("env")
	stackName := c.String("stack-name")

	// Everything local is validated before a single AWS call is made.
	tmpl, err := template.Load(c.String("template"))
	if err != nil {
		return err
	}

	combined, err := loadDeployParams(c, env)
	if err != nil {
		return err
	}
	if err := combined.Validate(); err != nil {
		return err
	}

	if err := checkGuardrails(ctx, tmpl, env, stackName); err != nil {
		return err
	}

	container, err := newContainer(c)
	if err != nil {
		return err
	}

	identity, err := di.MustGet[*services.IdentityService](container).Whoami(ctx)
	if err != nil {
		return err
	}

	config := di.MustGet[*services.Config](container)
	if err := checkImageTag(ctx, container, config, combined); err != nil {
		return err
	}

	physical := fmt.Sprintf("%s-%s", env, stackName)
	if !c.Bool("force") {
		ok, err := confirm(fmt.Sprintf("Deploy %s to %s?", physical, identityLine(identity, c.String("region"))))
		if err != nil {
			return err
		}
		if !ok {
			logger.Info().Str("stack", physical).Msg("Deploy aborted")
			return nil
		}
	}

	releaseSK := ksuid.New().String()

	locks := di.MustGet[*lockdao.DAO](container)
	holder, acquired, err := locks.Acquire(ctx, lockdao.AcquireInput{
		Env:       env,
		Stack:     stackName,
		ReleaseID: releaseSK,
		HolderArn: identity.Arn,
	})
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: held by %s since %s", apperrors.ErrLockHeld, holder.HolderArn,
			time.Unix(holder.AcquiredAt, 0).Format(time.RFC3339))
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

	secrets := di.MustGet[*services.SecretResolver](container)
	resolved, err := secrets.ResolveAll(ctx, combined)
	if err != nil {
		return err
	}
	merged := params.Merge(resolved)

	releases := di.MustGet[*releasedao.DAO](container)
	artifacts := di.MustGet[*services.ArtifactStore](container)
	prefix := services.ReleasePrefix(stackName, releaseSK)

	release, err := releases.Create(ctx, releasedao.CreateInput{
		Stack:        stackName,
		Env:          env,
		SK:           releaseSK,
		TemplateHash: tmpl.Hash(),
		ParamsDigest: params.Digest(merged),
		ArtifactKey:  prefix,
	})
	if err != nil {
		return err
	}

	if err := uploadSnapshots(ctx, artifacts, prefix, tmpl, combined); err != nil {
		return err
	}

	input := stack.DeployInput{
		StackName:       physical,
		Parameters:      merged,
		OnFailure:       types.OnFailure(c.String("on-failure")),
		DisableRollback: c.Bool("disable-rollback"),
		Tags: map[string]string{
			"Environment": env,
			"ReleaseID":   release.GetID().String(),
		},
	}
	if tmpl.Oversized() {
		input.TemplateURL = artifacts.URL(prefix, services.ArtifactTemplateName)
	} else {
		input.TemplateBody = tmpl.Body
	}

	engine := di.MustGet[*stack.Engine](container)
	result, err := engine.Deploy(ctx, input)
	if err != nil {
		return finishRelease(ctx, releases, release, "", err)
	}
	if result.Operation == stack.OperationNoop {
		logger.Info().Str("stack", physical).Msg("No changes to deploy")
		if err := finishRelease(ctx, releases, release, result.Operation, nil); err != nil {
			return err
		}
		// The stack is already settled; report its outputs like any
		// other successful deploy.
		current, err := engine.Describe(ctx, physical)
		if err != nil {
			return err
		}
		return printJSON(deployReport(physical, result.Operation, release.GetID().String(), current))
	}

	if err := updateRelease(ctx, releases, release, releasedao.StatusInProgress, result.Operation, nil); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancel()

	settled, err := engine.Wait(waitCtx, stack.WaitInput{
		StackName: physical,
		Operation: result.Operation,
	})
	if err != nil {
		return finishRelease(ctx, releases, release, result.Operation, err)
	}

	if err := finishRelease(ctx, releases, release, result.Operation, nil); err != nil {
		return err
	}
	return printJSON(deployReport(physical, result.Operation, release.GetID().String(), settled))
}

// deployReport shapes the JSON printed after every successful deploy,
// including no-op deploys against an already settled stack.
func deployReport(stackName, op, releaseID string, settled *types.Stack) map[string]any {
	return map[string]any{
		"stack_name": stackName,
		"operation":  op,
		"release_id": releaseID,
		"outputs":    stack.Outputs(settled),
	}
}

// loadDeployParams merges the base parameter file, its environment
// sibling, and --param overrides, highest precedence last.
func loadDeployParams(c *cli.Context, env string) (params.Set, error) {
	combined := make(params.Set)

	if path := c.String("params"); path != "" {
		set, err := params.LoadForEnv(path, env)
		if err != nil {
			return nil, err
		}
		maps.Copy(combined, set)
	}

	overrides, err := params.ParseOverrides(c.StringSlice("param"))
	if err != nil {
		return nil, err
	}
	maps.Copy(combined, overrides)

	return combined, nil
}

// checkGuardrails evaluates the template against the embedded rego
// policies and refuses to deploy on any violation.
func checkGuardrails(ctx context.Context, tmpl *template.Template, env, stackName string) error {
	doc, err := tmpl.Document()
	if err != nil {
		return err
	}

	validator, err := policy.NewValidator()
	if err != nil {
		return err
	}

	result, err := validator.ValidateTemplate(ctx, doc, env, stackName)
	if err != nil {
		return err
	}
	if !result.Allowed {
		return fmt.Errorf("%w: %v", apperrors.ErrPolicyViolation, result.Violations)
	}
	return nil
}

// checkImageTag verifies the ImageTag parameter points at a real image
// in the configured ECR repository before any stack mutation.
func checkImageTag(ctx context.Context, container di.Container, config *services.Config, set params.Set) error {
	tag, ok := set["ImageTag"]
	if config.ECRRepository == "" || !ok || tag == "" {
		return nil
	}
	checker := di.MustGet[*services.ImageChecker](container)
	return checker.CheckTag(ctx, config.ECRRepository, tag)
}

// uploadSnapshots stores the exact template and the unresolved
// parameter set alongside the release. Secret references are kept as
// references so secret values never land in S3.
func uploadSnapshots(ctx context.Context, artifacts *services.ArtifactStore, prefix string, tmpl *template.Template, set params.Set) error {
	if err := artifacts.Put(ctx, prefix, services.ArtifactTemplateName, tmpl.Body); err != nil {
		return err
	}

	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode parameter snapshot: %w", err)
	}
	return artifacts.Put(ctx, prefix, services.ArtifactParamsName, string(data))
}

func updateRelease(ctx context.Context, releases *releasedao.DAO, record releasedao.Record, status releasedao.Status, operation string, opErr error) error {
	input := releasedao.UpdateInput{
		PK:     record.PK,
		SK:     record.SK,
		Status: &status,
	}
	if operation != "" {
		input.Operation = &operation
	}
	if opErr != nil {
		msg := opErr.Error()
		input.ErrorMsg = &msg
	}
	return releases.UpdateStatus(ctx, input)
}

// finishRelease settles the release record as SUCCESS or FAILED and
// passes the operation error through.
func finishRelease(ctx context.Context, releases *releasedao.DAO, record releasedao.Record, operation string, opErr error) error {
	status := releasedao.StatusSuccess
	if opErr != nil {
		status = releasedao.StatusFailed
	}
	if err := updateRelease(context.WithoutCancel(ctx), releases, record, status, operation, opErr); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to update release record")
	}
	return opErr
}
