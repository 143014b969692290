package commands

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/harborops/stackpilot/internal/di"
	apperrors "github.com/harborops/stackpilot/internal/errors"
	"github.com/harborops/stackpilot/internal/services"
	"github.com/harborops/stackpilot/internal/stack"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// StatusCommand reports the stack's current status, its outputs, and
// the runtime state of the instance it launched.
func StatusCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show stack status, outputs, and instance health",
		Flags: []cli.Flag{
			stackNameFlag(),
			envFlag(),
			regionFlag(),
		},
		Action: func(c *cli.Context) error {
			return status(c, logger)
		},
	}
}

type statusReport struct {
	StackName   string                 `json:"stack_name"`
	StackStatus string                 `json:"stack_status"`
	Reason      string                 `json:"reason,omitempty"`
	Outputs     map[string]string      `json:"outputs,omitempty"`
	Instance    *services.InstanceInfo `json:"instance,omitempty"`
}

func status(c *cli.Context, logger *zerolog.Logger) error {
	ctx := c.Context
	physical := fmt.Sprintf("%s-%s", c.String("env"), c.String("stack-name"))

	container, err := newContainer(c)
	if err != nil {
		return err
	}

	engine := di.MustGet[*stack.Engine](container)
	described, err := engine.Describe(ctx, physical)
	if err != nil {
		if errors.Is(err, apperrors.ErrStackNotFound) {
			return fmt.Errorf("%w: %s", apperrors.ErrStackNotFound, physical)
		}
		return err
	}

	report := &statusReport{
		StackName:   physical,
		StackStatus: string(described.StackStatus),
		Reason:      aws.ToString(described.StackStatusReason),
		Outputs:     stack.Outputs(described),
	}

	// The stack only knows it created an instance; ask EC2 whether it
	// is actually running.
	if instanceID, ok := report.Outputs["InstanceId"]; ok {
		probe := di.MustGet[*services.InstanceProbe](container)
		info, err := probe.Describe(ctx, instanceID)
		if err != nil {
			logger.Warn().Err(err).Str("instance_id", instanceID).Msg("Failed to probe instance")
		} else {
			report.Instance = info
		}
	}

	return printJSON(report)
}
