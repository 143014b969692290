package commands

import (
	"fmt"

	"github.com/harborops/stackpilot/internal/di"
	"github.com/harborops/stackpilot/internal/stack"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// DriftCommand runs CloudFormation drift detection and reports every
// resource whose live configuration diverged from the template.
func DriftCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "drift",
		Usage: "Detect configuration drift against the deployed template",
		Flags: []cli.Flag{
			stackNameFlag(),
			envFlag(),
			regionFlag(),
			&cli.BoolFlag{
				Name:  "exit-code",
				Usage: "Exit non-zero when the stack has drifted",
			},
		},
		Action: func(c *cli.Context) error {
			return drift(c, logger)
		},
	}
}

func drift(c *cli.Context, logger *zerolog.Logger) error {
	physical := fmt.Sprintf("%s-%s", c.String("env"), c.String("stack-name"))

	container, err := newContainer(c)
	if err != nil {
		return err
	}

	engine := di.MustGet[*stack.Engine](container)
	report, err := engine.DetectDrift(c.Context, physical, 0)
	if err != nil {
		return err
	}

	if err := printJSON(report); err != nil {
		return err
	}

	if c.Bool("exit-code") && report.Drifted() {
		return fmt.Errorf("stack %s has drifted: %d resources", physical, report.DriftedCount)
	}
	return nil
}
