package commands

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/harborops/stackpilot/internal/di"
	"github.com/harborops/stackpilot/internal/stack"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// OutputsCommand prints a stack's outputs, the values downstream
// tooling needs (instance ID, public IP, endpoint URL).
func OutputsCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "outputs",
		Usage: "Print stack outputs",
		Flags: []cli.Flag{
			stackNameFlag(),
			envFlag(),
			regionFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit outputs as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			return outputs(c, logger)
		},
	}
}

func outputs(c *cli.Context, logger *zerolog.Logger) error {
	physical := fmt.Sprintf("%s-%s", c.String("env"), c.String("stack-name"))

	container, err := newContainer(c)
	if err != nil {
		return err
	}

	engine := di.MustGet[*stack.Engine](container)
	described, err := engine.Describe(c.Context, physical)
	if err != nil {
		return err
	}

	values := stack.Outputs(described)
	if c.Bool("json") {
		return printJSON(values)
	}

	for _, key := range slices.Sorted(maps.Keys(values)) {
		fmt.Fprintf(os.Stdout, "%s\t%s\n", key, values[key])
	}
	return nil
}
