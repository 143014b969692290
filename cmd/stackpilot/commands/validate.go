package commands

import (
	"maps"

	"github.com/harborops/stackpilot/internal/di"
	"github.com/harborops/stackpilot/internal/params"
	"github.com/harborops/stackpilot/internal/stack"
	"github.com/harborops/stackpilot/internal/template"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// ValidateCommand checks a template and its parameters without touching
// any stack: local parse, placeholder scan, policy guardrails, then the
// CloudFormation ValidateTemplate API.
func ValidateCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate a template and parameter files without deploying",
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
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "Skip the CloudFormation ValidateTemplate API call",
			},
		},
		Action: func(c *cli.Context) error {
			return validate(c, logger)
		},
	}
}

func validate(c *cli.Context, logger *zerolog.Logger) error {
	ctx := c.Context
	env := c.String("env")
	stackName := c.String("stack-name")

	tmpl, err := template.Load(c.String("template"))
	if err != nil {
		return err
	}

	combined := make(params.Set)
	if path := c.String("params"); path != "" {
		set, err := params.LoadForEnv(path, env)
		if err != nil {
			return err
		}
		maps.Copy(combined, set)
	}
	overrides, err := params.ParseOverrides(c.StringSlice("param"))
	if err != nil {
		return err
	}
	maps.Copy(combined, overrides)

	if err := combined.Validate(); err != nil {
		return err
	}

	if err := checkGuardrails(ctx, tmpl, env, stackName); err != nil {
		return err
	}

	if !c.Bool("offline") {
		if tmpl.Oversized() {
			logger.Warn().
				Str("template", tmpl.Path).
				Int("bytes", len(tmpl.Body)).
				Msg("Template exceeds the ValidateTemplate body limit, skipping the API check")
		} else {
			container, err := newContainer(c)
			if err != nil {
				return err
			}

			engine := di.MustGet[*stack.Engine](container)
			if _, err := engine.ValidateTemplate(ctx, tmpl.Body, ""); err != nil {
				return err
			}
		}
	}

	logger.Info().
		Str("template", tmpl.Path).
		Str("template_hash", tmpl.Hash()).
		Int("parameters", len(combined)).
		Msg("Template is valid")
	return nil
}
