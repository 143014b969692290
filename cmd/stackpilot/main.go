package main

import (
	"context"
	"os"

	"github.com/harborops/stackpilot/cmd/stackpilot/commands"
	"github.com/harborops/stackpilot/internal/di"
	"github.com/urfave/cli/v2"
)

func main() {
	logger := di.ProvideLogger()
	ctx := logger.WithContext(context.Background())

	app := &cli.App{
		Name:  "stackpilot",
		Usage: "CloudFormation stack provisioning and promotion toolkit",
		Description: `A CLI tool for managing CloudFormation stack lifecycles from local
template and parameter files.

This tool provides commands for:
  - Deploying stacks with policy guardrails and release history
  - Deleting stacks with explicit confirmation
  - Checking stack status, outputs, events, and configuration drift
  - Promoting releases through dev -> stg -> prd
  - Rolling back stacks stuck in UPDATE_FAILED`,
		Commands: []*cli.Command{
			commands.DeployCommand(&logger),
			commands.DeleteCommand(&logger),
			commands.StatusCommand(&logger),
			commands.OutputsCommand(&logger),
			commands.EventsCommand(&logger),
			commands.DriftCommand(&logger),
			commands.HistoryCommand(&logger),
			commands.PromoteCommand(&logger),
			commands.RollbackCommand(&logger),
			commands.ValidateCommand(&logger),
			commands.SetupCommand(&logger),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
