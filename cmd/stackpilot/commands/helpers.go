package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/harborops/stackpilot/internal/di"
	"github.com/harborops/stackpilot/internal/services"
	"github.com/urfave/cli/v2"
)

// newContainer builds the DI container for a command invocation,
// carrying the command's context (and its logger) into the providers.
func newContainer(c *cli.Context) (di.Container, error) {
	return di.New(c.String("env"),
		di.WithContext(c.Context),
		di.WithRegion(c.String("region")),
	)
}

// envFlag and regionFlag are shared by every command that talks to AWS.
func envFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "env",
		Aliases: []string{"e"},
		Usage:   "Environment (dev, stg, prd)",
		EnvVars: []string{"ENV"},
		Value:   "dev",
	}
}

func regionFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "region",
		Usage:   "AWS region",
		EnvVars: []string{"AWS_REGION"},
	}
}

func stackNameFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "stack-name",
		Aliases:  []string{"s"},
		Usage:    "CloudFormation stack name",
		Required: true,
	}
}

// confirm asks a yes/no question. Declining is not an error; the caller
// aborts with exit code 0.
func confirm(message string) (bool, error) {
	var ok bool
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok)
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return ok, nil
}

// confirmToken asks the operator to type an exact token (the stack
// name) before a destructive operation. Anything else declines.
func confirmToken(message, token string) (bool, error) {
	var typed string
	err := survey.AskOne(&survey.Input{Message: message}, &typed)
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return typed == token, nil
}

// identityLine renders who is about to act on which account.
func identityLine(identity *services.Identity, region string) string {
	where := identity.Account
	if region != "" {
		where += "/" + region
	}
	return fmt.Sprintf("account %s as %s", where, identity.Arn)
}

// printJSON writes an indented JSON result to stdout.
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
