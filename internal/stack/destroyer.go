package stack

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/rs/zerolog"
)

// Resources lists the stack's current resources, used to show the
// operator exactly what a delete will destroy.
func (e *Engine) Resources(ctx context.Context, stackName string) ([]types.StackResource, error) {
	result, err := e.api.DescribeStackResources(ctx, &cloudformation.DescribeStackResourcesInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list resources for stack %s: %w", stackName, err)
	}
	return result.StackResources, nil
}

// Delete submits the stack deletion.
func (e *Engine) Delete(ctx context.Context, stackName string) error {
	_, err := e.api.DeleteStack(ctx, &cloudformation.DeleteStackInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		return fmt.Errorf("failed to delete stack %s: %w", stackName, err)
	}
	return nil
}

// WaitDeleted polls until the stack is gone. A DescribeStacks
// "does not exist" answer is the success condition; DELETE_FAILED
// surfaces the retained resources.
func (e *Engine) WaitDeleted(ctx context.Context, stackName string, interval time.Duration) (err error) {
	logger := zerolog.Ctx(ctx)

	if interval <= 0 {
		interval = DefaultPollInterval
	}

	defer func(begin time.Time) {
		logger.Info().
			Interface("error", err).
			Str("stack_name", stackName).
			Dur("duration", time.Since(begin)).
			Msg("WaitDeleted completed")
	}(time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := e.api.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
			StackName: aws.String(stackName),
		})
		if err != nil {
			if stackDoesNotExist(err) {
				return nil
			}
			return fmt.Errorf("failed to describe stack %s: %w", stackName, err)
		}

		if len(result.Stacks) == 0 {
			return nil
		}

		stack := &result.Stacks[0]
		status := stack.StackStatus
		logger.Info().
			Str("stack_name", stackName).
			Str("status", string(status)).
			Msg("Stack status")

		switch status {
		case types.StackStatusDeleteComplete:
			return nil
		case types.StackStatusDeleteFailed:
			return e.failureError(ctx, stackName, stack)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("gave up waiting for stack %s deletion (last status %s): %w",
				stackName, status, ctx.Err())
		case <-ticker.C:
		}
	}
}
