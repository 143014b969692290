package stack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	apperrors "github.com/harborops/stackpilot/internal/errors"
	"github.com/rs/zerolog"
)

// DefaultPollInterval is how often the waiter re-describes the stack.
const DefaultPollInterval = 10 * time.Second

// WaitInput controls a wait for a terminal stack status. The deadline
// comes from the context; cancellation stops polling immediately.
type WaitInput struct {
	StackName string
	Operation string        // CREATE or UPDATE, selects the success status
	Interval  time.Duration // DefaultPollInterval when zero
}

var successStatuses = map[string]types.StackStatus{
	OperationCreate: types.StackStatusCreateComplete,
	OperationUpdate: types.StackStatusUpdateComplete,
}

var failedStatuses = []types.StackStatus{
	types.StackStatusCreateFailed,
	types.StackStatusUpdateFailed,
	types.StackStatusDeleteFailed,
	types.StackStatusRollbackFailed,
	types.StackStatusRollbackComplete,
	types.StackStatusUpdateRollbackFailed,
	types.StackStatusUpdateRollbackComplete,
}

func isFailedStatus(status types.StackStatus) bool {
	for _, failed := range failedStatuses {
		if status == failed {
			return true
		}
	}
	return false
}

// Wait polls the stack until it reaches the operation's success status,
// a failed status, or the context deadline. On failure the returned
// error carries the status reason and the most recent failed resource
// events.
func (e *Engine) Wait(ctx context.Context, input WaitInput) (stack *types.Stack, err error) {
	logger := zerolog.Ctx(ctx)

	interval := input.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	success, ok := successStatuses[input.Operation]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", input.Operation)
	}

	defer func(begin time.Time) {
		logger.Info().
			Interface("error", err).
			Str("stack_name", input.StackName).
			Dur("duration", time.Since(begin)).
			Msg("Wait completed")
	}(time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		current, err := e.Describe(ctx, input.StackName)
		if err != nil {
			return nil, err
		}

		status := current.StackStatus
		logger.Info().
			Str("stack_name", input.StackName).
			Str("status", string(status)).
			Msg("Stack status")

		switch {
		case status == success:
			return current, nil

		case isFailedStatus(status):
			return current, e.failureError(ctx, input.StackName, current)

		case status == types.StackStatusDeleteComplete:
			// ROLLBACK with OnFailure=DELETE ends here for failed creates.
			return current, fmt.Errorf("%w: stack %s was deleted during %s",
				apperrors.ErrStackOperationFailed, input.StackName, strings.ToLower(input.Operation))
		}

		select {
		case <-ctx.Done():
			return current, fmt.Errorf("gave up waiting for stack %s (last status %s): %w",
				input.StackName, status, ctx.Err())
		case <-ticker.C:
		}
	}
}

// failureError builds an error from the stack's status reason plus the
// most recent failed resource events.
func (e *Engine) failureError(ctx context.Context, stackName string, stack *types.Stack) error {
	logger := zerolog.Ctx(ctx)

	reason := aws.ToString(stack.StackStatusReason)

	events, err := e.FailureEvents(ctx, stackName, 10)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to get stack events")
	}

	var details []string
	for i := range events {
		event := &events[i]
		if event.ResourceStatusReason == nil {
			continue
		}
		logger.Info().
			Str("resource_id", aws.ToString(event.LogicalResourceId)).
			Str("status", string(event.ResourceStatus)).
			Str("reason", aws.ToString(event.ResourceStatusReason)).
			Msg("Stack event")
		details = append(details, fmt.Sprintf("%s: %s",
			aws.ToString(event.LogicalResourceId), aws.ToString(event.ResourceStatusReason)))
	}

	msg := fmt.Sprintf("%s ended in %s", stackName, stack.StackStatus)
	if reason != "" {
		msg += ": " + reason
	}
	if len(details) > 0 {
		msg += " [" + strings.Join(details, "; ") + "]"
	}
	return fmt.Errorf("%w: %s", apperrors.ErrStackOperationFailed, msg)
}
