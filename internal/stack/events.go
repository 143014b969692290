package stack

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	apperrors "github.com/harborops/stackpilot/internal/errors"
)

// RecentEvents returns up to max of the newest stack events.
// DescribeStackEvents returns events in reverse chronological order.
func (e *Engine) RecentEvents(ctx context.Context, stackName string, max int) ([]types.StackEvent, error) {
	result, err := e.api.DescribeStackEvents(ctx, &cloudformation.DescribeStackEventsInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		if stackDoesNotExist(err) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrStackNotFound, stackName)
		}
		return nil, fmt.Errorf("failed to describe events for stack %s: %w", stackName, err)
	}

	events := result.StackEvents
	if max > 0 && len(events) > max {
		events = events[:max]
	}
	return events, nil
}

// FailureEvents returns up to max of the newest failed resource events.
func (e *Engine) FailureEvents(ctx context.Context, stackName string, max int) ([]types.StackEvent, error) {
	result, err := e.api.DescribeStackEvents(ctx, &cloudformation.DescribeStackEventsInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		return nil, err
	}

	var failed []types.StackEvent
	for i := range result.StackEvents {
		if len(failed) >= max {
			break
		}
		event := &result.StackEvents[i]
		if event.ResourceStatus == types.ResourceStatusCreateFailed ||
			event.ResourceStatus == types.ResourceStatusUpdateFailed ||
			event.ResourceStatus == types.ResourceStatusDeleteFailed {
			failed = append(failed, *event)
		}
	}

	return failed, nil
}
