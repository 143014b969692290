package stack

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	apperrors "github.com/harborops/stackpilot/internal/errors"
)

func TestWait_Success(t *testing.T) {
	statuses := []types.StackStatus{
		types.StackStatusCreateInProgress,
		types.StackStatusCreateInProgress,
		types.StackStatusCreateComplete,
	}
	var calls int
	api := &fakeAPI{
		describeStacks: func(*cloudformation.DescribeStacksInput) (*cloudformation.DescribeStacksOutput, error) {
			status := statuses[calls]
			calls++
			return describeOutput(status), nil
		},
	}

	stack, err := New(api).Wait(context.Background(), WaitInput{
		StackName: "dev-chat-api",
		Operation: OperationCreate,
		Interval:  time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if stack.StackStatus != types.StackStatusCreateComplete {
		t.Errorf("status = %s, want CREATE_COMPLETE", stack.StackStatus)
	}
	if calls != 3 {
		t.Errorf("DescribeStacks called %d times, want 3", calls)
	}
}

func TestWait_Failure(t *testing.T) {
	api := &fakeAPI{
		describeStacks: func(*cloudformation.DescribeStacksInput) (*cloudformation.DescribeStacksOutput, error) {
			out := describeOutput(types.StackStatusRollbackComplete)
			out.Stacks[0].StackStatusReason = aws.String("The following resource(s) failed to create: [Instance]")
			return out, nil
		},
		describeStackEvents: func(*cloudformation.DescribeStackEventsInput) (*cloudformation.DescribeStackEventsOutput, error) {
			return &cloudformation.DescribeStackEventsOutput{
				StackEvents: []types.StackEvent{
					{
						LogicalResourceId:    aws.String("Instance"),
						ResourceStatus:       types.ResourceStatusCreateFailed,
						ResourceStatusReason: aws.String("The key pair 'missing' does not exist"),
					},
				},
			}, nil
		},
	}

	_, err := New(api).Wait(context.Background(), WaitInput{
		StackName: "dev-chat-api",
		Operation: OperationCreate,
		Interval:  time.Millisecond,
	})
	if !errors.Is(err, apperrors.ErrStackOperationFailed) {
		t.Fatalf("expected ErrStackOperationFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "key pair") {
		t.Errorf("error %q does not carry the resource failure reason", err.Error())
	}
}

func TestWait_DeletedDuringCreate(t *testing.T) {
	api := &fakeAPI{
		describeStacks: func(*cloudformation.DescribeStacksInput) (*cloudformation.DescribeStacksOutput, error) {
			return describeOutput(types.StackStatusDeleteComplete), nil
		},
	}

	_, err := New(api).Wait(context.Background(), WaitInput{
		StackName: "dev-chat-api",
		Operation: OperationCreate,
		Interval:  time.Millisecond,
	})
	if !errors.Is(err, apperrors.ErrStackOperationFailed) {
		t.Fatalf("expected ErrStackOperationFailed, got %v", err)
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	api := &fakeAPI{
		describeStacks: func(*cloudformation.DescribeStacksInput) (*cloudformation.DescribeStacksOutput, error) {
			return describeOutput(types.StackStatusCreateInProgress), nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(api).Wait(ctx, WaitInput{
		StackName: "dev-chat-api",
		Operation: OperationCreate,
		Interval:  5 * time.Millisecond,
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestWait_UnknownOperation(t *testing.T) {
	_, err := New(&fakeAPI{}).Wait(context.Background(), WaitInput{
		StackName: "dev-chat-api",
		Operation: "SHRUG",
	})
	if err == nil {
		t.Fatal("expected error for unknown operation")
	}
}
