package stack

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	apperrors "github.com/harborops/stackpilot/internal/errors"
)

func TestResources(t *testing.T) {
	api := &fakeAPI{
		describeStackResources: func(*cloudformation.DescribeStackResourcesInput) (*cloudformation.DescribeStackResourcesOutput, error) {
			return &cloudformation.DescribeStackResourcesOutput{
				StackResources: []types.StackResource{
					{LogicalResourceId: aws.String("VPC"), ResourceType: aws.String("AWS::EC2::VPC")},
					{LogicalResourceId: aws.String("Instance"), ResourceType: aws.String("AWS::EC2::Instance")},
				},
			}, nil
		},
	}

	resources, err := New(api).Resources(context.Background(), "dev-chat-api")
	if err != nil {
		t.Fatal(err)
	}
	if len(resources) != 2 {
		t.Errorf("got %d resources, want 2", len(resources))
	}
}

func TestWaitDeleted_Gone(t *testing.T) {
	var calls int
	api := &fakeAPI{
		describeStacks: func(in *cloudformation.DescribeStacksInput) (*cloudformation.DescribeStacksOutput, error) {
			calls++
			if calls == 1 {
				return describeOutput(types.StackStatusDeleteInProgress), nil
			}
			return nil, doesNotExistErr(aws.ToString(in.StackName))
		},
	}

	if err := New(api).WaitDeleted(context.Background(), "dev-chat-api", time.Millisecond); err != nil {
		t.Fatalf("WaitDeleted failed: %v", err)
	}
}

func TestWaitDeleted_Failed(t *testing.T) {
	api := &fakeAPI{
		describeStacks: func(*cloudformation.DescribeStacksInput) (*cloudformation.DescribeStacksOutput, error) {
			out := describeOutput(types.StackStatusDeleteFailed)
			out.Stacks[0].StackStatusReason = aws.String("resource retained")
			return out, nil
		},
		describeStackEvents: func(*cloudformation.DescribeStackEventsInput) (*cloudformation.DescribeStackEventsOutput, error) {
			return &cloudformation.DescribeStackEventsOutput{}, nil
		},
	}

	err := New(api).WaitDeleted(context.Background(), "dev-chat-api", time.Millisecond)
	if !errors.Is(err, apperrors.ErrStackOperationFailed) {
		t.Fatalf("expected ErrStackOperationFailed, got %v", err)
	}
}
