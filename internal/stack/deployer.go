package stack

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	apperrors "github.com/harborops/stackpilot/internal/errors"
	"github.com/rs/zerolog"
)

const (
	OperationCreate = "CREATE"
	OperationUpdate = "UPDATE"
	OperationNoop   = "NOOP"
	OperationDelete = "DELETE"
)

// DeployInput describes a single create-or-update operation. Exactly one
// of TemplateBody and TemplateURL must be set.
type DeployInput struct {
	StackName       string
	TemplateBody    string
	TemplateURL     string
	Parameters      []types.Parameter
	Tags            map[string]string
	OnFailure       types.OnFailure // creates only; ROLLBACK when empty
	DisableRollback bool            // updates only
}

// DeployResult reports which operation was taken and the resulting stack ID.
type DeployResult struct {
	StackName string `json:"stack_name"`
	StackID   string `json:"stack_id"`
	Operation string `json:"operation"`
}

// Deploy creates the stack when it does not exist and updates it when it
// does. An update with no changes is reported as a NOOP, not an error.
func (e *Engine) Deploy(ctx context.Context, input DeployInput) (result *DeployResult, err error) {
	logger := zerolog.Ctx(ctx)

	defer func(begin time.Time) {
		logger.Info().
			Interface("error", err).
			Str("stack_name", input.StackName).
			Dur("duration", time.Since(begin)).
			Msg("Deploy completed")
	}(time.Now())

	exists, err := e.Exists(ctx, input.StackName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if stack exists: %w", err)
	}

	if exists {
		result, err = e.updateStack(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to update stack: %w", err)
		}
	} else {
		result, err = e.createStack(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to create stack: %w", err)
		}
	}

	logger.Info().
		Str("operation", result.Operation).
		Str("stack_name", result.StackName).
		Msg("Stack deployment submitted")
	return result, nil
}

// Exists checks stack existence via DescribeStacks.
func (e *Engine) Exists(ctx context.Context, stackName string) (bool, error) {
	_, err := e.api.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		if stackDoesNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Describe returns the stack, or ErrStackNotFound.
func (e *Engine) Describe(ctx context.Context, stackName string) (*types.Stack, error) {
	result, err := e.api.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		if stackDoesNotExist(err) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrStackNotFound, stackName)
		}
		return nil, fmt.Errorf("failed to describe stack %s: %w", stackName, err)
	}
	if len(result.Stacks) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrStackNotFound, stackName)
	}
	return &result.Stacks[0], nil
}

// Outputs flattens a stack's outputs into a map.
func Outputs(stack *types.Stack) map[string]string {
	outputs := make(map[string]string, len(stack.Outputs))
	for _, o := range stack.Outputs {
		outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return outputs
}

func (e *Engine) createStack(ctx context.Context, input DeployInput) (*DeployResult, error) {
	onFailure := input.OnFailure
	if onFailure == "" {
		onFailure = types.OnFailureRollback
	}

	create := &cloudformation.CreateStackInput{
		StackName:  aws.String(input.StackName),
		Parameters: input.Parameters,
		OnFailure:  onFailure,
		Capabilities: []types.Capability{
			types.CapabilityCapabilityIam,
			types.CapabilityCapabilityNamedIam,
		},
		Tags: stackTags(input.Tags),
	}
	setTemplate(&create.TemplateBody, &create.TemplateURL, input)

	result, err := e.api.CreateStack(ctx, create)
	if err != nil {
		return nil, err
	}

	return &DeployResult{
		StackName: input.StackName,
		StackID:   aws.ToString(result.StackId),
		Operation: OperationCreate,
	}, nil
}

func (e *Engine) updateStack(ctx context.Context, input DeployInput) (*DeployResult, error) {
	logger := zerolog.Ctx(ctx)

	update := &cloudformation.UpdateStackInput{
		StackName:  aws.String(input.StackName),
		Parameters: input.Parameters,
		Capabilities: []types.Capability{
			types.CapabilityCapabilityIam,
			types.CapabilityCapabilityNamedIam,
		},
	}
	if input.DisableRollback {
		update.DisableRollback = aws.Bool(true)
	}
	setTemplate(&update.TemplateBody, &update.TemplateURL, input)

	result, err := e.api.UpdateStack(ctx, update)
	if err != nil {
		if noUpdatesToPerform(err) {
			logger.Info().Str("stack_name", input.StackName).Msg("No updates needed for stack")
			return &DeployResult{
				StackName: input.StackName,
				StackID:   input.StackName,
				Operation: OperationNoop,
			}, nil
		}
		return nil, err
	}

	return &DeployResult{
		StackName: input.StackName,
		StackID:   aws.ToString(result.StackId),
		Operation: OperationUpdate,
	}, nil
}

func setTemplate(body, url **string, input DeployInput) {
	if input.TemplateURL != "" {
		*url = aws.String(input.TemplateURL)
		return
	}
	*body = aws.String(input.TemplateBody)
}

func stackTags(tags map[string]string) []types.Tag {
	result := []types.Tag{
		{
			Key:   aws.String("ManagedBy"),
			Value: aws.String("stackpilot"),
		},
	}
	for k, v := range tags {
		result = append(result, types.Tag{
			Key:   aws.String(k),
			Value: aws.String(v),
		})
	}
	return result
}

// ValidateTemplate runs server-side template validation.
func (e *Engine) ValidateTemplate(ctx context.Context, body, url string) (*cloudformation.ValidateTemplateOutput, error) {
	input := &cloudformation.ValidateTemplateInput{}
	if url != "" {
		input.TemplateURL = aws.String(url)
	} else {
		input.TemplateBody = aws.String(body)
	}

	result, err := e.api.ValidateTemplate(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("template validation failed: %w", err)
	}
	return result, nil
}

// Rollback rolls a stack in UPDATE_FAILED back to its last known good state.
func (e *Engine) Rollback(ctx context.Context, stackName string) error {
	_, err := e.api.RollbackStack(ctx, &cloudformation.RollbackStackInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		return fmt.Errorf("failed to roll back stack %s: %w", stackName, err)
	}
	return nil
}

// CurrentTemplate fetches the deployed template body for a stack.
func (e *Engine) CurrentTemplate(ctx context.Context, stackName string) (string, error) {
	result, err := e.api.GetTemplate(ctx, &cloudformation.GetTemplateInput{
		StackName:     aws.String(stackName),
		TemplateStage: types.TemplateStageOriginal,
	})
	if err != nil {
		if stackDoesNotExist(err) {
			return "", fmt.Errorf("%w: %s", apperrors.ErrStackNotFound, stackName)
		}
		return "", fmt.Errorf("failed to get template for stack %s: %w", stackName, err)
	}
	return aws.ToString(result.TemplateBody), nil
}
