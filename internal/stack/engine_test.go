package stack

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/smithy-go"
)

// fakeAPI implements API with per-call function fields so each test
// wires only what it needs.
type fakeAPI struct {
	createStack                       func(*cloudformation.CreateStackInput) (*cloudformation.CreateStackOutput, error)
	updateStack                       func(*cloudformation.UpdateStackInput) (*cloudformation.UpdateStackOutput, error)
	deleteStack                       func(*cloudformation.DeleteStackInput) (*cloudformation.DeleteStackOutput, error)
	rollbackStack                     func(*cloudformation.RollbackStackInput) (*cloudformation.RollbackStackOutput, error)
	describeStacks                    func(*cloudformation.DescribeStacksInput) (*cloudformation.DescribeStacksOutput, error)
	describeStackEvents               func(*cloudformation.DescribeStackEventsInput) (*cloudformation.DescribeStackEventsOutput, error)
	describeStackResources            func(*cloudformation.DescribeStackResourcesInput) (*cloudformation.DescribeStackResourcesOutput, error)
	detectStackDrift                  func(*cloudformation.DetectStackDriftInput) (*cloudformation.DetectStackDriftOutput, error)
	describeStackDriftDetectionStatus func(*cloudformation.DescribeStackDriftDetectionStatusInput) (*cloudformation.DescribeStackDriftDetectionStatusOutput, error)
	describeStackResourceDrifts       func(*cloudformation.DescribeStackResourceDriftsInput) (*cloudformation.DescribeStackResourceDriftsOutput, error)
	validateTemplate                  func(*cloudformation.ValidateTemplateInput) (*cloudformation.ValidateTemplateOutput, error)
	getTemplate                       func(*cloudformation.GetTemplateInput) (*cloudformation.GetTemplateOutput, error)
}

func (f *fakeAPI) CreateStack(_ context.Context, params *cloudformation.CreateStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error) {
	return f.createStack(params)
}

func (f *fakeAPI) UpdateStack(_ context.Context, params *cloudformation.UpdateStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error) {
	return f.updateStack(params)
}

func (f *fakeAPI) DeleteStack(_ context.Context, params *cloudformation.DeleteStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error) {
	return f.deleteStack(params)
}

func (f *fakeAPI) RollbackStack(_ context.Context, params *cloudformation.RollbackStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.RollbackStackOutput, error) {
	return f.rollbackStack(params)
}

func (f *fakeAPI) DescribeStacks(_ context.Context, params *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	return f.describeStacks(params)
}

func (f *fakeAPI) DescribeStackEvents(_ context.Context, params *cloudformation.DescribeStackEventsInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStackEventsOutput, error) {
	return f.describeStackEvents(params)
}

func (f *fakeAPI) DescribeStackResources(_ context.Context, params *cloudformation.DescribeStackResourcesInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStackResourcesOutput, error) {
	return f.describeStackResources(params)
}

func (f *fakeAPI) DetectStackDrift(_ context.Context, params *cloudformation.DetectStackDriftInput, _ ...func(*cloudformation.Options)) (*cloudformation.DetectStackDriftOutput, error) {
	return f.detectStackDrift(params)
}

func (f *fakeAPI) DescribeStackDriftDetectionStatus(_ context.Context, params *cloudformation.DescribeStackDriftDetectionStatusInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStackDriftDetectionStatusOutput, error) {
	return f.describeStackDriftDetectionStatus(params)
}

func (f *fakeAPI) DescribeStackResourceDrifts(_ context.Context, params *cloudformation.DescribeStackResourceDriftsInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStackResourceDriftsOutput, error) {
	return f.describeStackResourceDrifts(params)
}

func (f *fakeAPI) ValidateTemplate(_ context.Context, params *cloudformation.ValidateTemplateInput, _ ...func(*cloudformation.Options)) (*cloudformation.ValidateTemplateOutput, error) {
	return f.validateTemplate(params)
}

func (f *fakeAPI) GetTemplate(_ context.Context, params *cloudformation.GetTemplateInput, _ ...func(*cloudformation.Options)) (*cloudformation.GetTemplateOutput, error) {
	return f.getTemplate(params)
}

// doesNotExistErr mirrors the ValidationError CloudFormation returns
// for unknown stack names.
func doesNotExistErr(stackName string) error {
	return &smithy.GenericAPIError{
		Code:    "ValidationError",
		Message: "Stack with id " + stackName + " does not exist",
	}
}

func noUpdatesErr() error {
	return &smithy.GenericAPIError{
		Code:    "ValidationError",
		Message: "No updates are to be performed.",
	}
}
