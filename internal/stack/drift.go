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

// PropertyDiff is a single drifted property on a resource.
type PropertyDiff struct {
	Path     string `json:"path"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Type     string `json:"type"`
}

// ResourceDrift is the drift state of one stack resource.
type ResourceDrift struct {
	LogicalID    string         `json:"logical_id"`
	ResourceType string         `json:"resource_type"`
	Status       string         `json:"status"`
	Differences  []PropertyDiff `json:"differences,omitempty"`
}

// DriftReport is the outcome of a full stack drift detection run.
type DriftReport struct {
	StackName    string          `json:"stack_name"`
	Status       string          `json:"status"`
	DriftedCount int32           `json:"drifted_count"`
	Resources    []ResourceDrift `json:"resources,omitempty"`
}

// Drifted reports whether any resource has diverged from the template.
func (r *DriftReport) Drifted() bool {
	return r.Status == string(types.StackDriftStatusDrifted)
}

// DetectDrift runs a full drift detection: start detection, poll until
// it finishes, then collect per-resource drift details for anything not
// in sync.
func (e *Engine) DetectDrift(ctx context.Context, stackName string, interval time.Duration) (report *DriftReport, err error) {
	logger := zerolog.Ctx(ctx)

	if interval <= 0 {
		interval = 5 * time.Second
	}

	defer func(begin time.Time) {
		logger.Info().
			Interface("error", err).
			Str("stack_name", stackName).
			Dur("duration", time.Since(begin)).
			Msg("DetectDrift completed")
	}(time.Now())

	detect, err := e.api.DetectStackDrift(ctx, &cloudformation.DetectStackDriftInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start drift detection for stack %s: %w", stackName, err)
	}

	detectionID := detect.StackDriftDetectionId

	status, err := e.waitDriftDetection(ctx, detectionID, interval)
	if err != nil {
		return nil, err
	}

	report = &DriftReport{
		StackName:    stackName,
		Status:       string(status.StackDriftStatus),
		DriftedCount: aws.ToInt32(status.DriftedStackResourceCount),
	}

	if status.StackDriftStatus == types.StackDriftStatusInSync {
		return report, nil
	}

	drifts, err := e.api.DescribeStackResourceDrifts(ctx, &cloudformation.DescribeStackResourceDriftsInput{
		StackName: aws.String(stackName),
		StackResourceDriftStatusFilters: []types.StackResourceDriftStatus{
			types.StackResourceDriftStatusModified,
			types.StackResourceDriftStatusDeleted,
			types.StackResourceDriftStatusNotChecked,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe resource drifts for stack %s: %w", stackName, err)
	}

	for i := range drifts.StackResourceDrifts {
		drift := &drifts.StackResourceDrifts[i]
		resource := ResourceDrift{
			LogicalID:    aws.ToString(drift.LogicalResourceId),
			ResourceType: aws.ToString(drift.ResourceType),
			Status:       string(drift.StackResourceDriftStatus),
		}
		for _, diff := range drift.PropertyDifferences {
			resource.Differences = append(resource.Differences, PropertyDiff{
				Path:     aws.ToString(diff.PropertyPath),
				Expected: aws.ToString(diff.ExpectedValue),
				Actual:   aws.ToString(diff.ActualValue),
				Type:     string(diff.DifferenceType),
			})
		}
		report.Resources = append(report.Resources, resource)
	}

	return report, nil
}

func (e *Engine) waitDriftDetection(ctx context.Context, detectionID *string, interval time.Duration) (*cloudformation.DescribeStackDriftDetectionStatusOutput, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := e.api.DescribeStackDriftDetectionStatus(ctx, &cloudformation.DescribeStackDriftDetectionStatusInput{
			StackDriftDetectionId: detectionID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to check drift detection status: %w", err)
		}

		switch status.DetectionStatus {
		case types.StackDriftDetectionStatusDetectionComplete:
			return status, nil
		case types.StackDriftDetectionStatusDetectionFailed:
			return nil, fmt.Errorf("drift detection failed: %s", aws.ToString(status.DetectionStatusReason))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("gave up waiting for drift detection: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
