package services

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	apperrors "github.com/harborops/stackpilot/internal/errors"
)

type fakeECR struct {
	tags map[string]bool
	err  error
}

func (f *fakeECR) DescribeImages(_ context.Context, in *ecr.DescribeImagesInput, _ ...func(*ecr.Options)) (*ecr.DescribeImagesOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	tag := aws.ToString(in.ImageIds[0].ImageTag)
	if !f.tags[tag] {
		return nil, &ecrtypes.ImageNotFoundException{}
	}
	return &ecr.DescribeImagesOutput{}, nil
}

func TestCheckTag(t *testing.T) {
	checker := NewImageChecker(&fakeECR{tags: map[string]bool{"v1.2.3": true}})

	if err := checker.CheckTag(context.Background(), "chat-api", "v1.2.3"); err != nil {
		t.Fatalf("existing tag failed: %v", err)
	}

	err := checker.CheckTag(context.Background(), "chat-api", "v9.9.9")
	if !errors.Is(err, apperrors.ErrImageTagNotFound) {
		t.Fatalf("expected ErrImageTagNotFound, got %v", err)
	}
}

func TestCheckTag_RepositoryMissing(t *testing.T) {
	checker := NewImageChecker(&fakeECR{err: &ecrtypes.RepositoryNotFoundException{}})

	err := checker.CheckTag(context.Background(), "nope", "v1.0.0")
	if !errors.Is(err, apperrors.ErrImageTagNotFound) {
		t.Fatalf("expected ErrImageTagNotFound, got %v", err)
	}
}

func TestCheckTag_OtherError(t *testing.T) {
	checker := NewImageChecker(&fakeECR{err: errors.New("throttled")})

	err := checker.CheckTag(context.Background(), "chat-api", "v1.0.0")
	if err == nil || errors.Is(err, apperrors.ErrImageTagNotFound) {
		t.Fatalf("expected passthrough error, got %v", err)
	}
}
