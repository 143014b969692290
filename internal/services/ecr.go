package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	apperrors "github.com/harborops/stackpilot/internal/errors"
)

// ECRAPI is the ECR subset the image checker uses.
type ECRAPI interface {
	DescribeImages(ctx context.Context, params *ecr.DescribeImagesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeImagesOutput, error)
}

// ImageChecker verifies that an image tag exists before a deploy. The
// instance's user data pulls the image on boot; without this preflight a
// bad tag only surfaces minutes into a create, after the rollback.
type ImageChecker struct {
	client ECRAPI
}

func NewImageChecker(client ECRAPI) *ImageChecker {
	return &ImageChecker{client: client}
}

// CheckTag verifies the tag exists in the repository. A missing tag or
// repository maps to ErrImageTagNotFound.
func (c *ImageChecker) CheckTag(ctx context.Context, repository, tag string) error {
	_, err := c.client.DescribeImages(ctx, &ecr.DescribeImagesInput{
		RepositoryName: aws.String(repository),
		ImageIds: []ecrtypes.ImageIdentifier{
			{ImageTag: aws.String(tag)},
		},
	})
	if err != nil {
		var imageNotFound *ecrtypes.ImageNotFoundException
		var repoNotFound *ecrtypes.RepositoryNotFoundException
		if errors.As(err, &imageNotFound) || errors.As(err, &repoNotFound) {
			return fmt.Errorf("%w: %s:%s", apperrors.ErrImageTagNotFound, repository, tag)
		}
		return fmt.Errorf("failed to check image %s:%s: %w", repository, tag, err)
	}
	return nil
}
