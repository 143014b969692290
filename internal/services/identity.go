package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// STSAPI is the STS subset the identity service uses.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Identity is who is about to mutate which account. Shown in every
// confirmation prompt.
type Identity struct {
	Account string
	Arn     string
}

type IdentityService struct {
	client STSAPI
}

func NewIdentityService(client STSAPI) *IdentityService {
	return &IdentityService{client: client}
}

// Whoami resolves the caller's account and ARN.
func (s *IdentityService) Whoami(ctx context.Context) (*Identity, error) {
	result, err := s.client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to get caller identity: %w", err)
	}

	return &Identity{
		Account: aws.ToString(result.Account),
		Arn:     aws.ToString(result.Arn),
	}, nil
}
