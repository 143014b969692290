package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/harborops/stackpilot/internal/params"
)

// SecretsAPI is the Secrets Manager subset the resolver uses.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretResolver turns secretsmanager: parameter references into their
// values at deploy time so secrets never land in parameter files.
type SecretResolver struct {
	client SecretsAPI
}

func NewSecretResolver(client SecretsAPI) *SecretResolver {
	return &SecretResolver{client: client}
}

// Resolve fetches a secret value. When the reference carries a JSON key,
// the secret body is parsed and only that field returned.
func (s *SecretResolver) Resolve(ctx context.Context, ref params.SecretRef) (string, error) {
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(ref.Name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", ref.Name, err)
	}

	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", ref.Name)
	}

	if ref.JSONKey == "" {
		return *result.SecretString, nil
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(*result.SecretString), &body); err != nil {
		return "", fmt.Errorf("failed to unmarshal secret %s as JSON: %w", ref.Name, err)
	}

	value, ok := body[ref.JSONKey]
	if !ok {
		return "", fmt.Errorf("secret %s has no key %q", ref.Name, ref.JSONKey)
	}
	return value, nil
}

// ResolveAll resolves every secret reference in a parameter set,
// returning a new set with references replaced by values.
func (s *SecretResolver) ResolveAll(ctx context.Context, set params.Set) (params.Set, error) {
	refs := set.SecretRefs()
	if len(refs) == 0 {
		return set, nil
	}

	resolved := make(params.Set, len(set))
	for k, v := range set {
		resolved[k] = v
	}

	for key, ref := range refs {
		value, err := s.Resolve(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve parameter %s: %w", key, err)
		}
		resolved[key] = value
	}

	return resolved, nil
}
