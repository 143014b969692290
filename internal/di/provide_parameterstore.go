package di

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/harborops/stackpilot/internal/services"
	"github.com/rs/zerolog"
)

// ProvideParameterStore provides a ParameterStore implementation.
// Uses SSM Parameter Store in AWS, falls back to environment variables
// when DISABLE_SSM=true (local development).
func ProvideParameterStore(ctx context.Context, ssmClient *ssm.Client, env string) services.ParameterStore {
	logger := zerolog.Ctx(ctx)

	if os.Getenv("DISABLE_SSM") == "true" {
		logger.Info().Msg("Using environment variables for configuration (SSM disabled)")
		return services.NewEnvParameterStore(env)
	}

	return services.NewSSMParameterStore(ssmClient, env)
}

// ProvideAppConfig loads tool configuration from the parameter store.
func ProvideAppConfig(ctx context.Context, store services.ParameterStore) (*services.Config, error) {
	logger := zerolog.Ctx(ctx)

	config, err := store.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Debug().
		Str("artifact_bucket", config.ArtifactBucket).
		Str("release_table", config.ReleaseTable).
		Str("lock_table", config.LockTable).
		Strs("env_ladder", config.EnvLadder).
		Msg("Configuration loaded")

	return config, nil
}
