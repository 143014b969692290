package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/harborops/stackpilot/internal/services"
	"github.com/harborops/stackpilot/internal/stack"
)

func ProvideAWSConfig(ctx context.Context, region Region) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(string(region)))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}

func ProvideCloudFormationClient(config aws.Config) *cloudformation.Client {
	return cloudformation.NewFromConfig(config)
}

func ProvideDynamoDBClient(config aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(config)
}

func ProvideS3Client(config aws.Config) *s3.Client {
	return s3.NewFromConfig(config)
}

func ProvideSSMClient(config aws.Config) *ssm.Client {
	return ssm.NewFromConfig(config)
}

func ProvideSecretsManagerClient(config aws.Config) *secretsmanager.Client {
	return secretsmanager.NewFromConfig(config)
}

func ProvideECRClient(config aws.Config) *ecr.Client {
	return ecr.NewFromConfig(config)
}

func ProvideEC2Client(config aws.Config) *ec2.Client {
	return ec2.NewFromConfig(config)
}

func ProvideSTSClient(config aws.Config) *sts.Client {
	return sts.NewFromConfig(config)
}

func ProvideEngine(client *cloudformation.Client) *stack.Engine {
	return stack.New(client)
}

func ProvideArtifactStore(client *s3.Client, config *services.Config) *services.ArtifactStore {
	return services.NewArtifactStore(client, config.ArtifactBucket)
}

func ProvideSecretResolver(client *secretsmanager.Client) *services.SecretResolver {
	return services.NewSecretResolver(client)
}

func ProvideImageChecker(client *ecr.Client) *services.ImageChecker {
	return services.NewImageChecker(client)
}

func ProvideInstanceProbe(client *ec2.Client) *services.InstanceProbe {
	return services.NewInstanceProbe(client)
}

func ProvideIdentityService(client *sts.Client) *services.IdentityService {
	return services.NewIdentityService(client)
}
