package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
)

// Bootstrap provisions the tool's own backing resources: the release
// and lock tables, the artifact bucket, and the SSM configuration.
// Every operation is idempotent.
type Bootstrap struct {
	dbClient  *dynamodb.Client
	s3Client  *s3.Client
	ssmClient *ssm.Client
	env       string
	region    string
}

func NewBootstrap(dbClient *dynamodb.Client, s3Client *s3.Client, ssmClient *ssm.Client, env, region string) *Bootstrap {
	return &Bootstrap{
		dbClient:  dbClient,
		s3Client:  s3Client,
		ssmClient: ssmClient,
		env:       env,
		region:    region,
	}
}

// EnsureTable creates a pk/sk table with on-demand billing. When
// withTTL is set, TTL is enabled on the "ttl" attribute.
func (b *Bootstrap) EnsureTable(ctx context.Context, tableName string, withTTL bool) error {
	logger := zerolog.Ctx(ctx)

	_, err := b.dbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(tableName),
		BillingMode: dynamodbtypes.BillingModePayPerRequest,
		AttributeDefinitions: []dynamodbtypes.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: dynamodbtypes.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: dynamodbtypes.ScalarAttributeTypeS},
		},
		KeySchema: []dynamodbtypes.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: dynamodbtypes.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: dynamodbtypes.KeyTypeRange},
		},
	})
	if err != nil {
		var inUse *dynamodbtypes.ResourceInUseException
		if !errors.As(err, &inUse) {
			return fmt.Errorf("failed to create table %s: %w", tableName, err)
		}
		logger.Info().Str("table", tableName).Msg("Table already exists")
	} else {
		logger.Info().Str("table", tableName).Msg("Created table")
	}

	if !withTTL {
		return nil
	}

	_, err = b.dbClient.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &dynamodbtypes.TimeToLiveSpecification{
			AttributeName: aws.String("ttl"),
			Enabled:       aws.Bool(true),
		},
	})
	if err != nil {
		// TTL is already enabled on re-runs; CreateTable above may also
		// still be in CREATING, in which case a later run settles it.
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException" {
			logger.Info().Str("table", tableName).Msg("TTL already enabled")
			return nil
		}
		return fmt.Errorf("failed to enable TTL on table %s: %w", tableName, err)
	}

	return nil
}

// EnsureBucket creates the artifact bucket if it does not exist.
func (b *Bootstrap) EnsureBucket(ctx context.Context, bucket string) error {
	logger := zerolog.Ctx(ctx)

	input := &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	}
	// us-east-1 rejects an explicit location constraint.
	if b.region != "" && b.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(b.region),
		}
	}

	_, err := b.s3Client.CreateBucket(ctx, input)
	if err != nil {
		var owned *s3types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			logger.Info().Str("bucket", bucket).Msg("Bucket already exists")
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	logger.Info().Str("bucket", bucket).Msg("Created bucket")
	return nil
}

// SeedConfig writes the tool's SSM parameters for this environment.
func (b *Bootstrap) SeedConfig(ctx context.Context, values map[string]string) error {
	logger := zerolog.Ctx(ctx)
	path := ConfigPath(b.env)

	for name, value := range values {
		if value == "" {
			continue
		}
		fullName := path + "/" + name
		_, err := b.ssmClient.PutParameter(ctx, &ssm.PutParameterInput{
			Name:      aws.String(fullName),
			Value:     aws.String(value),
			Type:      ssmtypes.ParameterTypeString,
			Overwrite: aws.Bool(true),
		})
		if err != nil {
			return fmt.Errorf("failed to put parameter %s: %w", fullName, err)
		}
		logger.Info().Str("name", fullName).Msg("Seeded parameter")
	}

	return nil
}
